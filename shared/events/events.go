package events

import "time"

// Event types
const (
	TransactionsSeeded = "transactions.seeded"
)

// Stream names
const (
	TransactionEventsStream = "transaction.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// TransactionsSeededEvent is published after a bulk seed lands in the store.
type TransactionsSeededEvent struct {
	BatchID  string `json:"batchId"`
	Inserted int    `json:"inserted"`
	Source   string `json:"source"`
}
