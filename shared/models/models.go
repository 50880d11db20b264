package models

// Transaction is a single product sale as stored in the transactions collection.
// ID is assigned by the store on insert.
type Transaction struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image,omitempty"`
	Sold        bool    `json:"sold"`
	DateOfSale  string  `json:"dateOfSale"`
}

// SeedResult describes a completed bulk seed.
type SeedResult struct {
	BatchID  string `json:"batchId"`
	Inserted int    `json:"inserted"`
	Source   string `json:"source"`
}
