package repository

import (
	"context"
	"errors"

	"github.com/eaglebank/product-transactions/shared/models"
)

// ErrInvalidMonth is returned when a month value cannot be interpreted under
// the configured match mode.
var ErrInvalidMonth = errors.New("invalid month")

// Page windows a result set. A zero Limit returns every remaining record.
type Page struct {
	Skip  int64
	Limit int64
}

// PageFor converts a 1-based page number and page size into a Page.
func PageFor(page, perPage int) Page {
	if page < 1 {
		page = 1
	}
	return Page{Skip: int64(page-1) * int64(perPage), Limit: int64(perPage)}
}

// TransactionStore is the document store contract every backend implements.
// Implementations must be safe for concurrent use; reads never take exclusive locks.
type TransactionStore interface {
	// InsertMany adds all transactions in one bulk operation and returns how many
	// were stored. Store-assigned IDs are not written back.
	InsertMany(ctx context.Context, transactions []models.Transaction) (int, error)
	// Find returns matching transactions in the store's natural order.
	Find(ctx context.Context, filter Filter, page Page) ([]models.Transaction, error)
	// Statistics sums price and sold flags over matching transactions.
	Statistics(ctx context.Context, filter Filter) (models.Statistics, error)
	// CountInRange counts matching transactions whose price falls in r.
	CountInRange(ctx context.Context, filter Filter, r PriceRange) (int64, error)
	// CountByCategory groups matching transactions by category, ordered by name.
	CountByCategory(ctx context.Context, filter Filter) ([]models.CategoryCount, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
