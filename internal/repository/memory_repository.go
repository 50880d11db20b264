package repository

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"sync"

	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/shopspring/decimal"
)

// MemoryStore keeps transactions in process memory in insertion order.
// It backs local development and tests and follows the same filter semantics
// as the database backends.
type MemoryStore struct {
	mu     sync.RWMutex
	rows   []models.Transaction
	nextID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) InsertMany(ctx context.Context, transactions []models.Transaction) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range transactions {
		s.nextID++
		t.ID = strconv.FormatInt(s.nextID, 10)
		s.rows = append(s.rows, t)
	}
	return len(transactions), nil
}

func (s *MemoryStore) Find(ctx context.Context, filter Filter, page Page) ([]models.Transaction, error) {
	match, err := compileMatcher(filter)
	if err != nil {
		return nil, err
	}
	var skipped int64
	out := []models.Transaction{}
	err = s.scan(ctx, func(t models.Transaction) bool {
		if !match(t) {
			return true
		}
		if skipped < page.Skip {
			skipped++
			return true
		}
		out = append(out, t)
		return page.Limit == 0 || int64(len(out)) < page.Limit
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *MemoryStore) Statistics(ctx context.Context, filter Filter) (models.Statistics, error) {
	match, err := compileMatcher(filter)
	if err != nil {
		return models.Statistics{}, err
	}
	var stats models.Statistics
	total := decimal.Zero
	err = s.scan(ctx, func(t models.Transaction) bool {
		if !match(t) {
			return true
		}
		total = total.Add(decimal.NewFromFloat(t.Price))
		if t.Sold {
			stats.TotalSold++
		} else {
			stats.TotalNotSold++
		}
		return true
	})
	if err != nil {
		return models.Statistics{}, err
	}
	stats.TotalAmount = total.InexactFloat64()
	return stats, nil
}

func (s *MemoryStore) CountInRange(ctx context.Context, filter Filter, r PriceRange) (int64, error) {
	match, err := compileMatcher(filter)
	if err != nil {
		return 0, err
	}
	var n int64
	err = s.scan(ctx, func(t models.Transaction) bool {
		if match(t) && r.Contains(t.Price) {
			n++
		}
		return true
	})
	return n, err
}

func (s *MemoryStore) CountByCategory(ctx context.Context, filter Filter) ([]models.CategoryCount, error) {
	match, err := compileMatcher(filter)
	if err != nil {
		return nil, err
	}
	counts := map[string]int64{}
	err = s.scan(ctx, func(t models.Transaction) bool {
		if match(t) {
			counts[t.Category]++
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	out := make([]models.CategoryCount, 0, len(counts))
	for category, n := range counts {
		out = append(out, models.CategoryCount{Category: category, ItemCount: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) Close(context.Context) error {
	return nil
}

// scan visits rows in insertion order under a read lock until fn returns false.
func (s *MemoryStore) scan(ctx context.Context, fn func(models.Transaction) bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.rows {
		if !fn(t) {
			break
		}
	}
	return nil
}

func compileMatcher(filter Filter) (func(models.Transaction) bool, error) {
	month, err := compileInsensitive(filter.Month.Pattern())
	if err != nil {
		return nil, fmt.Errorf("failed to compile month filter: %w", err)
	}
	search, err := compileInsensitive(filter.SearchPattern())
	if err != nil {
		return nil, fmt.Errorf("failed to compile search filter: %w", err)
	}
	return func(t models.Transaction) bool {
		if month != nil && !month.MatchString(t.DateOfSale) {
			return false
		}
		if search == nil {
			return true
		}
		return search.MatchString(t.Title) ||
			search.MatchString(t.Description) ||
			search.MatchString(FormatPrice(t.Price))
	}, nil
}

func compileInsensitive(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile("(?i)" + pattern)
}
