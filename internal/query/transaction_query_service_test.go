package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/eaglebank/product-transactions/internal/repository"
	"github.com/eaglebank/product-transactions/shared/cache"
	"github.com/eaglebank/product-transactions/shared/cqrs"
	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	store := repository.NewMemoryStore()
	_, err := store.InsertMany(context.Background(), []models.Transaction{
		{Title: "Red Jacket", Description: "warm winter jacket", Price: 50, Category: "men's clothing", Sold: true, DateOfSale: "2021-01-05T10:00:00.000Z"},
		{Title: "Gold Ring", Description: "18k gold", Price: 150, Category: "jewelery", Sold: true, DateOfSale: "2022-01-20T10:00:00.000Z"},
		{Title: "Monitor", Description: "27 inch display", Price: 150, Category: "electronics", Sold: false, DateOfSale: "2021-01-27T10:00:00.000Z"},
		{Title: "SSD", Description: "fast storage", Price: 950, Category: "electronics", Sold: true, DateOfSale: "2021-03-14T10:00:00.000Z"},
	})
	require.NoError(t, err)
	return store
}

// failingStore fails CountByCategory and records whether other calls saw a cancelled context.
type failingStore struct {
	*repository.MemoryStore
	err       error
	cancelled atomic.Int32
}

func (s *failingStore) CountByCategory(ctx context.Context, f repository.Filter) ([]models.CategoryCount, error) {
	return nil, s.err
}

func (s *failingStore) CountInRange(ctx context.Context, f repository.Filter, r repository.PriceRange) (int64, error) {
	select {
	case <-ctx.Done():
		s.cancelled.Add(1)
		return 0, ctx.Err()
	case <-time.After(2 * time.Second):
		return s.MemoryStore.CountInRange(ctx, f, r)
	}
}

// slowStatsStore holds its first Statistics call open, after reading the rows,
// until release is closed.
type slowStatsStore struct {
	*repository.MemoryStore
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (s *slowStatsStore) Statistics(ctx context.Context, f repository.Filter) (models.Statistics, error) {
	stats, err := s.MemoryStore.Statistics(ctx, f)
	s.once.Do(func() {
		close(s.entered)
		<-s.release
	})
	return stats, err
}

// hookBackend runs beforeSet once, just before the first write reaches the backend.
type hookBackend struct {
	*cache.LocalBackend
	once      sync.Once
	beforeSet func()
}

func (b *hookBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.once.Do(b.beforeSet)
	return b.LocalBackend.Set(ctx, key, value, ttl)
}

func cachedService(store repository.TransactionStore, backend cache.Backend) *TransactionQueryService {
	return NewTransactionQueryService(store, repository.MonthMatchCalendar, NewViews(backend, ViewOptions{
		TTL:    time.Minute,
		Logger: zerolog.Nop(),
	}))
}

var keyboardSale = models.Transaction{Title: "Keyboard", Price: 50, Category: "electronics", Sold: true, DateOfSale: "2021-03-01T10:00:00.000Z"}

func TestGetStatistics(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})

	stats, err := svc.GetStatistics(context.Background(), cqrs.MonthQuery{Month: "January"})
	require.NoError(t, err)
	assert.Equal(t, 350.0, stats.TotalAmount)
	assert.Equal(t, int64(2), stats.TotalSold)
	assert.Equal(t, int64(1), stats.TotalNotSold)

	stats, err = svc.GetStatistics(context.Background(), cqrs.MonthQuery{Month: "July"})
	require.NoError(t, err)
	assert.Equal(t, models.Statistics{}, *stats)
}

func TestGetStatistics_InvalidMonth(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})

	_, err := svc.GetStatistics(context.Background(), cqrs.MonthQuery{Month: "Smarch"})
	assert.ErrorIs(t, err, repository.ErrInvalidMonth)
}

func TestGetBarChart(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})

	bars, err := svc.GetBarChart(context.Background(), cqrs.MonthQuery{})
	require.NoError(t, err)
	require.Len(t, bars, len(repository.PriceRanges))

	var total int64
	for i, b := range bars {
		assert.Equal(t, repository.PriceRanges[i].Label, b.Range)
		total += b.Count
	}
	assert.Equal(t, int64(4), total)
	assert.Equal(t, int64(1), bars[0].Count)
	assert.Equal(t, int64(2), bars[1].Count)
	assert.Equal(t, int64(1), bars[9].Count)
}

func TestGetPieChart(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})

	pie, err := svc.GetPieChart(context.Background(), cqrs.MonthQuery{Month: "1"})
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryCount{
		{Category: "electronics", ItemCount: 1},
		{Category: "jewelery", ItemCount: 1},
		{Category: "men's clothing", ItemCount: 1},
	}, pie)

	pie, err = svc.GetPieChart(context.Background(), cqrs.MonthQuery{Month: "12"})
	require.NoError(t, err)
	assert.NotNil(t, pie)
	assert.Empty(t, pie)
}

func TestListTransactions(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})

	tests := []struct {
		name   string
		query  cqrs.ListTransactionsQuery
		titles []string
	}{
		{name: "all", query: cqrs.ListTransactionsQuery{Page: 1, PerPage: 10}, titles: []string{"Red Jacket", "Gold Ring", "Monitor", "SSD"}},
		{name: "month", query: cqrs.ListTransactionsQuery{Month: "Jan", Page: 1, PerPage: 10}, titles: []string{"Red Jacket", "Gold Ring", "Monitor"}},
		{name: "search description", query: cqrs.ListTransactionsQuery{Search: "GOLD", Page: 1, PerPage: 10}, titles: []string{"Gold Ring"}},
		{name: "search price", query: cqrs.ListTransactionsQuery{Search: "950", Page: 1, PerPage: 10}, titles: []string{"SSD"}},
		{name: "second page", query: cqrs.ListTransactionsQuery{Page: 2, PerPage: 3}, titles: []string{"SSD"}},
		{name: "past the end", query: cqrs.ListTransactionsQuery{Page: 5, PerPage: 3}, titles: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txs, err := svc.ListTransactions(context.Background(), tt.query)
			require.NoError(t, err)
			titles := []string{}
			for _, tx := range txs {
				titles = append(titles, tx.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestGetCombinedData_MatchesIndividualViews(t *testing.T) {
	svc := NewTransactionQueryService(seededStore(t), repository.MonthMatchCalendar, Views{})
	ctx := context.Background()
	q := cqrs.MonthQuery{Month: "January"}

	combined, err := svc.GetCombinedData(ctx, q)
	require.NoError(t, err)

	txs, err := svc.ListTransactions(ctx, cqrs.ListTransactionsQuery{Month: q.Month})
	require.NoError(t, err)
	stats, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	bars, err := svc.GetBarChart(ctx, q)
	require.NoError(t, err)
	pie, err := svc.GetPieChart(ctx, q)
	require.NoError(t, err)

	assert.Equal(t, txs, combined.Transactions)
	assert.Equal(t, *stats, combined.Statistics)
	assert.Equal(t, bars, combined.BarChart)
	assert.Equal(t, pie, combined.PieChart)
}

func TestGetCombinedData_FirstErrorCancelsSiblings(t *testing.T) {
	boom := errors.New("aggregation failed")
	store := &failingStore{MemoryStore: seededStore(t), err: boom}
	svc := NewTransactionQueryService(store, repository.MonthMatchCalendar, Views{})

	start := time.Now()
	view, err := svc.GetCombinedData(context.Background(), cqrs.MonthQuery{})

	assert.Nil(t, view)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(len(repository.PriceRanges)), store.cancelled.Load())
}

func TestViews_CacheAndInvalidate(t *testing.T) {
	store := seededStore(t)
	backend := cache.NewLocalBackend(time.Minute)
	svc := NewTransactionQueryService(store, repository.MonthMatchCalendar, NewViews(backend, ViewOptions{
		TTL:    time.Minute,
		Logger: zerolog.Nop(),
	}))
	ctx := context.Background()
	q := cqrs.MonthQuery{Month: "March"}

	first, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 950.0, first.TotalAmount)

	_, err = store.InsertMany(ctx, []models.Transaction{keyboardSale})
	require.NoError(t, err)

	cached, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 950.0, cached.TotalAmount)

	require.NoError(t, svc.InvalidateViews(ctx))

	fresh, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, fresh.TotalAmount)
	assert.Equal(t, int64(2), fresh.TotalSold)
}

func TestInvalidateViews_Disabled(t *testing.T) {
	svc := NewTransactionQueryService(repository.NewMemoryStore(), repository.MonthMatchSubstring, Views{})
	assert.NoError(t, svc.InvalidateViews(context.Background()))
	assert.Equal(t, Views{}, NewViews(nil, ViewOptions{}))
}

func TestViews_ReadSpanningInvalidationIsNotCached(t *testing.T) {
	ctx := context.Background()
	store := &slowStatsStore{MemoryStore: seededStore(t), entered: make(chan struct{}), release: make(chan struct{})}
	svc := cachedService(store, cache.NewLocalBackend(time.Minute))
	q := cqrs.MonthQuery{Month: "March"}

	done := make(chan *models.Statistics, 1)
	go func() {
		stats, err := svc.GetStatistics(ctx, q)
		assert.NoError(t, err)
		done <- stats
	}()

	<-store.entered
	_, err := store.InsertMany(ctx, []models.Transaction{keyboardSale})
	require.NoError(t, err)
	require.NoError(t, svc.InvalidateViews(ctx))
	close(store.release)

	late := <-done
	require.NotNil(t, late)
	assert.Equal(t, 950.0, late.TotalAmount)

	fresh, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, fresh.TotalAmount)
	assert.Equal(t, int64(2), fresh.TotalSold)
}

func TestViews_FlushDuringCacheWriteIsRetracted(t *testing.T) {
	ctx := context.Background()
	store := seededStore(t)
	backend := &hookBackend{LocalBackend: cache.NewLocalBackend(time.Minute)}
	svc := cachedService(store, backend)
	backend.beforeSet = func() {
		_, err := store.InsertMany(ctx, []models.Transaction{keyboardSale})
		require.NoError(t, err)
		require.NoError(t, svc.InvalidateViews(ctx))
	}
	q := cqrs.MonthQuery{Month: "March"}

	late, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 950.0, late.TotalAmount)

	fresh, err := svc.GetStatistics(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, fresh.TotalAmount)
}
