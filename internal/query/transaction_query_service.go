package query

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/eaglebank/product-transactions/internal/logger"
	"github.com/eaglebank/product-transactions/internal/repository"
	"github.com/eaglebank/product-transactions/shared/cache"
	"github.com/eaglebank/product-transactions/shared/cqrs"
	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	statisticsViewPrefix = "txview:statistics:"
	barChartViewPrefix   = "txview:bar-chart:"
	pieChartViewPrefix   = "txview:pie-chart:"
)

// ViewOptions configures the aggregate view caches.
type ViewOptions struct {
	TTL    time.Duration
	Logger zerolog.Logger
}

// Views holds the caches for aggregate read views. Any field may be nil.
type Views struct {
	Statistics *cache.ViewCache[models.Statistics]
	BarChart   *cache.ViewCache[[]models.PriceRangeCount]
	PieChart   *cache.ViewCache[[]models.CategoryCount]
}

// NewViews binds the three aggregate caches to one backend. A nil backend
// disables caching.
func NewViews(backend cache.Backend, opts ViewOptions) Views {
	if backend == nil {
		return Views{}
	}
	return Views{
		Statistics: cache.NewViewCache[models.Statistics](backend, statisticsViewPrefix, opts.TTL, opts.Logger),
		BarChart:   cache.NewViewCache[[]models.PriceRangeCount](backend, barChartViewPrefix, opts.TTL, opts.Logger),
		PieChart:   cache.NewViewCache[[]models.CategoryCount](backend, pieChartViewPrefix, opts.TTL, opts.Logger),
	}
}

// TransactionQueryService serves every read endpoint and is safe for concurrent use.
// generation counts view invalidations; a cache fill computed under an older
// generation is never left in the cache.
type TransactionQueryService struct {
	store      repository.TransactionStore
	mode       repository.MonthMatchMode
	views      Views
	generation atomic.Uint64
}

func NewTransactionQueryService(store repository.TransactionStore, mode repository.MonthMatchMode, views Views) *TransactionQueryService {
	return &TransactionQueryService{store: store, mode: mode, views: views}
}

func (s *TransactionQueryService) filter(month, search string) (repository.Filter, error) {
	m, err := repository.NewMonthFilter(s.mode, month)
	if err != nil {
		return repository.Filter{}, err
	}
	return repository.Filter{Month: m, Search: search}, nil
}

// ListTransactions returns one page of transactions for a month and optional search.
func (s *TransactionQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	f, err := s.filter(q.Month, q.Search)
	if err != nil {
		return nil, err
	}
	return s.store.Find(ctx, f, repository.PageFor(q.Page, q.PerPage))
}

func (s *TransactionQueryService) GetStatistics(ctx context.Context, q cqrs.MonthQuery) (*models.Statistics, error) {
	f, err := s.filter(q.Month, "")
	if err != nil {
		return nil, err
	}
	return s.statistics(ctx, f)
}

func (s *TransactionQueryService) GetBarChart(ctx context.Context, q cqrs.MonthQuery) ([]models.PriceRangeCount, error) {
	f, err := s.filter(q.Month, "")
	if err != nil {
		return nil, err
	}
	return s.barChart(ctx, f)
}

func (s *TransactionQueryService) GetPieChart(ctx context.Context, q cqrs.MonthQuery) ([]models.CategoryCount, error) {
	f, err := s.filter(q.Month, "")
	if err != nil {
		return nil, err
	}
	return s.pieChart(ctx, f)
}

// GetCombinedData runs the unpaginated list, statistics, bar chart and pie chart
// concurrently and returns once all four have finished. The first failure
// cancels the rest and is returned on its own.
func (s *TransactionQueryService) GetCombinedData(ctx context.Context, q cqrs.MonthQuery) (*models.CombinedView, error) {
	f, err := s.filter(q.Month, "")
	if err != nil {
		return nil, err
	}

	var (
		view  models.CombinedView
		stats *models.Statistics
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := s.store.Find(gctx, f, repository.Page{})
		if err != nil {
			return fmt.Errorf("transactions: %w", err)
		}
		view.Transactions = txs
		return nil
	})
	g.Go(func() error {
		st, err := s.statistics(gctx, f)
		if err != nil {
			return fmt.Errorf("statistics: %w", err)
		}
		stats = st
		return nil
	})
	g.Go(func() error {
		bars, err := s.barChart(gctx, f)
		if err != nil {
			return fmt.Errorf("bar chart: %w", err)
		}
		view.BarChart = bars
		return nil
	})
	g.Go(func() error {
		pie, err := s.pieChart(gctx, f)
		if err != nil {
			return fmt.Errorf("pie chart: %w", err)
		}
		view.PieChart = pie
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	view.Statistics = *stats
	return &view, nil
}

// InvalidateViews drops every cached aggregate. Called after the dataset changes.
// The generation moves before the flush so fills racing with it retract themselves.
func (s *TransactionQueryService) InvalidateViews(ctx context.Context) error {
	s.generation.Add(1)
	if err := s.views.Statistics.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush statistics views: %w", err)
	}
	if err := s.views.BarChart.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush bar chart views: %w", err)
	}
	if err := s.views.PieChart.Flush(ctx); err != nil {
		return fmt.Errorf("failed to flush pie chart views: %w", err)
	}
	return nil
}

func (s *TransactionQueryService) statistics(ctx context.Context, f repository.Filter) (*models.Statistics, error) {
	key := f.Month.Key()
	if v, ok := s.views.Statistics.Get(ctx, key); ok {
		return v, nil
	}
	gen := s.generation.Load()
	stats, err := s.store.Statistics(ctx, f)
	if err != nil {
		return nil, err
	}
	fillView(ctx, s, s.views.Statistics, gen, key, &stats)
	return &stats, nil
}

// barChart counts each price range with its own store query, all in flight at once.
func (s *TransactionQueryService) barChart(ctx context.Context, f repository.Filter) ([]models.PriceRangeCount, error) {
	key := f.Month.Key()
	if v, ok := s.views.BarChart.Get(ctx, key); ok {
		return *v, nil
	}

	gen := s.generation.Load()
	bars := make([]models.PriceRangeCount, len(repository.PriceRanges))
	g, gctx := errgroup.WithContext(ctx)
	for i, r := range repository.PriceRanges {
		i, r := i, r
		g.Go(func() error {
			n, err := s.store.CountInRange(gctx, f, r)
			if err != nil {
				return err
			}
			bars[i] = models.PriceRangeCount{Range: r.Label, Count: n}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	l := logger.FromContext(ctx)
	l.Debug().Str("month", key).Msg("bar chart computed")
	fillView(ctx, s, s.views.BarChart, gen, key, &bars)
	return bars, nil
}

func (s *TransactionQueryService) pieChart(ctx context.Context, f repository.Filter) ([]models.CategoryCount, error) {
	key := f.Month.Key()
	if v, ok := s.views.PieChart.Get(ctx, key); ok {
		return *v, nil
	}
	gen := s.generation.Load()
	pie, err := s.store.CountByCategory(ctx, f)
	if err != nil {
		return nil, err
	}
	if pie == nil {
		pie = []models.CategoryCount{}
	}
	fillView(ctx, s, s.views.PieChart, gen, key, &pie)
	return pie, nil
}

// fillView caches value computed under generation gen. Values from before an
// invalidation are skipped; one written while a flush was in flight is deleted
// again on the second check.
func fillView[T any](ctx context.Context, s *TransactionQueryService, c *cache.ViewCache[T], gen uint64, key string, value *T) {
	if s.generation.Load() != gen {
		return
	}
	c.Set(ctx, key, value)
	if s.generation.Load() != gen {
		c.Delete(ctx, key)
	}
}
