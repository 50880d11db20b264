package command

import (
	"context"
	"fmt"

	"github.com/eaglebank/product-transactions/internal/logger"
	"github.com/eaglebank/product-transactions/shared/events"
	"github.com/eaglebank/product-transactions/shared/models"
	"github.com/eaglebank/product-transactions/shared/utils"
)

// SeedSource fetches the seed dataset.
type SeedSource interface {
	Fetch(ctx context.Context) ([]models.Transaction, error)
	URL() string
}

// TransactionWriter bulk-inserts transactions.
type TransactionWriter interface {
	InsertMany(ctx context.Context, transactions []models.Transaction) (int, error)
}

// ViewInvalidator drops cached read views after the dataset changes.
type ViewInvalidator interface {
	InvalidateViews(ctx context.Context) error
}

// EventPublisher appends an event to a stream.
type EventPublisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) error
}

// SeedCommandService loads the seed dataset into the store. Seeding is additive:
// running it twice stores every record twice.
type SeedCommandService struct {
	source    SeedSource
	store     TransactionWriter
	views     ViewInvalidator
	publisher EventPublisher
}

// NewSeedCommandService wires the seed command. views and publisher may be nil.
func NewSeedCommandService(source SeedSource, store TransactionWriter, views ViewInvalidator, publisher EventPublisher) *SeedCommandService {
	return &SeedCommandService{
		source:    source,
		store:     store,
		views:     views,
		publisher: publisher,
	}
}

func (s *SeedCommandService) SeedTransactions(ctx context.Context) (*models.SeedResult, error) {
	log := logger.FromContext(ctx)

	transactions, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seed data: %w", err)
	}

	inserted := 0
	if len(transactions) > 0 {
		inserted, err = s.store.InsertMany(ctx, transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to insert seed data: %w", err)
		}
	}

	result := &models.SeedResult{
		BatchID:  utils.GenerateID("seed"),
		Inserted: inserted,
		Source:   s.source.URL(),
	}
	log.Info().Str("batch_id", result.BatchID).Int("inserted", inserted).Msg("transactions seeded")

	if s.views != nil {
		if err := s.views.InvalidateViews(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate cached views")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.TransactionEventsStream, events.TransactionsSeeded, events.TransactionsSeededEvent{
			BatchID:  result.BatchID,
			Inserted: result.Inserted,
			Source:   result.Source,
		}); err != nil {
			log.Warn().Err(err).Msg("failed to publish transactions.seeded event")
		}
	}
	return result, nil
}
