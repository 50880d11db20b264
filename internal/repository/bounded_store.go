package repository

import (
	"context"
	"fmt"

	"github.com/eaglebank/product-transactions/shared/models"
	"golang.org/x/sync/semaphore"
)

// BoundedStore caps the number of store operations in flight across all
// requests. Only leaf operations hold a slot, so nested fan-outs cannot deadlock.
type BoundedStore struct {
	next TransactionStore
	sem  *semaphore.Weighted
}

// NewBoundedStore wraps next so that at most limit operations run at once.
// A limit below 1 returns next unchanged.
func NewBoundedStore(next TransactionStore, limit int64) TransactionStore {
	if limit < 1 {
		return next
	}
	return &BoundedStore{next: next, sem: semaphore.NewWeighted(limit)}
}

func (b *BoundedStore) acquire(ctx context.Context) (func(), error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for store slot: %w", err)
	}
	return func() { b.sem.Release(1) }, nil
}

func (b *BoundedStore) InsertMany(ctx context.Context, transactions []models.Transaction) (int, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return b.next.InsertMany(ctx, transactions)
}

func (b *BoundedStore) Find(ctx context.Context, filter Filter, page Page) ([]models.Transaction, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return b.next.Find(ctx, filter, page)
}

func (b *BoundedStore) Statistics(ctx context.Context, filter Filter) (models.Statistics, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return models.Statistics{}, err
	}
	defer release()
	return b.next.Statistics(ctx, filter)
}

func (b *BoundedStore) CountInRange(ctx context.Context, filter Filter, r PriceRange) (int64, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return b.next.CountInRange(ctx, filter, r)
}

func (b *BoundedStore) CountByCategory(ctx context.Context, filter Filter) ([]models.CategoryCount, error) {
	release, err := b.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()
	return b.next.CountByCategory(ctx, filter)
}

func (b *BoundedStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}

func (b *BoundedStore) Close(ctx context.Context) error {
	return b.next.Close(ctx)
}
