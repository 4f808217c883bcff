package storage

import (
	"context"
	"fmt"

	"github.com/timshannon/badgerhold/v4"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/models"
)

type priceCacheStore struct {
	store  *Store
	logger *common.Logger
}

// NewPriceCacheStore creates a PriceCacheStore backed by BadgerHold.
func NewPriceCacheStore(store *Store, logger *common.Logger) *priceCacheStore {
	return &priceCacheStore{store: store, logger: logger}
}

// Get returns the cached entry for a (symbol, class) pair, or nil when
// no entry exists. Staleness is the caller's concern.
func (s *priceCacheStore) Get(_ context.Context, symbol string, class models.AssetClass) (*models.PriceCacheEntry, error) {
	var entry models.PriceCacheEntry
	err := s.store.db.Get(models.PriceCacheKey(symbol, class), &entry)
	if err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached price for '%s': %w", symbol, err)
	}
	return &entry, nil
}

func (s *priceCacheStore) Put(_ context.Context, entry *models.PriceCacheEntry) error {
	if entry.Key == "" {
		entry.Key = models.PriceCacheKey(entry.Symbol, entry.Class)
	}

	if err := s.store.db.Upsert(entry.Key, entry); err != nil {
		return fmt.Errorf("failed to cache price for '%s': %w", entry.Symbol, err)
	}
	s.logger.Debug().Str("symbol", entry.Symbol).Float64("price", entry.Price).Msg("Price cached")
	return nil
}
