package storage

import (
	"fmt"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
)

// Manager implements interfaces.StorageManager using 2 storage areas:
// the ledger (assets and transactions) and the price cache.
type Manager struct {
	ledgerStore *Store
	priceStore  *Store
	ledger      interfaces.LedgerStore
	priceCache  interfaces.PriceCacheStore
	logger      *common.Logger
}

// NewManager creates a new StorageManager with the 2 storage areas.
func NewManager(logger *common.Logger, config *common.Config) (*Manager, error) {
	ledgerStore, err := NewStore(logger, config.Storage.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger store: %w", err)
	}

	priceStore, err := NewStore(logger, config.Storage.Prices.Path)
	if err != nil {
		ledgerStore.Close()
		return nil, fmt.Errorf("failed to create price store: %w", err)
	}

	logger.Info().
		Str("ledger", config.Storage.Ledger.Path).
		Str("prices", config.Storage.Prices.Path).
		Msg("Storage manager initialized (2 areas)")

	return &Manager{
		ledgerStore: ledgerStore,
		priceStore:  priceStore,
		ledger:      NewLedgerStore(ledgerStore, logger),
		priceCache:  NewPriceCacheStore(priceStore, logger),
		logger:      logger,
	}, nil
}

func (m *Manager) Ledger() interfaces.LedgerStore {
	return m.ledger
}

func (m *Manager) PriceCache() interfaces.PriceCacheStore {
	return m.priceCache
}

// Close closes both storage areas, reporting the first error.
func (m *Manager) Close() error {
	var firstErr error
	if err := m.ledgerStore.Close(); err != nil {
		firstErr = err
	}
	if err := m.priceStore.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Ensure Manager implements StorageManager
var _ interfaces.StorageManager = (*Manager)(nil)
