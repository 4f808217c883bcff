package interfaces

import (
	"context"

	"github.com/gspavan07/stockconnect/internal/models"
)

// StorageManager coordinates the storage areas.
type StorageManager interface {
	Ledger() LedgerStore
	PriceCache() PriceCacheStore

	// Lifecycle
	Close() error
}

// LedgerStore persists assets and transactions. Reads never mutate records;
// the analysis and pricing paths treat ledger data as read-only.
type LedgerStore interface {
	// Assets
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	FindAsset(ctx context.Context, symbol string, class models.AssetClass) (*models.Asset, error)
	SaveAsset(ctx context.Context, asset *models.Asset) error
	DeleteAsset(ctx context.Context, id string) error
	ListAssets(ctx context.Context) ([]*models.Asset, error)
	ListAssetsByClass(ctx context.Context, class models.AssetClass) ([]*models.Asset, error)

	// Transactions, ordered by date ascending with insertion-order tie-break.
	SaveTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	ListTransactionsForAsset(ctx context.Context, assetID string) ([]*models.Transaction, error)
}

// PriceCacheStore persists the last resolved live price per (symbol, class).
type PriceCacheStore interface {
	Get(ctx context.Context, symbol string, class models.AssetClass) (*models.PriceCacheEntry, error)
	Put(ctx context.Context, entry *models.PriceCacheEntry) error
}
