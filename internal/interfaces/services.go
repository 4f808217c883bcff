package interfaces

import (
	"context"
	"time"

	"github.com/gspavan07/stockconnect/internal/models"
)

// SymbolMapper resolves internal asset identifiers to provider-native ones.
// Master lists are cached process-wide and refreshed on a TTL; a refresh in
// flight is joined by concurrent callers, never duplicated.
type SymbolMapper interface {
	// ResolveExchangeToken maps an equity symbol to the broker's instrument
	// token and exchange segment. ok is false when no mapping exists.
	ResolveExchangeToken(ctx context.Context, symbol string) (token, exchange string, ok bool)

	// ResolveSchemeCode maps a mutual fund ISIN to its AMFI scheme code.
	ResolveSchemeCode(ctx context.Context, isin string) (code string, ok bool)
}

// HistoryRun resolves per-day historical prices for assets over one
// reconstruction window. Results are memoized per (symbol, class) within the
// run, and the gold rate series is fetched once for the whole window.
type HistoryRun interface {
	// Prices returns a date("2006-01-02") → price map for the asset.
	// An empty map means the whole provider chain was exhausted; the caller
	// carries prices forward.
	Prices(ctx context.Context, asset *models.Asset) map[string]float64
}

// PriceResolver maps (asset, date-or-now) to a price via ordered per-class
// provider fallback chains.
type PriceResolver interface {
	// NewHistoryRun starts a resolution run for the [from, to] window.
	NewHistoryRun(from, to time.Time) HistoryRun

	// LivePrice resolves the current price for an asset, consulting the price
	// cache first. Chain exhaustion falls back to the asset's own average
	// cost, so a price is always returned.
	LivePrice(ctx context.Context, asset *models.Asset) float64
}

// AnalysisService reconstructs the historical daily portfolio series.
type AnalysisService interface {
	// GetGrowthSeries returns one point per calendar day over the lookback
	// window (one year, extended to the earliest recorded transaction), with
	// leading zero-value days trimmed.
	GetGrowthSeries(ctx context.Context) ([]models.DailyPortfolioPoint, error)
}

// PortfolioService produces the live dashboard snapshot.
type PortfolioService interface {
	GetSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error)
}

// LedgerService manages asset, transaction, and gold records, and imports
// broker holdings.
type LedgerService interface {
	ListAssets(ctx context.Context) ([]*models.Asset, error)
	AddAsset(ctx context.Context, req AddAssetRequest) (*models.Asset, error)

	ListTransactions(ctx context.Context) ([]*models.Transaction, error)
	AddTransaction(ctx context.Context, req AddTransactionRequest) (*models.Transaction, error)

	ListGold(ctx context.Context) ([]*models.Asset, error)
	AddGold(ctx context.Context, req GoldRequest) (*models.Asset, error)
	UpdateGold(ctx context.Context, id string, req GoldRequest) (*models.Asset, error)
	DeleteGold(ctx context.Context, id string) (*models.Asset, error)

	// ImportBrokerHoldings upserts equity and MF holdings from the broker
	// session. Returns the number of assets written.
	ImportBrokerHoldings(ctx context.Context) (int, error)
}

// AddAssetRequest is a manual asset entry.
type AddAssetRequest struct {
	Symbol       string            `json:"symbol"`
	Name         string            `json:"name"`
	Class        models.AssetClass `json:"type"`
	Quantity     float64           `json:"quantity"`
	AveragePrice float64           `json:"averagePrice"`
	Source       string            `json:"source"`
}

// AddTransactionRequest is a manual ledger entry.
type AddTransactionRequest struct {
	AssetID  string                 `json:"assetId"`
	Type     models.TransactionType `json:"type"`
	Quantity float64                `json:"quantity"`
	Price    float64                `json:"price"`
	Date     time.Time              `json:"date"`
}

// GoldRequest adds or edits a gold holding. Either InvestedValue or
// PricePerGram must be set; the other is derived.
type GoldRequest struct {
	Name          string   `json:"name"`
	TotalGrams    float64  `json:"totalGrams"`
	InvestedValue *float64 `json:"investedValue"`
	PricePerGram  *float64 `json:"pricePerGram"`
}
