// Package ledger manages the asset and transaction records behind the
// portfolio: manual entries, gold holdings, and broker holding imports.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

// goldSymbol is the shared symbol for manually tracked gold entries. Gold
// pricing is symbol-independent, so entries are distinguished by ID and name.
const goldSymbol = "GOLD"

// Service implements LedgerService.
type Service struct {
	storage interfaces.StorageManager
	kite    interfaces.KiteClient
	logger  *common.Logger
	now     func() time.Time

	seq atomic.Int64 // same-day transaction ordering
}

// NewService creates a new ledger service. kite may be nil when the broker
// integration is not configured.
func NewService(storage interfaces.StorageManager, kite interfaces.KiteClient, logger *common.Logger) *Service {
	s := &Service{
		storage: storage,
		kite:    kite,
		logger:  logger,
		now:     time.Now,
	}
	s.seq.Store(time.Now().UnixNano())
	return s
}

func (s *Service) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	return s.storage.Ledger().ListAssets(ctx)
}

// AddAsset records a manual asset entry. An existing (symbol, class) position
// is replaced rather than duplicated.
func (s *Service) AddAsset(ctx context.Context, req interfaces.AddAssetRequest) (*models.Asset, error) {
	symbol := strings.ToUpper(strings.TrimSpace(req.Symbol))
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !req.Class.Valid() {
		return nil, fmt.Errorf("invalid asset type '%s'", req.Class)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if req.AveragePrice <= 0 {
		return nil, fmt.Errorf("average price must be positive")
	}

	asset, err := s.storage.Ledger().FindAsset(ctx, symbol, req.Class)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		asset = &models.Asset{
			ID:     uuid.New().String(),
			Symbol: symbol,
			Class:  req.Class,
			Source: models.SourceManual,
		}
	}

	asset.Name = req.Name
	if asset.Name == "" {
		asset.Name = symbol
	}
	asset.Quantity = req.Quantity
	asset.AveragePrice = req.AveragePrice
	asset.InvestedValue = req.Quantity * req.AveragePrice
	if req.Source != "" {
		asset.Source = models.AssetSource(req.Source)
	}

	if err := s.storage.Ledger().SaveAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *Service) ListTransactions(ctx context.Context) ([]*models.Transaction, error) {
	return s.storage.Ledger().ListTransactions(ctx)
}

// AddTransaction records a buy or sell and advances the asset's current
// position. Sells are costed at the weighted average price of the position
// before the sale.
func (s *Service) AddTransaction(ctx context.Context, req interfaces.AddTransactionRequest) (*models.Transaction, error) {
	if req.Type != models.TxBuy && req.Type != models.TxSell {
		return nil, fmt.Errorf("invalid transaction type '%s'", req.Type)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive")
	}
	if req.Price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	asset, err := s.storage.Ledger().GetAsset(ctx, req.AssetID)
	if err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	tx := &models.Transaction{
		ID:       uuid.New().String(),
		AssetID:  asset.ID,
		Type:     req.Type,
		Quantity: req.Quantity,
		Price:    req.Price,
		Date:     date,
		Seq:      s.seq.Add(1),
	}

	switch req.Type {
	case models.TxBuy:
		asset.InvestedValue += req.Quantity * req.Price
		asset.Quantity += req.Quantity
		if asset.Quantity > 0 {
			asset.AveragePrice = asset.InvestedValue / asset.Quantity
		}
	case models.TxSell:
		if req.Quantity > asset.Quantity {
			return nil, fmt.Errorf("cannot sell %.4f units, only %.4f held", req.Quantity, asset.Quantity)
		}
		avg := asset.AveragePrice
		if asset.Quantity > 0 {
			avg = asset.InvestedValue / asset.Quantity
		}
		asset.InvestedValue -= req.Quantity * avg
		asset.Quantity -= req.Quantity
		if asset.Quantity <= 0 {
			asset.Quantity = 0
			asset.InvestedValue = 0
		}
	}

	if err := s.storage.Ledger().SaveTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if err := s.storage.Ledger().SaveAsset(ctx, asset); err != nil {
		return nil, err
	}

	s.logger.Info().Str("symbol", asset.Symbol).Str("type", string(req.Type)).
		Float64("quantity", req.Quantity).Msg("Transaction recorded")
	return tx, nil
}

func (s *Service) ListGold(ctx context.Context) ([]*models.Asset, error) {
	return s.storage.Ledger().ListAssetsByClass(ctx, models.ClassGold)
}

// goldFields derives (grams, invested, perGram) from a request. Either the
// invested value or the per-gram price must be supplied.
func goldFields(req interfaces.GoldRequest) (invested, perGram float64, err error) {
	if req.TotalGrams <= 0 {
		return 0, 0, fmt.Errorf("total grams must be positive")
	}
	switch {
	case req.InvestedValue != nil && *req.InvestedValue > 0:
		invested = *req.InvestedValue
		perGram = invested / req.TotalGrams
	case req.PricePerGram != nil && *req.PricePerGram > 0:
		perGram = *req.PricePerGram
		invested = perGram * req.TotalGrams
	default:
		return 0, 0, fmt.Errorf("either investedValue or pricePerGram is required")
	}
	return invested, perGram, nil
}

// AddGold records a new gold holding.
func (s *Service) AddGold(ctx context.Context, req interfaces.GoldRequest) (*models.Asset, error) {
	invested, perGram, err := goldFields(req)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = "Gold"
	}

	asset := &models.Asset{
		ID:            uuid.New().String(),
		Symbol:        goldSymbol,
		Name:          name,
		Class:         models.ClassGold,
		Quantity:      req.TotalGrams,
		AveragePrice:  perGram,
		InvestedValue: invested,
		Source:        models.SourceManual,
	}

	if err := s.storage.Ledger().SaveAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// UpdateGold edits an existing gold holding.
func (s *Service) UpdateGold(ctx context.Context, id string, req interfaces.GoldRequest) (*models.Asset, error) {
	asset, err := s.storage.Ledger().GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Class != models.ClassGold {
		return nil, fmt.Errorf("asset '%s' is not a gold holding", id)
	}

	invested, perGram, err := goldFields(req)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		asset.Name = name
	}
	asset.Quantity = req.TotalGrams
	asset.AveragePrice = perGram
	asset.InvestedValue = invested

	if err := s.storage.Ledger().SaveAsset(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// DeleteGold removes a gold holding and returns the deleted record.
func (s *Service) DeleteGold(ctx context.Context, id string) (*models.Asset, error) {
	asset, err := s.storage.Ledger().GetAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if asset.Class != models.ClassGold {
		return nil, fmt.Errorf("asset '%s' is not a gold holding", id)
	}

	if err := s.storage.Ledger().DeleteAsset(ctx, id); err != nil {
		return nil, err
	}
	return asset, nil
}

// ImportBrokerHoldings upserts the broker's equity and mutual fund holdings
// into the ledger. Equity rows whose ISIN starts with "INF" are mutual fund
// units held in the demat account and are classified as MF, keyed by ISIN.
func (s *Service) ImportBrokerHoldings(ctx context.Context) (int, error) {
	if s.kite == nil || !s.kite.Connected() {
		return 0, fmt.Errorf("broker session not connected")
	}

	holdings, err := s.kite.GetHoldings(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	count := 0
	for _, h := range holdings {
		symbol := strings.ToUpper(strings.TrimSpace(h.TradingSymbol))
		class := models.ClassStock
		if strings.HasPrefix(strings.ToUpper(h.ISIN), "INF") {
			class = models.ClassMF
			symbol = strings.ToUpper(h.ISIN)
		}
		if err := s.upsertHolding(ctx, symbol, h.TradingSymbol, class, h); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Holding import failed")
			continue
		}
		count++
	}

	mfHoldings, err := s.kite.GetMFHoldings(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Mutual fund holdings fetch failed")
	} else {
		for _, h := range mfHoldings {
			symbol := strings.ToUpper(strings.TrimSpace(h.TradingSymbol))
			name := h.Name
			if name == "" {
				name = symbol
			}
			if err := s.upsertHolding(ctx, symbol, name, models.ClassMF, h); err != nil {
				s.logger.Warn().Err(err).Str("symbol", symbol).Msg("MF holding import failed")
				continue
			}
			count++
		}
	}

	s.logger.Info().Int("count", count).Msg("Broker holdings imported")
	return count, nil
}

func (s *Service) upsertHolding(ctx context.Context, symbol, name string, class models.AssetClass, h models.BrokerHolding) error {
	if symbol == "" || h.Quantity <= 0 {
		return fmt.Errorf("holding has no symbol or quantity")
	}

	asset, err := s.storage.Ledger().FindAsset(ctx, symbol, class)
	if err != nil {
		return err
	}
	if asset == nil {
		asset = &models.Asset{
			ID:     uuid.New().String(),
			Symbol: symbol,
			Class:  class,
		}
	}

	asset.Name = name
	asset.Quantity = h.Quantity
	asset.AveragePrice = h.AveragePrice
	asset.InvestedValue = h.Quantity * h.AveragePrice
	asset.CurrentPrice = h.LastPrice
	asset.Source = models.SourceBroker

	return s.storage.Ledger().SaveAsset(ctx, asset)
}

// Ensure Service implements LedgerService
var _ interfaces.LedgerService = (*Service)(nil)
