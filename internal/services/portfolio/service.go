// Package portfolio produces the live dashboard snapshot: every ledger
// position valued at its current price, with gold holdings merged into a
// single aggregate line.
package portfolio

import (
	"context"
	"fmt"
	"math"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

// Identifiers for the synthetic merged gold position.
const (
	goldAggregateID     = "AGGREGATED_GOLD"
	goldAggregateSymbol = "GOLD_TOTAL"
)

// Service implements PortfolioService.
type Service struct {
	storage  interfaces.StorageManager
	resolver interfaces.PriceResolver
	kite     interfaces.KiteClient
	logger   *common.Logger
}

// NewService creates a new portfolio service. kite may be nil when the broker
// integration is not configured.
func NewService(storage interfaces.StorageManager, resolver interfaces.PriceResolver, kite interfaces.KiteClient, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		resolver: resolver,
		kite:     kite,
		logger:   logger,
	}
}

// GetSnapshot values every position at its live price and computes the
// portfolio totals. Gold positions are merged before valuation so the
// snapshot carries one gold line priced off a single rate lookup.
func (s *Service) GetSnapshot(ctx context.Context) (*models.PortfolioSnapshot, error) {
	assets, err := s.storage.Ledger().ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}

	merged := mergeGold(assets)

	snapshot := &models.PortfolioSnapshot{
		Assets: make([]models.PortfolioAsset, 0, len(merged)),
	}

	for _, asset := range merged {
		price := s.resolver.LivePrice(ctx, asset)
		value := asset.Quantity * price
		pnl := value - asset.InvestedValue

		line := models.PortfolioAsset{
			Asset:        *asset,
			LivePrice:    round2(price),
			CurrentValue: round2(value),
			Pnl:          round2(pnl),
		}
		if asset.InvestedValue > 0 {
			line.PnlPercent = round2(pnl / asset.InvestedValue * 100)
		}

		snapshot.Assets = append(snapshot.Assets, line)
		snapshot.Summary.TotalInvested += asset.InvestedValue
		snapshot.Summary.CurrentValue += value
	}

	snapshot.Summary.TotalPnl = snapshot.Summary.CurrentValue - snapshot.Summary.TotalInvested
	if snapshot.Summary.TotalInvested > 0 {
		snapshot.Summary.TotalPnlPercent = round2(snapshot.Summary.TotalPnl / snapshot.Summary.TotalInvested * 100)
	}
	snapshot.Summary.TotalInvested = round2(snapshot.Summary.TotalInvested)
	snapshot.Summary.CurrentValue = round2(snapshot.Summary.CurrentValue)
	snapshot.Summary.TotalPnl = round2(snapshot.Summary.TotalPnl)
	snapshot.Summary.BrokerConnected = s.kite != nil && s.kite.Connected()

	return snapshot, nil
}

// mergeGold replaces all GOLD assets with one synthetic aggregate whose
// quantity and invested value are the sums and whose average price is the
// weighted average cost across entries. Non-gold assets pass through.
func mergeGold(assets []*models.Asset) []*models.Asset {
	var gold []*models.Asset
	merged := make([]*models.Asset, 0, len(assets))
	for _, asset := range assets {
		if asset.Class == models.ClassGold {
			gold = append(gold, asset)
			continue
		}
		merged = append(merged, asset)
	}

	if len(gold) == 0 {
		return merged
	}

	noun := "entries"
	if len(gold) == 1 {
		noun = "entry"
	}
	aggregate := &models.Asset{
		ID:     goldAggregateID,
		Symbol: goldAggregateSymbol,
		Name:   fmt.Sprintf("Gold Holdings (%d %s)", len(gold), noun),
		Class:  models.ClassGold,
		Source: models.SourceAggregated,
	}
	for _, g := range gold {
		aggregate.Quantity += g.Quantity
		aggregate.InvestedValue += g.InvestedValue
		if g.LastUpdated.After(aggregate.LastUpdated) {
			aggregate.LastUpdated = g.LastUpdated
		}
	}
	if aggregate.Quantity > 0 {
		aggregate.AveragePrice = aggregate.InvestedValue / aggregate.Quantity
	}

	return append(merged, aggregate)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ensure Service implements PortfolioService
var _ interfaces.PortfolioService = (*Service)(nil)
