// Package analysis reconstructs the historical daily portfolio series from
// the current ledger state, recorded transactions, and provider price
// histories.
package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

// Service implements AnalysisService.
type Service struct {
	storage  interfaces.StorageManager
	resolver interfaces.PriceResolver
	logger   *common.Logger
	now      func() time.Time // injectable clock for testing
}

// NewService creates a new analysis service.
func NewService(storage interfaces.StorageManager, resolver interfaces.PriceResolver, logger *common.Logger) *Service {
	return &Service{
		storage:  storage,
		resolver: resolver,
		logger:   logger,
		now:      time.Now,
	}
}

// assetState carries one asset's simulation state across days.
type assetState struct {
	asset     *models.Asset
	pos       position
	txs       []*models.Transaction // date ascending
	cursor    int                   // next transaction to apply
	prices    map[string]float64    // date → price
	lastPrice float64               // carried forward across gaps
}

// GetGrowthSeries returns one point per calendar day over the lookback
// window, oldest first. The window is one year back from today, extended to
// the earliest recorded transaction when older. Leading all-zero days are
// trimmed. It bulk-loads ledger data and price histories once, then iterates
// days in memory.
func (s *Service) GetGrowthSeries(ctx context.Context) ([]models.DailyPortfolioPoint, error) {
	funcStart := s.now()

	assets, err := s.storage.Ledger().ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load assets: %w", err)
	}
	if len(assets) == 0 {
		return []models.DailyPortfolioPoint{}, nil
	}

	txs, err := s.storage.Ledger().ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	today := s.now().Truncate(24 * time.Hour)
	from := today.AddDate(-1, 0, 0)
	if len(txs) > 0 {
		earliest := txs[0].Date.Truncate(24 * time.Hour)
		if earliest.Before(from) {
			from = earliest
		}
	}
	windowStart := from.Format("2006-01-02")

	txsByAsset := make(map[string][]*models.Transaction)
	for _, tx := range txs {
		txsByAsset[tx.AssetID] = append(txsByAsset[tx.AssetID], tx)
	}

	run := s.resolver.NewHistoryRun(from, today)

	states := make([]*assetState, 0, len(assets))
	for _, asset := range assets {
		assetTxs := txsByAsset[asset.ID]
		state := &assetState{
			asset:  asset,
			pos:    reconstructBaseline(asset, assetTxs, windowStart),
			txs:    assetTxs,
			prices: run.Prices(ctx, asset),
		}
		// Skip transactions already folded into the baseline.
		for state.cursor < len(state.txs) && state.txs[state.cursor].DateKey() < windowStart {
			state.cursor++
		}
		state.lastPrice = seedPrice(state.prices, asset)
		states = append(states, state)
	}

	days := int(today.Sub(from).Hours()/24) + 1
	series := make([]models.DailyPortfolioPoint, 0, days)
	for d := from; !d.After(today); d = d.AddDate(0, 0, 1) {
		dateKey := d.Format("2006-01-02")

		point := models.DailyPortfolioPoint{
			Date:            dateKey,
			AssetsBreakdown: make([]models.AssetBreakdown, 0, len(states)),
		}

		for _, state := range states {
			for state.cursor < len(state.txs) && state.txs[state.cursor].DateKey() <= dateKey {
				state.pos = applyTransaction(state.pos, state.txs[state.cursor])
				state.cursor++
			}

			// Assets not yet (or no longer) held contribute nothing.
			if state.pos.Quantity <= 0 {
				continue
			}

			if price, ok := state.prices[dateKey]; ok {
				state.lastPrice = price
			}

			value := state.pos.Quantity * state.lastPrice
			point.TotalValue += value
			point.InvestedValue += state.pos.Invested
			point.AssetsBreakdown = append(point.AssetsBreakdown, models.AssetBreakdown{
				Name:     state.asset.Name,
				Symbol:   state.asset.Symbol,
				Class:    state.asset.Class,
				Quantity: round2(state.pos.Quantity),
				Price:    round2(state.lastPrice),
				AvgPrice: round2(state.pos.averagePrice()),
				Value:    round2(value),
				Invested: round2(state.pos.Invested),
			})
		}

		point.TotalValue = round2(point.TotalValue)
		point.InvestedValue = round2(point.InvestedValue)
		point.Profit = round2(point.TotalValue - point.InvestedValue)
		series = append(series, point)
	}

	series = trimLeadingZero(series)

	s.logger.Info().
		Int("assets", len(assets)).
		Int("days", len(series)).
		Dur("elapsed", s.now().Sub(funcStart)).
		Msg("Growth series computed")

	return series, nil
}

// seedPrice picks the starting carry-forward price: the earliest available
// history point, else the asset's average cost.
func seedPrice(prices map[string]float64, asset *models.Asset) float64 {
	earliest := ""
	price := 0.0
	for date, p := range prices {
		if earliest == "" || date < earliest {
			earliest = date
			price = p
		}
	}
	if price > 0 {
		return price
	}
	return asset.AveragePrice
}

// trimLeadingZero drops the run of days before the portfolio first holds
// any value.
func trimLeadingZero(series []models.DailyPortfolioPoint) []models.DailyPortfolioPoint {
	for i, point := range series {
		if point.TotalValue != 0 {
			return series[i:]
		}
	}
	return []models.DailyPortfolioPoint{}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Ensure Service implements AnalysisService
var _ interfaces.AnalysisService = (*Service)(nil)
