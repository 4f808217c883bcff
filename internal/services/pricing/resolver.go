package pricing

import (
	"context"
	"time"

	"github.com/gspavan07/stockconnect/internal/common"
	"github.com/gspavan07/stockconnect/internal/interfaces"
	"github.com/gspavan07/stockconnect/internal/models"
)

// GramsPerTroyOunce converts a troy-ounce gold quote to INR per gram.
const GramsPerTroyOunce = 31.1034768

const goldSeriesKey = "XAU_HISTORY"

// Resolver resolves asset prices through ordered per-class provider chains:
// stocks via SmartAPI candles then Yahoo NSE then Yahoo BSE, mutual funds via
// mfapi.in NAV history, gold via SafeGold then a Yahoo XAUINR conversion.
type Resolver struct {
	smartapi interfaces.SmartAPIClient
	yahoo    interfaces.YahooClient
	mfapi    interfaces.MFAPIClient
	safegold interfaces.SafeGoldClient
	mapper   interfaces.SymbolMapper
	cache    interfaces.PriceCacheStore
	logger   *common.Logger

	cacheFreshness time.Duration // 0 disables the live price cache
	goldFloorRate  float64       // terminal INR/gram fallback
	now            func() time.Time
}

// NewResolver creates a price resolver.
func NewResolver(
	smartapi interfaces.SmartAPIClient,
	yahoo interfaces.YahooClient,
	mfapi interfaces.MFAPIClient,
	safegold interfaces.SafeGoldClient,
	mapper interfaces.SymbolMapper,
	cache interfaces.PriceCacheStore,
	cacheFreshness time.Duration,
	goldFloorRate float64,
	logger *common.Logger,
) *Resolver {
	return &Resolver{
		smartapi:       smartapi,
		yahoo:          yahoo,
		mfapi:          mfapi,
		safegold:       safegold,
		mapper:         mapper,
		cache:          cache,
		logger:         logger,
		cacheFreshness: cacheFreshness,
		goldFloorRate:  goldFloorRate,
		now:            time.Now,
	}
}

// historyRun memoizes per-asset price series for one reconstruction window.
// Runs are used by a single goroutine; no locking.
type historyRun struct {
	resolver *Resolver
	from     time.Time
	to       time.Time
	results  map[string]map[string]float64 // symbol_class → date → price
}

// NewHistoryRun starts a resolution run for the [from, to] window.
func (r *Resolver) NewHistoryRun(from, to time.Time) interfaces.HistoryRun {
	return &historyRun{
		resolver: r,
		from:     from,
		to:       to,
		results:  make(map[string]map[string]float64),
	}
}

// Prices returns the date → price map for an asset, fetching through the
// asset's provider chain on first request. An empty map means every provider
// in the chain failed or returned nothing.
func (run *historyRun) Prices(ctx context.Context, asset *models.Asset) map[string]float64 {
	key := models.PriceCacheKey(asset.Symbol, asset.Class)
	if asset.Class == models.ClassGold {
		// All gold holdings share one rate series per run.
		key = goldSeriesKey
	}
	if cached, ok := run.results[key]; ok {
		return cached
	}

	var points []models.PricePoint
	switch asset.Class {
	case models.ClassStock:
		points = run.resolver.stockHistory(ctx, asset.Symbol, run.from, run.to)
	case models.ClassMF:
		points = run.resolver.mfHistory(ctx, asset.Symbol, run.from, run.to)
	case models.ClassGold:
		points = run.resolver.goldHistory(ctx, run.from, run.to)
	}

	series := make(map[string]float64, len(points))
	for _, p := range points {
		if p.Price > 0 {
			series[p.Date] = p.Price
		}
	}

	run.results[key] = series
	return series
}

// stockHistory tries SmartAPI candles, then Yahoo with the NSE suffix, then
// Yahoo with the BSE suffix.
func (r *Resolver) stockHistory(ctx context.Context, symbol string, from, to time.Time) []models.PricePoint {
	if token, exchange, ok := r.mapper.ResolveExchangeToken(ctx, symbol); ok && r.smartapi != nil {
		points, err := r.smartapi.GetCandles(ctx, exchange, token, from, to)
		if err == nil && len(points) > 0 {
			return points
		}
		if err != nil {
			r.logger.Warn().Err(err).Str("symbol", symbol).Msg("SmartAPI candle fetch failed, trying Yahoo")
		}
	} else {
		r.logger.Debug().Str("symbol", symbol).Msg("No instrument token, trying Yahoo")
	}

	for _, suffix := range []string{".NS", ".BO"} {
		points, err := r.yahoo.GetChart(ctx, symbol+suffix, from, to)
		if err == nil && len(points) > 0 {
			return points
		}
		if err != nil {
			r.logger.Debug().Err(err).Str("symbol", symbol+suffix).Msg("Yahoo chart fetch failed")
		}
	}

	r.logger.Warn().Str("symbol", symbol).Msg("Stock history chain exhausted")
	return nil
}

// mfHistory resolves the ISIN to an AMFI scheme code and fetches the NAV
// history, clipped to the window. An unmappable ISIN yields no history.
func (r *Resolver) mfHistory(ctx context.Context, isin string, from, to time.Time) []models.PricePoint {
	code, ok := r.mapper.ResolveSchemeCode(ctx, isin)
	if !ok {
		r.logger.Warn().Str("isin", isin).Msg("No scheme code mapping for mutual fund")
		return nil
	}

	points, err := r.mfapi.GetNavHistory(ctx, code)
	if err != nil {
		r.logger.Warn().Err(err).Str("isin", isin).Str("scheme", code).Msg("NAV history fetch failed")
		return nil
	}

	fromKey := from.Format("2006-01-02")
	toKey := to.Format("2006-01-02")
	clipped := make([]models.PricePoint, 0, len(points))
	for _, p := range points {
		if p.Date >= fromKey && p.Date <= toKey {
			clipped = append(clipped, p)
		}
	}
	return clipped
}

// goldHistory tries SafeGold's rate history, then converts Yahoo's XAUINR
// series from troy ounces to grams.
func (r *Resolver) goldHistory(ctx context.Context, from, to time.Time) []models.PricePoint {
	points, err := r.safegold.GetRateHistory(ctx, from, to)
	if err == nil && len(points) > 0 {
		return points
	}
	if err != nil {
		r.logger.Warn().Err(err).Msg("SafeGold history fetch failed, trying Yahoo XAUINR")
	}

	ouncePoints, err := r.yahoo.GetChart(ctx, "XAUINR=X", from, to)
	if err != nil {
		r.logger.Warn().Err(err).Msg("Gold history chain exhausted")
		return nil
	}
	for i := range ouncePoints {
		ouncePoints[i].Price /= GramsPerTroyOunce
	}
	return ouncePoints
}

// LivePrice resolves the current price for an asset. The cache is consulted
// first when the freshness window is non-zero; a fresh resolution is written
// back. Chain exhaustion falls back to the asset's own average cost, so a
// price is always returned.
func (r *Resolver) LivePrice(ctx context.Context, asset *models.Asset) float64 {
	if r.cacheFreshness > 0 && r.cache != nil {
		entry, err := r.cache.Get(ctx, asset.Symbol, asset.Class)
		if err == nil && entry != nil && r.now().Sub(entry.FetchedAt) < r.cacheFreshness {
			return entry.Price
		}
	}

	var price float64
	switch asset.Class {
	case models.ClassStock:
		price = r.liveStock(ctx, asset.Symbol)
	case models.ClassMF:
		price = r.liveMF(ctx, asset)
	case models.ClassGold:
		price = r.liveGold(ctx)
	}

	if price <= 0 {
		r.logger.Warn().Str("symbol", asset.Symbol).Str("class", string(asset.Class)).
			Msg("Live price chain exhausted, using average cost")
		return asset.AveragePrice
	}

	if r.cache != nil {
		entry := &models.PriceCacheEntry{
			Key:       models.PriceCacheKey(asset.Symbol, asset.Class),
			Symbol:    asset.Symbol,
			Class:     asset.Class,
			Price:     price,
			Currency:  "INR",
			FetchedAt: r.now(),
		}
		if err := r.cache.Put(ctx, entry); err != nil {
			r.logger.Warn().Err(err).Str("symbol", asset.Symbol).Msg("Price cache write failed")
		}
	}

	return price
}

func (r *Resolver) liveStock(ctx context.Context, symbol string) float64 {
	for _, suffix := range []string{".NS", ".BO"} {
		price, err := r.yahoo.GetQuote(ctx, symbol+suffix)
		if err == nil && price > 0 {
			return price
		}
	}
	return 0
}

// liveMF fetches the latest NAV; an unmappable or failing scheme falls back
// to the broker-reported NAV carried on the asset.
func (r *Resolver) liveMF(ctx context.Context, asset *models.Asset) float64 {
	if code, ok := r.mapper.ResolveSchemeCode(ctx, asset.Symbol); ok {
		nav, err := r.mfapi.GetLatestNav(ctx, code)
		if err == nil && nav > 0 {
			return nav
		}
	}
	return asset.CurrentPrice
}

func (r *Resolver) liveGold(ctx context.Context) float64 {
	price, err := r.safegold.GetLiveRate(ctx)
	if err == nil && price > 0 {
		return price
	}

	ounce, err := r.yahoo.GetQuote(ctx, "XAUINR=X")
	if err == nil && ounce > 0 {
		return ounce / GramsPerTroyOunce
	}

	return r.goldFloorRate
}

// Ensure Resolver implements PriceResolver
var _ interfaces.PriceResolver = (*Resolver)(nil)
