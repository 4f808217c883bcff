// Package interfaces defines service contracts for StockConnect
package interfaces

import (
	"context"
	"time"

	"github.com/gspavan07/stockconnect/internal/models"
)

// SmartAPIClient provides access to the Angel One SmartAPI historical-candle
// endpoint and the broker's instrument master file. Session acquisition is
// handled internally (lazy, single-flight, with a cooldown after failure).
type SmartAPIClient interface {
	// GetCandles retrieves daily close prices for an instrument token.
	// An empty result with nil error means the provider had no data.
	GetCandles(ctx context.Context, exchange, token string, from, to time.Time) ([]models.PricePoint, error)

	// GetScripMaster downloads the full instrument master file.
	GetScripMaster(ctx context.Context) ([]models.Scrip, error)
}

// YahooClient provides access to the Yahoo Finance chart API. Symbols carry
// an exchange suffix (".NS" or ".BO").
type YahooClient interface {
	// GetChart retrieves daily close prices for a suffixed symbol.
	GetChart(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)

	// GetQuote retrieves the current market price for a suffixed symbol.
	GetQuote(ctx context.Context, symbol string) (float64, error)
}

// MFAPIClient provides access to mfapi.in NAV data and the AMFI scheme
// master file.
type MFAPIClient interface {
	// GetNavHistory retrieves the full NAV history for a scheme code.
	GetNavHistory(ctx context.Context, schemeCode string) ([]models.PricePoint, error)

	// GetLatestNav retrieves the most recent NAV for a scheme code.
	GetLatestNav(ctx context.Context, schemeCode string) (float64, error)

	// GetSchemeMaster downloads the AMFI master file and returns an
	// ISIN → scheme code mapping.
	GetSchemeMaster(ctx context.Context) (map[string]string, error)
}

// SafeGoldClient provides gold rates in INR per gram.
type SafeGoldClient interface {
	// GetRateHistory retrieves daily gold rates for a date range.
	GetRateHistory(ctx context.Context, from, to time.Time) ([]models.PricePoint, error)

	// GetLiveRate retrieves the current buy rate.
	GetLiveRate(ctx context.Context) (float64, error)
}

// KiteClient provides the Zerodha Kite Connect login flow and holdings
// ingestion. A client holds at most one active session.
type KiteClient interface {
	// LoginURL returns the Kite Connect login page URL.
	LoginURL() (string, error)

	// GenerateSession exchanges a request token for an access token.
	GenerateSession(ctx context.Context, requestToken string) error

	// Connected reports whether an access token is held.
	Connected() bool

	// GetHoldings retrieves equity holdings for the active session.
	GetHoldings(ctx context.Context) ([]models.BrokerHolding, error)

	// GetMFHoldings retrieves mutual fund holdings for the active session.
	GetMFHoldings(ctx context.Context) ([]models.BrokerHolding, error)
}
