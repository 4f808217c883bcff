package models

import (
	"time"
)

// PricePoint is one (date, price) sample from a provider history fetch.
// Date is always "2006-01-02".
type PricePoint struct {
	Date  string  `json:"date"`
	Price float64 `json:"price"`
}

// PriceCacheEntry is the last resolved live price for a (symbol, class) pair.
// Overwritten on every successful resolution; consulted before a live fetch
// when the configured freshness window is non-zero.
type PriceCacheEntry struct {
	Key       string     `json:"key" badgerhold:"key"` // symbol_class
	Symbol    string     `json:"symbol"`
	Class     AssetClass `json:"type"`
	Price     float64    `json:"price"`
	Currency  string     `json:"currency"`
	FetchedAt time.Time  `json:"lastFetched"`
}

// PriceCacheKey builds the storage key for a (symbol, class) pair.
func PriceCacheKey(symbol string, class AssetClass) string {
	return symbol + "_" + string(class)
}
