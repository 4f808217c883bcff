// Package models defines data structures for StockConnect
package models

import (
	"time"
)

// AssetClass identifies which provider fallback chain applies to an asset.
type AssetClass string

const (
	ClassStock AssetClass = "STOCK"
	ClassMF    AssetClass = "MF"
	ClassGold  AssetClass = "GOLD"
)

// Valid reports whether the class is one of the known values.
func (c AssetClass) Valid() bool {
	switch c {
	case ClassStock, ClassMF, ClassGold:
		return true
	}
	return false
}

// AssetSource records where an asset record came from.
type AssetSource string

const (
	SourceBroker     AssetSource = "BROKER"
	SourceManual     AssetSource = "MANUAL"
	SourceAggregated AssetSource = "AGGREGATED"
)

// Asset is a single portfolio position. Symbol is uppercase and unique per
// (Symbol, Class). InvestedValue is maintained as an independent field: after
// sells it may drift from Quantity*AveragePrice, and the stored value is the
// authoritative one.
type Asset struct {
	ID            string      `json:"id" badgerhold:"key"`
	Symbol        string      `json:"symbol" badgerhold:"index"`
	Name          string      `json:"name"`
	Class         AssetClass  `json:"type"`
	Quantity      float64     `json:"quantity"`
	AveragePrice  float64     `json:"averagePrice"`
	CurrentPrice  float64     `json:"currentPrice,omitempty"` // broker-supplied, MF only
	InvestedValue float64     `json:"investedValue"`
	Source        AssetSource `json:"source"`
	LastUpdated   time.Time   `json:"lastUpdated"`
}
