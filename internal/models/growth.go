package models

// AssetBreakdown is one asset's contribution to a single day of the growth
// series. Monetary fields are rounded to 2 decimals at construction.
type AssetBreakdown struct {
	Name     string     `json:"name"`
	Symbol   string     `json:"symbol"`
	Class    AssetClass `json:"type"`
	Quantity float64    `json:"quantity"`
	Price    float64    `json:"price"`
	AvgPrice float64    `json:"avgPrice"`
	Value    float64    `json:"value"`
	Invested float64    `json:"invested"`
}

// DailyPortfolioPoint is one calendar day of the reconstructed series.
// Invariant: TotalValue = Σ breakdown Value and InvestedValue = Σ breakdown
// Invested (within rounding epsilon). Derived, never persisted.
type DailyPortfolioPoint struct {
	Date            string           `json:"date"` // "2006-01-02"
	TotalValue      float64          `json:"totalValue"`
	InvestedValue   float64          `json:"investedValue"`
	Profit          float64          `json:"profit"`
	AssetsBreakdown []AssetBreakdown `json:"assetsBreakdown"`
}
