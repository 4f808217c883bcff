package models

// PortfolioAsset is an asset enriched with its live valuation for the
// dashboard snapshot.
type PortfolioAsset struct {
	Asset
	LivePrice    float64 `json:"livePrice"`
	CurrentValue float64 `json:"currentValue"`
	Pnl          float64 `json:"pnl"`
	PnlPercent   float64 `json:"pnlPercent"`
}

// PortfolioSummary holds the snapshot totals across all lines.
type PortfolioSummary struct {
	TotalInvested   float64 `json:"totalInvested"`
	CurrentValue    float64 `json:"currentValue"`
	TotalPnl        float64 `json:"totalPnl"`
	TotalPnlPercent float64 `json:"totalPnlPercent"`
	BrokerConnected bool    `json:"isBrokerConnected"`
}

// PortfolioSnapshot is the live dashboard response. All GOLD positions are
// merged into a single synthetic AGGREGATED line before totals are computed.
type PortfolioSnapshot struct {
	Summary PortfolioSummary `json:"summary"`
	Assets  []PortfolioAsset `json:"assets"`
}

// BrokerHolding is a normalized holding row from the brokerage integration,
// either an equity holding or a mutual-fund holding.
type BrokerHolding struct {
	TradingSymbol string  `json:"tradingsymbol"`
	Name          string  `json:"fund,omitempty"`
	Exchange      string  `json:"exchange,omitempty"`
	ISIN          string  `json:"isin,omitempty"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	LastPrice     float64 `json:"last_price,omitempty"`
}
