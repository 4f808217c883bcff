package models

// Scrip is one row of the broker's instrument master file. Equity symbols on
// NSE carry an "-EQ" suffix; ExchSeg is the exchange segment ("NSE", "BSE").
type Scrip struct {
	Token   string `json:"token"`
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	ExchSeg string `json:"exch_seg"`
}
