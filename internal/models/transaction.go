package models

import (
	"time"
)

// TransactionType is the direction of a ledger entry.
type TransactionType string

const (
	TxBuy  TransactionType = "BUY"
	TxSell TransactionType = "SELL"
)

// Transaction is one buy or sell against an asset. Date is day-granular for
// reconstruction purposes; Seq breaks same-day ordering ties by insertion
// order. Transactions are the only source of historical truth, but history
// may be partial; the Asset's current fields remain authoritative for the
// present state.
type Transaction struct {
	ID         string          `json:"id" badgerhold:"key"`
	AssetID    string          `json:"assetId" badgerhold:"index"`
	Type       TransactionType `json:"type"`
	Quantity   float64         `json:"quantity"`
	Price      float64         `json:"price"`
	Date       time.Time       `json:"date"`
	Seq        int64           `json:"seq"`
	ExternalID string          `json:"externalId,omitempty"`
}

// DateKey returns the transaction's calendar day as "2006-01-02".
func (t *Transaction) DateKey() string {
	return t.Date.Format("2006-01-02")
}
