package analysis

import (
	"github.com/gspavan07/stockconnect/internal/models"
)

// position is the reconstructed (quantity, invested) state of one asset.
// AveragePrice is derived as Invested/Quantity when Quantity > 0.
type position struct {
	Quantity float64
	Invested float64
}

func (p position) averagePrice() float64 {
	if p.Quantity <= 0 {
		return 0
	}
	return p.Invested / p.Quantity
}

// reconstructBaseline walks an asset's transactions backward from its current
// state to the state just before the window start. Each BUY is undone by
// removing its quantity and cost; each SELL is undone by adding the quantity
// back at the asset's current average price, the best estimate available
// without the full pre-window history. Partial history can drive either
// figure negative, so the final result clamps to zero.
//
// txs must be sorted date ascending. Only transactions on or after windowStart
// ("2006-01-02") are undone; earlier ones are already reflected in the
// current state.
func reconstructBaseline(asset *models.Asset, txs []*models.Transaction, windowStart string) position {
	qty := asset.Quantity
	invested := asset.InvestedValue

	for i := len(txs) - 1; i >= 0; i-- {
		tx := txs[i]
		if tx.DateKey() < windowStart {
			break
		}

		switch tx.Type {
		case models.TxBuy:
			qty -= tx.Quantity
			invested -= tx.Quantity * tx.Price
		case models.TxSell:
			qty += tx.Quantity
			invested += tx.Quantity * asset.AveragePrice
		}
	}

	pos := position{Quantity: qty, Invested: invested}
	if pos.Quantity < 0 {
		pos.Quantity = 0
	}
	if pos.Invested < 0 {
		pos.Invested = 0
	}
	return pos
}

// applyTransaction advances a position forward through one transaction.
// Sells remove cost at the pre-sale average price; the average price of the
// remaining lot is unchanged.
func applyTransaction(pos position, tx *models.Transaction) position {
	switch tx.Type {
	case models.TxBuy:
		pos.Quantity += tx.Quantity
		pos.Invested += tx.Quantity * tx.Price
	case models.TxSell:
		avg := pos.averagePrice()
		pos.Quantity -= tx.Quantity
		pos.Invested -= tx.Quantity * avg
	}

	if pos.Quantity < 0 {
		pos.Quantity = 0
	}
	if pos.Invested < 0 {
		pos.Invested = 0
	}
	return pos
}
