package domain

// Valuation is the derived state of one investment aggregate
type Valuation struct {
	TotalQuantity   float64
	NetContribution float64
	CurrentValue    float64
}

// Replay derives quantity, net contribution and market value from a full
// ledger replay in stored order. Pure and O(n); it applies no business
// guards (sell-exceeds-holdings is enforced by the mutation service before
// the entry ever reaches the ledger), so it can be exercised with arbitrary
// transaction sequences.
//
// Dividend and interest entries are recorded but neutral: they change
// neither quantity nor net contribution. For savings they accumulate into
// the current value instead, since savings have no market price.
func Replay(kind AssetKind, txs []Transaction, currentPrice float64) Valuation {
	var v Valuation
	var interestEarned float64

	for i := range txs {
		t := &txs[i]
		switch t.Kind {
		case TxBuy:
			v.TotalQuantity += t.Quantity
			v.NetContribution += t.Price*t.Quantity + t.Fee
		case TxSell:
			v.TotalQuantity -= t.Quantity
			v.NetContribution -= t.Price*t.Quantity - t.Fee
		case TxDeposit:
			v.NetContribution += t.Amount + t.Fee
		case TxWithdraw:
			v.NetContribution -= t.Amount - t.Fee
		case TxInterest:
			interestEarned += t.Amount
		case TxDividend:
			// Recorded only. Reinvested dividends arrive as explicit buys.
		}
	}

	if kind == AssetSavings {
		v.CurrentValue = v.NetContribution + interestEarned
	} else {
		v.CurrentValue = v.TotalQuantity * currentPrice
	}

	return v
}

// Apply writes a valuation back onto the aggregate's derived fields
func (v Valuation) Apply(inv *Investment) {
	inv.TotalQuantity = v.TotalQuantity
	inv.NetContribution = v.NetContribution
	inv.CurrentValue = v.CurrentValue
}
