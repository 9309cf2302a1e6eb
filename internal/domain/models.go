package domain

import (
	"fmt"
	"time"
)

// AssetKind classifies what an investment holds
type AssetKind string

const (
	AssetEquity        AssetKind = "equity"
	AssetCrypto        AssetKind = "crypto"
	AssetPreciousMetal AssetKind = "precious-metal"
	AssetSavings       AssetKind = "savings"
	AssetFund          AssetKind = "fund"
	AssetRealEstate    AssetKind = "real-estate"
	AssetOther         AssetKind = "other"
)

// ParseAssetKind validates an asset kind string
func ParseAssetKind(s string) (AssetKind, error) {
	switch AssetKind(s) {
	case AssetEquity, AssetCrypto, AssetPreciousMetal, AssetSavings,
		AssetFund, AssetRealEstate, AssetOther:
		return AssetKind(s), nil
	}
	return "", fmt.Errorf("unknown asset kind: %q", s)
}

// QuantityBearing reports whether holdings of this kind are tracked as
// units priced per symbol (and therefore eligible for price sync)
func (k AssetKind) QuantityBearing() bool {
	switch k {
	case AssetEquity, AssetCrypto, AssetPreciousMetal, AssetFund:
		return true
	}
	return false
}

// InvestmentStatus is the lifecycle state of an investment
type InvestmentStatus string

const (
	StatusHolding InvestmentStatus = "holding"
	StatusSold    InvestmentStatus = "sold"
	StatusOther   InvestmentStatus = "other"
)

// ParseInvestmentStatus validates a status string
func ParseInvestmentStatus(s string) (InvestmentStatus, error) {
	switch InvestmentStatus(s) {
	case StatusHolding, StatusSold, StatusOther:
		return InvestmentStatus(s), nil
	}
	return "", fmt.Errorf("unknown investment status: %q", s)
}

// TransactionKind is the closed set of ledger entry types
type TransactionKind string

const (
	TxBuy      TransactionKind = "buy"
	TxSell     TransactionKind = "sell"
	TxDeposit  TransactionKind = "deposit"
	TxWithdraw TransactionKind = "withdraw"
	TxDividend TransactionKind = "dividend"
	TxInterest TransactionKind = "interest"
)

// ParseTransactionKind validates a transaction kind string.
// Unknown kinds are rejected here so the valuation engine can assume a
// closed union.
func ParseTransactionKind(s string) (TransactionKind, error) {
	switch TransactionKind(s) {
	case TxBuy, TxSell, TxDeposit, TxWithdraw, TxDividend, TxInterest:
		return TransactionKind(s), nil
	}
	return "", fmt.Errorf("unknown transaction kind: %q", s)
}

// RequiresPriceQuantity reports whether this kind carries price and quantity
func (k TransactionKind) RequiresPriceQuantity() bool {
	return k == TxBuy || k == TxSell
}

// RequiresAmount reports whether this kind carries a flat amount
func (k TransactionKind) RequiresAmount() bool {
	switch k {
	case TxDeposit, TxWithdraw, TxDividend, TxInterest:
		return true
	}
	return false
}

// Transaction is one immutable ledger entry owned by exactly one investment.
// Price/Quantity are set for buy/sell, Amount for the flat-amount kinds.
type Transaction struct {
	ID         string          `json:"id"`
	Kind       TransactionKind `json:"kind"`
	Price      float64         `json:"price,omitempty"`
	Quantity   float64         `json:"quantity,omitempty"`
	Amount     float64         `json:"amount,omitempty"`
	Fee        float64         `json:"fee"`
	OccurredAt time.Time       `json:"occurred_at"`
	Notes      string          `json:"notes,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// InterestPaymentType is when a savings investment pays out
type InterestPaymentType string

const (
	InterestMonthly   InterestPaymentType = "monthly"
	InterestEndOfTerm InterestPaymentType = "end"
)

// ParseInterestPaymentType validates an interest payment type string
func ParseInterestPaymentType(s string) (InterestPaymentType, error) {
	switch InterestPaymentType(s) {
	case InterestMonthly, InterestEndOfTerm:
		return InterestPaymentType(s), nil
	}
	return "", fmt.Errorf("unknown interest payment type: %q", s)
}

// InterestCalculationType selects simple vs compound accrual
type InterestCalculationType string

const (
	InterestSimple   InterestCalculationType = "simple"
	InterestCompound InterestCalculationType = "compound"
)

// ParseInterestCalculationType validates an interest calculation type string
func ParseInterestCalculationType(s string) (InterestCalculationType, error) {
	switch InterestCalculationType(s) {
	case InterestSimple, InterestCompound:
		return InterestCalculationType(s), nil
	}
	return "", fmt.Errorf("unknown interest calculation type: %q", s)
}

// SavingsTerms holds the accrual inputs carried by savings-kind investments
type SavingsTerms struct {
	InterestRate        float64                 `json:"interest_rate,omitempty"` // percent per year
	PaymentType         InterestPaymentType     `json:"interest_payment_type,omitempty"`
	CalculationType     InterestCalculationType `json:"interest_calculation_type,omitempty"`
	EndDate             *time.Time              `json:"end_date,omitempty"`
	LastInterestAccrual *time.Time              `json:"last_interest_accrual,omitempty"`
}

// Investment is the aggregate root: one tracked holding plus its full ledger.
// TotalQuantity, NetContribution and CurrentValue are derived from the ledger
// and CurrentPrice; they are recomputed inside every mutation and persisted
// together with the ledger.
type Investment struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	Name         string           `json:"name"`
	Kind         AssetKind        `json:"kind"`
	Symbol       string           `json:"symbol,omitempty"`
	Category     string           `json:"category,omitempty"`
	Status       InvestmentStatus `json:"status"`
	Notes        string           `json:"notes,omitempty"`
	StartDate    time.Time        `json:"start_date"`
	CurrentPrice float64          `json:"current_price"`

	TotalQuantity   float64 `json:"total_quantity"`
	NetContribution float64 `json:"net_contribution"`
	CurrentValue    float64 `json:"current_value"`

	Savings SavingsTerms `json:"savings,omitempty"`

	Transactions []Transaction `json:"transactions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProfitLoss is the read-time gain derivation; never persisted
func (inv *Investment) ProfitLoss() float64 {
	return inv.CurrentValue - inv.NetContribution
}

// ROI is the read-time return on the committed capital, in percent
func (inv *Investment) ROI() float64 {
	if inv.NetContribution == 0 {
		return 0
	}
	return inv.ProfitLoss() / inv.NetContribution * 100
}

// TransactionByID finds a ledger entry, returning its index or -1
func (inv *Investment) TransactionByID(id string) int {
	for i := range inv.Transactions {
		if inv.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}
