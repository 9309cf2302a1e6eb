package investment

import (
	"time"

	"github.com/nguyenduc/fintrack/internal/domain"
)

// CreateInput carries the fields accepted when opening an investment.
// An optional initial contribution becomes the seed ledger entry: a buy for
// quantity-bearing kinds, a deposit for everything else.
type CreateInput struct {
	Name                string     `json:"name"`
	Kind                string     `json:"kind"`
	Symbol              string     `json:"symbol,omitempty"`
	Category            string     `json:"category,omitempty"`
	Notes               string     `json:"notes,omitempty"`
	StartDate           *time.Time `json:"start_date,omitempty"`
	CurrentPrice        *float64   `json:"current_price,omitempty"`
	InitialContribution *float64   `json:"initial_contribution,omitempty"`

	InterestRate            *float64   `json:"interest_rate,omitempty"`
	InterestPaymentType     string     `json:"interest_payment_type,omitempty"`
	InterestCalculationType string     `json:"interest_calculation_type,omitempty"`
	EndDate                 *time.Time `json:"end_date,omitempty"`
}

// UpdateInput carries the mutable descriptive fields. Nil means unchanged.
type UpdateInput struct {
	Name         *string  `json:"name,omitempty"`
	Category     *string  `json:"category,omitempty"`
	Notes        *string  `json:"notes,omitempty"`
	Status       *string  `json:"status,omitempty"`
	CurrentPrice *float64 `json:"current_price,omitempty"`
}

// TransactionInput carries one ledger entry as submitted by the caller.
// Pointer fields distinguish absent from zero so required-by-kind checks
// can reject missing values.
type TransactionInput struct {
	Kind       string     `json:"kind"`
	Price      *float64   `json:"price,omitempty"`
	Quantity   *float64   `json:"quantity,omitempty"`
	Amount     *float64   `json:"amount,omitempty"`
	Fee        *float64   `json:"fee,omitempty"`
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// BatchPriceItem is one entry of a batch price update
type BatchPriceItem struct {
	InvestmentID string   `json:"investment_id"`
	Price        *float64 `json:"price"`
}

// BatchFailure records why one batch item was rejected
type BatchFailure struct {
	InvestmentID string `json:"investment_id"`
	Reason       string `json:"reason"`
}

// BatchResult partitions a batch price update. One bad item never blocks
// the rest; callers always get the full picture.
type BatchResult struct {
	Succeeded []Response     `json:"succeeded"`
	Failed    []BatchFailure `json:"failed"`
}

// Response decorates an aggregate with its read-time derivations
type Response struct {
	*domain.Investment
	ProfitLoss float64 `json:"profit_loss"`
	ROI        float64 `json:"roi"`
}

// NewResponse builds the API shape for one aggregate
func NewResponse(inv *domain.Investment) Response {
	return Response{
		Investment: inv,
		ProfitLoss: round2(inv.ProfitLoss()),
		ROI:        round2(inv.ROI()),
	}
}

// KindSummary aggregates one asset kind inside a summary
type KindSummary struct {
	Count           int     `json:"count"`
	NetContribution float64 `json:"net_contribution"`
	CurrentValue    float64 `json:"current_value"`
	ProfitLoss      float64 `json:"profit_loss"`
	ROI             float64 `json:"roi"`
}

// Summary is the owner-level rollup across all investments
type Summary struct {
	Count                int                     `json:"count"`
	TotalNetContribution float64                 `json:"total_net_contribution"`
	TotalCurrentValue    float64                 `json:"total_current_value"`
	TotalProfitLoss      float64                 `json:"total_profit_loss"`
	OverallROI           float64                 `json:"overall_roi"`
	ByKind               map[string]*KindSummary `json:"by_kind"`
}
