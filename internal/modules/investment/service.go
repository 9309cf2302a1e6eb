package investment

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nguyenduc/fintrack/internal/domain"
	"github.com/nguyenduc/fintrack/internal/events"
)

// Service owns every mutation of the investment aggregate. All writes go
// through here so the derived fields are recomputed from the ledger on the
// same path, and notifications fire only after a successful commit.
type Service struct {
	repo     *Repository
	notifier events.Notifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewService creates the investment service
func NewService(repo *Repository, notifier events.Notifier, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		log:      log.With().Str("component", "investment_service").Logger(),
		now:      time.Now,
	}
}

// Create opens a new investment. A positive initial contribution seeds the
// ledger: a buy at the current price for quantity-bearing kinds, a deposit
// for everything else.
func (s *Service) Create(userID string, in CreateInput) (*domain.Investment, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	kind, err := domain.ParseAssetKind(in.Kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	now := s.now()
	inv := &domain.Investment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Kind:      kind,
		Symbol:    strings.ToUpper(strings.TrimSpace(in.Symbol)),
		Category:  strings.TrimSpace(in.Category),
		Status:    domain.StatusHolding,
		Notes:     in.Notes,
		StartDate: now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.StartDate != nil {
		inv.StartDate = *in.StartDate
	}
	if in.CurrentPrice != nil {
		if err := validPrice(*in.CurrentPrice); err != nil {
			return nil, err
		}
		inv.CurrentPrice = *in.CurrentPrice
	}

	if kind == domain.AssetSavings {
		terms := domain.SavingsTerms{
			PaymentType:     domain.InterestMonthly,
			CalculationType: domain.InterestSimple,
			EndDate:         in.EndDate,
		}
		if in.InterestRate != nil {
			if *in.InterestRate < 0 {
				return nil, fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
			}
			terms.InterestRate = *in.InterestRate
		}
		if in.InterestPaymentType != "" {
			pt, err := domain.ParseInterestPaymentType(in.InterestPaymentType)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			terms.PaymentType = pt
		}
		if in.InterestCalculationType != "" {
			ct, err := domain.ParseInterestCalculationType(in.InterestCalculationType)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrValidation, err)
			}
			terms.CalculationType = ct
		}
		inv.Savings = terms
	}

	if in.InitialContribution != nil && *in.InitialContribution > 0 {
		seed, err := s.seedTransaction(inv, *in.InitialContribution, now)
		if err != nil {
			return nil, err
		}
		inv.Transactions = append(inv.Transactions, seed)
	}

	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Create(inv); err != nil {
		return nil, fmt.Errorf("failed to create investment: %w", err)
	}

	s.log.Info().Str("investment_id", inv.ID).Str("kind", string(inv.Kind)).Msg("Investment created")
	s.notifier.Emit(userID, events.InvestmentCreated, NewResponse(inv))
	return inv, nil
}

func (s *Service) seedTransaction(inv *domain.Investment, contribution float64, now time.Time) (domain.Transaction, error) {
	tx := domain.Transaction{
		ID:         uuid.NewString(),
		Fee:        0,
		OccurredAt: inv.StartDate,
		Notes:      "initial contribution",
		CreatedAt:  now,
	}
	if inv.Kind.QuantityBearing() {
		price := inv.CurrentPrice
		if price <= 0 {
			return domain.Transaction{}, fmt.Errorf("%w: a current price is required to seed a %s investment", ErrValidation, inv.Kind)
		}
		tx.Kind = domain.TxBuy
		tx.Price = price
		tx.Quantity = contribution / price
	} else {
		tx.Kind = domain.TxDeposit
		tx.Amount = contribution
	}
	return tx, nil
}

// Get returns one investment owned by userID
func (s *Service) Get(userID, id string) (*domain.Investment, error) {
	inv, err := s.repo.GetByID(userID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment: %w", err)
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

// List returns the owner's investments, newest first
func (s *Service) List(userID string) ([]domain.Investment, error) {
	return s.repo.ListByUser(userID)
}

// ListByKind returns the owner's investments of one asset kind
func (s *Service) ListByKind(userID, kind string) ([]domain.Investment, error) {
	k, err := domain.ParseAssetKind(kind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return s.repo.ListByUserAndKind(userID, k)
}

// GetBySymbol returns the owner's quantity-bearing investment for a symbol
func (s *Service) GetBySymbol(userID, symbol string) (*domain.Investment, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	inv, err := s.repo.GetBySymbol(userID, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load investment: %w", err)
	}
	if inv == nil {
		return nil, ErrNotFound
	}
	return inv, nil
}

// Update changes the descriptive fields of an investment. A price change
// through here follows the same recompute path as SetCurrentPrice.
func (s *Service) Update(userID, id string, in UpdateInput) (*domain.Investment, error) {
	inv, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		inv.Name = name
	}
	if in.Category != nil {
		inv.Category = strings.TrimSpace(*in.Category)
	}
	if in.Notes != nil {
		inv.Notes = *in.Notes
	}
	if in.Status != nil {
		status, err := domain.ParseInvestmentStatus(*in.Status)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidation, err)
		}
		inv.Status = status
	}
	if in.CurrentPrice != nil {
		if err := validPrice(*in.CurrentPrice); err != nil {
			return nil, err
		}
		inv.CurrentPrice = *in.CurrentPrice
	}

	inv.UpdatedAt = s.now()
	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Save(inv); err != nil {
		return nil, fmt.Errorf("failed to update investment: %w", err)
	}
	s.notifier.Emit(userID, events.InvestmentUpdated, NewResponse(inv))
	return inv, nil
}

// Delete removes the investment and its ledger
func (s *Service) Delete(userID, id string) error {
	if err := s.repo.Delete(userID, id); err != nil {
		return err
	}
	s.notifier.Emit(userID, events.InvestmentDeleted, map[string]string{"investment_id": id})
	return nil
}

// AddTransaction validates and appends one ledger entry, then recomputes the
// derived fields from the full ledger. A sell larger than current holdings is
// rejected before anything is touched.
func (s *Service) AddTransaction(userID, id string, in TransactionInput) (*domain.Investment, *domain.Transaction, error) {
	inv, err := s.Get(userID, id)
	if err != nil {
		return nil, nil, err
	}
	return s.appendTransaction(inv, in)
}

// AddTransactionBySymbol records a ledger entry against the owner's
// investment for a symbol, the path trade-entry UIs use.
func (s *Service) AddTransactionBySymbol(userID, symbol string, in TransactionInput) (*domain.Investment, *domain.Transaction, error) {
	inv, err := s.GetBySymbol(userID, symbol)
	if err != nil {
		return nil, nil, err
	}
	return s.appendTransaction(inv, in)
}

func (s *Service) appendTransaction(inv *domain.Investment, in TransactionInput) (*domain.Investment, *domain.Transaction, error) {
	tx, err := s.buildTransaction(inv, in)
	if err != nil {
		return nil, nil, err
	}

	inv.Transactions = append(inv.Transactions, tx)
	inv.UpdatedAt = s.now()
	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Save(inv); err != nil {
		return nil, nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	s.log.Info().
		Str("investment_id", inv.ID).
		Str("transaction_kind", string(tx.Kind)).
		Float64("quantity", inv.TotalQuantity).
		Msg("Transaction recorded")
	s.notifier.Emit(inv.UserID, events.TransactionAdded, map[string]interface{}{
		"investment_id": inv.ID,
		"transaction":   tx,
		"investment":    NewResponse(inv),
	})
	recorded := inv.Transactions[len(inv.Transactions)-1]
	return inv, &recorded, nil
}

func (s *Service) buildTransaction(inv *domain.Investment, in TransactionInput) (domain.Transaction, error) {
	var zero domain.Transaction

	kind, err := domain.ParseTransactionKind(in.Kind)
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	tx := domain.Transaction{
		ID:        uuid.NewString(),
		Kind:      kind,
		Notes:     in.Notes,
		CreatedAt: s.now(),
	}
	tx.OccurredAt = tx.CreatedAt
	if in.OccurredAt != nil {
		tx.OccurredAt = *in.OccurredAt
	}
	if in.Fee != nil {
		if !validNumber(*in.Fee) || *in.Fee < 0 {
			return zero, fmt.Errorf("%w: fee must be a non-negative number", ErrValidation)
		}
		tx.Fee = *in.Fee
	}

	switch {
	case kind.RequiresPriceQuantity():
		if in.Price == nil || in.Quantity == nil {
			return zero, fmt.Errorf("%w: %s requires price and quantity", ErrValidation, kind)
		}
		if err := validPrice(*in.Price); err != nil {
			return zero, err
		}
		if !validNumber(*in.Quantity) || *in.Quantity <= 0 {
			return zero, fmt.Errorf("%w: quantity must be a positive number", ErrValidation)
		}
		tx.Price = *in.Price
		tx.Quantity = *in.Quantity
	case kind.RequiresAmount():
		if in.Amount == nil {
			return zero, fmt.Errorf("%w: %s requires an amount", ErrValidation, kind)
		}
		if !validNumber(*in.Amount) || *in.Amount < 0 {
			return zero, fmt.Errorf("%w: amount must be a non-negative number", ErrValidation)
		}
		tx.Amount = *in.Amount
	}

	if kind == domain.TxSell && tx.Quantity > inv.TotalQuantity {
		return zero, fmt.Errorf("%w: cannot sell %.4f units, only %.4f held",
			ErrValidation, tx.Quantity, inv.TotalQuantity)
	}
	return tx, nil
}

// DeleteTransaction removes one ledger entry and recomputes, restoring the
// state the aggregate would have had without it
func (s *Service) DeleteTransaction(userID, id, txID string) (*domain.Investment, error) {
	inv, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}
	idx := inv.TransactionByID(txID)
	if idx < 0 {
		return nil, ErrTransactionNotFound
	}

	inv.Transactions = append(inv.Transactions[:idx], inv.Transactions[idx+1:]...)
	inv.UpdatedAt = s.now()
	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Save(inv); err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}
	s.notifier.Emit(userID, events.TransactionDeleted, map[string]interface{}{
		"investment_id":  inv.ID,
		"transaction_id": txID,
		"investment":     NewResponse(inv),
	})
	return inv, nil
}

// SetCurrentPrice updates the market price and recomputes the valuation.
// The write always persists; the notification fires only when the price
// actually changed.
func (s *Service) SetCurrentPrice(userID, id string, price float64) (*domain.Investment, bool, error) {
	inv, err := s.Get(userID, id)
	if err != nil {
		return nil, false, err
	}
	changed, err := s.applyPrice(inv, price)
	if err != nil {
		return nil, false, err
	}
	return inv, changed, nil
}

// ApplyQuote feeds one fetched quote into an already-loaded aggregate. The
// price sync job uses this to avoid a redundant read per investment.
func (s *Service) ApplyQuote(inv *domain.Investment, price float64) (bool, error) {
	return s.applyPrice(inv, price)
}

func (s *Service) applyPrice(inv *domain.Investment, price float64) (bool, error) {
	if err := validPrice(price); err != nil {
		return false, err
	}

	changed := inv.CurrentPrice != price
	inv.CurrentPrice = price
	inv.UpdatedAt = s.now()
	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Save(inv); err != nil {
		return false, fmt.Errorf("failed to store price: %w", err)
	}
	if changed {
		s.notifier.Emit(inv.UserID, events.PriceUpdated, map[string]interface{}{
			"investment_id": inv.ID,
			"symbol":        inv.Symbol,
			"price":         price,
			"current_value": inv.CurrentValue,
		})
	}
	return changed, nil
}

// BatchSetPrice applies many price updates, isolating failures per item so
// one bad entry never blocks the rest
func (s *Service) BatchSetPrice(userID string, items []BatchPriceItem) BatchResult {
	result := BatchResult{
		Succeeded: []Response{},
		Failed:    []BatchFailure{},
	}
	for _, item := range items {
		if item.InvestmentID == "" {
			result.Failed = append(result.Failed, BatchFailure{Reason: "investment_id is required"})
			continue
		}
		if item.Price == nil {
			result.Failed = append(result.Failed, BatchFailure{
				InvestmentID: item.InvestmentID,
				Reason:       "price is required",
			})
			continue
		}
		inv, _, err := s.SetCurrentPrice(userID, item.InvestmentID, *item.Price)
		if err != nil {
			result.Failed = append(result.Failed, BatchFailure{
				InvestmentID: item.InvestmentID,
				Reason:       err.Error(),
			})
			continue
		}
		result.Succeeded = append(result.Succeeded, NewResponse(inv))
	}
	s.log.Info().
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("Batch price update finished")
	return result
}

// Summary rolls up the owner's portfolio with a per-kind breakdown
func (s *Service) Summary(userID string) (*Summary, error) {
	list, err := s.repo.ListByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load investments: %w", err)
	}

	sum := &Summary{ByKind: make(map[string]*KindSummary)}
	for _, inv := range list {
		sum.Count++
		sum.TotalNetContribution += inv.NetContribution
		sum.TotalCurrentValue += inv.CurrentValue

		ks, ok := sum.ByKind[string(inv.Kind)]
		if !ok {
			ks = &KindSummary{}
			sum.ByKind[string(inv.Kind)] = ks
		}
		ks.Count++
		ks.NetContribution += inv.NetContribution
		ks.CurrentValue += inv.CurrentValue
	}
	sum.TotalProfitLoss = round2(sum.TotalCurrentValue - sum.TotalNetContribution)
	if sum.TotalNetContribution > 0 {
		sum.OverallROI = round2(sum.TotalProfitLoss / sum.TotalNetContribution * 100)
	}
	for _, ks := range sum.ByKind {
		ks.ProfitLoss = round2(ks.CurrentValue - ks.NetContribution)
		if ks.NetContribution > 0 {
			ks.ROI = round2(ks.ProfitLoss / ks.NetContribution * 100)
		}
		ks.NetContribution = round2(ks.NetContribution)
		ks.CurrentValue = round2(ks.CurrentValue)
	}
	sum.TotalNetContribution = round2(sum.TotalNetContribution)
	sum.TotalCurrentValue = round2(sum.TotalCurrentValue)
	return sum, nil
}

// AccrueInterest computes the interest due on a savings investment and, when
// some is due, records it as an interest transaction through the normal
// mutation path. Returns nil when nothing is due yet.
func (s *Service) AccrueInterest(inv *domain.Investment, now time.Time) (*domain.Transaction, error) {
	if inv.Kind != domain.AssetSavings || inv.Savings.InterestRate <= 0 {
		return nil, nil
	}

	amount, ok := dueInterest(inv, now)
	if !ok || amount <= 0 {
		return nil, nil
	}

	tx := domain.Transaction{
		ID:         uuid.NewString(),
		Kind:       domain.TxInterest,
		Amount:     round2(amount),
		OccurredAt: now,
		Notes:      "interest accrual",
		CreatedAt:  s.now(),
	}
	inv.Transactions = append(inv.Transactions, tx)
	inv.Savings.LastInterestAccrual = &now
	inv.UpdatedAt = s.now()
	domain.Replay(inv.Kind, inv.Transactions, inv.CurrentPrice).Apply(inv)

	if err := s.repo.Save(inv); err != nil {
		return nil, fmt.Errorf("failed to record interest: %w", err)
	}
	s.notifier.Emit(inv.UserID, events.InterestAccrued, map[string]interface{}{
		"investment_id": inv.ID,
		"amount":        tx.Amount,
		"current_value": inv.CurrentValue,
	})
	recorded := inv.Transactions[len(inv.Transactions)-1]
	return &recorded, nil
}

// ListActiveSavings exposes the accrual job's working set
func (s *Service) ListActiveSavings() ([]domain.Investment, error) {
	return s.repo.ListActiveSavings()
}

// ListSyncable exposes the price sync job's working set
func (s *Service) ListSyncable() ([]domain.Investment, error) {
	return s.repo.ListSyncable()
}

// dueInterest returns the interest amount due now, or ok=false when the
// next accrual point has not been reached
func dueInterest(inv *domain.Investment, now time.Time) (float64, bool) {
	terms := inv.Savings
	principal := inv.NetContribution
	if terms.CalculationType == domain.InterestCompound {
		// compound on the accrued balance rather than the raw contributions
		principal = inv.CurrentValue
	}
	if principal <= 0 {
		return 0, false
	}

	switch terms.PaymentType {
	case domain.InterestEndOfTerm:
		if terms.EndDate == nil || now.Before(*terms.EndDate) {
			return 0, false
		}
		if terms.LastInterestAccrual != nil && !terms.LastInterestAccrual.Before(*terms.EndDate) {
			return 0, false
		}
		years := terms.EndDate.Sub(inv.StartDate).Hours() / (24 * 365)
		if years <= 0 {
			return 0, false
		}
		return principal * terms.InterestRate / 100 * years, true
	default: // monthly
		anchor := inv.StartDate
		if terms.LastInterestAccrual != nil {
			anchor = *terms.LastInterestAccrual
		}
		if now.Before(anchor.AddDate(0, 1, 0)) {
			return 0, false
		}
		return principal * terms.InterestRate / 100 / 12, true
	}
}

func validPrice(price float64) error {
	if !validNumber(price) || price < 0 {
		return fmt.Errorf("%w: price must be a non-negative number", ErrValidation)
	}
	return nil
}

func validNumber(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
