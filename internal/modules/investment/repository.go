package investment

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nguyenduc/fintrack/internal/domain"
)

// Repository persists investment aggregates. Every write covers the
// aggregate row and its ledger in a single transaction so no reader can
// observe derived fields that disagree with the transactions that produced
// them.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new investment repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "investment").Logger(),
	}
}

// Create inserts a new aggregate with its (possibly empty) ledger
func (r *Repository) Create(inv *domain.Investment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertInvestment(tx, inv); err != nil {
		return err
	}
	if err := insertLedger(tx, inv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	r.log.Info().
		Str("investment_id", inv.ID).
		Str("kind", string(inv.Kind)).
		Msg("Investment created")

	return nil
}

// Save rewrites the aggregate row and its full ledger atomically. Ledgers
// are small per investment, so replacing the rows wholesale keeps the write
// path identical for append, removal and price changes.
func (r *Repository) Save(inv *domain.Investment) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		UPDATE investments
		SET name = ?, kind = ?, symbol = ?, category = ?, status = ?, notes = ?,
		    start_date = ?, current_price = ?, total_quantity = ?,
		    net_contribution = ?, current_value = ?, interest_rate = ?,
		    interest_payment_type = ?, interest_calc_type = ?, end_date = ?,
		    last_interest_accrual = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`,
		inv.Name,
		string(inv.Kind),
		inv.Symbol,
		inv.Category,
		string(inv.Status),
		inv.Notes,
		inv.StartDate.Format(time.RFC3339),
		inv.CurrentPrice,
		inv.TotalQuantity,
		inv.NetContribution,
		inv.CurrentValue,
		inv.Savings.InterestRate,
		string(inv.Savings.PaymentType),
		string(inv.Savings.CalculationType),
		nullTime(inv.Savings.EndDate),
		nullTime(inv.Savings.LastInterestAccrual),
		inv.UpdatedAt.Format(time.RFC3339),
		inv.ID,
		inv.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update investment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	if _, err := tx.Exec("DELETE FROM transactions WHERE investment_id = ?", inv.ID); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}
	if err := insertLedger(tx, inv); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// GetByID loads one aggregate with its ledger. Returns (nil, nil) when the
// id does not exist for that owner.
func (r *Repository) GetByID(userID, id string) (*domain.Investment, error) {
	row := r.db.QueryRow(selectInvestment+" WHERE id = ? AND user_id = ?", id, userID)
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLedger(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// GetBySymbol finds an owner's quantity-bearing investment by symbol
func (r *Repository) GetBySymbol(userID, symbol string) (*domain.Investment, error) {
	row := r.db.QueryRow(selectInvestment+`
		WHERE user_id = ? AND symbol = ?
		  AND kind IN ('equity', 'crypto', 'precious-metal', 'fund')`,
		userID, strings.ToUpper(strings.TrimSpace(symbol)))
	inv, err := scanInvestment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadLedger(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListByUser returns an owner's aggregates, newest first
func (r *Repository) ListByUser(userID string) ([]domain.Investment, error) {
	return r.list(selectInvestment+" WHERE user_id = ? ORDER BY created_at DESC", userID)
}

// ListByUserAndKind returns an owner's aggregates of one asset kind
func (r *Repository) ListByUserAndKind(userID string, kind domain.AssetKind) ([]domain.Investment, error) {
	return r.list(selectInvestment+" WHERE user_id = ? AND kind = ? ORDER BY created_at DESC",
		userID, string(kind))
}

// ListSyncable returns every non-sold, symbol-bearing investment of a
// priceable kind, across all owners. The price sync job feeds on this.
func (r *Repository) ListSyncable() ([]domain.Investment, error) {
	return r.list(selectInvestment + `
		WHERE status != 'sold' AND symbol != ''
		  AND kind IN ('equity', 'crypto', 'precious-metal', 'fund')`)
}

// ListActiveSavings returns every non-sold savings investment with an
// interest rate, across all owners. The interest accrual job feeds on this.
func (r *Repository) ListActiveSavings() ([]domain.Investment, error) {
	return r.list(selectInvestment + `
		WHERE status != 'sold' AND kind = 'savings' AND interest_rate > 0`)
}

// Delete removes the aggregate and, via cascade, its ledger
func (r *Repository) Delete(userID, id string) error {
	res, err := r.db.Exec("DELETE FROM investments WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete investment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}

	r.log.Info().Str("investment_id", id).Msg("Investment deleted")
	return nil
}

const selectInvestment = `
	SELECT id, user_id, name, kind, symbol, category, status, notes,
	       start_date, current_price, total_quantity, net_contribution,
	       current_value, interest_rate, interest_payment_type,
	       interest_calc_type, end_date, last_interest_accrual,
	       created_at, updated_at
	FROM investments`

// rowScanner lets scanInvestment work for both QueryRow and Query results
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvestment(row rowScanner) (*domain.Investment, error) {
	var inv domain.Investment
	var kind, status string
	var startDate, createdAt, updatedAt string
	var paymentType, calcType string
	var endDate, lastAccrual sql.NullString

	err := row.Scan(
		&inv.ID,
		&inv.UserID,
		&inv.Name,
		&kind,
		&inv.Symbol,
		&inv.Category,
		&status,
		&inv.Notes,
		&startDate,
		&inv.CurrentPrice,
		&inv.TotalQuantity,
		&inv.NetContribution,
		&inv.CurrentValue,
		&inv.Savings.InterestRate,
		&paymentType,
		&calcType,
		&endDate,
		&lastAccrual,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.Kind = domain.AssetKind(kind)
	inv.Status = domain.InvestmentStatus(status)
	inv.Savings.PaymentType = domain.InterestPaymentType(paymentType)
	inv.Savings.CalculationType = domain.InterestCalculationType(calcType)
	inv.StartDate = parseTime(startDate)
	inv.CreatedAt = parseTime(createdAt)
	inv.UpdatedAt = parseTime(updatedAt)
	inv.Savings.EndDate = parseNullTime(endDate)
	inv.Savings.LastInterestAccrual = parseNullTime(lastAccrual)

	return &inv, nil
}

func (r *Repository) list(query string, args ...interface{}) ([]domain.Investment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []domain.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating investments: %w", err)
	}

	for i := range investments {
		if err := r.loadLedger(&investments[i]); err != nil {
			return nil, err
		}
	}

	return investments, nil
}

func (r *Repository) loadLedger(inv *domain.Investment) error {
	rows, err := r.db.Query(`
		SELECT id, kind, price, quantity, amount, fee, occurred_at, notes, created_at
		FROM transactions
		WHERE investment_id = ?
		ORDER BY seq`, inv.ID)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	inv.Transactions = nil
	for rows.Next() {
		var t domain.Transaction
		var kind, occurredAt, createdAt string
		if err := rows.Scan(&t.ID, &kind, &t.Price, &t.Quantity, &t.Amount,
			&t.Fee, &occurredAt, &t.Notes, &createdAt); err != nil {
			return fmt.Errorf("failed to scan transaction: %w", err)
		}
		t.Kind = domain.TransactionKind(kind)
		t.OccurredAt = parseTime(occurredAt)
		t.CreatedAt = parseTime(createdAt)
		inv.Transactions = append(inv.Transactions, t)
	}
	return rows.Err()
}

func insertInvestment(tx *sql.Tx, inv *domain.Investment) error {
	_, err := tx.Exec(`
		INSERT INTO investments
		(id, user_id, name, kind, symbol, category, status, notes, start_date,
		 current_price, total_quantity, net_contribution, current_value,
		 interest_rate, interest_payment_type, interest_calc_type, end_date,
		 last_interest_accrual, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		inv.ID,
		inv.UserID,
		inv.Name,
		string(inv.Kind),
		inv.Symbol,
		inv.Category,
		string(inv.Status),
		inv.Notes,
		inv.StartDate.Format(time.RFC3339),
		inv.CurrentPrice,
		inv.TotalQuantity,
		inv.NetContribution,
		inv.CurrentValue,
		inv.Savings.InterestRate,
		string(inv.Savings.PaymentType),
		string(inv.Savings.CalculationType),
		nullTime(inv.Savings.EndDate),
		nullTime(inv.Savings.LastInterestAccrual),
		inv.CreatedAt.Format(time.RFC3339),
		inv.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert investment: %w", err)
	}
	return nil
}

func insertLedger(tx *sql.Tx, inv *domain.Investment) error {
	for i := range inv.Transactions {
		t := &inv.Transactions[i]
		_, err := tx.Exec(`
			INSERT INTO transactions
			(id, investment_id, kind, price, quantity, amount, fee,
			 occurred_at, notes, created_at, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			t.ID,
			inv.ID,
			string(t.Kind),
			t.Price,
			t.Quantity,
			t.Amount,
			t.Fee,
			t.OccurredAt.Format(time.RFC3339),
			t.Notes,
			t.CreatedAt.Format(time.RFC3339),
			i,
		)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}
	}
	return nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}
