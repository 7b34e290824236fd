package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type DebtRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewDebtRepository(db *sql.DB, logger *logrus.Logger) *DebtRepository {
	return &DebtRepository{db: db, logger: logger}
}

const debtColumns = `id, user_id, debtor_name, debtor_phone, amount, due_date, status, category, interest_rate, created_at, updated_at`

func scanDebt(row interface{ Scan(...any) error }) (*model.Debt, error) {
	var debt model.Debt
	err := row.Scan(
		&debt.ID,
		&debt.UserID,
		&debt.DebtorName,
		&debt.DebtorPhone,
		&debt.Amount,
		&debt.DueDate,
		&debt.Status,
		&debt.Category,
		&debt.InterestRate,
		&debt.CreatedAt,
		&debt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &debt, nil
}

func (r *DebtRepository) Create(ctx context.Context, debt *model.Debt) error {
	query := `
		INSERT INTO debts (user_id, debtor_name, debtor_phone, amount, due_date, status, category, interest_rate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		debt.UserID,
		debt.DebtorName,
		debt.DebtorPhone,
		debt.Amount,
		debt.DueDate,
		debt.Status,
		debt.Category,
		debt.InterestRate,
		debt.CreatedAt,
		debt.UpdatedAt,
	).Scan(&debt.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "foreign_key_violation" {
				return fmt.Errorf("user not found")
			}
		}
		return fmt.Errorf("failed to create debt: %w", err)
	}

	return nil
}

func (r *DebtRepository) GetByID(ctx context.Context, id int64) (*model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1`

	debt, err := scanDebt(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("debt not found")
		}
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return debt, nil
}

func (r *DebtRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE id = $1 AND user_id = $2`

	debt, err := scanDebt(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("debt not found")
		}
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return debt, nil
}

func (r *DebtRepository) GetUserDebts(ctx context.Context, userID int64) ([]model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user debts: %w", err)
	}
	defer rows.Close()

	var debts []model.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, *debt)
	}

	return debts, rows.Err()
}

// ListActive returns active debts across all owners, for the scheduler scan.
func (r *DebtRepository) ListActive(ctx context.Context) ([]model.Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE status = 'active' ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active debts: %w", err)
	}
	defer rows.Close()

	var debts []model.Debt
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, *debt)
	}

	return debts, rows.Err()
}

// MarkPaid flips an active debt to paid. The status predicate makes the
// transition fire at most once even when several completions race.
func (r *DebtRepository) MarkPaid(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE debts
		SET status = 'paid',
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark debt paid: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *DebtRepository) UpdateStatus(ctx context.Context, id, userID int64, status model.DebtStatus) error {
	query := `
		UPDATE debts
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, status, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update debt status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("debt not found or not active")
	}

	return nil
}

func (r *DebtRepository) Delete(ctx context.Context, id, userID int64) error {
	query := `DELETE FROM debts WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete debt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("debt not found")
	}

	return nil
}

// FindCandidateForPayment matches a gateway report that carries no usable
// reference: a non-paid debt whose debtor phone ends in the reported suffix
// and whose amount is within one unit of the reported amount. The stored
// phone is stripped to digits before comparing, since debtor phones are
// recorded in whatever format the user typed ("0712 345 678") while the
// suffix is digits-only. Two debts with the same amount and overlapping
// suffix are ambiguous; the most recently created one wins, which is a known
// accuracy limitation of this heuristic. Returns (nil, nil) when nothing
// matches.
func (r *DebtRepository) FindCandidateForPayment(ctx context.Context, phoneSuffix string, amount float64) (*model.Debt, error) {
	query := `
		SELECT ` + debtColumns + `
		FROM debts
		WHERE status = 'active'
		  AND RIGHT(regexp_replace(debtor_phone, '\D', '', 'g'), 9) = $1
		  AND ABS(amount - $2) <= 1
		ORDER BY created_at DESC
		LIMIT 1
	`

	debt, err := scanDebt(r.db.QueryRowContext(ctx, query, phoneSuffix, amount))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find candidate debt: %w", err)
	}

	return debt, nil
}
