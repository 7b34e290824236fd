package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type CreditRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewCreditRepository(db *sql.DB, logger *logrus.Logger) *CreditRepository {
	return &CreditRepository{db: db, logger: logger}
}

const creditColumns = `id, user_id, creditor_name, amount, credit_limit, category, status, created_at, updated_at`

func scanCredit(row interface{ Scan(...any) error }) (*model.Credit, error) {
	var credit model.Credit
	err := row.Scan(
		&credit.ID,
		&credit.UserID,
		&credit.CreditorName,
		&credit.Amount,
		&credit.CreditLimit,
		&credit.Category,
		&credit.Status,
		&credit.CreatedAt,
		&credit.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *CreditRepository) Create(ctx context.Context, credit *model.Credit) error {
	query := `
		INSERT INTO credits (user_id, creditor_name, amount, credit_limit, category, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		credit.UserID,
		credit.CreditorName,
		credit.Amount,
		credit.CreditLimit,
		credit.Category,
		credit.Status,
		credit.CreatedAt,
		credit.UpdatedAt,
	).Scan(&credit.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "foreign_key_violation" {
				return fmt.Errorf("user not found")
			}
		}
		return fmt.Errorf("failed to create credit: %w", err)
	}

	return nil
}

func (r *CreditRepository) GetByIDForUser(ctx context.Context, id, userID int64) (*model.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1 AND user_id = $2`

	credit, err := scanCredit(r.db.QueryRowContext(ctx, query, id, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("credit not found")
		}
		return nil, fmt.Errorf("failed to get credit: %w", err)
	}

	return credit, nil
}

func (r *CreditRepository) GetUserCredits(ctx context.Context, userID int64) ([]model.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user credits: %w", err)
	}
	defer rows.Close()

	var credits []model.Credit
	for rows.Next() {
		credit, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, *credit)
	}

	return credits, rows.Err()
}

// ListActive returns active credits with a positive limit across all owners,
// for the scheduler scan. Credits without a limit have no utilization to warn on.
func (r *CreditRepository) ListActive(ctx context.Context) ([]model.Credit, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credits
		WHERE status = 'active' AND credit_limit IS NOT NULL AND credit_limit > 0
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active credits: %w", err)
	}
	defer rows.Close()

	var credits []model.Credit
	for rows.Next() {
		credit, err := scanCredit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, *credit)
	}

	return credits, rows.Err()
}

func (r *CreditRepository) UpdateAmount(ctx context.Context, id, userID int64, amount float64) error {
	query := `
		UPDATE credits
		SET amount = $1,
		    updated_at = NOW()
		WHERE id = $2 AND user_id = $3 AND status = 'active'
	`

	result, err := r.db.ExecContext(ctx, query, amount, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update credit amount: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("credit not found or not active")
	}

	return nil
}

func (r *CreditRepository) UpdateStatus(ctx context.Context, id, userID int64, status model.CreditStatus) error {
	query := `
		UPDATE credits
		SET status = $1,
		    updated_at = NOW()
		WHERE id = $2 AND user_id = $3
	`

	result, err := r.db.ExecContext(ctx, query, status, id, userID)
	if err != nil {
		return fmt.Errorf("failed to update credit status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("credit not found")
	}

	return nil
}
