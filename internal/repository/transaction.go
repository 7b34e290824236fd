package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type TransactionRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewTransactionRepository(db *sql.DB, logger *logrus.Logger) *TransactionRepository {
	return &TransactionRepository{db: db, logger: logger}
}

const transactionColumns = `id, user_id, debt_id, credit_id, type, amount, payment_method, status, reference_number, transaction_date, description, created_at, updated_at`

func scanTransaction(row interface{ Scan(...any) error }) (*model.Transaction, error) {
	var tx model.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.DebtID,
		&tx.CreditID,
		&tx.Type,
		&tx.Amount,
		&tx.PaymentMethod,
		&tx.Status,
		&tx.ReferenceNumber,
		&tx.TransactionDate,
		&tx.Description,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *TransactionRepository) Create(ctx context.Context, transaction *model.Transaction) error {
	r.logger.WithFields(logrus.Fields{
		"user_id":   transaction.UserID,
		"debt_id":   transaction.DebtID,
		"amount":    transaction.Amount,
		"type":      transaction.Type,
		"status":    transaction.Status,
		"reference": transaction.ReferenceNumber,
	}).Info("Recording transaction")

	query := `
		INSERT INTO transactions (user_id, debt_id, credit_id, type, amount, payment_method, status, reference_number, transaction_date, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		transaction.UserID,
		transaction.DebtID,
		transaction.CreditID,
		transaction.Type,
		transaction.Amount,
		transaction.PaymentMethod,
		transaction.Status,
		transaction.ReferenceNumber,
		transaction.TransactionDate,
		transaction.Description,
		transaction.CreatedAt,
		transaction.UpdatedAt,
	).Scan(&transaction.ID)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code.Name() {
			case "unique_violation":
				return fmt.Errorf("transaction reference already exists")
			case "foreign_key_violation":
				return fmt.Errorf("referenced debt or credit not found")
			}
		}
		r.logger.WithError(err).Error("Failed to record transaction")
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// GetPendingByReference looks up the pending gateway-initiated transaction for
// any of the given correlation ids. A miss is the normal out-of-order case and
// returns (nil, nil).
func (r *TransactionRepository) GetPendingByReference(ctx context.Context, refs ...string) (*model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE reference_number = ANY($1)
		  AND status = 'pending'
		  AND payment_method = 'kcb_mobile'
		LIMIT 1
	`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, pq.Array(refs)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pending transaction: %w", err)
	}

	return tx, nil
}

// CompletePending transitions pending -> completed. The status predicate is
// the idempotence guard: a replayed callback matches zero rows.
func (r *TransactionRepository) CompletePending(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'completed',
		    transaction_date = $1,
		    updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, completedAt, id)
	if err != nil {
		return false, fmt.Errorf("failed to complete transaction: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// FailPending transitions pending -> failed and appends the gateway-reported
// reason to the description.
func (r *TransactionRepository) FailPending(ctx context.Context, id int64, reason string) (bool, error) {
	query := `
		UPDATE transactions
		SET status = 'failed',
		    description = TRIM(description || ' | failed: ' || $1),
		    updated_at = NOW()
		WHERE id = $2 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, reason, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark transaction failed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

// SumCompletedForDebt returns the total of completed incoming payments
// recorded against a debt.
func (r *TransactionRepository) SumCompletedForDebt(ctx context.Context, debtID int64) (float64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE debt_id = $1
		  AND type = 'payment_received'
		  AND status = 'completed'
	`

	var sum float64
	if err := r.db.QueryRowContext(ctx, query, debtID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum debt payments: %w", err)
	}

	return sum, nil
}

func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY transaction_date DESC
	`

	return r.list(ctx, query, userID)
}

func (r *TransactionRepository) ListByDebt(ctx context.Context, debtID, userID int64) ([]model.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE debt_id = $1 AND user_id = $2
		ORDER BY transaction_date DESC
	`

	return r.list(ctx, query, debtID, userID)
}

func (r *TransactionRepository) list(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}

	return transactions, rows.Err()
}
