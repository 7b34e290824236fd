package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type DebtService struct {
	debts        DebtStore
	transactions TransactionStore
	logger       *logrus.Logger
}

func NewDebtService(debts DebtStore, transactions TransactionStore, logger *logrus.Logger) *DebtService {
	return &DebtService{
		debts:        debts,
		transactions: transactions,
		logger:       logger,
	}
}

func (s *DebtService) CreateDebt(ctx context.Context, userID int64, req model.CreateDebtRequest) (*model.Debt, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	if req.DebtorName == "" {
		return nil, fmt.Errorf("debtor name is required")
	}

	now := time.Now()
	debt := &model.Debt{
		UserID:       userID,
		DebtorName:   req.DebtorName,
		DebtorPhone:  req.DebtorPhone,
		Amount:       req.Amount,
		DueDate:      req.DueDate,
		Status:       model.DebtStatusActive,
		Category:     req.Category,
		InterestRate: req.InterestRate,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.debts.Create(ctx, debt); err != nil {
		s.logger.WithError(err).Error("Failed to create debt")
		return nil, fmt.Errorf("failed to create debt: %w", err)
	}

	// record the intake as a transaction for the audit trail
	transaction := &model.Transaction{
		UserID:          userID,
		DebtID:          &debt.ID,
		Type:            model.TransactionTypeDebtCreated,
		Amount:          debt.Amount,
		PaymentMethod:   model.PaymentMethodCash,
		Status:          model.TransactionStatusCompleted,
		ReferenceNumber: fmt.Sprintf("DEBT_%d_%d", debt.ID, now.Unix()),
		TransactionDate: now,
		Description:     fmt.Sprintf("Debt recorded for %s", debt.DebtorName),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.transactions.Create(ctx, transaction); err != nil {
		s.logger.WithError(err).WithField("debt_id", debt.ID).
			Warn("Failed to record debt intake transaction")
	}

	s.logger.WithFields(logrus.Fields{
		"debt_id": debt.ID,
		"user_id": userID,
		"amount":  debt.Amount,
	}).Info("Debt created")
	return debt, nil
}

func (s *DebtService) GetUserDebts(ctx context.Context, userID int64) ([]model.Debt, error) {
	debts, err := s.debts.GetUserDebts(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get user debts")
		return nil, fmt.Errorf("failed to get debts: %w", err)
	}
	return debts, nil
}

func (s *DebtService) GetDebt(ctx context.Context, id, userID int64) (*model.Debt, error) {
	debt, err := s.debts.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return debt, nil
}

// UpdateStatus applies a manual transition; only active -> paid and
// active -> cancelled are allowed, a debt never re-opens.
func (s *DebtService) UpdateStatus(ctx context.Context, id, userID int64, status model.DebtStatus) error {
	if status != model.DebtStatusPaid && status != model.DebtStatusCancelled {
		return fmt.Errorf("invalid status transition")
	}

	if err := s.debts.UpdateStatus(ctx, id, userID, status); err != nil {
		s.logger.WithError(err).WithField("debt_id", id).Error("Failed to update debt status")
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"debt_id": id,
		"status":  status,
	}).Info("Debt status updated")
	return nil
}

// DeleteDebt removes a debt and, through the schema cascade, its transactions.
func (s *DebtService) DeleteDebt(ctx context.Context, id, userID int64) error {
	if err := s.debts.Delete(ctx, id, userID); err != nil {
		s.logger.WithError(err).WithField("debt_id", id).Error("Failed to delete debt")
		return err
	}

	s.logger.WithField("debt_id", id).Info("Debt deleted")
	return nil
}

func (s *DebtService) ListTransactions(ctx context.Context, debtID, userID int64) ([]model.Transaction, error) {
	// ownership check before exposing the transaction history
	if _, err := s.debts.GetByIDForUser(ctx, debtID, userID); err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	transactions, err := s.transactions.ListByDebt(ctx, debtID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}

func (s *DebtService) ListUserTransactions(ctx context.Context, userID int64) ([]model.Transaction, error) {
	transactions, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}
