package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type CreditService struct {
	credits CreditStore
	logger  *logrus.Logger
}

func NewCreditService(credits CreditStore, logger *logrus.Logger) *CreditService {
	return &CreditService{credits: credits, logger: logger}
}

func (s *CreditService) CreateCredit(ctx context.Context, userID int64, req model.CreateCreditRequest) (*model.Credit, error) {
	if req.CreditorName == "" {
		return nil, fmt.Errorf("creditor name is required")
	}
	if req.Amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}
	if req.CreditLimit != nil && *req.CreditLimit <= 0 {
		return nil, fmt.Errorf("credit limit must be greater than zero")
	}
	if req.CreditLimit != nil && req.Amount > *req.CreditLimit {
		return nil, fmt.Errorf("amount cannot exceed the credit limit")
	}

	now := time.Now()
	credit := &model.Credit{
		UserID:       userID,
		CreditorName: req.CreditorName,
		Amount:       req.Amount,
		CreditLimit:  req.CreditLimit,
		Category:     req.Category,
		Status:       model.CreditStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.credits.Create(ctx, credit); err != nil {
		s.logger.WithError(err).Error("Failed to create credit")
		return nil, fmt.Errorf("failed to create credit: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"credit_id": credit.ID,
		"user_id":   userID,
	}).Info("Credit created")
	return credit, nil
}

func (s *CreditService) GetUserCredits(ctx context.Context, userID int64) ([]model.Credit, error) {
	credits, err := s.credits.GetUserCredits(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to get user credits")
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}
	return credits, nil
}

func (s *CreditService) GetCredit(ctx context.Context, id, userID int64) (*model.Credit, error) {
	credit, err := s.credits.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit: %w", err)
	}
	return credit, nil
}

// UpdateAmount records a new drawn-down balance on the credit line.
func (s *CreditService) UpdateAmount(ctx context.Context, id, userID int64, amount float64) (*model.Credit, error) {
	if amount < 0 {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	credit, err := s.credits.GetByIDForUser(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit: %w", err)
	}
	if credit.CreditLimit != nil && amount > *credit.CreditLimit {
		return nil, fmt.Errorf("amount cannot exceed the credit limit")
	}

	if err := s.credits.UpdateAmount(ctx, id, userID, amount); err != nil {
		s.logger.WithError(err).WithField("credit_id", id).Error("Failed to update credit amount")
		return nil, err
	}

	credit.Amount = amount
	s.logger.WithFields(logrus.Fields{
		"credit_id":   id,
		"amount":      amount,
		"utilization": credit.Utilization(),
	}).Info("Credit amount updated")
	return credit, nil
}

func (s *CreditService) UpdateStatus(ctx context.Context, id, userID int64, status model.CreditStatus) error {
	switch status {
	case model.CreditStatusActive, model.CreditStatusInactive, model.CreditStatusClosed:
	default:
		return fmt.Errorf("invalid credit status")
	}

	if err := s.credits.UpdateStatus(ctx, id, userID, status); err != nil {
		s.logger.WithError(err).WithField("credit_id", id).Error("Failed to update credit status")
		return err
	}

	return nil
}
