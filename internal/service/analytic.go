package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

type AnalyticService struct {
	debts        DebtStore
	credits      CreditStore
	transactions TransactionStore
	logger       *logrus.Logger
}

func NewAnalyticService(debts DebtStore, credits CreditStore, transactions TransactionStore, logger *logrus.Logger) *AnalyticService {
	return &AnalyticService{
		debts:        debts,
		credits:      credits,
		transactions: transactions,
		logger:       logger,
	}
}

// GetPortfolioSummary aggregates the user's debts and credits into the
// dashboard numbers.
func (s *AnalyticService) GetPortfolioSummary(ctx context.Context, userID int64) (*model.PortfolioSummary, error) {
	debts, err := s.debts.GetUserDebts(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load debts for summary")
		return nil, fmt.Errorf("failed to load debts: %w", err)
	}

	credits, err := s.credits.GetUserCredits(ctx, userID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load credits for summary")
		return nil, fmt.Errorf("failed to load credits: %w", err)
	}

	summary := &model.PortfolioSummary{}
	now := time.Now()

	for i := range debts {
		debt := &debts[i]
		switch debt.Status {
		case model.DebtStatusActive:
			summary.ActiveDebts++

			paid, err := s.transactions.SumCompletedForDebt(ctx, debt.ID)
			if err != nil {
				s.logger.WithError(err).WithField("debt_id", debt.ID).
					Warn("Failed to sum payments for summary, counting full amount")
				paid = 0
			}
			summary.TotalCollected += paid
			summary.TotalOutstanding += debt.Amount - paid

			if debt.DueDate != nil && daysBetween(*debt.DueDate, now) > 0 {
				summary.OverdueDebts++
			}
		case model.DebtStatusPaid:
			summary.TotalCollected += debt.Amount
		}
	}

	for i := range credits {
		credit := &credits[i]
		if credit.Status != model.CreditStatusActive {
			continue
		}
		summary.ActiveCredits++
		summary.TotalCreditUsed += credit.Amount
		if credit.CreditLimit != nil {
			summary.TotalCreditLimit += *credit.CreditLimit
		}
	}

	if summary.TotalCreditLimit > 0 {
		summary.CreditUtilization = summary.TotalCreditUsed / summary.TotalCreditLimit * 100
	}

	return summary, nil
}
