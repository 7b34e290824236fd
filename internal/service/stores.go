package service

import (
	"context"
	"time"

	"debttrack-api/internal/model"
)

// Store interfaces consumed by the services in this package. The concrete
// repositories in internal/repository satisfy them; tests substitute fakes.

type DebtStore interface {
	Create(ctx context.Context, debt *model.Debt) error
	GetByID(ctx context.Context, id int64) (*model.Debt, error)
	GetByIDForUser(ctx context.Context, id, userID int64) (*model.Debt, error)
	GetUserDebts(ctx context.Context, userID int64) ([]model.Debt, error)
	ListActive(ctx context.Context) ([]model.Debt, error)
	MarkPaid(ctx context.Context, id int64) (bool, error)
	UpdateStatus(ctx context.Context, id, userID int64, status model.DebtStatus) error
	Delete(ctx context.Context, id, userID int64) error
	FindCandidateForPayment(ctx context.Context, phoneSuffix string, amount float64) (*model.Debt, error)
}

type TransactionStore interface {
	Create(ctx context.Context, transaction *model.Transaction) error
	GetPendingByReference(ctx context.Context, refs ...string) (*model.Transaction, error)
	CompletePending(ctx context.Context, id int64, completedAt time.Time) (bool, error)
	FailPending(ctx context.Context, id int64, reason string) (bool, error)
	SumCompletedForDebt(ctx context.Context, debtID int64) (float64, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	ListByDebt(ctx context.Context, debtID, userID int64) ([]model.Transaction, error)
}

type CreditStore interface {
	Create(ctx context.Context, credit *model.Credit) error
	GetByIDForUser(ctx context.Context, id, userID int64) (*model.Credit, error)
	GetUserCredits(ctx context.Context, userID int64) ([]model.Credit, error)
	ListActive(ctx context.Context) ([]model.Credit, error)
	UpdateAmount(ctx context.Context, id, userID int64, amount float64) error
	UpdateStatus(ctx context.Context, id, userID int64, status model.CreditStatus) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ExistsSince(ctx context.Context, userID, relatedID int64, relatedType string, ntype model.NotificationType, since time.Time) (bool, error)
	ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

// NotificationSink persists a notification and pushes it to the owner.
// NotificationService is the production implementation.
type NotificationSink interface {
	Emit(ctx context.Context, n *model.Notification) error
}
