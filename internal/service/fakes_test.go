package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// In-memory store fakes shared by the service tests. They mimic the
// database-backed semantics the services rely on: compare-and-set status
// transitions, unique reference numbers and the per-day notification dedup.

type fakeDebtStore struct {
	mu     sync.Mutex
	debts  map[int64]*model.Debt
	nextID int64

	listErr error
}

func newFakeDebtStore() *fakeDebtStore {
	return &fakeDebtStore{debts: make(map[int64]*model.Debt), nextID: 1}
}

func (f *fakeDebtStore) add(debt *model.Debt) *model.Debt {
	f.mu.Lock()
	defer f.mu.Unlock()
	if debt.ID == 0 {
		debt.ID = f.nextID
		f.nextID++
	}
	if debt.Status == "" {
		debt.Status = model.DebtStatusActive
	}
	f.debts[debt.ID] = debt
	return debt
}

func (f *fakeDebtStore) Create(ctx context.Context, debt *model.Debt) error {
	f.add(debt)
	return nil
}

func (f *fakeDebtStore) GetByID(ctx context.Context, id int64) (*model.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	debt, ok := f.debts[id]
	if !ok {
		return nil, fmt.Errorf("debt %d not found", id)
	}
	copied := *debt
	return &copied, nil
}

func (f *fakeDebtStore) GetByIDForUser(ctx context.Context, id, userID int64) (*model.Debt, error) {
	debt, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if debt.UserID != userID {
		return nil, fmt.Errorf("debt %d not found", id)
	}
	return debt, nil
}

func (f *fakeDebtStore) GetUserDebts(ctx context.Context, userID int64) ([]model.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Debt
	for _, d := range f.debts {
		if d.UserID == userID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDebtStore) ListActive(ctx context.Context) ([]model.Debt, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Debt
	for _, d := range f.debts {
		if d.Status == model.DebtStatusActive {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (f *fakeDebtStore) MarkPaid(ctx context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	debt, ok := f.debts[id]
	if !ok || debt.Status != model.DebtStatusActive {
		return false, nil
	}
	debt.Status = model.DebtStatusPaid
	return true, nil
}

func (f *fakeDebtStore) UpdateStatus(ctx context.Context, id, userID int64, status model.DebtStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	debt, ok := f.debts[id]
	if !ok || debt.UserID != userID {
		return fmt.Errorf("debt %d not found", id)
	}
	debt.Status = status
	return nil
}

func (f *fakeDebtStore) Delete(ctx context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	debt, ok := f.debts[id]
	if !ok || debt.UserID != userID {
		return fmt.Errorf("debt %d not found", id)
	}
	delete(f.debts, id)
	return nil
}

func (f *fakeDebtStore) FindCandidateForPayment(ctx context.Context, phoneSuffix string, amount float64) (*model.Debt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *model.Debt
	for _, d := range f.debts {
		if d.Status != model.DebtStatusActive {
			continue
		}
		if !strings.HasSuffix(digitsOnly(d.DebtorPhone), phoneSuffix) {
			continue
		}
		if d.Amount < amount-1 || d.Amount > amount+1 {
			continue
		}
		if best == nil || d.CreatedAt.After(best.CreatedAt) {
			best = d
		}
	}
	if best == nil {
		return nil, nil
	}
	copied := *best
	return &copied, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type fakeTransactionStore struct {
	mu           sync.Mutex
	transactions map[int64]*model.Transaction
	nextID       int64
}

func newFakeTransactionStore() *fakeTransactionStore {
	return &fakeTransactionStore{transactions: make(map[int64]*model.Transaction), nextID: 1}
}

func (f *fakeTransactionStore) Create(ctx context.Context, transaction *model.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.ReferenceNumber != "" && t.ReferenceNumber == transaction.ReferenceNumber {
			return fmt.Errorf("transaction with reference %s already exists", transaction.ReferenceNumber)
		}
	}
	transaction.ID = f.nextID
	f.nextID++
	copied := *transaction
	f.transactions[copied.ID] = &copied
	return nil
}

func (f *fakeTransactionStore) GetPendingByReference(ctx context.Context, refs ...string) (*model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		for _, t := range f.transactions {
			if t.ReferenceNumber == ref && t.Status == model.TransactionStatusPending {
				copied := *t
				return &copied, nil
			}
		}
	}
	return nil, nil
}

func (f *fakeTransactionStore) CompletePending(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusCompleted
	t.TransactionDate = completedAt
	return true, nil
}

func (f *fakeTransactionStore) FailPending(ctx context.Context, id int64, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.transactions[id]
	if !ok || t.Status != model.TransactionStatusPending {
		return false, nil
	}
	t.Status = model.TransactionStatusFailed
	t.Description += " | failed: " + reason
	return true, nil
}

func (f *fakeTransactionStore) SumCompletedForDebt(ctx context.Context, debtID int64) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var sum float64
	for _, t := range f.transactions {
		if t.DebtID != nil && *t.DebtID == debtID &&
			t.Status == model.TransactionStatusCompleted &&
			t.Type == model.TransactionTypePaymentReceived {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (f *fakeTransactionStore) ListByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.transactions {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) ListByDebt(ctx context.Context, debtID, userID int64) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.transactions {
		if t.DebtID != nil && *t.DebtID == debtID && t.UserID == userID {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (f *fakeTransactionStore) byReference(ref string) *model.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.transactions {
		if t.ReferenceNumber == ref {
			copied := *t
			return &copied
		}
	}
	return nil
}

func (f *fakeTransactionStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transactions)
}

type fakeCreditStore struct {
	mu      sync.Mutex
	credits map[int64]*model.Credit
	nextID  int64

	listErr error
}

func newFakeCreditStore() *fakeCreditStore {
	return &fakeCreditStore{credits: make(map[int64]*model.Credit), nextID: 1}
}

func (f *fakeCreditStore) add(credit *model.Credit) *model.Credit {
	f.mu.Lock()
	defer f.mu.Unlock()
	if credit.ID == 0 {
		credit.ID = f.nextID
		f.nextID++
	}
	if credit.Status == "" {
		credit.Status = model.CreditStatusActive
	}
	f.credits[credit.ID] = credit
	return credit
}

func (f *fakeCreditStore) Create(ctx context.Context, credit *model.Credit) error {
	f.add(credit)
	return nil
}

func (f *fakeCreditStore) GetByIDForUser(ctx context.Context, id, userID int64) (*model.Credit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.credits[id]
	if !ok || c.UserID != userID {
		return nil, fmt.Errorf("credit %d not found", id)
	}
	copied := *c
	return &copied, nil
}

func (f *fakeCreditStore) GetUserCredits(ctx context.Context, userID int64) ([]model.Credit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Credit
	for _, c := range f.credits {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCreditStore) ListActive(ctx context.Context) ([]model.Credit, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Credit
	for _, c := range f.credits {
		if c.Status == model.CreditStatusActive && c.CreditLimit != nil && *c.CreditLimit > 0 {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeCreditStore) UpdateAmount(ctx context.Context, id, userID int64, amount float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.credits[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("credit %d not found", id)
	}
	c.Amount = amount
	return nil
}

func (f *fakeCreditStore) UpdateStatus(ctx context.Context, id, userID int64, status model.CreditStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.credits[id]
	if !ok || c.UserID != userID {
		return fmt.Errorf("credit %d not found", id)
	}
	c.Status = status
	return nil
}

// fakeNotificationStore is both a NotificationStore and a NotificationSink:
// Emit persists through Create, so ExistsSince sees earlier emissions the way
// the scheduler's dedup check does in production.
type fakeNotificationStore struct {
	mu            sync.Mutex
	notifications []model.Notification
	nextID        int64

	emitErr error // when set, Emit fails for every notification
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{nextID: 1}
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *model.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	n.ID = f.nextID
	f.nextID++
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationStore) ExistsSince(ctx context.Context, userID, relatedID int64, relatedType string, ntype model.NotificationType, since time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.notifications {
		if n.UserID == userID && n.RelatedID != nil && *n.RelatedID == relatedID &&
			n.RelatedType == relatedType && n.Type == ntype && !n.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotificationStore) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, id, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return fmt.Errorf("notification %d not found", id)
}

func (f *fakeNotificationStore) MarkAllRead(ctx context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].UserID == userID {
			f.notifications[i].IsRead = true
		}
	}
	return nil
}

func (f *fakeNotificationStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []model.Notification
	var deleted int64
	for _, n := range f.notifications {
		if n.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	f.notifications = kept
	return deleted, nil
}

func (f *fakeNotificationStore) Emit(ctx context.Context, n *model.Notification) error {
	if f.emitErr != nil {
		return f.emitErr
	}
	return f.Create(ctx, n)
}

func (f *fakeNotificationStore) all() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

func (f *fakeNotificationStore) withTitle(title string) []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Notification
	for _, n := range f.notifications {
		if n.Title == title {
			out = append(out, n)
		}
	}
	return out
}
