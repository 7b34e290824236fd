package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

// accountRefPrefix is the convention this system owns across the gateway
// boundary: the gateway echoes the account reference back verbatim, so
// DEBT-{id} survives even when the correlation id does not.
const accountRefPrefix = "DEBT-"

// PaymentService correlates gateway events with locally recorded debts and
// keeps debt/transaction state consistent under partial and duplicated
// settlement reports.
type PaymentService struct {
	debts        DebtStore
	transactions TransactionStore
	sink         NotificationSink
	gateway      PaymentGateway
	refPrefix    string
	logger       *logrus.Logger
}

func NewPaymentService(
	debts DebtStore,
	transactions TransactionStore,
	sink NotificationSink,
	gateway PaymentGateway,
	refPrefix string,
	logger *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		debts:        debts,
		transactions: transactions,
		sink:         sink,
		gateway:      gateway,
		refPrefix:    refPrefix,
		logger:       logger,
	}
}

// newTransactionRef builds a process-unique correlation id, e.g.
// KCB_1693526400_1a2b3c4d.
func (s *PaymentService) newTransactionRef() string {
	return fmt.Sprintf("%s_%d_%s", s.refPrefix, time.Now().Unix(), uuid.NewString()[:8])
}

// DebtIDFromAccountRef decodes the DEBT-{id} convention; ok is false for
// anything else.
func DebtIDFromAccountRef(ref string) (int64, bool) {
	if !strings.HasPrefix(ref, accountRefPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(ref, accountRefPrefix), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// InitiatePayment records a pending transaction and asks the gateway to
// collect the amount. It returns without waiting for settlement. A gateway
// transport failure degrades to an offline placeholder so the initiation still
// succeeds from the caller's point of view; the placeholder stays pending
// until a real settlement report or the dev completion helper arrives.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID int64, req model.InitiatePaymentRequest) (*model.InitiatePaymentResponse, error) {
	if req.Amount <= 0 {
		return nil, fmt.Errorf("amount must be greater than zero")
	}

	debt, err := s.resolveDebt(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	ref := s.newTransactionRef()

	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"debt_id":         debt.ID,
		"amount":          req.Amount,
		"transaction_ref": ref,
	}).Info("Initiating debt payment")

	var (
		paymentID string
		devMode   bool
	)

	gwResp, err := s.gateway.Initiate(ctx, GatewayInitiateRequest{
		PhoneNumber:      req.PhoneNumber,
		Amount:           req.Amount,
		TransactionRef:   ref,
		AccountReference: fmt.Sprintf("%s%d", accountRefPrefix, debt.ID),
	})
	if err != nil {
		// Transport or auth failure talking to the gateway. Fall back to a
		// clearly flagged placeholder; it must never be marked completed here.
		devMode = true
		paymentID = "OFFLINE_" + ref
		s.logger.WithError(err).WithField("transaction_ref", ref).
			Warn("Gateway unreachable, recording offline placeholder payment")
	} else {
		paymentID = gwResp.PaymentID
	}

	now := time.Now()
	description := fmt.Sprintf("Mobile payment from %s", req.PhoneNumber)
	if devMode {
		description += " (offline placeholder, gateway unreachable)"
	}

	transaction := &model.Transaction{
		UserID:          userID,
		DebtID:          &debt.ID,
		Type:            model.TransactionTypePaymentReceived,
		Amount:          req.Amount,
		PaymentMethod:   model.PaymentMethodKCBMobile,
		Status:          model.TransactionStatusPending,
		ReferenceNumber: ref,
		TransactionDate: now,
		Description:     description,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.transactions.Create(ctx, transaction); err != nil {
		s.logger.WithError(err).Error("Failed to record pending transaction")
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	return &model.InitiatePaymentResponse{
		TransactionRef: ref,
		PaymentID:      paymentID,
		Status:         string(model.TransactionStatusPending),
		DevMode:        devMode,
	}, nil
}

// resolveDebt finds the target debt from the explicit id or the account
// reference, and checks it belongs to the caller.
func (s *PaymentService) resolveDebt(ctx context.Context, userID int64, req model.InitiatePaymentRequest) (*model.Debt, error) {
	var debtID int64
	switch {
	case req.DebtID != nil:
		debtID = *req.DebtID
	default:
		id, ok := DebtIDFromAccountRef(req.AccountReference)
		if !ok {
			return nil, fmt.Errorf("no debt reference supplied")
		}
		debtID = id
	}

	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return nil, fmt.Errorf("debt not found")
	}
	if debt.UserID != userID {
		s.logger.WithFields(logrus.Fields{
			"debt_id":  debtID,
			"user_id":  userID,
			"owner_id": debt.UserID,
		}).Warn("Payment initiation against another user's debt")
		return nil, fmt.Errorf("debt does not belong to user")
	}
	if debt.Status != model.DebtStatusActive {
		return nil, fmt.Errorf("debt is not active")
	}

	return debt, nil
}

// Reconcile applies a settlement report to local state. It is safe to call
// concurrently and to replay: the pending -> completed transition is a
// compare-and-set, so a duplicate callback changes nothing. A report that
// matches nothing is accepted and logged -- a reporting gap, not an error.
func (s *PaymentService) Reconcile(ctx context.Context, cb model.GatewayCallback) error {
	log := s.logger.WithFields(logrus.Fields{
		"transaction_ref": cb.TransactionRef,
		"payment_id":      cb.PaymentID,
		"status":          cb.Status,
		"amount":          cb.Amount,
	})
	log.Info("Reconciling gateway settlement report")

	// Step 1: exact match on a pending transaction by correlation id.
	pending, err := s.transactions.GetPendingByReference(ctx, cb.TransactionRef, cb.PaymentID)
	if err != nil {
		return fmt.Errorf("failed to look up pending transaction: %w", err)
	}

	if pending != nil {
		return s.settlePending(ctx, pending, cb, log)
	}

	// Only a completed report can create state from nothing; an unmatched
	// failure has nothing local to fail.
	if cb.Status != model.GatewayStatusCompleted {
		log.Info("Unmatched non-completed settlement report ignored")
		return nil
	}
	if cb.Amount <= 0 {
		log.Warn("Completed settlement report with non-positive amount ignored")
		return nil
	}

	// Step 2: the account reference encodes the debt directly.
	if debtID, ok := DebtIDFromAccountRef(cb.AccountReference); ok {
		debt, err := s.debts.GetByID(ctx, debtID)
		if err == nil {
			log.WithField("debt_id", debt.ID).Info("Matched settlement by account reference")
			return s.recordCompleted(ctx, debt, cb)
		}
		log.WithField("debt_id", debtID).Warn("Account reference names an unknown debt")
	}

	// Step 3: fallback heuristic on phone suffix and amount.
	if suffix := phoneSuffix(cb.PhoneNumber); suffix != "" {
		debt, err := s.debts.FindCandidateForPayment(ctx, suffix, cb.Amount)
		if err != nil {
			return fmt.Errorf("failed to search candidate debt: %w", err)
		}
		if debt != nil {
			log.WithField("debt_id", debt.ID).Info("Matched settlement by phone/amount heuristic")
			return s.recordCompleted(ctx, debt, cb)
		}
	}

	// Accepted but unmatched; flagged for operational follow-up.
	log.Warn("Gateway settlement report matched no local debt or transaction")
	return nil
}

// settlePending finishes a transaction found by correlation id.
func (s *PaymentService) settlePending(ctx context.Context, pending *model.Transaction, cb model.GatewayCallback, log *logrus.Entry) error {
	switch cb.Status {
	case model.GatewayStatusCompleted:
		ok, err := s.transactions.CompletePending(ctx, pending.ID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to complete transaction: %w", err)
		}
		if !ok {
			// Another worker or a replay already took it out of pending.
			log.Info("Transaction already reconciled, skipping")
			return nil
		}
		if pending.DebtID == nil {
			return nil
		}
		return s.settleDebt(ctx, pending.UserID, *pending.DebtID)

	case model.GatewayStatusFailed:
		reason := "gateway reported failure"
		ok, err := s.transactions.FailPending(ctx, pending.ID, reason)
		if err != nil {
			return fmt.Errorf("failed to mark transaction failed: %w", err)
		}
		if !ok {
			log.Info("Transaction already reconciled, skipping")
		}
		// Debt status is never touched on failure.
		return nil

	default:
		log.WithField("gateway_status", cb.Status).Info("Non-final settlement status, transaction stays pending")
		return nil
	}
}

// recordCompleted creates a completed transaction for a settlement that had no
// pending counterpart (out-of-order or externally initiated payment), then
// settles the debt.
func (s *PaymentService) recordCompleted(ctx context.Context, debt *model.Debt, cb model.GatewayCallback) error {
	ref := cb.TransactionRef
	if ref == "" {
		ref = cb.PaymentID
	}
	if ref == "" {
		ref = s.newTransactionRef()
	}

	now := time.Now()
	transaction := &model.Transaction{
		UserID:          debt.UserID,
		DebtID:          &debt.ID,
		Type:            model.TransactionTypePaymentReceived,
		Amount:          cb.Amount,
		PaymentMethod:   model.PaymentMethodKCBMobile,
		Status:          model.TransactionStatusCompleted,
		ReferenceNumber: ref,
		TransactionDate: now,
		Description:     fmt.Sprintf("Mobile payment from %s (matched on callback)", cb.PhoneNumber),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.transactions.Create(ctx, transaction); err != nil {
		// The unique reference constraint turns a replayed callback into a
		// no-op here instead of a double-counted payment.
		s.logger.WithError(err).WithField("reference", ref).
			Warn("Could not record callback-matched transaction")
		return nil
	}

	return s.settleDebt(ctx, debt.UserID, debt.ID)
}

// settleDebt recomputes the paid total and flips the debt to paid when covered.
// MarkPaid is a compare-and-set on status, so the fully-paid notification is
// emitted exactly once no matter how many completions race.
func (s *PaymentService) settleDebt(ctx context.Context, userID, debtID int64) error {
	debt, err := s.debts.GetByID(ctx, debtID)
	if err != nil {
		return fmt.Errorf("failed to load debt for settlement: %w", err)
	}

	paid, err := s.transactions.SumCompletedForDebt(ctx, debtID)
	if err != nil {
		return fmt.Errorf("failed to sum debt payments: %w", err)
	}

	if paid >= debt.Amount {
		flipped, err := s.debts.MarkPaid(ctx, debtID)
		if err != nil {
			return fmt.Errorf("failed to mark debt paid: %w", err)
		}
		if !flipped {
			return nil
		}

		s.logger.WithFields(logrus.Fields{
			"debt_id": debtID,
			"paid":    paid,
		}).Info("Debt fully paid")

		s.emit(ctx, &model.Notification{
			UserID:      userID,
			Type:        model.NotificationTypeSystem,
			Title:       "Debt fully paid",
			Message:     fmt.Sprintf("Debt from %s (%.2f) has been fully paid.", debt.DebtorName, debt.Amount),
			Priority:    model.PriorityMedium,
			RelatedID:   &debtID,
			RelatedType: model.RelatedTypeDebt,
		})
		return nil
	}

	remaining := debt.Amount - paid
	s.emit(ctx, &model.Notification{
		UserID:      userID,
		Type:        model.NotificationTypeSystem,
		Title:       "Partial payment received",
		Message:     fmt.Sprintf("Payment received on debt from %s. Remaining balance: %.2f.", debt.DebtorName, remaining),
		Priority:    model.PriorityLow,
		RelatedID:   &debtID,
		RelatedType: model.RelatedTypeDebt,
	})
	return nil
}

// emit delivers best-effort; a sink failure never fails reconciliation.
func (s *PaymentService) emit(ctx context.Context, n *model.Notification) {
	if err := s.sink.Emit(ctx, n); err != nil {
		s.logger.WithError(err).Warn("Failed to emit payment notification")
	}
}

// DevComplete manually settles a pending transaction as if the gateway had
// reported success. The handler rejects it outside non-production deployments.
func (s *PaymentService) DevComplete(ctx context.Context, ref string) error {
	if ref == "" {
		return fmt.Errorf("transaction reference required")
	}

	pending, err := s.transactions.GetPendingByReference(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to look up transaction: %w", err)
	}
	if pending == nil {
		return fmt.Errorf("no pending transaction for reference %s", ref)
	}

	return s.Reconcile(ctx, model.GatewayCallback{
		TransactionRef: pending.ReferenceNumber,
		Status:         model.GatewayStatusCompleted,
		Amount:         pending.Amount,
	})
}

// phoneSuffix normalizes a phone number to its last nine digits.
func phoneSuffix(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 9 {
		return ""
	}
	return string(digits[len(digits)-9:])
}
