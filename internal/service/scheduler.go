package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
)

const (
	scanSchedule    = "@every 15m"
	cleanupSchedule = "0 2 * * *" // daily at 02:00
	retentionDays   = 30
)

// NotificationScheduler periodically scans every active debt and credit,
// applies the rule engine and emits the alerts that are due. One scan runs at
// a time; Stop lets an in-flight scan finish.
type NotificationScheduler struct {
	debts         DebtStore
	credits       CreditStore
	notifications NotificationStore
	sink          NotificationSink
	logger        *logrus.Logger

	mu      sync.Mutex // guards cron, stop and running
	cron    *cron.Cron
	stop    chan struct{}
	initial sync.WaitGroup
	running bool

	scanMu sync.Mutex // single-flight for the scan itself
}

func NewNotificationScheduler(
	debts DebtStore,
	credits CreditStore,
	notifications NotificationStore,
	sink NotificationSink,
	logger *logrus.Logger,
) *NotificationScheduler {
	return &NotificationScheduler{
		debts:         debts,
		credits:       credits,
		notifications: notifications,
		sink:          sink,
		logger:        logger,
	}
}

// Start runs one scan immediately and then every 15 minutes until Stop.
// Calling Start on a running scheduler is a logged no-op.
func (s *NotificationScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Warn("Notification scheduler already running")
		return
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(scanSchedule, func() {
		if err := s.scan(context.Background()); err != nil {
			s.logger.WithError(err).Error("Scheduled notification scan failed")
		}
	}); err != nil {
		s.logger.WithError(err).Error("Failed to schedule notification scan")
		return
	}
	if _, err := s.cron.AddFunc(cleanupSchedule, func() {
		s.cleanup(context.Background())
	}); err != nil {
		s.logger.WithError(err).Error("Failed to schedule notification cleanup")
		return
	}

	s.cron.Start()
	s.stop = make(chan struct{})
	s.running = true
	s.logger.Info("Notification scheduler started")

	// Immediate first scan. Gated on the stop channel so a Stop racing this
	// goroutine cannot leave a fresh scan starting after it returned.
	stop := s.stop
	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		select {
		case <-stop:
			return
		default:
		}
		if err := s.scan(context.Background()); err != nil {
			s.logger.WithError(err).Error("Initial notification scan failed")
		}
	}()
}

// Stop cancels the recurring timers and waits for any in-flight scan to
// finish. Safe to call when already stopped.
func (s *NotificationScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	c := s.cron
	s.cron = nil
	s.running = false
	close(s.stop)
	s.mu.Unlock()

	// cron.Stop's context completes when jobs started by the timers return.
	<-c.Stop().Done()
	// Wait out the initial-scan goroutine, then drain any manual scan.
	s.initial.Wait()
	s.scanMu.Lock()
	s.scanMu.Unlock()

	s.logger.Info("Notification scheduler stopped")
}

// RunScan triggers an out-of-band scan without disturbing the recurring
// timer. Used by the operator endpoint.
func (s *NotificationScheduler) RunScan(ctx context.Context) error {
	return s.scan(ctx)
}

func (s *NotificationScheduler) scan(ctx context.Context) error {
	if !s.scanMu.TryLock() {
		s.logger.Warn("Notification scan already in progress, skipping")
		return nil
	}
	defer s.scanMu.Unlock()

	now := time.Now()
	var emitted, failed int

	debts, err := s.debts.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list active debts for scan")
		return fmt.Errorf("failed to list active debts: %w", err)
	}
	for i := range debts {
		sent, err := s.evaluateDebt(ctx, &debts[i], now)
		if err != nil {
			// One entity failing must not abort the scan.
			failed++
			s.logger.WithError(err).WithField("debt_id", debts[i].ID).
				Error("Failed to evaluate debt, continuing scan")
			continue
		}
		if sent {
			emitted++
		}
	}

	credits, err := s.credits.ListActive(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list active credits for scan")
		return fmt.Errorf("failed to list active credits: %w", err)
	}
	for i := range credits {
		sent, err := s.evaluateCredit(ctx, &credits[i], now)
		if err != nil {
			failed++
			s.logger.WithError(err).WithField("credit_id", credits[i].ID).
				Error("Failed to evaluate credit, continuing scan")
			continue
		}
		if sent {
			emitted++
		}
	}

	s.logger.WithFields(logrus.Fields{
		"debts":    len(debts),
		"credits":  len(credits),
		"emitted":  emitted,
		"failed":   failed,
		"duration": time.Since(now).String(),
	}).Info("Notification scan finished")
	return nil
}

func (s *NotificationScheduler) evaluateDebt(ctx context.Context, debt *model.Debt, now time.Time) (bool, error) {
	eval := EvaluateDebt(debt, now)
	if eval == nil {
		return false, nil
	}

	exists, err := s.notifications.ExistsSince(ctx, debt.UserID, debt.ID, model.RelatedTypeDebt, eval.Type, eval.DedupSince(now))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	return true, s.sink.Emit(ctx, &model.Notification{
		UserID:      debt.UserID,
		Type:        eval.Type,
		Title:       eval.Title,
		Message:     eval.Message,
		Priority:    eval.Priority,
		RelatedID:   &debt.ID,
		RelatedType: model.RelatedTypeDebt,
	})
}

func (s *NotificationScheduler) evaluateCredit(ctx context.Context, credit *model.Credit, now time.Time) (bool, error) {
	eval := EvaluateCredit(credit, now)
	if eval == nil {
		return false, nil
	}

	exists, err := s.notifications.ExistsSince(ctx, credit.UserID, credit.ID, model.RelatedTypeCredit, eval.Type, eval.DedupSince(now))
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	return true, s.sink.Emit(ctx, &model.Notification{
		UserID:      credit.UserID,
		Type:        eval.Type,
		Title:       eval.Title,
		Message:     eval.Message,
		Priority:    eval.Priority,
		RelatedID:   &credit.ID,
		RelatedType: model.RelatedTypeCredit,
	})
}

func (s *NotificationScheduler) cleanup(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	deleted, err := s.notifications.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("Notification retention cleanup failed")
		return
	}
	if deleted > 0 {
		s.logger.WithField("deleted", deleted).Info("Old notifications removed")
	}
}
