package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
	"debttrack-api/internal/push"
)

// Pusher is the live delivery channel; push.Hub is the production
// implementation.
type Pusher interface {
	Push(userID int64, event string, payload any) error
}

// NotificationService is the notification sink: it persists the record (the
// durable, poll-able truth) and then best-effort pushes it to the owner's
// websocket group. High-priority alerts additionally fan out to email, SMS
// and voice.
type NotificationService struct {
	store  NotificationStore
	users  UserStore
	hub    Pusher
	email  *EmailSender
	sms    *SMSSender
	voice  *VoiceSender
	logger *logrus.Logger
}

func NewNotificationService(
	store NotificationStore,
	users UserStore,
	hub Pusher,
	email *EmailSender,
	sms *SMSSender,
	voice *VoiceSender,
	logger *logrus.Logger,
) *NotificationService {
	return &NotificationService{
		store:  store,
		users:  users,
		hub:    hub,
		email:  email,
		sms:    sms,
		voice:  voice,
		logger: logger,
	}
}

// Emit persists the notification and pushes it to any live subscriber of the
// owner's channel. Push failure never rolls back the persisted row; it is a
// latency optimization, not the delivery guarantee.
func (s *NotificationService) Emit(ctx context.Context, n *model.Notification) error {
	if err := s.store.Create(ctx, n); err != nil {
		if errors.Is(err, model.ErrDuplicateNotification) {
			s.logger.WithFields(logrus.Fields{
				"user_id": n.UserID,
				"type":    n.Type,
			}).Debug("Notification already emitted for this period")
			return nil
		}
		return fmt.Errorf("failed to persist notification: %w", err)
	}

	if s.hub != nil {
		if err := s.hub.Push(n.UserID, push.EventNewNotification, n); err != nil {
			s.logger.WithError(err).WithField("user_id", n.UserID).
				Warn("Failed to push notification, client will see it on next poll")
		}
	}

	s.escalate(n)
	return nil
}

// escalate mirrors high and urgent alerts to the external channels. Runs in
// the background; failures are logged and never propagate.
func (s *NotificationService) escalate(n *model.Notification) {
	if model.PriorityRank(n.Priority) < model.PriorityRank(model.PriorityHigh) {
		return
	}
	if s.users == nil {
		return
	}

	notification := *n
	go func() {
		ctx := context.Background()

		user, err := s.users.GetByID(ctx, notification.UserID)
		if err != nil {
			s.logger.WithError(err).Warn("Cannot escalate alert, user lookup failed")
			return
		}

		if s.email != nil && user.Email != "" {
			if err := s.email.SendNotificationAlert(user.Email, &notification); err != nil {
				s.logger.WithError(err).Warn("Failed to send alert email")
			}
		}

		if notification.Priority != model.PriorityUrgent || user.Phone == "" {
			return
		}

		if s.sms != nil {
			if err := s.sms.Send(ctx, user.Phone, notification.Title+": "+notification.Message); err != nil {
				s.logger.WithError(err).Warn("Failed to send alert SMS")
			}
		}
		if s.voice != nil {
			if err := s.voice.Call(ctx, user.Phone); err != nil {
				s.logger.WithError(err).Warn("Failed to queue alert voice call")
			}
		}
	}()
}

func (s *NotificationService) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	notifications, err := s.store.ListForUser(ctx, userID, unreadOnly)
	if err != nil {
		s.logger.WithError(err).Error("Failed to list notifications")
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	return s.store.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) error {
	return s.store.MarkAllRead(ctx, userID)
}
