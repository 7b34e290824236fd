package model

import (
	"errors"
	"time"
)

type NotificationType string

const (
	NotificationTypePaymentDue     NotificationType = "payment_due"
	NotificationTypePaymentOverdue NotificationType = "payment_overdue"
	NotificationTypeCreditLimit    NotificationType = "credit_limit"
	NotificationTypeSystem         NotificationType = "system"
	NotificationTypeReminder       NotificationType = "reminder"
	NotificationTypeAlert          NotificationType = "alert"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// PriorityRank orders priorities low < medium < high < urgent.
func PriorityRank(p NotificationPriority) int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return -1
}

const (
	RelatedTypeDebt        = "debt"
	RelatedTypeCredit      = "credit"
	RelatedTypeTransaction = "transaction"
)

// ErrDuplicateNotification is returned by the store when an insert collides
// with the per-day dedup constraint; callers treat it as already delivered.
var ErrDuplicateNotification = errors.New("duplicate notification for period")

// Notification is append-only; IsRead is the only field ever mutated.
// Rows older than the retention window are deleted by the scheduler.
type Notification struct {
	ID          int64                `json:"id" db:"id"`
	UserID      int64                `json:"user_id" db:"user_id"`
	Type        NotificationType     `json:"type" db:"type"`
	Title       string               `json:"title" db:"title"`
	Message     string               `json:"message" db:"message"`
	Priority    NotificationPriority `json:"priority" db:"priority"`
	IsRead      bool                 `json:"is_read" db:"is_read"`
	RelatedID   *int64               `json:"related_id" db:"related_id"`
	RelatedType string               `json:"related_type" db:"related_type"`
	CreatedAt   time.Time            `json:"created_at" db:"created_at"`
}
