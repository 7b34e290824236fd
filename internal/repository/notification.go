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

type NotificationRepository struct {
	db     *sql.DB
	logger *logrus.Logger
}

func NewNotificationRepository(db *sql.DB, logger *logrus.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (user_id, type, title, message, priority, is_read, related_id, related_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		n.Priority,
		n.IsRead,
		n.RelatedID,
		n.RelatedType,
		time.Now(),
	).Scan(&n.ID, &n.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" {
				// the per-day dedup index fired; a concurrent scan got there first
				return model.ErrDuplicateNotification
			}
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ExistsSince reports whether a notification of the given type already exists
// for the entity in the lookback window. This query is the dedup mechanism;
// there is no separate last-notified column.
func (r *NotificationRepository) ExistsSince(ctx context.Context, userID, relatedID int64, relatedType string, ntype model.NotificationType, since time.Time) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM notifications
			WHERE user_id = $1
			  AND related_id = $2
			  AND related_type = $3
			  AND type = $4
			  AND created_at >= $5
		)
	`

	var exists bool
	err := r.db.QueryRowContext(ctx, query, userID, relatedID, relatedType, ntype, since).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check notification existence: %w", err)
	}

	return exists, nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]model.Notification, error) {
	query := `
		SELECT id, user_id, type, title, message, priority, is_read, related_id, related_type, created_at
		FROM notifications
		WHERE user_id = $1 AND ($2 = FALSE OR is_read = FALSE)
		ORDER BY created_at DESC
		LIMIT 100
	`

	rows, err := r.db.QueryContext(ctx, query, userID, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(
			&n.ID,
			&n.UserID,
			&n.Type,
			&n.Title,
			&n.Message,
			&n.Priority,
			&n.IsRead,
			&n.RelatedID,
			&n.RelatedType,
			&n.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("notification not found")
	}

	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	query := `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return nil
}

// DeleteOlderThan removes notifications past the retention window.
func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM notifications WHERE created_at < $1`

	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old notifications: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	r.logger.WithField("deleted", deleted).Debug("Notification retention cleanup done")
	return deleted, nil
}
