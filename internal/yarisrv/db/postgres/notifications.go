package postgres

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateNotification appends a notification record.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) apperrors.Error {
	query := `
		INSERT INTO notifications (notification_id, user_id, sender_id, type, title, body, data)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	data := n.Data
	if len(data) == 0 {
		data = []byte("{}")
	}

	_, err := s.db.ExecContext(ctx, query,
		n.NotificationID,
		n.UserID,
		n.SenderID,
		n.Type,
		n.Title,
		n.Body,
		[]byte(data),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("notification already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert notification")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, apperrors.Error) {
	query := `
		SELECT notification_id, user_id, sender_id, type, title, body, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.Notification
	for rows.Next() {
		var n models.Notification
		var data []byte
		if err := rows.Scan(
			&n.NotificationID,
			&n.UserID,
			&n.SenderID,
			&n.Type,
			&n.Title,
			&n.Body,
			&data,
			&n.Read,
			&n.CreatedAt,
		); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		n.Data = data
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return result, nil
}

// MarkNotificationRead flips the read flag, guarded on ownership.
func (s *Store) MarkNotificationRead(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error {
	query := `UPDATE notifications SET read = TRUE WHERE notification_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows == 0 {
		return dberror.ErrNotFound.Msg("notification not found")
	}
	return nil
}

// DeleteNotification removes the record, guarded on ownership.
func (s *Store) DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error {
	query := `DELETE FROM notifications WHERE notification_id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, notificationID, userID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows == 0 {
		return dberror.ErrNotFound.Msg("notification not found")
	}
	return nil
}
