package postgres

import (
	"context"
	"database/sql"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// GetSettings returns the user's availability settings, or the documented
// defaults when the user has never written any. The default read does not
// create a row.
func (s *Store) GetSettings(ctx context.Context, userID uuid.UUID) (*models.AvailabilitySettings, apperrors.Error) {
	query := `
		SELECT user_id, free_session_duration, paid_session_duration,
			paid_session_price, timezone, buffer_minutes, advance_booking_days,
			created_at, updated_at
		FROM availability_settings
		WHERE user_id = $1
	`

	var settings models.AvailabilitySettings
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.FreeSessionDuration,
		&settings.PaidSessionDuration,
		&settings.PaidSessionPrice,
		&settings.Timezone,
		&settings.BufferMinutes,
		&settings.AdvanceBookingDays,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.DefaultAvailabilitySettings(userID), nil
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &settings, nil
}

// UpsertSettings creates or replaces the user's settings row.
func (s *Store) UpsertSettings(ctx context.Context, settings *models.AvailabilitySettings) apperrors.Error {
	query := `
		INSERT INTO availability_settings (
			user_id, free_session_duration, paid_session_duration,
			paid_session_price, timezone, buffer_minutes, advance_booking_days
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			free_session_duration = EXCLUDED.free_session_duration,
			paid_session_duration = EXCLUDED.paid_session_duration,
			paid_session_price = EXCLUDED.paid_session_price,
			timezone = EXCLUDED.timezone,
			buffer_minutes = EXCLUDED.buffer_minutes,
			advance_booking_days = EXCLUDED.advance_booking_days,
			updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query,
		settings.UserID,
		settings.FreeSessionDuration,
		settings.PaidSessionDuration,
		settings.PaidSessionPrice,
		settings.Timezone,
		settings.BufferMinutes,
		settings.AdvanceBookingDays,
	)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}
