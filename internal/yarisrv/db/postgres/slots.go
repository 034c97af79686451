package postgres

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"

	"time"
)

const slotColumns = `
	slot_id, expert_id, slot_date, start_minutes, end_minutes, slot_type,
	price, duration_minutes, is_booked, session_id, booked_by,
	recurrence_pattern, recurrence_until, note, created_at, updated_at
`

func scanSlot(row interface{ Scan(...any) error }) (*models.AvailabilitySlot, error) {
	var slot models.AvailabilitySlot
	var recPattern sql.NullString
	var recUntil sql.NullTime
	err := row.Scan(
		&slot.SlotID,
		&slot.ExpertID,
		&slot.Date,
		&slot.StartMinutes,
		&slot.EndMinutes,
		&slot.SlotType,
		&slot.Price,
		&slot.Duration,
		&slot.IsBooked,
		&slot.SessionID,
		&slot.BookedBy,
		&recPattern,
		&recUntil,
		&slot.Note,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if recPattern.Valid {
		slot.Recurrence = &models.Recurrence{
			Pattern: models.RecurrencePattern(recPattern.String),
			Until:   recUntil.Time,
		}
	}
	return &slot, nil
}

// CreateSlot inserts a new availability slot.
func (s *Store) CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error {
	query := `
		INSERT INTO availability_slots (
			slot_id, expert_id, slot_date, start_minutes, end_minutes,
			slot_type, price, duration_minutes, is_booked,
			recurrence_pattern, recurrence_until, note
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9, $10, $11)
	`

	var recPattern, recUntil any
	if slot.Recurrence != nil {
		recPattern = string(slot.Recurrence.Pattern)
		recUntil = slot.Recurrence.Until
	}

	_, err := s.db.ExecContext(ctx, query,
		slot.SlotID,
		slot.ExpertID,
		slot.Date,
		slot.StartMinutes,
		slot.EndMinutes,
		slot.SlotType,
		slot.Price,
		slot.Duration,
		recPattern,
		recUntil,
		slot.Note,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("slot already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert slot")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// GetSlot retrieves a slot by id.
func (s *Store) GetSlot(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, apperrors.Error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE slot_id = $1`

	slot, err := scanSlot(s.db.QueryRowContext(ctx, query, slotID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("slot not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return slot, nil
}

// ListSlotsByDate returns all slots the expert owns on the exact date.
func (s *Store) ListSlotsByDate(ctx context.Context, expertID uuid.UUID, date time.Time) ([]*models.AvailabilitySlot, apperrors.Error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE expert_id = $1 AND slot_date = $2
		ORDER BY start_minutes
	`
	return s.listSlots(ctx, query, expertID, date)
}

// ListSlotsInRange returns all slots for the expert within [start, end].
func (s *Store) ListSlotsInRange(ctx context.Context, expertID uuid.UUID, start, end time.Time) ([]*models.AvailabilitySlot, apperrors.Error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE expert_id = $1 AND slot_date >= $2 AND slot_date <= $3
		ORDER BY slot_date, start_minutes
	`
	return s.listSlots(ctx, query, expertID, start, end)
}

func (s *Store) listSlots(ctx context.Context, query string, args ...any) ([]*models.AvailabilitySlot, apperrors.Error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to scan slot row")
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return result, nil
}

// UpdateSlot applies the row while it remains unbooked.
func (s *Store) UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error {
	query := `
		UPDATE availability_slots
		SET slot_date = $2,
			start_minutes = $3,
			end_minutes = $4,
			slot_type = $5,
			price = $6,
			duration_minutes = $7,
			recurrence_pattern = $8,
			recurrence_until = $9,
			note = $10,
			updated_at = NOW()
		WHERE slot_id = $1 AND is_booked = FALSE
	`

	var recPattern, recUntil any
	if slot.Recurrence != nil {
		recPattern = string(slot.Recurrence.Pattern)
		recUntil = slot.Recurrence.Until
	}

	result, err := s.db.ExecContext(ctx, query,
		slot.SlotID,
		slot.Date,
		slot.StartMinutes,
		slot.EndMinutes,
		slot.SlotType,
		slot.Price,
		slot.Duration,
		recPattern,
		recUntil,
		slot.Note,
	)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to update slot")
		return dberror.ErrDatabase.Err(err)
	}
	return s.slotGuardResult(ctx, result, slot.SlotID)
}

// DeleteSlot hard-deletes the slot while it remains unbooked.
func (s *Store) DeleteSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error {
	query := `DELETE FROM availability_slots WHERE slot_id = $1 AND is_booked = FALSE`

	result, err := s.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	return s.slotGuardResult(ctx, result, slotID)
}

// ClaimSlot is the booking compare-and-swap: the UPDATE only matches while
// is_booked is still false, so exactly one concurrent caller wins.
func (s *Store) ClaimSlot(ctx context.Context, slotID, sessionID, bookedBy uuid.UUID) apperrors.Error {
	query := `
		UPDATE availability_slots
		SET is_booked = TRUE,
			session_id = $2,
			booked_by = $3,
			updated_at = NOW()
		WHERE slot_id = $1 AND is_booked = FALSE
	`

	result, err := s.db.ExecContext(ctx, query, slotID, sessionID, bookedBy)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to claim slot")
		return dberror.ErrDatabase.Err(err)
	}
	return s.slotGuardResult(ctx, result, slotID)
}

// ReleaseSlot reverts a claim. Compensation path only.
func (s *Store) ReleaseSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error {
	query := `
		UPDATE availability_slots
		SET is_booked = FALSE,
			session_id = NULL,
			booked_by = NULL,
			updated_at = NOW()
		WHERE slot_id = $1
	`

	result, err := s.db.ExecContext(ctx, query, slotID)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows == 0 {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	return nil
}

// slotGuardResult distinguishes a missing row from a failed is_booked guard
// after a conditional slot update matched nothing.
func (s *Store) slotGuardResult(ctx context.Context, result sql.Result, slotID uuid.UUID) apperrors.Error {
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM availability_slots WHERE slot_id = $1)`, slotID).Scan(&exists); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if !exists {
		return dberror.ErrNotFound.Msg("slot not found")
	}
	return dberror.ErrConditionFailed.Msg("slot is already booked")
}
