package postgres

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateSession inserts a booked session.
func (s *Store) CreateSession(ctx context.Context, session *models.Session) apperrors.Error {
	query := `
		INSERT INTO sessions (
			session_id, expert_id, client_id, title, description,
			duration_minutes, price, scheduled_at, status, meeting_link,
			notes, slot_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.SessionID,
		session.ExpertID,
		session.ClientID,
		session.Title,
		session.Description,
		session.Duration,
		session.Price,
		session.ScheduledAt,
		session.Status,
		session.MeetingLink,
		session.Notes,
		session.SlotID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("session already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert session")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, apperrors.Error) {
	query := `
		SELECT session_id, expert_id, client_id, title, description,
			duration_minutes, price, scheduled_at, status, meeting_link,
			notes, slot_id, created_at, updated_at
		FROM sessions
		WHERE session_id = $1
	`

	var session models.Session
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&session.SessionID,
		&session.ExpertID,
		&session.ClientID,
		&session.Title,
		&session.Description,
		&session.Duration,
		&session.Price,
		&session.ScheduledAt,
		&session.Status,
		&session.MeetingLink,
		&session.Notes,
		&session.SlotID,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("session not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &session, nil
}

// UpdateSessionStatus moves the session from one status to another, guarded
// on the row still holding the expected prior status. The meeting link is
// only written when non-empty so later transitions never clear it.
func (s *Store) UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus, meetingLink string) apperrors.Error {
	query := `
		UPDATE sessions
		SET status = $3,
			meeting_link = CASE WHEN $4 <> '' THEN $4 ELSE meeting_link END,
			updated_at = NOW()
		WHERE session_id = $1 AND status = $2
	`

	result, err := s.db.ExecContext(ctx, query, sessionID, from, to, meetingLink)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to update session status")
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE session_id = $1)`, sessionID).Scan(&exists); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if !exists {
		return dberror.ErrNotFound.Msg("session not found")
	}
	return dberror.ErrConditionFailed.Msg("session status changed concurrently")
}

// UpdateSessionNotes replaces the session notes.
func (s *Store) UpdateSessionNotes(ctx context.Context, sessionID uuid.UUID, notes string) apperrors.Error {
	query := `UPDATE sessions SET notes = $2, updated_at = NOW() WHERE session_id = $1`

	result, err := s.db.ExecContext(ctx, query, sessionID, notes)
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if rows == 0 {
		return dberror.ErrNotFound.Msg("session not found")
	}
	return nil
}
