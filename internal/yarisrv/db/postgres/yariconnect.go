package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateYariSession inserts an active random-match video session.
func (s *Store) CreateYariSession(ctx context.Context, session *models.YariConnectSession) apperrors.Error {
	query := `
		INSERT INTO yari_connect_sessions (id, user1_id, user2_id, started_at, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.User1,
		session.User2,
		session.StartedAt,
		session.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("yari connect session already exists")
		}
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// GetYariSession retrieves a random-match session by id.
func (s *Store) GetYariSession(ctx context.Context, id uuid.UUID) (*models.YariConnectSession, apperrors.Error) {
	query := `
		SELECT id, user1_id, user2_id, started_at, ended_at, duration_seconds, status
		FROM yari_connect_sessions
		WHERE id = $1
	`

	var session models.YariConnectSession
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.User1,
		&session.User2,
		&session.StartedAt,
		&session.EndedAt,
		&session.DurationSeconds,
		&session.Status,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("yari connect session not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &session, nil
}

// EndYariSession stamps the end time and duration, guarded on the session
// still being active so a second end does not rewrite the record.
func (s *Store) EndYariSession(ctx context.Context, id uuid.UUID, endedAt time.Time, durationSeconds int) apperrors.Error {
	query := `
		UPDATE yari_connect_sessions
		SET ended_at = $2, duration_seconds = $3, status = $4
		WHERE id = $1 AND status = $5
	`

	result, err := s.db.ExecContext(ctx, query, id, endedAt, durationSeconds,
		models.YariConnectEnded, models.YariConnectActive)
	if err != nil {
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
		`SELECT EXISTS (SELECT 1 FROM yari_connect_sessions WHERE id = $1)`, id).Scan(&exists); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if !exists {
		return dberror.ErrNotFound.Msg("yari connect session not found")
	}
	return dberror.ErrConditionFailed.Msg("yari connect session already ended")
}
