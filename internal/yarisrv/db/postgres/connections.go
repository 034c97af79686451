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

// CreateConnectionRequest inserts a pending request. The partial unique
// index rejects a second pending request for the same ordered pair.
func (s *Store) CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) apperrors.Error {
	query := `
		INSERT INTO connection_requests (request_id, sender_id, receiver_id, message, status)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		req.RequestID,
		req.SenderID,
		req.ReceiverID,
		req.Message,
		req.Status,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("a pending request already exists")
		}
		log.Ctx(ctx).Error().Err(err).Msg("failed to insert connection request")
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

func scanConnectionRequest(row *sql.Row) (*models.ConnectionRequest, error) {
	var req models.ConnectionRequest
	err := row.Scan(
		&req.RequestID,
		&req.SenderID,
		&req.ReceiverID,
		&req.Message,
		&req.Status,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetConnectionRequest retrieves a request by id.
func (s *Store) GetConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, apperrors.Error) {
	query := `
		SELECT request_id, sender_id, receiver_id, message, status, created_at, updated_at
		FROM connection_requests
		WHERE request_id = $1
	`

	req, err := scanConnectionRequest(s.db.QueryRowContext(ctx, query, requestID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("connection request not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return req, nil
}

// GetPendingRequest retrieves the pending request for the ordered pair, if any.
func (s *Store) GetPendingRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.ConnectionRequest, apperrors.Error) {
	query := `
		SELECT request_id, sender_id, receiver_id, message, status, created_at, updated_at
		FROM connection_requests
		WHERE sender_id = $1 AND receiver_id = $2 AND status = 'pending'
	`

	req, err := scanConnectionRequest(s.db.QueryRowContext(ctx, query, senderID, receiverID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("no pending request")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return req, nil
}

// AcceptConnectionRequest flips the pending request to accepted and inserts
// the connection row in one transaction. The status guard on the UPDATE
// means a request can only ever be accepted once.
func (s *Store) AcceptConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.Connection, apperrors.Error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer tx.Rollback()

	var senderID, receiverID uuid.UUID
	err = tx.QueryRowContext(ctx, `
		UPDATE connection_requests
		SET status = $2, updated_at = NOW()
		WHERE request_id = $1 AND status = $3
		RETURNING sender_id, receiver_id
	`, requestID, models.RequestAccepted, models.RequestPending).Scan(&senderID, &receiverID)
	if err != nil {
		if err == sql.ErrNoRows {
			var exists bool
			if qerr := s.db.QueryRowContext(ctx,
				`SELECT EXISTS (SELECT 1 FROM connection_requests WHERE request_id = $1)`, requestID).Scan(&exists); qerr != nil {
				return nil, dberror.ErrDatabase.Err(qerr)
			}
			if !exists {
				return nil, dberror.ErrNotFound.Msg("connection request not found")
			}
			return nil, dberror.ErrConditionFailed.Msg("request is no longer pending")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	user1, user2 := models.NormalizePair(senderID, receiverID)
	conn := &models.Connection{
		ConnectionID: uuid.New(),
		User1:        user1,
		User2:        user2,
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO connections (connection_id, user1_id, user2_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, conn.ConnectionID, conn.User1, conn.User2).Scan(&conn.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, dberror.ErrAlreadyExists.Msg("users are already connected")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}

	if err := tx.Commit(); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to commit connection accept")
		return nil, dberror.ErrDatabase.Err(err)
	}
	return conn, nil
}

// DeclineConnectionRequest flips the pending request to declined.
func (s *Store) DeclineConnectionRequest(ctx context.Context, requestID uuid.UUID) apperrors.Error {
	query := `
		UPDATE connection_requests
		SET status = $2, updated_at = NOW()
		WHERE request_id = $1 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, requestID, models.RequestDeclined, models.RequestPending)
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
		`SELECT EXISTS (SELECT 1 FROM connection_requests WHERE request_id = $1)`, requestID).Scan(&exists); err != nil {
		return dberror.ErrDatabase.Err(err)
	}
	if !exists {
		return dberror.ErrNotFound.Msg("connection request not found")
	}
	return dberror.ErrConditionFailed.Msg("request is no longer pending")
}

// GetConnectionBetween retrieves the connection between two users, if any.
// The pair is normalized before the lookup.
func (s *Store) GetConnectionBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, apperrors.Error) {
	user1, user2 := models.NormalizePair(userA, userB)
	query := `
		SELECT connection_id, user1_id, user2_id, created_at
		FROM connections
		WHERE user1_id = $1 AND user2_id = $2
	`

	var conn models.Connection
	err := s.db.QueryRowContext(ctx, query, user1, user2).Scan(
		&conn.ConnectionID,
		&conn.User1,
		&conn.User2,
		&conn.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("connection not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &conn, nil
}

// ListConnections returns every connection the user participates in.
func (s *Store) ListConnections(ctx context.Context, userID uuid.UUID) ([]*models.Connection, apperrors.Error) {
	query := `
		SELECT connection_id, user1_id, user2_id, created_at
		FROM connections
		WHERE user1_id = $1 OR user2_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	defer rows.Close()

	var result []*models.Connection
	for rows.Next() {
		var conn models.Connection
		if err := rows.Scan(
			&conn.ConnectionID,
			&conn.User1,
			&conn.User2,
			&conn.CreatedAt,
		); err != nil {
			return nil, dberror.ErrDatabase.Err(err)
		}
		result = append(result, &conn)
	}
	if err := rows.Err(); err != nil {
		return nil, dberror.ErrDatabase.Err(err)
	}
	return result, nil
}
