package postgres

import (
	"context"
	"database/sql"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// CreateUser inserts an account row. Used by seeds and tests; account
// lifecycle is otherwise owned elsewhere.
func (s *Store) CreateUser(ctx context.Context, user *models.User) apperrors.Error {
	query := `INSERT INTO users (user_id, name, role) VALUES ($1, $2, $3)`

	_, err := s.db.ExecContext(ctx, query, user.UserID, user.Name, user.Role)
	if err != nil {
		if isUniqueViolation(err) {
			return dberror.ErrAlreadyExists.Msg("user already exists")
		}
		return dberror.ErrDatabase.Err(err)
	}
	return nil
}

// GetUser retrieves an account row by id.
func (s *Store) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, apperrors.Error) {
	query := `SELECT user_id, name, role, created_at FROM users WHERE user_id = $1`

	var user models.User
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&user.UserID,
		&user.Name,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, dberror.ErrNotFound.Msg("user not found")
		}
		return nil, dberror.ErrDatabase.Err(err)
	}
	return &user, nil
}
