package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// User is the narrow read-only view of the account collection the core
// needs: booking verifies the expert exists, nothing more. Account CRUD is
// owned by an external service.
type User struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
