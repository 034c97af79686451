package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// YariConnectStatus is the state of a random-match video session.
type YariConnectStatus string

const (
	YariConnectActive YariConnectStatus = "active"
	YariConnectEnded  YariConnectStatus = "ended"
)

// YariConnectSession pairs two users for an ad hoc call. Duration is
// derived once when the session ends and is immutable afterwards.
type YariConnectSession struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	User1           uuid.UUID         `db:"user1_id" json:"user1_id"`
	User2           uuid.UUID         `db:"user2_id" json:"user2_id"`
	StartedAt       time.Time         `db:"started_at" json:"started_at"`
	EndedAt         *time.Time        `db:"ended_at" json:"ended_at,omitempty"`
	DurationSeconds int               `db:"duration_seconds" json:"duration_seconds"`
	Status          YariConnectStatus `db:"status" json:"status"`
}

// IsParticipant reports whether the given user is part of the pair.
func (y *YariConnectSession) IsParticipant(userID uuid.UUID) bool {
	return y.User1 == userID || y.User2 == userID
}
