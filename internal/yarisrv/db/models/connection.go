package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// ConnectionRequestStatus is the state of a connection request.
type ConnectionRequestStatus string

const (
	RequestPending  ConnectionRequestStatus = "pending"
	RequestAccepted ConnectionRequestStatus = "accepted"
	RequestDeclined ConnectionRequestStatus = "declined"
)

// ConnectionRequest is a directed invitation from sender to receiver.
// At most one pending request may exist per ordered (sender, receiver)
// pair, and no request may be created while the pair is already connected.
type ConnectionRequest struct {
	RequestID  uuid.UUID               `db:"request_id" json:"request_id"`
	SenderID   uuid.UUID               `db:"sender_id" json:"sender_id"`
	ReceiverID uuid.UUID               `db:"receiver_id" json:"receiver_id"`
	Message    string                  `db:"message" json:"message,omitempty"`
	Status     ConnectionRequestStatus `db:"status" json:"status"`
	CreatedAt  time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time               `db:"updated_at" json:"updated_at"`
}

// Connection is an undirected link between two users, created only when a
// request is accepted. The pair is stored in normalized order so the
// unordered uniqueness constraint holds.
type Connection struct {
	ConnectionID uuid.UUID `db:"connection_id" json:"connection_id"`
	User1        uuid.UUID `db:"user1_id" json:"user1_id"`
	User2        uuid.UUID `db:"user2_id" json:"user2_id"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// NormalizePair orders two user ids deterministically so an unordered pair
// always stores the same way.
func NormalizePair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
