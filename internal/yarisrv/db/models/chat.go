package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// ChatMessage is an append-only direct message. The read flag is the only
// field ever mutated, and only by the recipient.
type ChatMessage struct {
	MessageID uuid.UUID  `db:"message_id" json:"message_id"`
	SenderID  uuid.UUID  `db:"sender_id" json:"sender_id"`
	Recipient uuid.UUID  `db:"recipient_id" json:"recipient_id"`
	SessionID *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	Body      string     `db:"body" json:"body"` // <=1000 chars
	Read      bool       `db:"read" json:"read"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
