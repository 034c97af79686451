package models

import (
	"encoding/json"
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// NotificationType tags a notification for client-side routing.
type NotificationType string

const (
	NotificationSessionRequest   NotificationType = "session_request"
	NotificationSessionUpdate    NotificationType = "session_update"
	NotificationConnectionInvite NotificationType = "connection_request"
	NotificationConnectionUpdate NotificationType = "connection_update"
	NotificationChatMessage      NotificationType = "chat_message"
)

// Notification is an append-only record targeted at one user. Only the
// read flag is mutable; the target may delete their own notifications.
type Notification struct {
	NotificationID uuid.UUID        `db:"notification_id" json:"notification_id"`
	UserID         uuid.UUID        `db:"user_id" json:"user_id"`
	SenderID       *uuid.UUID       `db:"sender_id" json:"sender_id,omitempty"`
	Type           NotificationType `db:"type" json:"type"`
	Title          string           `db:"title" json:"title"`
	Body           string           `db:"body" json:"body,omitempty"`
	Data           json.RawMessage  `db:"data" json:"data,omitempty"`
	Read           bool             `db:"read" json:"read"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
