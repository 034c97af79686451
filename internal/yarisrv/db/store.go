// Package db defines the record store abstraction the engine and lifecycle
// packages are written against. Two implementations exist: db/postgres for
// production and db/memory for tests. The store guarantees atomic
// single-row conditional updates; multi-row atomicity is only promised
// where an implementation documents it (accepting a connection request).
package db

import (
	"context"
	"time"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

// UserStore is the read surface over the externally-owned account
// collection, plus the create used by seeds and tests.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) apperrors.Error
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, apperrors.Error)
}

// AvailabilityStore persists slots and per-user settings.
type AvailabilityStore interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.AvailabilitySettings, apperrors.Error)
	UpsertSettings(ctx context.Context, settings *models.AvailabilitySettings) apperrors.Error

	CreateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error
	GetSlot(ctx context.Context, slotID uuid.UUID) (*models.AvailabilitySlot, apperrors.Error)
	// ListSlotsByDate returns every slot the expert owns on the exact civil
	// date. The overlap check scans this set, not a time-range query.
	ListSlotsByDate(ctx context.Context, expertID uuid.UUID, date time.Time) ([]*models.AvailabilitySlot, apperrors.Error)
	ListSlotsInRange(ctx context.Context, expertID uuid.UUID, start, end time.Time) ([]*models.AvailabilitySlot, apperrors.Error)
	// UpdateSlot applies the row only while is_booked=false; returns
	// dberror.ErrConditionFailed otherwise.
	UpdateSlot(ctx context.Context, slot *models.AvailabilitySlot) apperrors.Error
	// DeleteSlot removes the row only while is_booked=false.
	DeleteSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error
	// ClaimSlot is the booking CAS: flips is_booked false->true and stamps
	// the booking references in one conditional update. Exactly one caller
	// can ever win; losers get dberror.ErrConditionFailed.
	ClaimSlot(ctx context.Context, slotID, sessionID, bookedBy uuid.UUID) apperrors.Error
	// ReleaseSlot reverts a claim whose session creation failed. Best-effort
	// compensation; see DESIGN.md.
	ReleaseSlot(ctx context.Context, slotID uuid.UUID) apperrors.Error
}

// SessionStore persists booked sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) apperrors.Error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.Session, apperrors.Error)
	// UpdateSessionStatus transitions status only when the row still holds
	// the expected prior status, so concurrent transitions cannot collide.
	UpdateSessionStatus(ctx context.Context, sessionID uuid.UUID, from, to models.SessionStatus, meetingLink string) apperrors.Error
	UpdateSessionNotes(ctx context.Context, sessionID uuid.UUID, notes string) apperrors.Error
}

// YariConnectStore persists random-match video sessions.
type YariConnectStore interface {
	CreateYariSession(ctx context.Context, session *models.YariConnectSession) apperrors.Error
	GetYariSession(ctx context.Context, id uuid.UUID) (*models.YariConnectSession, apperrors.Error)
	// EndYariSession sets ended_at and duration only while status=active.
	EndYariSession(ctx context.Context, id uuid.UUID, endedAt time.Time, durationSeconds int) apperrors.Error
}

// ChatStore persists direct messages.
type ChatStore interface {
	CreateChatMessage(ctx context.Context, msg *models.ChatMessage) apperrors.Error
	ListConversation(ctx context.Context, userA, userB uuid.UUID, limit int) ([]*models.ChatMessage, apperrors.Error)
	// MarkMessageRead sets the read flag only when the caller is the
	// message recipient.
	MarkMessageRead(ctx context.Context, messageID, recipientID uuid.UUID) apperrors.Error
}

// NotificationStore persists notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, n *models.Notification) apperrors.Error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*models.Notification, apperrors.Error)
	MarkNotificationRead(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error
	DeleteNotification(ctx context.Context, notificationID, userID uuid.UUID) apperrors.Error
}

// ConnectionStore persists connection requests and accepted connections.
type ConnectionStore interface {
	CreateConnectionRequest(ctx context.Context, req *models.ConnectionRequest) apperrors.Error
	GetConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, apperrors.Error)
	GetPendingRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*models.ConnectionRequest, apperrors.Error)
	// AcceptConnectionRequest flips the request to accepted and inserts the
	// connection row. Atomic on postgres; single mutex section in memory.
	AcceptConnectionRequest(ctx context.Context, requestID uuid.UUID) (*models.Connection, apperrors.Error)
	DeclineConnectionRequest(ctx context.Context, requestID uuid.UUID) apperrors.Error
	GetConnectionBetween(ctx context.Context, userA, userB uuid.UUID) (*models.Connection, apperrors.Error)
	ListConnections(ctx context.Context, userID uuid.UUID) ([]*models.Connection, apperrors.Error)
}

// Store aggregates every collection the platform persists.
type Store interface {
	UserStore
	AvailabilityStore
	SessionStore
	YariConnectStore
	ChatStore
	NotificationStore
	ConnectionStore

	Ping(ctx context.Context) error
	Close() error
}
