package models

import (
	"time"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

// SessionStatus is the lifecycle state of a booked session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionConfirmed SessionStatus = "confirmed"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transitions leave this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// IsValid reports whether the value is a known status.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPending, SessionConfirmed, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Session is a scheduled meeting between an expert and a client.
// ExpertID and ClientID always differ. SlotID is set when the session was
// created by claiming an availability slot; free-form bookings leave it nil.
type Session struct {
	SessionID   uuid.UUID     `db:"session_id" json:"session_id"`
	ExpertID    uuid.UUID     `db:"expert_id" json:"expert_id"`
	ClientID    uuid.UUID     `db:"client_id" json:"client_id"`
	Title       string        `db:"title" json:"title"`                             // <=100 chars
	Description string        `db:"description" json:"description,omitempty"`       // <=500 chars
	Duration    int           `db:"duration_minutes" json:"duration_minutes"`
	Price       float64       `db:"price" json:"price"`
	ScheduledAt time.Time     `db:"scheduled_at" json:"scheduled_at"`
	Status      SessionStatus `db:"status" json:"status"`
	MeetingLink string        `db:"meeting_link" json:"meeting_link,omitempty"`
	Notes       string        `db:"notes" json:"notes,omitempty"`
	SlotID      *uuid.UUID    `db:"slot_id" json:"slot_id,omitempty"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// IsParticipant reports whether the given user is the session's expert or client.
func (s *Session) IsParticipant(userID uuid.UUID) bool {
	return s.ExpertID == userID || s.ClientID == userID
}

// Counterpart returns the other participant relative to the given user.
func (s *Session) Counterpart(userID uuid.UUID) uuid.UUID {
	if s.ExpertID == userID {
		return s.ClientID
	}
	return s.ExpertID
}
