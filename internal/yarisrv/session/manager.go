// Package session owns the booked-session state machine: free-form
// booking, the pending/confirmed/completed/cancelled lifecycle with its
// authorization rules, and participant-scoped reads and notes.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
)

var validate = validator.New()

// BookRequest is the free-form booking payload. It creates a pending
// session without consuming an availability slot; slot-based booking is
// the availability package's claim path.
type BookRequest struct {
	ExpertID    string  `json:"expert_id" validate:"required,uuid"`
	Title       string  `json:"title" validate:"required,max=100"`
	Description string  `json:"description" validate:"max=500"`
	Duration    int     `json:"duration_minutes" validate:"required,min=15,max=180"`
	Price       float64 `json:"price" validate:"min=0"`
	ScheduledAt string  `json:"scheduled_at" validate:"required"`
}

// StatusRequest is the transition payload.
type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed completed cancelled"`
}

// NotesRequest is the annotation payload.
type NotesRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// transitions maps each status to the set of statuses reachable from it.
// Terminal states have no outgoing edges.
var transitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionPending:   {models.SessionConfirmed, models.SessionCancelled},
	models.SessionConfirmed: {models.SessionCompleted, models.SessionCancelled},
}

func canTransition(from, to models.SessionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Manager orchestrates session state. Stateless; all durable state lives
// in the store.
type Manager struct {
	store    db.Store
	notifier *notifications.Dispatcher
	links    MeetingLinkProvider
}

// NewManager wires the lifecycle manager.
func NewManager(store db.Store, notifier *notifications.Dispatcher, links MeetingLinkProvider) *Manager {
	return &Manager{store: store, notifier: notifier, links: links}
}

// Book creates a pending session between the caller and an expert. The
// expert must exist and must not be the caller. No meeting link is
// assigned until the expert confirms.
func (m *Manager) Book(ctx context.Context, client uuid.UUID, req *BookRequest) (*models.Session, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidBooking.MsgErr("invalid booking payload", err)
	}

	expertID, err := uuid.Parse(req.ExpertID)
	if err != nil {
		return nil, ErrInvalidBooking.Msg("invalid expert id")
	}
	if expertID == client {
		return nil, ErrInvalidBooking.Msg("cannot book a session with yourself")
	}

	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, ErrInvalidBooking.Msg("scheduled_at must be RFC 3339")
	}

	if _, aerr := m.store.GetUser(ctx, expertID); aerr != nil {
		if aerr.StatusCode() == http.StatusNotFound {
			return nil, ErrExpertNotFound
		}
		return nil, aerr
	}

	session := &models.Session{
		SessionID:   uuid.New(),
		ExpertID:    expertID,
		ClientID:    client,
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Price:       req.Price,
		ScheduledAt: scheduledAt,
		Status:      models.SessionPending,
	}
	if aerr := m.store.CreateSession(ctx, session); aerr != nil {
		return nil, aerr
	}

	clientID := client
	m.notifier.Notify(ctx, &models.Notification{
		UserID:   expertID,
		SenderID: &clientID,
		Type:     models.NotificationSessionRequest,
		Title:    "New session request",
		Body:     req.Title,
		Data:     []byte(`{"session_id":"` + session.SessionID.String() + `"}`),
	})

	return session, nil
}

// Get returns the session to one of its participants.
func (m *Manager) Get(ctx context.Context, caller, sessionID uuid.UUID) (*models.Session, apperrors.Error) {
	return m.participantSession(ctx, caller, sessionID)
}

// ChangeStatus moves the session along the lifecycle. Only participants
// may transition; only the expert may confirm; terminal states are frozen.
// The first transition into confirmed stamps the meeting link and sends it
// to the counterpart.
func (m *Manager) ChangeStatus(ctx context.Context, caller, sessionID uuid.UUID, req *StatusRequest) (*models.Session, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidStatus.MsgErr("invalid status payload", err)
	}
	newStatus := models.SessionStatus(req.Status)

	session, aerr := m.participantSession(ctx, caller, sessionID)
	if aerr != nil {
		return nil, aerr
	}

	if newStatus == models.SessionConfirmed && caller != session.ExpertID {
		return nil, ErrExpertOnly
	}
	if session.Status.IsTerminal() {
		return nil, ErrInvalidTransition.Msg("session is " + string(session.Status))
	}
	if !canTransition(session.Status, newStatus) {
		return nil, ErrInvalidTransition.Msg(string(session.Status) + " cannot become " + string(newStatus))
	}

	meetingLink := session.MeetingLink
	if newStatus == models.SessionConfirmed && meetingLink == "" {
		meetingLink = m.links.MeetingLink(session.SessionID)
	}

	if aerr := m.store.UpdateSessionStatus(ctx, sessionID, session.Status, newStatus, meetingLink); aerr != nil {
		if aerr.StatusCode() == http.StatusConflict {
			return nil, ErrInvalidTransition.Msg("session status changed concurrently")
		}
		return nil, aerr
	}
	session.Status = newStatus
	session.MeetingLink = meetingLink

	callerID := caller
	n := &models.Notification{
		UserID:   session.Counterpart(caller),
		SenderID: &callerID,
		Type:     models.NotificationSessionUpdate,
		Title:    "Session " + string(newStatus),
		Body:     session.Title,
		Data:     []byte(`{"session_id":"` + session.SessionID.String() + `","status":"` + string(newStatus) + `"}`),
	}
	if newStatus == models.SessionConfirmed {
		n.Data = []byte(`{"session_id":"` + session.SessionID.String() + `","status":"confirmed","meeting_link":"` + meetingLink + `"}`)
	}
	m.notifier.Notify(ctx, n)

	return session, nil
}

// Annotate overwrites the session notes. Participant-only.
func (m *Manager) Annotate(ctx context.Context, caller, sessionID uuid.UUID, req *NotesRequest) (*models.Session, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidBooking.MsgErr("invalid notes payload", err)
	}

	session, aerr := m.participantSession(ctx, caller, sessionID)
	if aerr != nil {
		return nil, aerr
	}

	if aerr := m.store.UpdateSessionNotes(ctx, sessionID, req.Notes); aerr != nil {
		return nil, aerr
	}
	session.Notes = req.Notes
	return session, nil
}

func (m *Manager) participantSession(ctx context.Context, caller, sessionID uuid.UUID) (*models.Session, apperrors.Error) {
	session, aerr := m.store.GetSession(ctx, sessionID)
	if aerr != nil {
		if aerr.StatusCode() == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, aerr
	}
	if !session.IsParticipant(caller) {
		return nil, ErrNotParticipant
	}
	return session, nil
}
