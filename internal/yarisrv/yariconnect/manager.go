// Package yariconnect manages random-match video sessions: an active
// record created when two users are paired, ended exactly once with a
// derived whole-second duration. Matching itself is client-driven over the
// relay queue; this package only owns the session records.
package yariconnect

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

var validate = validator.New()

// Base error
var (
	ErrYariConnect apperrors.Error = apperrors.New("yari connect processing failed").SetStatusCode(http.StatusInternalServerError)

	ErrSessionNotFound apperrors.Error = ErrYariConnect.New("yari connect session not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidStart    apperrors.Error = ErrYariConnect.New("invalid session start").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrNotParticipant  apperrors.Error = ErrYariConnect.New("caller is not part of this session").SetStatusCode(http.StatusForbidden)
)

// StartRequest pairs the caller with a partner.
type StartRequest struct {
	PartnerID string `json:"partner_id" validate:"required,uuid"`
}

// Manager owns yari connect session records.
type Manager struct {
	store db.Store
	now   func() time.Time
}

// NewManager wires the manager over a store.
func NewManager(store db.Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// Start creates an active session between the caller and a partner.
func (m *Manager) Start(ctx context.Context, caller uuid.UUID, req *StartRequest) (*models.YariConnectSession, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidStart.MsgErr("invalid start payload", err)
	}
	partner, err := uuid.Parse(req.PartnerID)
	if err != nil {
		return nil, ErrInvalidStart.Msg("invalid partner id")
	}
	if partner == caller {
		return nil, ErrInvalidStart.Msg("cannot start a session with yourself")
	}

	session := &models.YariConnectSession{
		ID:        uuid.New(),
		User1:     caller,
		User2:     partner,
		StartedAt: m.now().UTC(),
		Status:    models.YariConnectActive,
	}
	if aerr := m.store.CreateYariSession(ctx, session); aerr != nil {
		return nil, aerr
	}
	return session, nil
}

// End closes the session once: it stamps the end time and derives the
// duration in whole seconds. Ending an already-ended session returns the
// stored record unchanged.
func (m *Manager) End(ctx context.Context, caller, id uuid.UUID) (*models.YariConnectSession, apperrors.Error) {
	session, aerr := m.store.GetYariSession(ctx, id)
	if aerr != nil {
		if aerr.StatusCode() == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, aerr
	}
	if !session.IsParticipant(caller) {
		return nil, ErrNotParticipant
	}
	if session.Status == models.YariConnectEnded {
		return session, nil
	}

	endedAt := m.now().UTC()
	duration := int(endedAt.Sub(session.StartedAt).Seconds())
	if duration < 0 {
		duration = 0
	}

	if aerr := m.store.EndYariSession(ctx, id, endedAt, duration); aerr != nil {
		// A concurrent end won the guard; the stored record is authoritative.
		if aerr.StatusCode() == http.StatusConflict {
			return m.store.GetYariSession(ctx, id)
		}
		return nil, aerr
	}

	session.EndedAt = &endedAt
	session.DurationSeconds = duration
	session.Status = models.YariConnectEnded
	return session, nil
}
