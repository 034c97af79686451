// Package connections owns the connection graph: directed requests and the
// undirected connections created when a request is accepted.
package connections

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
)

var validate = validator.New()

// Base error
var (
	ErrConnections apperrors.Error = apperrors.New("connection processing failed").SetStatusCode(http.StatusInternalServerError)

	ErrRequestNotFound apperrors.Error = ErrConnections.New("connection request not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidRequest  apperrors.Error = ErrConnections.New("invalid connection request").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
	ErrNotReceiver     apperrors.Error = ErrConnections.New("only the receiver may respond to a request").SetStatusCode(http.StatusForbidden)

	ErrAlreadyConnected apperrors.Error = ErrConnections.New("users are already connected").SetStatusCode(http.StatusConflict)
	ErrDuplicateRequest apperrors.Error = ErrConnections.New("a pending request already exists").SetStatusCode(http.StatusConflict)
	ErrNotPending       apperrors.Error = ErrConnections.New("request is no longer pending").SetStatusCode(http.StatusConflict)
)

// RequestPayload creates a connection request.
type RequestPayload struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
	Message    string `json:"message" validate:"max=500"`
}

// RespondPayload accepts or declines a request.
type RespondPayload struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

// Manager orchestrates connection requests over the store.
type Manager struct {
	store    db.Store
	notifier *notifications.Dispatcher
}

// NewManager wires the manager.
func NewManager(store db.Store, notifier *notifications.Dispatcher) *Manager {
	return &Manager{store: store, notifier: notifier}
}

// Request sends a connection request. Blocked when the pair is already
// connected or an identical pending request exists; the reverse pending
// request is also rejected to avoid crossing invitations.
func (m *Manager) Request(ctx context.Context, sender uuid.UUID, req *RequestPayload) (*models.ConnectionRequest, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.MsgErr("invalid request payload", err)
	}
	receiver, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		return nil, ErrInvalidRequest.Msg("invalid receiver id")
	}
	if receiver == sender {
		return nil, ErrInvalidRequest.Msg("cannot connect with yourself")
	}

	if _, aerr := m.store.GetConnectionBetween(ctx, sender, receiver); aerr == nil {
		return nil, ErrAlreadyConnected
	} else if aerr.StatusCode() != http.StatusNotFound {
		return nil, aerr
	}

	if _, aerr := m.store.GetPendingRequest(ctx, receiver, sender); aerr == nil {
		return nil, ErrDuplicateRequest.Msg("the other user already sent you a request")
	} else if aerr.StatusCode() != http.StatusNotFound {
		return nil, aerr
	}

	request := &models.ConnectionRequest{
		RequestID:  uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Message:    req.Message,
		Status:     models.RequestPending,
	}
	if aerr := m.store.CreateConnectionRequest(ctx, request); aerr != nil {
		if aerr.StatusCode() == http.StatusConflict {
			return nil, ErrDuplicateRequest
		}
		return nil, aerr
	}

	senderID := sender
	m.notifier.Notify(ctx, &models.Notification{
		UserID:   receiver,
		SenderID: &senderID,
		Type:     models.NotificationConnectionInvite,
		Title:    "New connection request",
		Body:     req.Message,
		Data:     []byte(`{"request_id":"` + request.RequestID.String() + `"}`),
	})

	return request, nil
}

// Respond accepts or declines a pending request. Receiver-only. Accepting
// creates the connection; the store does both writes atomically where it
// can.
func (m *Manager) Respond(ctx context.Context, caller, requestID uuid.UUID, req *RespondPayload) (*models.Connection, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidRequest.MsgErr("invalid respond payload", err)
	}

	request, aerr := m.store.GetConnectionRequest(ctx, requestID)
	if aerr != nil {
		if aerr.StatusCode() == http.StatusNotFound {
			return nil, ErrRequestNotFound
		}
		return nil, aerr
	}
	if request.ReceiverID != caller {
		return nil, ErrNotReceiver
	}
	if request.Status != models.RequestPending {
		return nil, ErrNotPending
	}

	receiverID := caller
	if req.Action == "decline" {
		if aerr := m.store.DeclineConnectionRequest(ctx, requestID); aerr != nil {
			if aerr.StatusCode() == http.StatusConflict {
				return nil, ErrNotPending
			}
			return nil, aerr
		}
		m.notifier.Notify(ctx, &models.Notification{
			UserID:   request.SenderID,
			SenderID: &receiverID,
			Type:     models.NotificationConnectionUpdate,
			Title:    "Connection request declined",
			Data:     []byte(`{"request_id":"` + requestID.String() + `","status":"declined"}`),
		})
		return nil, nil
	}

	conn, aerr := m.store.AcceptConnectionRequest(ctx, requestID)
	if aerr != nil {
		if aerr.StatusCode() == http.StatusConflict {
			return nil, ErrNotPending.Err(aerr)
		}
		return nil, aerr
	}

	m.notifier.Notify(ctx, &models.Notification{
		UserID:   request.SenderID,
		SenderID: &receiverID,
		Type:     models.NotificationConnectionUpdate,
		Title:    "Connection request accepted",
		Data:     []byte(`{"request_id":"` + requestID.String() + `","status":"accepted"}`),
	})

	return conn, nil
}

// List returns the caller's connections.
func (m *Manager) List(ctx context.Context, caller uuid.UUID) ([]*models.Connection, apperrors.Error) {
	return m.store.ListConnections(ctx, caller)
}
