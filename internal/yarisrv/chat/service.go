// Package chat persists direct messages and pushes them to recipients over
// the relay bus. The write is durable before anything is relayed; a failed
// write relays nothing.
package chat

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/pkg/api"
)

var (
	validate = validator.New()
	json     = jsoniter.ConfigCompatibleWithStandardLibrary
)

// Base chat error
var (
	ErrChat apperrors.Error = apperrors.New("chat processing failed").SetStatusCode(http.StatusInternalServerError)

	ErrMessageNotFound apperrors.Error = ErrChat.New("message not found").SetStatusCode(http.StatusNotFound)
	ErrInvalidMessage  apperrors.Error = ErrChat.New("invalid message").SetExpandError(true).SetStatusCode(http.StatusBadRequest)
)

// SendRequest is the send payload, shared by the relay event handler and
// any REST caller.
type SendRequest struct {
	RecipientID string `json:"recipient_id" validate:"required,uuid"`
	SessionID   string `json:"session_id" validate:"omitempty,uuid"`
	Body        string `json:"body" validate:"required,max=1000"`
}

// Service persists messages and relays them after the write commits.
type Service struct {
	store          db.Store
	bus            *bus.Bus
	publishTimeout time.Duration
}

// NewService wires the chat service.
func NewService(store db.Store, b *bus.Bus, publishTimeout time.Duration) *Service {
	if publishTimeout <= 0 {
		publishTimeout = 100 * time.Millisecond
	}
	return &Service{store: store, bus: b, publishTimeout: publishTimeout}
}

// SendMessage validates, persists, then relays the message to the
// recipient's topic. The relay step is best-effort; persistence is not.
func (s *Service) SendMessage(ctx context.Context, sender uuid.UUID, req *SendRequest) (*models.ChatMessage, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidMessage.MsgErr("invalid message payload", err)
	}
	recipient, err := uuid.Parse(req.RecipientID)
	if err != nil {
		return nil, ErrInvalidMessage.Msg("invalid recipient id")
	}
	if recipient == sender {
		return nil, ErrInvalidMessage.Msg("cannot message yourself")
	}

	msg := &models.ChatMessage{
		MessageID: uuid.New(),
		SenderID:  sender,
		Recipient: recipient,
		Body:      req.Body,
		CreatedAt: time.Now().UTC(),
	}
	if req.SessionID != "" {
		sid, err := uuid.Parse(req.SessionID)
		if err != nil {
			return nil, ErrInvalidMessage.Msg("invalid session id")
		}
		msg.SessionID = &sid
	}

	if aerr := s.store.CreateChatMessage(ctx, msg); aerr != nil {
		return nil, aerr
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to encode chat message for relay")
		return msg, nil
	}
	frame, err := json.Marshal(api.Frame{Event: api.EventChatNewMessage, Data: payload})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to encode chat frame")
		return msg, nil
	}
	s.bus.Publish(bus.Message{
		Topic:   bus.UserTopic(recipient.String()),
		Event:   api.EventChatNewMessage,
		Payload: frame,
	}, s.publishTimeout)

	return msg, nil
}

// ListConversation returns up to limit messages between the caller and a
// peer, oldest first.
func (s *Service) ListConversation(ctx context.Context, caller, peer uuid.UUID, limit int) ([]*models.ChatMessage, apperrors.Error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.ListConversation(ctx, caller, peer, limit)
}

// MarkRead flips the read flag. Only the recipient may mark a message;
// anyone else learns nothing beyond "not found".
func (s *Service) MarkRead(ctx context.Context, caller, messageID uuid.UUID) apperrors.Error {
	if aerr := s.store.MarkMessageRead(ctx, messageID, caller); aerr != nil {
		switch aerr.StatusCode() {
		case http.StatusNotFound, http.StatusConflict:
			return ErrMessageNotFound
		}
		return aerr
	}
	return nil
}
