package chat

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

type handler struct {
	service *Service
}

// Router mounts the authenticated chat surface.
func Router(r chi.Router, s *Service) {
	h := &handler{service: s}
	r.Method(http.MethodGet, "/chat/messages/{peerID}", httpx.WrapHttpRsp(h.listConversation))
	r.Method(http.MethodPatch, "/chat/messages/{messageID}/read", httpx.WrapHttpRsp(h.markRead))
}

func (h *handler) listConversation(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	peerID, err := uuid.Parse(chi.URLParam(r, "peerID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid peer id")
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil {
			return nil, httpx.ErrInvalidRequest("invalid limit")
		}
	}

	messages, aerr := h.service.ListConversation(ctx, caller, peerID, limit)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: messages}, nil
}

func (h *handler) markRead(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	messageID, err := uuid.Parse(chi.URLParam(r, "messageID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid message id")
	}

	if aerr := h.service.MarkRead(ctx, caller, messageID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: map[string]bool{"read": true}}, nil
}
