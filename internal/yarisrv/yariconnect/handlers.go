package yariconnect

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

type handler struct {
	manager *Manager
}

// Router mounts the authenticated yari connect surface.
func Router(r chi.Router, m *Manager) {
	h := &handler{manager: m}
	r.Method(http.MethodPost, "/yari-connect/sessions/start", httpx.WrapHttpRsp(h.start))
	r.Method(http.MethodPatch, "/yari-connect/sessions/{sessionID}/end", httpx.WrapHttpRsp(h.end))
}

func (h *handler) start(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	var req StartRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	session, aerr := h.manager.Start(ctx, caller, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: session}, nil
}

func (h *handler) end(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid session id")
	}

	session, aerr := h.manager.End(ctx, caller, sessionID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: session}, nil
}
