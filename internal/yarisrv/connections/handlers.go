package connections

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

// Router mounts the authenticated connections surface.
func Router(r chi.Router, m *Manager) {
	h := &handler{manager: m}
	r.Method(http.MethodPost, "/connections/requests", httpx.WrapHttpRsp(h.request))
	r.Method(http.MethodPatch, "/connections/requests/{requestID}", httpx.WrapHttpRsp(h.respond))
	r.Method(http.MethodGet, "/connections", httpx.WrapHttpRsp(h.list))
}

func (h *handler) request(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	var req RequestPayload
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	request, aerr := h.manager.Request(ctx, caller, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusCreated, Response: request}, nil
}

func (h *handler) respond(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid request id")
	}

	var req RespondPayload
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	conn, aerr := h.manager.Respond(ctx, caller, requestID, &req)
	if aerr != nil {
		return nil, aerr
	}
	if conn == nil {
		return &httpx.Response{
			StatusCode: http.StatusOK,
			Response:   map[string]string{"status": "declined"},
		}, nil
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: conn}, nil
}

func (h *handler) list(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	list, aerr := h.manager.List(ctx, caller)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: list}, nil
}
