package session

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

// Router mounts the authenticated session surface.
func Router(r chi.Router, m *Manager) {
	h := &handler{manager: m}
	r.Method(http.MethodPost, "/sessions/book", httpx.WrapHttpRsp(h.book))
	r.Method(http.MethodGet, "/sessions/{sessionID}", httpx.WrapHttpRsp(h.get))
	r.Method(http.MethodPatch, "/sessions/{sessionID}/status", httpx.WrapHttpRsp(h.changeStatus))
	r.Method(http.MethodPatch, "/sessions/{sessionID}/notes", httpx.WrapHttpRsp(h.annotate))
}

func (h *handler) book(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	var req BookRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	session, aerr := h.manager.Book(ctx, caller, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/sessions/" + session.SessionID.String(),
		Response:   session,
	}, nil
}

func (h *handler) get(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid session id")
	}

	session, aerr := h.manager.Get(ctx, caller, sessionID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: session}, nil
}

func (h *handler) changeStatus(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid session id")
	}

	var req StatusRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	session, aerr := h.manager.ChangeStatus(ctx, caller, sessionID, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: session}, nil
}

func (h *handler) annotate(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid session id")
	}

	var req NotesRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	session, aerr := h.manager.Annotate(ctx, caller, sessionID, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: session}, nil
}
