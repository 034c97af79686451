package notifications

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

type handler struct {
	dispatcher *Dispatcher
}

// Router mounts the notification REST surface. All routes require an
// authenticated caller; every operation is scoped to the caller's own
// notifications.
func Router(r chi.Router, d *Dispatcher) {
	h := &handler{dispatcher: d}
	r.Method(http.MethodGet, "/notifications", httpx.WrapHttpRsp(h.list))
	r.Method(http.MethodPatch, "/notifications/{notificationID}/read", httpx.WrapHttpRsp(h.markRead))
	r.Method(http.MethodDelete, "/notifications/{notificationID}", httpx.WrapHttpRsp(h.delete))
}

func (h *handler) list(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	userID := yaricommon.GetUserID(ctx)

	list, err := h.dispatcher.store.ListNotifications(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   list,
	}, nil
}

func (h *handler) markRead(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	userID := yaricommon.GetUserID(ctx)

	notificationID, perr := uuid.Parse(chi.URLParam(r, "notificationID"))
	if perr != nil {
		return nil, httpx.ErrInvalidRequest("invalid notification id")
	}

	if err := h.dispatcher.store.MarkNotificationRead(ctx, notificationID, userID); err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]bool{"read": true},
	}, nil
}

func (h *handler) delete(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	userID := yaricommon.GetUserID(ctx)

	notificationID, perr := uuid.Parse(chi.URLParam(r, "notificationID"))
	if perr != nil {
		return nil, httpx.ErrInvalidRequest("invalid notification id")
	}

	if err := h.dispatcher.store.DeleteNotification(ctx, notificationID, userID); err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusNoContent,
	}, nil
}
