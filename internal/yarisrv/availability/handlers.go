package availability

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

type handler struct {
	manager *Manager
}

// PublicRouter mounts the unauthenticated availability reads: settings
// and slot listings are visible to anyone browsing an expert's calendar.
func PublicRouter(r chi.Router, m *Manager) {
	h := &handler{manager: m}
	r.Method(http.MethodGet, "/availability/settings/{userID}", httpx.WrapHttpRsp(h.getSettings))
	r.Method(http.MethodGet, "/availability/slots/{expertID}", httpx.WrapHttpRsp(h.listSlots))
}

// Router mounts the authenticated availability surface.
func Router(r chi.Router, m *Manager) {
	h := &handler{manager: m}
	r.Method(http.MethodPut, "/availability/settings", httpx.WrapHttpRsp(h.upsertSettings))
	r.Method(http.MethodPost, "/availability/slots", httpx.WrapHttpRsp(h.createSlot))
	r.Method(http.MethodPut, "/availability/slots/{slotID}", httpx.WrapHttpRsp(h.updateSlot))
	r.Method(http.MethodDelete, "/availability/slots/{slotID}", httpx.WrapHttpRsp(h.deleteSlot))
	r.Method(http.MethodPost, "/availability/slots/{slotID}/book", httpx.WrapHttpRsp(h.bookSlot))
}

func (h *handler) getSettings(r *http.Request) (*httpx.Response, error) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid user id")
	}

	settings, aerr := h.manager.GetSettings(r.Context(), userID)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: settings}, nil
}

func (h *handler) upsertSettings(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	var req SettingsRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	settings, aerr := h.manager.UpsertSettings(ctx, caller, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: settings}, nil
}

func (h *handler) listSlots(r *http.Request) (*httpx.Response, error) {
	expertID, err := uuid.Parse(chi.URLParam(r, "expertID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid expert id")
	}

	start, end, aerr := dateRange(r)
	if aerr != nil {
		return nil, aerr
	}

	slots, aerr2 := h.manager.ListSlots(r.Context(), expertID, start, end)
	if aerr2 != nil {
		return nil, aerr2
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: slots}, nil
}

func (h *handler) createSlot(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	var req SlotRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	slot, aerr := h.manager.CreateSlot(ctx, caller, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/availability/slots/" + slot.SlotID.String(),
		Response:   NewSlotView(slot),
	}, nil
}

func (h *handler) updateSlot(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid slot id")
	}

	var req SlotRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	slot, aerr := h.manager.UpdateSlot(ctx, caller, slotID, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusOK, Response: NewSlotView(slot)}, nil
}

func (h *handler) deleteSlot(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid slot id")
	}

	if aerr := h.manager.DeleteSlot(ctx, caller, slotID); aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

func (h *handler) bookSlot(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	caller := yaricommon.GetUserID(ctx)

	slotID, err := uuid.Parse(chi.URLParam(r, "slotID"))
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid slot id")
	}

	var req BookSlotRequest
	if err := httpx.GetRequestData(r, &req); err != nil {
		return nil, err
	}

	session, aerr := h.manager.BookSlot(ctx, caller, slotID, &req)
	if aerr != nil {
		return nil, aerr
	}
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   "/sessions/" + session.SessionID.String(),
		Response:   session,
	}, nil
}

// dateRange parses the optional start_date / end_date query parameters,
// defaulting to the next thirty days.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start, end := now, now.AddDate(0, 0, 30)

	if v := r.URL.Query().Get("start_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, httpx.ErrInvalidRequest("invalid start_date")
		}
		start = parsed
	}
	if v := r.URL.Query().Get("end_date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			return time.Time{}, time.Time{}, httpx.ErrInvalidRequest("invalid end_date")
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, httpx.ErrInvalidRequest("end_date precedes start_date")
	}
	return start, end, nil
}
