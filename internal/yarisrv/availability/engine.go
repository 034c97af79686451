// Package availability owns expert availability: per-user booking
// settings, the slot calendar with its overlap invariant, and the atomic
// slot-claim path that turns a free slot into a pending session.
package availability

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
)

var validate = validator.New()

// Slot length bounds in minutes. Sessions inherit their duration from the
// claimed slot, so the bounds hold for both.
const (
	minSlotMinutes = 15
	maxSlotMinutes = 180
)

// SettingsRequest is the upsert payload for per-user booking settings.
type SettingsRequest struct {
	FreeSessionDuration int     `json:"free_session_duration" validate:"required,min=15,max=60"`
	PaidSessionDuration int     `json:"paid_session_duration" validate:"required,min=30,max=180"`
	PaidSessionPrice    float64 `json:"paid_session_price" validate:"min=0"`
	Timezone            string  `json:"timezone" validate:"required"`
	BufferMinutes       int     `json:"buffer_minutes" validate:"min=0,max=60"`
	AdvanceBookingDays  int     `json:"advance_booking_days" validate:"required,min=1,max=90"`
}

// RecurrenceRequest is the optional repetition descriptor on a slot.
type RecurrenceRequest struct {
	Pattern string `json:"pattern" validate:"required,oneof=daily weekly monthly"`
	Until   string `json:"until" validate:"required,datetime=2006-01-02"`
}

// SlotRequest is the create/update payload for a slot. Times are HH:MM
// client-side; the engine converts to minutes since midnight.
type SlotRequest struct {
	Date       string             `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string             `json:"start_time" validate:"required"`
	EndTime    string             `json:"end_time" validate:"required"`
	SlotType   string             `json:"slot_type" validate:"required,oneof=free paid blocked"`
	Price      float64            `json:"price" validate:"min=0"`
	Recurrence *RecurrenceRequest `json:"recurrence,omitempty"`
	Note       string             `json:"note" validate:"max=500"`
}

// BookSlotRequest is the payload for claiming a slot.
type BookSlotRequest struct {
	Title       string `json:"title" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
}

// SlotView is the wire shape of a slot, with clock-rendered times.
type SlotView struct {
	*models.AvailabilitySlot
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// NewSlotView renders a slot for the API.
func NewSlotView(s *models.AvailabilitySlot) SlotView {
	return SlotView{
		AvailabilitySlot: s,
		StartTime:        s.StartTime(),
		EndTime:          s.EndTime(),
	}
}

// Manager is the availability engine. It is stateless; all durable state
// lives in the store.
type Manager struct {
	store    db.Store
	notifier *notifications.Dispatcher
}

// NewManager wires the engine over a store and notification dispatcher.
func NewManager(store db.Store, notifier *notifications.Dispatcher) *Manager {
	return &Manager{store: store, notifier: notifier}
}

// GetSettings returns stored settings or defaults. Reading never writes;
// an absent row maps to the documented defaults regardless of backend.
func (m *Manager) GetSettings(ctx context.Context, userID uuid.UUID) (*models.AvailabilitySettings, apperrors.Error) {
	settings, aerr := m.store.GetSettings(ctx, userID)
	if aerr != nil {
		if aerr.StatusCode() == http.StatusNotFound {
			return models.DefaultAvailabilitySettings(userID), nil
		}
		return nil, aerr
	}
	return settings, nil
}

// UpsertSettings validates and writes the caller's settings.
func (m *Manager) UpsertSettings(ctx context.Context, caller uuid.UUID, req *SettingsRequest) (*models.AvailabilitySettings, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidSettings.MsgErr("settings out of range", err)
	}

	settings := &models.AvailabilitySettings{
		UserID:              caller,
		FreeSessionDuration: req.FreeSessionDuration,
		PaidSessionDuration: req.PaidSessionDuration,
		PaidSessionPrice:    req.PaidSessionPrice,
		Timezone:            req.Timezone,
		BufferMinutes:       req.BufferMinutes,
		AdvanceBookingDays:  req.AdvanceBookingDays,
	}
	if err := m.store.UpsertSettings(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// ListSlots returns the expert's slots within the inclusive date range.
func (m *Manager) ListSlots(ctx context.Context, expertID uuid.UUID, start, end time.Time) ([]SlotView, apperrors.Error) {
	slots, err := m.store.ListSlotsInRange(ctx, expertID, start, end)
	if err != nil {
		return nil, err
	}
	views := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, NewSlotView(s))
	}
	return views, nil
}

// CreateSlot validates the request, runs the same-day overlap scan, and
// persists the slot. Free slots always carry price zero.
func (m *Manager) CreateSlot(ctx context.Context, caller uuid.UUID, req *SlotRequest) (*models.AvailabilitySlot, apperrors.Error) {
	slot, err := m.slotFromRequest(caller, req)
	if err != nil {
		return nil, err
	}

	if err := m.checkOverlap(ctx, slot, uuid.Nil); err != nil {
		return nil, err
	}

	slot.SlotID = uuid.New()
	if err := m.store.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}
	return slot, nil
}

// UpdateSlot replaces an unbooked slot the caller owns. The overlap
// invariant is re-checked against every other slot on the target date.
func (m *Manager) UpdateSlot(ctx context.Context, caller, slotID uuid.UUID, req *SlotRequest) (*models.AvailabilitySlot, apperrors.Error) {
	existing, err := m.ownedSlot(ctx, caller, slotID)
	if err != nil {
		return nil, err
	}
	if existing.IsBooked {
		return nil, ErrSlotBooked.Msg("booked slots cannot be modified")
	}

	slot, err := m.slotFromRequest(caller, req)
	if err != nil {
		return nil, err
	}
	slot.SlotID = slotID

	if err := m.checkOverlap(ctx, slot, slotID); err != nil {
		return nil, err
	}

	if err := m.store.UpdateSlot(ctx, slot); err != nil {
		if err.StatusCode() == http.StatusConflict {
			return nil, ErrSlotBooked.Msg("booked slots cannot be modified")
		}
		return nil, err
	}
	return slot, nil
}

// DeleteSlot removes an unbooked slot the caller owns.
func (m *Manager) DeleteSlot(ctx context.Context, caller, slotID uuid.UUID) apperrors.Error {
	existing, err := m.ownedSlot(ctx, caller, slotID)
	if err != nil {
		return err
	}
	if existing.IsBooked {
		return ErrSlotBooked.Msg("booked slots cannot be deleted")
	}

	if err := m.store.DeleteSlot(ctx, slotID); err != nil {
		if err.StatusCode() == http.StatusConflict {
			return ErrSlotBooked.Msg("booked slots cannot be deleted")
		}
		return err
	}
	return nil
}

// BookSlot claims a free slot for the caller: a conditional flip of
// is_booked paired with creation of the pending session. Exactly one of
// two concurrent callers wins; the loser sees a conflict. The claim is
// released if session creation fails.
func (m *Manager) BookSlot(ctx context.Context, caller, slotID uuid.UUID, req *BookSlotRequest) (*models.Session, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidBooking.MsgErr("invalid booking payload", err)
	}

	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		if err.StatusCode() == http.StatusNotFound {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	if slot.SlotType == models.SlotTypeBlocked {
		return nil, ErrInvalidBooking.Msg("blocked slots cannot be booked")
	}
	if slot.ExpertID == caller {
		return nil, ErrInvalidBooking.Msg("cannot book your own slot")
	}
	if slot.IsBooked {
		return nil, ErrSlotBooked
	}

	sessionID := uuid.New()
	if err := m.store.ClaimSlot(ctx, slotID, sessionID, caller); err != nil {
		if err.StatusCode() == http.StatusConflict {
			return nil, ErrSlotBooked
		}
		return nil, err
	}

	sid := slotID
	session := &models.Session{
		SessionID:   sessionID,
		ExpertID:    slot.ExpertID,
		ClientID:    caller,
		Title:       req.Title,
		Description: req.Description,
		Duration:    slot.EndMinutes - slot.StartMinutes,
		Price:       slot.Price,
		ScheduledAt: slot.Date.Add(time.Duration(slot.StartMinutes) * time.Minute),
		Status:      models.SessionPending,
		SlotID:      &sid,
	}
	if err := m.store.CreateSession(ctx, session); err != nil {
		if relErr := m.store.ReleaseSlot(ctx, slotID); relErr != nil {
			log.Ctx(ctx).Error().Err(relErr).Str("slot_id", slotID.String()).Msg("failed to release claimed slot after session creation failure")
		}
		return nil, err
	}

	clientID := caller
	m.notifier.Notify(ctx, &models.Notification{
		UserID:   slot.ExpertID,
		SenderID: &clientID,
		Type:     models.NotificationSessionRequest,
		Title:    "New session request",
		Body:     req.Title,
		Data:     []byte(`{"session_id":"` + sessionID.String() + `"}`),
	})

	return session, nil
}

// ownedSlot loads the slot and verifies ownership.
func (m *Manager) ownedSlot(ctx context.Context, caller, slotID uuid.UUID) (*models.AvailabilitySlot, apperrors.Error) {
	slot, err := m.store.GetSlot(ctx, slotID)
	if err != nil {
		if err.StatusCode() == http.StatusNotFound {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	if slot.ExpertID != caller {
		return nil, ErrNotSlotOwner
	}
	return slot, nil
}

// slotFromRequest validates the payload and converts it to a model.
func (m *Manager) slotFromRequest(caller uuid.UUID, req *SlotRequest) (*models.AvailabilitySlot, apperrors.Error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidSlot.MsgErr("invalid slot payload", err)
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, ErrInvalidSlot.Msg("invalid date")
	}
	start, err := models.ParseClock(req.StartTime)
	if err != nil {
		return nil, ErrInvalidSlot.Msg(err.Error())
	}
	end, err := models.ParseClock(req.EndTime)
	if err != nil {
		return nil, ErrInvalidSlot.Msg(err.Error())
	}
	if end <= start {
		return nil, ErrInvalidSlot.Msg("end_time must be after start_time")
	}
	if d := end - start; d < minSlotMinutes || d > maxSlotMinutes {
		return nil, ErrInvalidSlot.Msg("slot duration must be between 15 and 180 minutes")
	}

	slotType := models.SlotType(req.SlotType)
	price := req.Price
	if slotType == models.SlotTypeFree {
		price = 0
	}

	slot := &models.AvailabilitySlot{
		ExpertID:     caller,
		Date:         date,
		StartMinutes: start,
		EndMinutes:   end,
		SlotType:     slotType,
		Price:        price,
		Duration:     end - start,
		Note:         req.Note,
	}
	if req.Recurrence != nil {
		until, err := time.Parse("2006-01-02", req.Recurrence.Until)
		if err != nil {
			return nil, ErrInvalidSlot.Msg("invalid recurrence until date")
		}
		slot.Recurrence = &models.Recurrence{
			Pattern: models.RecurrencePattern(req.Recurrence.Pattern),
			Until:   until,
		}
	}
	return slot, nil
}

// checkOverlap scans the caller's other slots on the same date. Two slots
// [a,b) and [c,d) overlap iff a < d && c < b; touching boundaries are
// allowed.
func (m *Manager) checkOverlap(ctx context.Context, slot *models.AvailabilitySlot, excludeID uuid.UUID) apperrors.Error {
	existing, err := m.store.ListSlotsByDate(ctx, slot.ExpertID, slot.Date)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.SlotID == excludeID {
			continue
		}
		if Overlaps(slot.StartMinutes, slot.EndMinutes, other.StartMinutes, other.EndMinutes) {
			return ErrSlotOverlap.Msg(other.StartTime() + "-" + other.EndTime() + " conflicts")
		}
	}
	return nil
}

// Overlaps reports whether half-open intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
