package availability

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/db/memory"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
)

func newTestManager() (*Manager, *memory.Store) {
	store := memory.New()
	dispatcher := notifications.NewDispatcher(store, bus.New(), 50*time.Millisecond)
	return NewManager(store, dispatcher), store
}

func slotReq(date, start, end, slotType string, price float64) *SlotRequest {
	return &SlotRequest{
		Date:      date,
		StartTime: start,
		EndTime:   end,
		SlotType:  slotType,
		Price:     price,
	}
}

func TestGetSettingsDefaultsWithoutWrite(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()
	userID := uuid.New()

	settings, err := m.GetSettings(ctx, userID)
	require.Nil(t, err)
	assert.Equal(t, 30, settings.FreeSessionDuration)
	assert.Equal(t, 60, settings.PaidSessionDuration)
	assert.Equal(t, float64(50), settings.PaidSessionPrice)
	assert.Equal(t, "UTC", settings.Timezone)

	// Reading defaults must not create a row; a later write still sees
	// the store empty for this user.
	store.FailWrites(true)
	again, err := m.GetSettings(ctx, userID)
	require.Nil(t, err)
	assert.Equal(t, settings.FreeSessionDuration, again.FreeSessionDuration)
}

func TestUpsertSettingsValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	caller := uuid.New()

	bad := &SettingsRequest{
		FreeSessionDuration: 10, // below 15
		PaidSessionDuration: 60,
		Timezone:            "UTC",
		AdvanceBookingDays:  30,
	}
	_, err := m.UpsertSettings(ctx, caller, bad)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	good := &SettingsRequest{
		FreeSessionDuration: 30,
		PaidSessionDuration: 90,
		PaidSessionPrice:    80,
		Timezone:            "Europe/Berlin",
		BufferMinutes:       10,
		AdvanceBookingDays:  14,
	}
	settings, err := m.UpsertSettings(ctx, caller, good)
	require.Nil(t, err)
	assert.Equal(t, 90, settings.PaidSessionDuration)

	stored, err := m.GetSettings(ctx, caller)
	require.Nil(t, err)
	assert.Equal(t, "Europe/Berlin", stored.Timezone)
}

func TestCreateSlotForcesFreePriceToZero(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "free", 75))
	require.Nil(t, err)
	assert.Equal(t, float64(0), slot.Price)
	assert.Equal(t, 60, slot.Duration)
	assert.False(t, slot.IsBooked)
}

func TestCreateSlotRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	_, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	cases := []struct {
		name       string
		start, end string
	}{
		{"starts inside existing", "09:30", "10:30"},
		{"ends inside existing", "08:30", "09:30"},
		{"fully contains existing", "08:00", "11:00"},
		{"contained by existing", "09:15", "09:45"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", tc.start, tc.end, "paid", 75))
			require.NotNil(t, err)
			assert.Equal(t, http.StatusConflict, err.StatusCode())
		})
	}
}

func TestCreateSlotAllowsTouchingBoundariesAndOtherDays(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	_, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	// Touching boundary is not an overlap.
	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-10", "10:00", "11:00", "paid", 75))
	require.Nil(t, err)

	// Same interval on another day is fine.
	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-11", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	// Another expert may hold the same interval.
	_, err = m.CreateSlot(ctx, uuid.New(), slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)
}

func TestCreateSlotValidation(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	_, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "10:00", "09:00", "paid", 75))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "09:00", "paid", 75))
	require.NotNil(t, err)

	_, err = m.CreateSlot(ctx, expert, slotReq("not-a-date", "09:00", "10:00", "paid", 75))
	require.NotNil(t, err)

	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "premium", 75))
	require.NotNil(t, err)
}

func TestCreateSlotDurationBounds(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	_, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "09:10", "paid", 75))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "12:30", "paid", 75))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	// Both bounds are inclusive.
	_, err = m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "09:15", "paid", 75))
	require.Nil(t, err)

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "10:00", "13:00", "paid", 75))
	require.Nil(t, err)
	assert.Equal(t, 180, slot.Duration)
}

func TestUpdateSlotOwnerAndBookingGates(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()
	expert := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	_, err = m.UpdateSlot(ctx, uuid.New(), slot.SlotID, slotReq("2026-09-10", "09:00", "11:00", "paid", 75))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode())

	updated, err := m.UpdateSlot(ctx, expert, slot.SlotID, slotReq("2026-09-10", "09:00", "11:00", "paid", 90))
	require.Nil(t, err)
	assert.Equal(t, 120, updated.Duration)

	require.Nil(t, store.ClaimSlot(ctx, slot.SlotID, uuid.New(), uuid.New()))

	_, err = m.UpdateSlot(ctx, expert, slot.SlotID, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode())

	err = m.DeleteSlot(ctx, expert, slot.SlotID)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode())
}

func TestUpdateSlotOverlapExcludesSelf(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	// Shrinking inside its own old interval must not self-conflict.
	_, err = m.UpdateSlot(ctx, expert, slot.SlotID, slotReq("2026-09-10", "09:15", "09:45", "paid", 75))
	require.Nil(t, err)
}

func TestBookSlotCreatesPendingSession(t *testing.T) {
	ctx := context.Background()
	m, store := newTestManager()
	expert := uuid.New()
	client := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	session, err := m.BookSlot(ctx, client, slot.SlotID, &BookSlotRequest{Title: "Mock interview"})
	require.Nil(t, err)
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Equal(t, expert, session.ExpertID)
	assert.Equal(t, client, session.ClientID)
	assert.Equal(t, 60, session.Duration)
	assert.Equal(t, float64(75), session.Price)
	assert.Empty(t, session.MeetingLink)
	require.NotNil(t, session.SlotID)
	assert.Equal(t, slot.SlotID, *session.SlotID)

	claimed, err := store.GetSlot(ctx, slot.SlotID)
	require.Nil(t, err)
	assert.True(t, claimed.IsBooked)
	require.NotNil(t, claimed.SessionID)
	assert.Equal(t, session.SessionID, *claimed.SessionID)

	// The expert got a session request notification.
	list, err := store.ListNotifications(ctx, expert)
	require.Nil(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationSessionRequest, list[0].Type)
}

func TestBookSlotRejectsSelfBlockedAndBooked(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	_, err = m.BookSlot(ctx, expert, slot.SlotID, &BookSlotRequest{Title: "self"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	blocked, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "11:00", "12:00", "blocked", 0))
	require.Nil(t, err)
	_, err = m.BookSlot(ctx, uuid.New(), blocked.SlotID, &BookSlotRequest{Title: "blocked"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	client := uuid.New()
	_, err = m.BookSlot(ctx, client, slot.SlotID, &BookSlotRequest{Title: "first"})
	require.Nil(t, err)
	_, err = m.BookSlot(ctx, uuid.New(), slot.SlotID, &BookSlotRequest{Title: "second"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode())
}

func TestBookSlotRaceHasExactlyOneWinner(t *testing.T) {
	ctx := context.Background()
	m, _ := newTestManager()
	expert := uuid.New()

	slot, err := m.CreateSlot(ctx, expert, slotReq("2026-09-10", "09:00", "10:00", "paid", 75))
	require.Nil(t, err)

	var wg sync.WaitGroup
	results := make([]apperrors.Error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = m.BookSlot(ctx, uuid.New(), slot.SlotID, &BookSlotRequest{Title: "race"})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, res := range results {
		if res == nil {
			winners++
		} else {
			assert.Equal(t, http.StatusConflict, res.StatusCode())
		}
	}
	assert.Equal(t, 1, winners)
}
