package session

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/db/memory"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
)

func newTestManager(t *testing.T) (*Manager, *memory.Store, uuid.UUID) {
	t.Helper()
	store := memory.New()
	dispatcher := notifications.NewDispatcher(store, bus.New(), 50*time.Millisecond)
	m := NewManager(store, dispatcher, LinkGenerator{BaseURL: "https://meet.yari.test"})

	expert := uuid.New()
	require.Nil(t, store.CreateUser(context.Background(), &models.User{
		UserID: expert,
		Name:   "Asha Expert",
		Role:   "expert",
	}))
	return m, store, expert
}

func bookReq(expert uuid.UUID) *BookRequest {
	return &BookRequest{
		ExpertID:    expert.String(),
		Title:       "Career chat",
		Duration:    60,
		Price:       50,
		ScheduledAt: "2026-09-10T09:00:00Z",
	}
}

func TestBookCreatesPendingSession(t *testing.T) {
	ctx := context.Background()
	m, store, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)
	assert.Equal(t, models.SessionPending, session.Status)
	assert.Empty(t, session.MeetingLink)
	assert.Nil(t, session.SlotID)

	list, err := store.ListNotifications(ctx, expert)
	require.Nil(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.NotificationSessionRequest, list[0].Type)
}

func TestBookRejectsSelfAndUnknownExpert(t *testing.T) {
	ctx := context.Background()
	m, _, expert := newTestManager(t)

	_, err := m.Book(ctx, expert, bookReq(expert))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	_, err = m.Book(ctx, uuid.New(), bookReq(uuid.New()))
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode())

	_, err = m.Book(ctx, uuid.New(), &BookRequest{ExpertID: expert.String()})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
}

func TestGetIsParticipantOnly(t *testing.T) {
	ctx := context.Background()
	m, _, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	_, err = m.Get(ctx, client, session.SessionID)
	require.Nil(t, err)
	_, err = m.Get(ctx, expert, session.SessionID)
	require.Nil(t, err)

	_, err = m.Get(ctx, uuid.New(), session.SessionID)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode())

	_, err = m.Get(ctx, client, uuid.New())
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode())
}

func TestOnlyExpertMayConfirm(t *testing.T) {
	ctx := context.Background()
	m, _, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	_, err = m.ChangeStatus(ctx, client, session.SessionID, &StatusRequest{Status: "confirmed"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode())

	confirmed, err := m.ChangeStatus(ctx, expert, session.SessionID, &StatusRequest{Status: "confirmed"})
	require.Nil(t, err)
	assert.Equal(t, models.SessionConfirmed, confirmed.Status)
	assert.NotEmpty(t, confirmed.MeetingLink)
}

func TestMeetingLinkIsDeterministicAndStampedOnce(t *testing.T) {
	ctx := context.Background()
	m, store, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	confirmed, err := m.ChangeStatus(ctx, expert, session.SessionID, &StatusRequest{Status: "confirmed"})
	require.Nil(t, err)

	gen := LinkGenerator{BaseURL: "https://meet.yari.test"}
	assert.Equal(t, gen.MeetingLink(session.SessionID), confirmed.MeetingLink)
	assert.Regexp(t, `^https://meet\.yari\.test/[0-9a-f]{3}-[0-9a-f]{4}-[0-9a-f]{3}$`, confirmed.MeetingLink)

	// Completing must not clear or change the link.
	done, err := m.ChangeStatus(ctx, client, session.SessionID, &StatusRequest{Status: "completed"})
	require.Nil(t, err)
	assert.Equal(t, confirmed.MeetingLink, done.MeetingLink)

	stored, aerr := store.GetSession(ctx, session.SessionID)
	require.Nil(t, aerr)
	assert.Equal(t, confirmed.MeetingLink, stored.MeetingLink)

	// The counterpart's confirmation notice carries the link.
	list, aerr := store.ListNotifications(ctx, client)
	require.Nil(t, aerr)
	require.NotEmpty(t, list)
	found := false
	for _, n := range list {
		if n.Type == models.NotificationSessionUpdate && strings.Contains(string(n.Data), confirmed.MeetingLink) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	ctx := context.Background()
	m, _, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	_, err = m.ChangeStatus(ctx, client, session.SessionID, &StatusRequest{Status: "cancelled"})
	require.Nil(t, err)

	for _, next := range []string{"pending", "confirmed", "completed"} {
		_, err = m.ChangeStatus(ctx, expert, session.SessionID, &StatusRequest{Status: next})
		require.NotNil(t, err)
		assert.Equal(t, http.StatusConflict, err.StatusCode())
	}
}

func TestInvalidTransitionsRejected(t *testing.T) {
	ctx := context.Background()
	m, _, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	// pending cannot jump straight to completed.
	_, err = m.ChangeStatus(ctx, expert, session.SessionID, &StatusRequest{Status: "completed"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusConflict, err.StatusCode())

	_, err = m.ChangeStatus(ctx, expert, session.SessionID, &StatusRequest{Status: "archived"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	_, err = m.ChangeStatus(ctx, uuid.New(), session.SessionID, &StatusRequest{Status: "cancelled"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode())
}

func TestAnnotateParticipantOnlyOverwrite(t *testing.T) {
	ctx := context.Background()
	m, store, expert := newTestManager(t)
	client := uuid.New()

	session, err := m.Book(ctx, client, bookReq(expert))
	require.Nil(t, err)

	_, err = m.Annotate(ctx, uuid.New(), session.SessionID, &NotesRequest{Notes: "intruder"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusForbidden, err.StatusCode())

	_, err = m.Annotate(ctx, expert, session.SessionID, &NotesRequest{Notes: "first"})
	require.Nil(t, err)
	updated, err := m.Annotate(ctx, client, session.SessionID, &NotesRequest{Notes: "second"})
	require.Nil(t, err)
	assert.Equal(t, "second", updated.Notes)

	stored, aerr := store.GetSession(ctx, session.SessionID)
	require.Nil(t, aerr)
	assert.Equal(t, "second", stored.Notes)
}
