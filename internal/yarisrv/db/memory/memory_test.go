package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/db/dberror"
	"github.com/yarihq/yari-server/internal/yarisrv/db/models"
)

func newSlot(expert uuid.UUID) *models.AvailabilitySlot {
	return &models.AvailabilitySlot{
		SlotID:       uuid.New(),
		ExpertID:     expert,
		Date:         time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
		StartMinutes: 9 * 60,
		EndMinutes:   10 * 60,
		SlotType:     models.SlotTypePaid,
		Price:        75,
		Duration:     60,
	}
}

func TestClaimSlotWinsOnce(t *testing.T) {
	ctx := context.Background()
	store := New()
	expert := uuid.New()
	slot := newSlot(expert)
	require.Nil(t, store.CreateSlot(ctx, slot))

	// Two racers, exactly one may claim the slot.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := store.ClaimSlot(ctx, slot.SlotID, uuid.New(), uuid.New()); err != nil {
				errs[i] = err
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, dberror.ErrConditionFailed)
		}
	}
	assert.Equal(t, 1, winners)

	got, err := store.GetSlot(ctx, slot.SlotID)
	require.Nil(t, err)
	assert.True(t, got.IsBooked)
	assert.NotNil(t, got.SessionID)
	assert.NotNil(t, got.BookedBy)
}

func TestBookedSlotRejectsMutation(t *testing.T) {
	ctx := context.Background()
	store := New()
	slot := newSlot(uuid.New())
	require.Nil(t, store.CreateSlot(ctx, slot))
	require.Nil(t, store.ClaimSlot(ctx, slot.SlotID, uuid.New(), uuid.New()))

	err := store.UpdateSlot(ctx, slot)
	assert.ErrorIs(t, err, dberror.ErrConditionFailed)

	err = store.DeleteSlot(ctx, slot.SlotID)
	assert.ErrorIs(t, err, dberror.ErrConditionFailed)
}

func TestReleaseSlotRevertsClaim(t *testing.T) {
	ctx := context.Background()
	store := New()
	slot := newSlot(uuid.New())
	require.Nil(t, store.CreateSlot(ctx, slot))
	require.Nil(t, store.ClaimSlot(ctx, slot.SlotID, uuid.New(), uuid.New()))
	require.Nil(t, store.ReleaseSlot(ctx, slot.SlotID))

	got, err := store.GetSlot(ctx, slot.SlotID)
	require.Nil(t, err)
	assert.False(t, got.IsBooked)
	assert.Nil(t, got.SessionID)

	// A fresh claim succeeds after release.
	assert.Nil(t, store.ClaimSlot(ctx, slot.SlotID, uuid.New(), uuid.New()))
}

func TestSessionStatusConditionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := New()
	sess := &models.Session{
		SessionID: uuid.New(),
		ExpertID:  uuid.New(),
		ClientID:  uuid.New(),
		Status:    models.SessionPending,
	}
	require.Nil(t, store.CreateSession(ctx, sess))

	require.Nil(t, store.UpdateSessionStatus(ctx, sess.SessionID, models.SessionPending, models.SessionConfirmed, "https://meet.example/abc"))

	// Replaying the same transition fails: status moved on.
	err := store.UpdateSessionStatus(ctx, sess.SessionID, models.SessionPending, models.SessionConfirmed, "")
	assert.ErrorIs(t, err, dberror.ErrConditionFailed)

	got, gerr := store.GetSession(ctx, sess.SessionID)
	require.Nil(t, gerr)
	assert.Equal(t, models.SessionConfirmed, got.Status)
	assert.Equal(t, "https://meet.example/abc", got.MeetingLink)
}

func TestAcceptConnectionRequestIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := New()
	req := &models.ConnectionRequest{
		RequestID:  uuid.New(),
		SenderID:   uuid.New(),
		ReceiverID: uuid.New(),
		Status:     models.RequestPending,
	}
	require.Nil(t, store.CreateConnectionRequest(ctx, req))

	conn, err := store.AcceptConnectionRequest(ctx, req.RequestID)
	require.Nil(t, err)
	u1, u2 := models.NormalizePair(req.SenderID, req.ReceiverID)
	assert.Equal(t, u1, conn.User1)
	assert.Equal(t, u2, conn.User2)

	// Second accept fails; the request is no longer pending.
	_, err = store.AcceptConnectionRequest(ctx, req.RequestID)
	assert.ErrorIs(t, err, dberror.ErrConditionFailed)

	got, gerr := store.GetConnectionBetween(ctx, req.ReceiverID, req.SenderID)
	require.Nil(t, gerr)
	assert.Equal(t, conn.ConnectionID, got.ConnectionID)
}

func TestDuplicatePendingRequestRejected(t *testing.T) {
	ctx := context.Background()
	store := New()
	sender, receiver := uuid.New(), uuid.New()
	req := &models.ConnectionRequest{RequestID: uuid.New(), SenderID: sender, ReceiverID: receiver, Status: models.RequestPending}
	require.Nil(t, store.CreateConnectionRequest(ctx, req))

	dup := &models.ConnectionRequest{RequestID: uuid.New(), SenderID: sender, ReceiverID: receiver, Status: models.RequestPending}
	err := store.CreateConnectionRequest(ctx, dup)
	assert.ErrorIs(t, err, dberror.ErrAlreadyExists)
}

func TestFailWrites(t *testing.T) {
	ctx := context.Background()
	store := New()
	store.FailWrites(true)

	err := store.CreateChatMessage(ctx, &models.ChatMessage{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		Recipient: uuid.New(),
		Body:      "hello",
	})
	assert.ErrorIs(t, err, dberror.ErrDatabase)
}

func TestMarkMessageReadRecipientOnly(t *testing.T) {
	ctx := context.Background()
	store := New()
	msg := &models.ChatMessage{
		MessageID: uuid.New(),
		SenderID:  uuid.New(),
		Recipient: uuid.New(),
		Body:      "hi",
	}
	require.Nil(t, store.CreateChatMessage(ctx, msg))

	err := store.MarkMessageRead(ctx, msg.MessageID, msg.SenderID)
	assert.ErrorIs(t, err, dberror.ErrConditionFailed)

	require.Nil(t, store.MarkMessageRead(ctx, msg.MessageID, msg.Recipient))
	msgs, lerr := store.ListConversation(ctx, msg.SenderID, msg.Recipient, 0)
	require.Nil(t, lerr)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].Read)
}
