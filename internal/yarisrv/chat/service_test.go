package chat

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/db/memory"
)

func newTestService() (*Service, *memory.Store, *bus.Bus) {
	store := memory.New()
	b := bus.New()
	return NewService(store, b, 50*time.Millisecond), store, b
}

func TestSendMessagePersistsThenRelays(t *testing.T) {
	ctx := context.Background()
	svc, store, b := newTestService()
	sender := uuid.New()
	recipient := uuid.New()

	ch, unsubscribe := b.Subscribe(bus.UserTopic(recipient.String()), 4)
	defer unsubscribe()

	msg, err := svc.SendMessage(ctx, sender, &SendRequest{
		RecipientID: recipient.String(),
		Body:        "hello there",
	})
	require.Nil(t, err)
	assert.False(t, msg.Read)

	stored, aerr := store.ListConversation(ctx, sender, recipient, 10)
	require.Nil(t, aerr)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello there", stored[0].Body)

	select {
	case delivered := <-ch:
		assert.Equal(t, "chat:new-message", delivered.Event)
		assert.Equal(t, msg.MessageID.String(), gjson.GetBytes(delivered.Payload, "data.message_id").String())
		assert.Equal(t, "hello there", gjson.GetBytes(delivered.Payload, "data.body").String())
	case <-time.After(200 * time.Millisecond):
		t.Fatal("message was not relayed to the recipient topic")
	}
}

func TestSendMessageFailedWriteRelaysNothing(t *testing.T) {
	ctx := context.Background()
	svc, store, b := newTestService()
	sender := uuid.New()
	recipient := uuid.New()

	ch, unsubscribe := b.Subscribe(bus.UserTopic(recipient.String()), 4)
	defer unsubscribe()

	store.FailWrites(true)
	_, err := svc.SendMessage(ctx, sender, &SendRequest{
		RecipientID: recipient.String(),
		Body:        "lost",
	})
	require.NotNil(t, err)

	select {
	case <-ch:
		t.Fatal("a failed write must not relay anything")
	case <-time.After(100 * time.Millisecond):
	}

	store.FailWrites(false)
	stored, aerr := store.ListConversation(ctx, sender, recipient, 10)
	require.Nil(t, aerr)
	assert.Empty(t, stored)
}

func TestSendMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	sender := uuid.New()

	_, err := svc.SendMessage(ctx, sender, &SendRequest{RecipientID: sender.String(), Body: "self"})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	_, err = svc.SendMessage(ctx, sender, &SendRequest{RecipientID: uuid.New().String()})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())

	long := make([]byte, 1001)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.SendMessage(ctx, sender, &SendRequest{RecipientID: uuid.New().String(), Body: string(long)})
	require.NotNil(t, err)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode())
}

func TestMarkReadRecipientOnly(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	sender := uuid.New()
	recipient := uuid.New()

	msg, err := svc.SendMessage(ctx, sender, &SendRequest{
		RecipientID: recipient.String(),
		Body:        "read me",
	})
	require.Nil(t, err)

	// The sender cannot mark their own message read.
	err = svc.MarkRead(ctx, sender, msg.MessageID)
	require.NotNil(t, err)
	assert.Equal(t, http.StatusNotFound, err.StatusCode())

	require.Nil(t, svc.MarkRead(ctx, recipient, msg.MessageID))

	conv, aerr := svc.ListConversation(ctx, recipient, sender, 10)
	require.Nil(t, aerr)
	require.Len(t, conv, 1)
	assert.True(t, conv[0].Read)
}
