package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/auth"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/chat"
	"github.com/yarihq/yari-server/internal/yarisrv/db/memory"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
	"github.com/yarihq/yari-server/pkg/api"
)

type relayFixture struct {
	store  *memory.Store
	server *httptest.Server

	alice uuid.UUID
	bob   uuid.UUID
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	store := memory.New()
	b := bus.New()
	t.Cleanup(b.Shutdown)

	alice := uuid.New()
	bob := uuid.New()
	resolver := &auth.StaticResolver{
		Tokens: map[string]*yaricommon.UserContext{
			"alice-token": {UserID: alice},
			"bob-token":   {UserID: bob},
		},
	}

	chatSvc := chat.NewService(store, b, 100*time.Millisecond)
	hub := NewHub(b, resolver, chatSvc, store, Options{})

	server := httptest.NewServer(hub)
	t.Cleanup(server.Close)

	return &relayFixture{store: store, server: server, alice: alice, bob: bob}
}

func (f *relayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	return raw
}

func expectNoFrame(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	_, raw, err := conn.ReadMessage()
	require.Error(t, err, "unexpected frame: %s", raw)
}

func sendFrame(t *testing.T, conn *websocket.Conn, event, data string) {
	t.Helper()

	frame := `{"event":"` + event + `","data":` + data + `}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
}

func TestHandshakeRejectsBadToken(t *testing.T) {
	f := newRelayFixture(t)

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url+"/?token=bogus", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"/", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestChatMessagePersistsThenReachesRecipient(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	sendFrame(t, aliceConn, api.EventChatSendMessage,
		`{"recipient_id":"`+f.bob.String()+`","body":"hey there"}`)

	raw := readFrame(t, bobConn)
	assert.Equal(t, api.EventChatNewMessage, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, "hey there", gjson.GetBytes(raw, "data.body").String())
	assert.Equal(t, f.alice.String(), gjson.GetBytes(raw, "data.sender_id").String())

	msgID := gjson.GetBytes(raw, "data.message_id").String()
	id, err := uuid.Parse(msgID)
	require.NoError(t, err)
	stored, aerr := f.store.ListConversation(context.Background(), f.alice, f.bob, 10)
	require.Nil(t, aerr)
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0].MessageID)
	assert.Equal(t, "hey there", stored[0].Body)
}

func TestChatFailedWriteOnlyTellsSender(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	f.store.FailWrites(true)
	sendFrame(t, aliceConn, api.EventChatSendMessage,
		`{"recipient_id":"`+f.bob.String()+`","body":"lost"}`)

	raw := readFrame(t, aliceConn)
	assert.Equal(t, api.EventChatError, gjson.GetBytes(raw, "event").String())

	expectNoFrame(t, bobConn)
}

func TestQueuePresenceBroadcast(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	sendFrame(t, aliceConn, api.EventYariJoinQueue, `{}`)
	raw := readFrame(t, aliceConn)
	assert.Equal(t, api.EventYariQueueJoined, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, f.alice.String(), gjson.GetBytes(raw, "data.user_id").String())

	sendFrame(t, bobConn, api.EventYariJoinQueue, `{}`)
	raw = readFrame(t, aliceConn)
	assert.Equal(t, api.EventYariQueueJoined, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, f.bob.String(), gjson.GetBytes(raw, "data.user_id").String())

	sendFrame(t, bobConn, api.EventYariLeaveQueue, `{}`)
	raw = readFrame(t, aliceConn)
	assert.Equal(t, api.EventYariQueueLeft, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, f.bob.String(), gjson.GetBytes(raw, "data.user_id").String())
}

func TestDisconnectEmitsQueueLeft(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	sendFrame(t, aliceConn, api.EventYariJoinQueue, `{}`)
	readFrame(t, aliceConn) // own queue-joined

	sendFrame(t, bobConn, api.EventYariJoinQueue, `{}`)
	readFrame(t, aliceConn) // bob's queue-joined
	readFrame(t, bobConn)   // own queue-joined

	bobConn.Close()

	raw := readFrame(t, aliceConn)
	assert.Equal(t, api.EventYariQueueLeft, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, f.bob.String(), gjson.GetBytes(raw, "data.user_id").String())
}

func TestSignalingStampsSender(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	sendFrame(t, aliceConn, api.EventYariCallUser,
		`{"target_id":"`+f.bob.String()+`","offer":{"sdp":"v=0"},"sender_id":"spoofed"}`)

	raw := readFrame(t, bobConn)
	assert.Equal(t, api.EventYariCallUser, gjson.GetBytes(raw, "event").String())
	assert.Equal(t, "v=0", gjson.GetBytes(raw, "data.offer.sdp").String())
	// A spoofed sender id never survives the relay.
	assert.Equal(t, f.alice.String(), gjson.GetBytes(raw, "data.sender_id").String())

	expectNoFrame(t, aliceConn)
}

func TestSessionTopicBroadcast(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")
	bobConn := f.dial(t, "bob-token")

	sessionID := uuid.New().String()
	sendFrame(t, aliceConn, api.EventSessionJoin, `{"session_id":"`+sessionID+`"}`)
	sendFrame(t, bobConn, api.EventSessionJoin, `{"session_id":"`+sessionID+`"}`)
	time.Sleep(50 * time.Millisecond)

	sendFrame(t, aliceConn, api.EventSessionUpdateStatus,
		`{"session_id":"`+sessionID+`","status":"confirmed"}`)

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		raw := readFrame(t, conn)
		assert.Equal(t, api.EventSessionUpdateStatus, gjson.GetBytes(raw, "event").String())
		assert.Equal(t, "confirmed", gjson.GetBytes(raw, "data.status").String())
		assert.Equal(t, f.alice.String(), gjson.GetBytes(raw, "data.sender_id").String())
	}

	sendFrame(t, bobConn, api.EventSessionLeave, `{"session_id":"`+sessionID+`"}`)
	time.Sleep(50 * time.Millisecond)

	sendFrame(t, aliceConn, api.EventSessionUpdateStatus,
		`{"session_id":"`+sessionID+`","status":"completed"}`)
	readFrame(t, aliceConn)
	expectNoFrame(t, bobConn)
}

func TestUnknownEventIsDropped(t *testing.T) {
	f := newRelayFixture(t)
	aliceConn := f.dial(t, "alice-token")

	sendFrame(t, aliceConn, "made-up:event", `{}`)
	sendFrame(t, aliceConn, api.EventChatTyping, `{"recipient_id":"not-a-uuid"}`)
	expectNoFrame(t, aliceConn)
}
