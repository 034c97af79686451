package relay

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/chat"
	"github.com/yarihq/yari-server/pkg/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// handleFrame routes one inbound frame. Malformed frames are dropped;
// the relay promises at-most-once, not delivery.
func (h *Hub) handleFrame(c *client, raw []byte) {
	if !gjson.ValidBytes(raw) {
		return
	}
	event := gjson.GetBytes(raw, "event").String()
	data := []byte(gjson.GetBytes(raw, "data").Raw)

	switch event {
	case api.EventChatSendMessage:
		h.handleChatSend(c, data)
	case api.EventChatTyping:
		h.relayToUser(c, event, data, "recipient_id")
	case api.EventYariJoinQueue:
		c.subscribe(queueTopic)
		c.mu.Lock()
		c.inQueue = true
		c.mu.Unlock()
		h.broadcastQueuePresence(c.userID, true)
	case api.EventYariLeaveQueue:
		c.mu.Lock()
		c.inQueue = false
		c.mu.Unlock()
		c.unsubscribe(queueTopic)
		h.broadcastQueuePresence(c.userID, false)
	case api.EventYariCallUser, api.EventYariAnswerCall, api.EventYariICE, api.EventYariEndCall:
		// Opaque signaling payload; stamp the sender and forward unread.
		h.relayToUser(c, event, data, "target_id")
	case api.EventSessionJoin:
		if id := gjson.GetBytes(data, "session_id").String(); id != "" {
			c.subscribe(bus.SessionTopic(id))
		}
	case api.EventSessionLeave:
		if id := gjson.GetBytes(data, "session_id").String(); id != "" {
			c.unsubscribe(bus.SessionTopic(id))
		}
	case api.EventSessionUpdateStatus:
		// UI hint only; the lifecycle manager owns transition authority.
		h.relayToSession(c, event, data)
	case api.EventNotificationMarkRead:
		h.handleNotificationMarkRead(c, data)
	default:
		log.Debug().Str("event", event).Msg("unknown relay event, dropping")
	}
}

// handleChatSend persists through the chat service, then the service
// relays to the recipient. On a failed write only the sender hears about
// it.
func (h *Hub) handleChatSend(c *client, data []byte) {
	var req chat.SendRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.deliver(h.errorFrame("malformed chat message"))
		return
	}
	if _, aerr := h.chat.SendMessage(context.Background(), c.userID, &req); aerr != nil {
		c.deliver(h.errorFrame(aerr.Error()))
	}
}

// handleNotificationMarkRead persists the read flag, scoped to the
// connection's own user.
func (h *Hub) handleNotificationMarkRead(c *client, data []byte) {
	id, err := uuid.Parse(gjson.GetBytes(data, "notification_id").String())
	if err != nil {
		return
	}
	if aerr := h.store.MarkNotificationRead(context.Background(), id, c.userID); aerr != nil {
		log.Debug().Err(aerr).Str("user_id", c.userID.String()).Msg("relay mark-read failed")
	}
}

// relayToUser stamps the sender id onto the payload and forwards it to the
// target's user topic. The payload is otherwise never interpreted.
func (h *Hub) relayToUser(c *client, event string, data []byte, targetField string) {
	target := gjson.GetBytes(data, targetField).String()
	if _, err := uuid.Parse(target); err != nil {
		return
	}

	stamped, err := sjson.SetBytes(data, "sender_id", c.userID.String())
	if err != nil {
		return
	}
	frame, err := json.Marshal(api.Frame{Event: event, Data: stamped})
	if err != nil {
		return
	}
	h.bus.Publish(bus.Message{
		Topic:   bus.UserTopic(target),
		Event:   event,
		Payload: frame,
	}, h.opts.PublishTimeout)
}

// relayToSession broadcasts to everyone watching the session topic,
// sender included.
func (h *Hub) relayToSession(c *client, event string, data []byte) {
	id := gjson.GetBytes(data, "session_id").String()
	if id == "" {
		return
	}
	stamped, err := sjson.SetBytes(data, "sender_id", c.userID.String())
	if err != nil {
		return
	}
	frame, err := json.Marshal(api.Frame{Event: event, Data: stamped})
	if err != nil {
		return
	}
	h.bus.Publish(bus.Message{
		Topic:   bus.SessionTopic(id),
		Event:   event,
		Payload: frame,
	}, h.opts.PublishTimeout)
}

// broadcastQueuePresence tells the queue a user joined or left.
func (h *Hub) broadcastQueuePresence(userID uuid.UUID, joined bool) {
	event := api.EventYariQueueLeft
	if joined {
		event = api.EventYariQueueJoined
	}
	frame, err := json.Marshal(api.Frame{
		Event: event,
		Data:  []byte(`{"user_id":"` + userID.String() + `"}`),
	})
	if err != nil {
		return
	}
	h.bus.Publish(bus.Message{
		Topic:   queueTopic,
		Event:   event,
		Payload: frame,
	}, h.opts.PublishTimeout)
}

// errorFrame is a sender-only chat failure notice.
func (h *Hub) errorFrame(msg string) []byte {
	frame, err := json.Marshal(api.Frame{
		Event: api.EventChatError,
		Data:  mustJSONString("error", msg),
	})
	if err != nil {
		return []byte(`{"event":"` + api.EventChatError + `"}`)
	}
	return frame
}

func mustJSONString(key, value string) []byte {
	b, err := sjson.SetBytes([]byte(`{}`), key, value)
	if err != nil {
		return []byte(`{}`)
	}
	return b
}
