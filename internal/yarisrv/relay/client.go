package relay

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yarihq/yari-server/internal/common/uuid"
)

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
)

// client is one authenticated websocket connection. Frames flow out
// through the send channel; bus subscriptions are forwarded into it by
// per-topic goroutines.
type client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID

	send chan []byte
	done chan struct{}

	mu            sync.Mutex
	subscriptions map[string]func()
	inQueue       bool
	closed        bool
}

func newClient(h *Hub, conn *websocket.Conn, userID uuid.UUID) *client {
	return &client{
		hub:           h,
		conn:          conn,
		userID:        userID,
		send:          make(chan []byte, h.opts.WriteBufferSize),
		done:          make(chan struct{}),
		subscriptions: make(map[string]func()),
	}
}

// subscribe joins a bus topic and forwards its messages to the socket.
// Idempotent per topic.
func (c *client) subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	if _, ok := c.subscriptions[topic]; ok {
		return
	}

	ch, unsubscribe := c.hub.bus.Subscribe(topic, c.hub.opts.WriteBufferSize)
	c.subscriptions[topic] = unsubscribe

	go func() {
		for msg := range ch {
			select {
			case c.send <- msg.Payload:
			case <-c.done:
				return
			default:
				// Slow consumer; drop the frame rather than block the pump.
			}
		}
	}()
}

// unsubscribe leaves a bus topic.
func (c *client) unsubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if unsub, ok := c.subscriptions[topic]; ok {
		unsub()
		delete(c.subscriptions, topic)
	}
}

// deliver queues a frame for this connection only.
func (c *client) deliver(frame []byte) {
	select {
	case c.send <- frame:
	case <-c.done:
	default:
	}
}

// close tears the client down: leave all topics, emit a best-effort
// queue-left signal if the client was match-seeking, and stop the pumps.
func (c *client) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	wasQueued := c.inQueue
	subs := c.subscriptions
	c.subscriptions = make(map[string]func())
	c.mu.Unlock()

	for _, unsub := range subs {
		unsub()
	}
	close(c.done)
	c.conn.Close()

	if wasQueued {
		c.hub.broadcastQueuePresence(c.userID, false)
	}
}

// readPump reads frames off the socket and dispatches them until the
// connection drops.
func (c *client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("user_id", c.userID.String()).Msg("websocket closed unexpectedly")
			}
			return
		}
		c.hub.handleFrame(c, raw)
	}
}

// writePump flushes queued frames and keeps the connection alive with
// pings.
func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
