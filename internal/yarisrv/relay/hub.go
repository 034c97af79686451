// Package relay is the real-time edge: websocket connections authenticated
// once at handshake, joined to per-user topics on the bus, exchanging
// fire-and-forget frames. The relay is never a source of truth; the only
// durable writes it performs go through the chat service and the
// notification store.
package relay

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/yarisrv/auth"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/chat"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
)

// queueTopic carries YariConnect match-seeking presence.
const queueTopic = "yariconnect.queue"

// Options bound the relay's buffers and timing.
type Options struct {
	WriteBufferSize int
	MaxMessageBytes int64
	PublishTimeout  time.Duration
	PingInterval    time.Duration
}

func (o *Options) withDefaults() Options {
	opts := *o
	if opts.WriteBufferSize <= 0 {
		opts.WriteBufferSize = 64
	}
	if opts.MaxMessageBytes <= 0 {
		opts.MaxMessageBytes = 64 * 1024
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 100 * time.Millisecond
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return opts
}

// Hub upgrades connections and routes frames between clients and the bus.
type Hub struct {
	bus      *bus.Bus
	resolver auth.Resolver
	chat     *chat.Service
	store    db.NotificationStore
	opts     Options

	upgrader websocket.Upgrader
}

// NewHub wires the relay.
func NewHub(b *bus.Bus, resolver auth.Resolver, chatSvc *chat.Service, store db.NotificationStore, opts Options) *Hub {
	return &Hub{
		bus:      b,
		resolver: resolver,
		chat:     chatSvc,
		store:    store,
		opts:     opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Cross-origin policy is enforced by the CORS layer in front.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP is the /ws handshake: resolve the credential exactly once,
// reject on failure, then upgrade and join the caller's user topic.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.ErrUnAuthorized("missing credential").Send(w)
		return
	}

	uc, aerr := h.resolver.Resolve(r.Context(), token)
	if aerr != nil {
		httpx.ErrUnAuthorized(aerr.Error()).Send(w)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := newClient(h, conn, uc.UserID)
	client.subscribe(bus.UserTopic(uc.UserID.String()))

	go client.writePump()
	go client.readPump()
}

// bearerToken extracts the handshake credential from ?token= or the
// Authorization header.
func bearerToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
