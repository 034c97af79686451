package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/common/logtrace"
	commonmiddleware "github.com/yarihq/yari-server/internal/common/middleware"
	"github.com/yarihq/yari-server/internal/yarisrv/auth"
	"github.com/yarihq/yari-server/internal/yarisrv/availability"
	"github.com/yarihq/yari-server/internal/yarisrv/bus"
	"github.com/yarihq/yari-server/internal/yarisrv/chat"
	"github.com/yarihq/yari-server/internal/yarisrv/config"
	"github.com/yarihq/yari-server/internal/yarisrv/connections"
	"github.com/yarihq/yari-server/internal/yarisrv/db"
	"github.com/yarihq/yari-server/internal/yarisrv/notifications"
	"github.com/yarihq/yari-server/internal/yarisrv/relay"
	"github.com/yarihq/yari-server/internal/yarisrv/session"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
	"github.com/yarihq/yari-server/internal/yarisrv/yariconnect"
)

// YariServer assembles the platform's HTTP surface: the REST API, the
// public availability endpoints, and the websocket relay.
type YariServer struct {
	Router *chi.Mux

	store    db.Store
	resolver auth.Resolver
	bus      *bus.Bus

	availability *availability.Manager
	sessions     *session.Manager
	yariconnect  *yariconnect.Manager
	chat         *chat.Service
	connections  *connections.Manager
	notifier     *notifications.Dispatcher
	hub          *relay.Hub
}

// CreateNewServer wires every service onto the given store and resolver.
func CreateNewServer(store db.Store, resolver auth.Resolver) *YariServer {
	cfg := config.Config()
	b := bus.New()
	publishTimeout := cfg.Relay.GetPublishTimeout()

	notifier := notifications.NewDispatcher(store, b, publishTimeout)
	chatSvc := chat.NewService(store, b, publishTimeout)
	links := &session.LinkGenerator{BaseURL: cfg.Meeting.LinkBaseURL}

	pingInterval, err := cfg.Relay.GetPingInterval()
	if err != nil {
		pingInterval = 0 // relay falls back to its default
	}

	s := &YariServer{
		Router:   chi.NewRouter(),
		store:    store,
		resolver: resolver,
		bus:      b,

		availability: availability.NewManager(store, notifier),
		sessions:     session.NewManager(store, notifier, links),
		yariconnect:  yariconnect.NewManager(store),
		chat:         chatSvc,
		connections:  connections.NewManager(store, notifier),
		notifier:     notifier,
		hub: relay.NewHub(b, resolver, chatSvc, store, relay.Options{
			WriteBufferSize: cfg.Relay.WriteBufferSize,
			MaxMessageBytes: cfg.Relay.MaxMessageBytes,
			PublishTimeout:  publishTimeout,
			PingInterval:    pingInterval,
		}),
	}
	return s
}

// MountHandlers builds the middleware chain and mounts every route.
func (s *YariServer) MountHandlers() {
	cfg := config.Config()

	s.Router.Use(commonmiddleware.RequestLogger)
	s.Router.Use(commonmiddleware.PanicHandler)
	if cfg.HandleCORS {
		s.Router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   splitOrigins(cfg.CORSAllowedOrigins),
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	s.Router.Use(limitRequestBody(cfg.MaxRequestBodySize))

	// The relay holds connections open for the socket lifetime, so it
	// sits outside the request timeout.
	s.Router.Handle("/ws", s.hub)

	requestTimeout, err := cfg.GetRequestTimeout()
	if err != nil {
		requestTimeout = 30 * time.Second
	}

	s.Router.Group(func(r chi.Router) {
		r.Use(commonmiddleware.SetTimeout(requestTimeout))
		s.mountPublicHandlers(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.UserAuthMiddleware(s.resolver))
			s.mountUserHandlers(r)
		})
	})

	if logtrace.IsTraceEnabled() {
		walkFunc := func(method string, route string, handler http.Handler, middlewares ...func(http.Handler) http.Handler) error {
			fmt.Printf("%s %s\n", method, route)
			return nil
		}
		if err := chi.Walk(s.Router, walkFunc); err != nil {
			fmt.Printf("Logging err: %s\n", err.Error())
		}
	}
}

// Shutdown releases the server's background resources.
func (s *YariServer) Shutdown() {
	s.bus.Shutdown()
}

func (s *YariServer) mountPublicHandlers(r chi.Router) {
	availability.PublicRouter(r, s.availability)
	r.Get("/version", s.getVersion)
	r.Get("/ready", s.getReadiness)
}

func (s *YariServer) mountUserHandlers(r chi.Router) {
	availability.Router(r, s.availability)
	session.Router(r, s.sessions)
	yariconnect.Router(r, s.yariconnect)
	chat.Router(r, s.chat)
	connections.Router(r, s.connections)
	notifications.Router(r, s.notifier)
}

type getVersionRsp struct {
	ServerVersion string `json:"server_version"`
	ApiVersion    string `json:"api_version"`
}

func (s *YariServer) getVersion(w http.ResponseWriter, r *http.Request) {
	rsp := &getVersionRsp{
		ServerVersion: "Yari Server: " + yaricommon.ServerVersion,
		ApiVersion:    yaricommon.ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

func (s *YariServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("store ping failed during readiness check")
		httpx.SendJsonRsp(r.Context(), w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"error":  "store unavailable",
		})
		return
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func limitRequestBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

func splitOrigins(origins string) []string {
	if origins == "" {
		return []string{"*"}
	}
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
