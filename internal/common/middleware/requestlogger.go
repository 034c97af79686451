// Package middleware provides the HTTP middleware chain shared by all
// routes: request logging with per-request ids, panic recovery, and a
// request timeout. Logging is structured via zerolog; the request-scoped
// logger is stored on the context so handlers log with log.Ctx(ctx).
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/uuid"
)

// requestIdContextKey is a custom type for the context key holding request ids.
type requestIdContextKey string

const (
	requestIdKey = requestIdContextKey("requestId")

	// RequestIDHeader carries the request id back to the client for support
	// correlation.
	RequestIDHeader = "X-Yari-Request-ID"
)

// RequestIDFromContext returns the request id stored by RequestLogger,
// or an empty string when absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIdKey).(string); ok {
		return id
	}
	return ""
}

// RequestLogger logs incoming requests and attaches a unique request id to
// both the request context and the response headers. The context logger is
// enriched with the id so every downstream log line can be correlated.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()

		requestID := newRequestId()
		ctx = context.WithValue(ctx, requestIdKey, requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)

		requestFields := map[string]any{
			"requestMethod": r.Method,
			"requestPath":   r.URL.Path,
			"remoteIP":      r.RemoteAddr,
			"proto":         r.Proto,
		}
		log.Ctx(ctx).Info().Fields(requestFields).Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
				Msg("request completed")
		}()

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// newRequestId generates a unique request identifier, falling back to a
// timestamp-based id if UUID generation fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
