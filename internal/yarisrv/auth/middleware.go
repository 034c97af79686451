package auth

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yarihq/yari-server/internal/common/httpx"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

// UserAuthMiddleware authenticates requests carrying an
// Authorization: Bearer header and places the resolved identity on the
// request context. Requests without a valid token are rejected with 401.
func UserAuthMiddleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				log.Ctx(ctx).Warn().Msg("missing or invalid authorization header")
				httpx.ErrUnAuthorized("missing or invalid authorization header").Send(w)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

			uc, err := resolver.Resolve(ctx, token)
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("token validation failed")
				httpx.ErrUnAuthorized("invalid authorization. login required").Send(w)
				return
			}

			ctx = yaricommon.WithUserContext(ctx, uc)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
