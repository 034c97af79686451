// Package auth resolves bearer credentials to user identities. The server
// treats authentication mechanics as an external concern: all it needs is a
// Resolver that turns an opaque credential into a user id and role, used
// once per HTTP request and once per relay connection handshake.
package auth

import (
	"context"
	"net/http"

	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

var (
	ErrAuth          apperrors.Error = apperrors.New("authentication error").SetStatusCode(http.StatusUnauthorized)
	ErrInvalidToken  apperrors.Error = ErrAuth.New("invalid or expired token")
	ErrMissingClaims apperrors.Error = ErrAuth.New("token is missing required claims")
)

// Resolver resolves a bearer credential to a user identity. Implementations
// must be safe for concurrent use.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*yaricommon.UserContext, apperrors.Error)
}
