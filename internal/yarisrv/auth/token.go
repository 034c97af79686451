package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/yarihq/yari-server/internal/common/apperrors"
	"github.com/yarihq/yari-server/internal/common/uuid"
	"github.com/yarihq/yari-server/internal/yarisrv/config"
	"github.com/yarihq/yari-server/internal/yarisrv/yaricommon"
)

// JWTResolver validates HS256 bearer tokens minted by the identity service.
// The shared signing key comes from configuration.
type JWTResolver struct {
	signingKey []byte
}

// NewJWTResolver creates a resolver using the configured signing key.
func NewJWTResolver() *JWTResolver {
	return &JWTResolver{
		signingKey: []byte(config.Config().Auth.TokenSigningKey),
	}
}

// Resolve validates the token signature and expiry and extracts the user id
// and role claims.
func (j *JWTResolver) Resolve(ctx context.Context, token string) (*yaricommon.UserContext, apperrors.Error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken.Err(err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrMissingClaims
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, ErrMissingClaims.Msg("missing subject claim")
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return nil, ErrMissingClaims.Msg("subject is not a valid user id")
	}

	role := yaricommon.RoleUser
	if r, ok := claims["role"].(string); ok && r != "" {
		role = yaricommon.Role(r)
	}

	return &yaricommon.UserContext{UserID: userID, Role: role}, nil
}

// CreateToken mints a signed bearer token for the given identity. Used by
// dev tooling and tests; production tokens come from the identity service.
func CreateToken(userID uuid.UUID, role yaricommon.Role, validity time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID.String(),
		"role": string(role),
		"iat":  jwt.NewNumericDate(now),
		"nbf":  jwt.NewNumericDate(now.Add(-2 * time.Minute)), // 2-minute skew buffer
		"exp":  jwt.NewNumericDate(now.Add(validity)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Config().Auth.TokenSigningKey))
}

// StaticResolver maps fixed tokens to identities. Test use only.
type StaticResolver struct {
	Tokens map[string]*yaricommon.UserContext
}

// Resolve looks the token up in the static table.
func (s *StaticResolver) Resolve(ctx context.Context, token string) (*yaricommon.UserContext, apperrors.Error) {
	if uc, ok := s.Tokens[token]; ok {
		return uc, nil
	}
	return nil, ErrInvalidToken
}
