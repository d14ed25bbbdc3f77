// Package auth verifies bearer tokens for the countdown HTTP surface.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hubdash/hubdash/internal/errors"
	"github.com/hubdash/hubdash/internal/platform/httpx"
)

// RoleAdmin marks tokens allowed to use the administrative endpoints.
const RoleAdmin = "admin"

type contextKey string

const identityKey contextKey = "countdown-identity"

// Identity is the verified caller of a request.
type Identity struct {
	UserID string
	Role   string
}

// accessClaims is the internal claims type used for JWT parsing.
type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

// Verifier validates HS256 bearer tokens signed with a shared secret. The
// token's sub claim is the user id.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier over the shared signing secret.
func NewVerifier(secret []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("auth: signing secret is required")
	}
	return &Verifier{secret: secret}, nil
}

// VerifyToken parses and validates a compact JWT and returns the caller
// identity.
func (v *Verifier) VerifyToken(token string) (Identity, error) {
	var parsed accessClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(*jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
	)
	if err != nil {
		return Identity{}, mapJWTError(err)
	}
	if parsed.Subject == "" {
		return Identity{}, apperrors.E(apperrors.KindUnauthorized, "token has no subject")
	}
	return Identity{UserID: parsed.Subject, Role: parsed.Role}, nil
}

// Middleware authenticates requests and stores the caller identity in the
// request context.
func (v *Verifier) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, "missing bearer token"))
				return
			}
			identity, err := v.VerifyToken(token)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin rejects authenticated callers without the admin role. It must
// run after Middleware.
func RequireAdmin() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, "missing bearer token"))
				return
			}
			if identity.Role != RoleAdmin {
				httpx.WriteError(w, apperrors.E(apperrors.KindForbidden, "admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity stores the caller identity in the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFrom extracts the caller identity placed by Middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey).(Identity)
	return identity, ok
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		return apperrors.E(apperrors.KindUnauthorized, "token signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperrors.E(apperrors.KindUnauthorized, "token is expired")
	}
	return apperrors.E(apperrors.KindUnauthorized, "token is invalid")
}
