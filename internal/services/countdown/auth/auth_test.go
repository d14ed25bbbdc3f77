package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/hubdash/hubdash/internal/errors"
)

var testSecret = []byte("countdown-test-secret")

func signToken(t *testing.T, secret []byte, subject, role string, expiresAt time.Time) string {
	t.Helper()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewVerifier(nil); err == nil {
		t.Fatal("want error for empty secret")
	}
}

func TestVerifyToken(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	token := signToken(t, testSecret, "alice", RoleAdmin, time.Now().Add(time.Hour))

	identity, err := verifier.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.UserID != "alice" {
		t.Errorf("user id = %q, want alice", identity.UserID)
	}
	if identity.Role != RoleAdmin {
		t.Errorf("role = %q, want admin", identity.Role)
	}
}

func TestVerifyTokenFailures(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", signToken(t, []byte("other-secret"), "alice", "", time.Now().Add(time.Hour))},
		{"expired", signToken(t, testSecret, "alice", "", time.Now().Add(-time.Hour))},
		{"no subject", signToken(t, testSecret, "", "", time.Now().Add(time.Hour))},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if _, err := verifier.VerifyToken(test.token); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
				t.Fatalf("err = %v, want unauthorized kind", err)
			}
		})
	}
}

func TestVerifyTokenRejectsUnexpectedAlgorithm(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := verifier.VerifyToken(unsigned); !apperrors.IsKind(err, apperrors.KindUnauthorized) {
		t.Fatalf("err = %v, want unauthorized kind", err)
	}
}

func TestMiddlewareInjectsIdentity(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	var seen Identity
	handler := verifier.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			t.Error("identity missing from request context")
		}
		seen = identity
		w.WriteHeader(http.StatusNoContent)
	}))

	request := httptest.NewRequest(http.MethodGet, "/api/widgets/countdown", nil)
	request.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "alice", "", time.Now().Add(time.Hour)))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204: %s", recorder.Code, recorder.Body.String())
	}
	if seen.UserID != "alice" {
		t.Errorf("user id = %q, want alice", seen.UserID)
	}
}

func TestMiddlewareRejectsMissingAndBadTokens(t *testing.T) {
	t.Parallel()

	verifier, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	handler := verifier.Middleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached without valid token")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"invalid token", "Bearer not-a-token"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if test.header != "" {
				request.Header.Set("Authorization", test.header)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			if recorder.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", recorder.Code)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("admin passes", func(t *testing.T) {
		t.Parallel()

		request := httptest.NewRequest(http.MethodPut, "/", nil)
		request = request.WithContext(WithIdentity(request.Context(), Identity{UserID: "root", Role: RoleAdmin}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", recorder.Code)
		}
	})

	t.Run("plain user forbidden", func(t *testing.T) {
		t.Parallel()

		request := httptest.NewRequest(http.MethodPut, "/", nil)
		request = request.WithContext(WithIdentity(request.Context(), Identity{UserID: "alice"}))
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		if recorder.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", recorder.Code)
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		t.Parallel()

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodPut, "/", nil))
		if recorder.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", recorder.Code)
		}
	})
}
