package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorMessageFallsBackToKind(t *testing.T) {
	t.Parallel()

	err := E(KindNotFound, "")
	if err.Error() != "not_found" {
		t.Fatalf("message = %q, want %q", err.Error(), "not_found")
	}
}

func TestErrorfWrapsCause(t *testing.T) {
	t.Parallel()

	cause := stderrors.New("row missing")
	err := Errorf(KindNotFound, "widget lookup: %w", cause)
	if !stderrors.Is(err, cause) {
		t.Fatalf("expected wrapped cause to survive errors.Is")
	}
	if GetKind(err) != KindNotFound {
		t.Fatalf("kind = %q, want %q", GetKind(err), KindNotFound)
	}
}

func TestGetKindThroughWrapping(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("resolve: %w", E(KindUnknownProvider, "unknown provider: nope"))
	if GetKind(err) != KindUnknownProvider {
		t.Fatalf("kind = %q, want %q", GetKind(err), KindUnknownProvider)
	}
	if !IsKind(err, KindUnknownProvider) {
		t.Fatal("expected IsKind to match through wrapping")
	}
}

func TestGetKindDefaultsToUnknown(t *testing.T) {
	t.Parallel()

	if GetKind(stderrors.New("plain")) != KindUnknown {
		t.Fatal("plain errors should map to KindUnknown")
	}
}

func TestHTTPStatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{E(KindInvalidInput, "bad id"), http.StatusBadRequest},
		{E(KindUnknownProvider, "unknown provider"), http.StatusBadRequest},
		{E(KindUnauthorized, "no token"), http.StatusUnauthorized},
		{E(KindForbidden, "admin only"), http.StatusForbidden},
		{E(KindNotFound, "missing"), http.StatusNotFound},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		if got := HTTPStatus(tc.err); got != tc.want {
			t.Fatalf("HTTPStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
