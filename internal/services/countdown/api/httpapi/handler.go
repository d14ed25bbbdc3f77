// Package httpapi exposes countdown resolution over a thin JSON HTTP surface.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/hubdash/hubdash/internal/errors"
	"github.com/hubdash/hubdash/internal/platform/httpx"
	"github.com/hubdash/hubdash/internal/services/countdown"
	"github.com/hubdash/hubdash/internal/services/countdown/auth"
	"github.com/hubdash/hubdash/internal/services/countdown/storage"
)

// CountdownService is the resolution surface the handlers need.
type CountdownService interface {
	Resolve(ctx context.Context, userID, instanceID string) (countdown.Result, error)
	ResolveProvider(ctx context.Context, providerID string) (countdown.Result, error)
}

// ProviderChecker validates provider ids before administrative writes.
type ProviderChecker interface {
	PlausibleSpanCapHours(providerID string) (int64, error)
}

// Handler serves the countdown JSON API.
type Handler struct {
	service   CountdownService
	overrides storage.ProviderCacheStore
	providers ProviderChecker
}

// NewHandler wires the countdown HTTP handlers.
func NewHandler(service CountdownService, overrides storage.ProviderCacheStore, providers ProviderChecker) *Handler {
	return &Handler{service: service, overrides: overrides, providers: providers}
}

// Register mounts all countdown routes on mux. Every route requires a bearer
// token; the provider refresh and override routes additionally require the
// admin role.
func (h *Handler) Register(mux *http.ServeMux, verifier *auth.Verifier) {
	authed := verifier.Middleware()
	admin := func(handler http.Handler) http.Handler {
		return httpx.Chain(handler, authed, auth.RequireAdmin())
	}

	mux.Handle("GET /api/widgets/countdown", authed(http.HandlerFunc(h.resolveWidget)))
	mux.Handle("POST /api/countdown/providers/{id}/refresh", admin(http.HandlerFunc(h.refreshProvider)))
	mux.Handle("PUT /api/admin/countdown/providers/{id}/override", admin(http.HandlerFunc(h.setOverride)))
	mux.Handle("DELETE /api/admin/countdown/providers/{id}/override", admin(http.HandlerFunc(h.clearOverride)))
}

// countdownEnvelope is the wire shape of a resolved countdown.
type countdownEnvelope struct {
	NowIso      string  `json:"nowIso"`
	NextIso     *string `json:"nextIso"`
	PreviousIso *string `json:"previousIso"`
	Ongoing     bool    `json:"ongoing"`
}

func envelopeFrom(result countdown.Result) countdownEnvelope {
	return countdownEnvelope{
		NowIso:      result.Now.UTC().Format(time.RFC3339),
		NextIso:     isoPtr(result.Next),
		PreviousIso: isoPtr(result.Previous),
		Ongoing:     result.Ongoing,
	}
}

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	formatted := t.UTC().Format(time.RFC3339)
	return &formatted
}

func (h *Handler) resolveWidget(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, apperrors.E(apperrors.KindUnauthorized, "missing bearer token"))
		return
	}

	instanceID := r.URL.Query().Get("instanceId")
	if _, err := uuid.Parse(instanceID); err != nil {
		httpx.WriteError(w, apperrors.Errorf(apperrors.KindInvalidInput, "instanceId must be a UUID: %q", instanceID))
		return
	}

	result, err := h.service.Resolve(httpx.RequestContext(r), identity.UserID, instanceID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, envelopeFrom(result))
}

func (h *Handler) refreshProvider(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	result, err := h.service.ResolveProvider(httpx.RequestContext(r), providerID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, envelopeFrom(result))
}

// overrideRequest is the administrative override payload.
type overrideRequest struct {
	NextIso string `json:"nextIso"`
	Reason  string `json:"reason"`
}

func (h *Handler) setOverride(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if _, err := h.providers.PlausibleSpanCapHours(providerID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	var payload overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.WriteError(w, apperrors.E(apperrors.KindInvalidInput, "request body must be JSON"))
		return
	}
	nextAt, err := time.Parse(time.RFC3339, payload.NextIso)
	if err != nil {
		httpx.WriteError(w, apperrors.Errorf(apperrors.KindInvalidInput, "nextIso must be RFC 3339: %q", payload.NextIso))
		return
	}

	if err := h.overrides.SetManualOverride(httpx.RequestContext(r), providerID, nextAt, payload.Reason); err != nil {
		httpx.WriteError(w, fmt.Errorf("set override: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearOverride(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("id")
	if _, err := h.providers.PlausibleSpanCapHours(providerID); err != nil {
		httpx.WriteError(w, err)
		return
	}

	if err := h.overrides.ClearManualOverride(httpx.RequestContext(r), providerID); err != nil {
		httpx.WriteError(w, fmt.Errorf("clear override: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
