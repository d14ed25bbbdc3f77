package countdown

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	apperrors "github.com/hubdash/hubdash/internal/errors"
	"github.com/hubdash/hubdash/internal/services/countdown/domain"
	"github.com/hubdash/hubdash/internal/services/countdown/storage"
)

type fakeWidgetStore struct {
	widgets map[string]storage.UserWidget
}

func (s *fakeWidgetStore) CreateUserWidget(_ context.Context, widget storage.UserWidget) error {
	if s.widgets == nil {
		s.widgets = make(map[string]storage.UserWidget)
	}
	s.widgets[widget.UserID+"/"+widget.InstanceID] = widget
	return nil
}

func (s *fakeWidgetStore) GetUserWidget(_ context.Context, userID, instanceID string) (storage.UserWidget, error) {
	widget, ok := s.widgets[userID+"/"+instanceID]
	if !ok {
		return storage.UserWidget{}, storage.ErrNotFound
	}
	return widget, nil
}

type fakeResolver struct {
	pair       domain.ResolvedPair
	resolveErr error
	capHours   int64
	capErr     error
	calls      int
}

func (r *fakeResolver) ResolveProvider(context.Context, string, time.Time) (domain.ResolvedPair, error) {
	r.calls++
	if r.resolveErr != nil {
		return domain.ResolvedPair{}, r.resolveErr
	}
	return r.pair, nil
}

func (r *fakeResolver) PlausibleSpanCapHours(string) (int64, error) {
	if r.capErr != nil {
		return 0, r.capErr
	}
	return r.capHours, nil
}

func newTestService(t *testing.T, widgets *fakeWidgetStore, r *fakeResolver, now time.Time) *Service {
	t.Helper()
	return NewService(widgets, r, time.UTC, WithClock(func() time.Time { return now }))
}

func seedWidget(t *testing.T, store *fakeWidgetStore, userID, instanceID, settings string) {
	t.Helper()
	err := store.CreateUserWidget(context.Background(), storage.UserWidget{
		UserID:     userID,
		InstanceID: instanceID,
		Kind:       "countdown",
		Settings:   json.RawMessage(settings),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestResolveMissingWidget(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, &fakeWidgetStore{}, &fakeResolver{}, time.Now())
	_, err := svc.Resolve(context.Background(), "alice", "missing")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("err = %v, want not-found kind", err)
	}
}

func TestResolveWidgetOwnedByAnotherUser(t *testing.T) {
	t.Parallel()

	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"fixed-date","targetIso":"2026-12-24T17:00:00Z"}`)

	svc := newTestService(t, store, &fakeResolver{}, time.Now())
	_, err := svc.Resolve(context.Background(), "bob", "w1")
	if !apperrors.IsKind(err, apperrors.KindNotFound) {
		t.Fatalf("err = %v, want not-found kind", err)
	}
}

func TestResolveFixedDate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	target := time.Date(2026, time.December, 24, 17, 0, 0, 0, time.UTC)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"fixed-date","targetIso":"2026-12-24T17:00:00Z"}`)

	svc := newTestService(t, store, &fakeResolver{}, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Next == nil || !result.Next.Equal(target) {
		t.Errorf("next = %v, want %v", result.Next, target)
	}
	if result.Previous != nil {
		t.Errorf("previous = %v, want nil", result.Previous)
	}
	if result.Ongoing {
		t.Error("ongoing = true without a previous bound")
	}
	if !result.Now.Equal(now) {
		t.Errorf("now = %v, want %v", result.Now, now)
	}
}

func TestResolveFixedDateInThePast(t *testing.T) {
	t.Parallel()

	// A passed fixed target is still reported; the caller renders "0 days".
	now := time.Date(2026, time.June, 1, 10, 0, 0, 0, time.UTC)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"fixed-date","targetIso":"2026-01-01T00:00:00Z"}`)

	svc := newTestService(t, store, &fakeResolver{}, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	if result.Next == nil || !result.Next.Equal(want) {
		t.Errorf("next = %v, want %v", result.Next, want)
	}
}

func TestResolveMonthlyRule(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"monthly-rule","dayOfMonth":15,"time":"09:30"}`)

	svc := newTestService(t, store, &fakeResolver{}, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := time.Date(2026, time.March, 15, 9, 30, 0, 0, time.UTC)
	if result.Next == nil || !result.Next.Equal(want) {
		t.Errorf("next = %v, want %v", result.Next, want)
	}
	if result.Ongoing {
		t.Error("ongoing = true for a monthly rule without previous")
	}
}

func TestResolveProviderWidget(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	next := now.Add(2 * time.Hour)
	previous := now.Add(-2 * time.Hour)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"provider","provider":"sale"}`)
	r := &fakeResolver{
		pair:     domain.ResolvedPair{Next: &next, Previous: &previous},
		capHours: 240,
	}

	svc := newTestService(t, store, r, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Next == nil || !result.Next.Equal(next) {
		t.Errorf("next = %v, want %v", result.Next, next)
	}
	if !result.Ongoing {
		t.Error("ongoing = false for an instant inside the provider window")
	}
	if r.calls != 1 {
		t.Errorf("resolver calls = %d, want 1", r.calls)
	}
}

func TestResolveProviderWidgetUsesProviderCap(t *testing.T) {
	t.Parallel()

	// The 100h span is implausible under the default 72h cap but fine under
	// the provider's 240h cap.
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	next := now.Add(50 * time.Hour)
	previous := now.Add(-50 * time.Hour)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"provider","provider":"long-sale"}`)
	r := &fakeResolver{
		pair:     domain.ResolvedPair{Next: &next, Previous: &previous},
		capHours: 240,
	}

	svc := newTestService(t, store, r, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !result.Ongoing {
		t.Error("ongoing = false, want true under the provider-specific cap")
	}
}

func TestResolveProviderWidgetCapLookupFallsBack(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	next := now.Add(50 * time.Hour)
	previous := now.Add(-50 * time.Hour)
	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"provider","provider":"sale"}`)
	r := &fakeResolver{
		pair:   domain.ResolvedPair{Next: &next, Previous: &previous},
		capErr: apperrors.Errorf(apperrors.KindUnknownProvider, "unknown provider: sale"),
	}

	svc := newTestService(t, store, r, now)
	result, err := svc.Resolve(context.Background(), "alice", "w1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if result.Ongoing {
		t.Error("ongoing = true, want false under the default cap fallback")
	}
}

func TestResolveUnknownProviderPropagates(t *testing.T) {
	t.Parallel()

	store := &fakeWidgetStore{}
	seedWidget(t, store, "alice", "w1", `{"source":"provider","provider":"nope"}`)
	r := &fakeResolver{
		resolveErr: apperrors.Errorf(apperrors.KindUnknownProvider, "unknown provider: nope"),
	}

	svc := newTestService(t, store, r, time.Now())
	_, err := svc.Resolve(context.Background(), "alice", "w1")
	if !apperrors.IsKind(err, apperrors.KindUnknownProvider) {
		t.Fatalf("err = %v, want unknown-provider kind", err)
	}
}

func TestResolveUnrecognizedSettings(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		settings string
	}{
		{"unknown source", `{"source":"lunar-phase"}`},
		{"malformed json", `{"source":`},
		{"empty object", `{}`},
		{"provider without id", `{"source":"provider"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeWidgetStore{}
			seedWidget(t, store, "alice", "w1", test.settings)
			r := &fakeResolver{}

			svc := newTestService(t, store, r, now)
			result, err := svc.Resolve(context.Background(), "alice", "w1")
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if result.Next != nil || result.Previous != nil || result.Ongoing {
				t.Errorf("result = %+v, want empty countdown", result)
			}
			if r.calls != 0 {
				t.Errorf("resolver calls = %d, want 0", r.calls)
			}
		})
	}
}

func TestResolveProviderDirect(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	next := now.Add(time.Hour)
	previous := now.Add(-time.Hour)
	r := &fakeResolver{
		pair:     domain.ResolvedPair{Next: &next, Previous: &previous},
		capHours: 72,
	}

	svc := newTestService(t, &fakeWidgetStore{}, r, now)
	result, err := svc.ResolveProvider(context.Background(), "sale")
	if err != nil {
		t.Fatalf("resolve provider: %v", err)
	}
	if result.Next == nil || !result.Next.Equal(next) {
		t.Errorf("next = %v, want %v", result.Next, next)
	}
	if !result.Ongoing {
		t.Error("ongoing = false inside window")
	}
}

func TestResolveProviderDirectUnknown(t *testing.T) {
	t.Parallel()

	r := &fakeResolver{
		resolveErr: apperrors.Errorf(apperrors.KindUnknownProvider, "unknown provider: nope"),
	}
	svc := newTestService(t, &fakeWidgetStore{}, r, time.Now())
	if _, err := svc.ResolveProvider(context.Background(), "nope"); !apperrors.IsKind(err, apperrors.KindUnknownProvider) {
		t.Fatalf("err = %v, want unknown-provider kind", err)
	}
}
