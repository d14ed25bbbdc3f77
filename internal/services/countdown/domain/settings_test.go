package domain

import (
	"testing"
	"time"
)

func TestParseSettingsFixedDate(t *testing.T) {
	t.Parallel()

	got := ParseSettings([]byte(`{"source":"fixed-date","targetIso":"2026-06-01T12:00:00Z"}`))
	if got.Kind != SourceFixedDate {
		t.Fatalf("kind = %q, want %q", got.Kind, SourceFixedDate)
	}
	want := time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	if !got.TargetAt.Equal(want) {
		t.Fatalf("target = %v, want %v", got.TargetAt, want)
	}
}

func TestParseSettingsMonthlyRule(t *testing.T) {
	t.Parallel()

	got := ParseSettings([]byte(`{"source":"monthly-rule","time":"09:15","byWeekday":"fr","bySetPos":-1}`))
	if got.Kind != SourceMonthlyRule {
		t.Fatalf("kind = %q, want %q", got.Kind, SourceMonthlyRule)
	}
	if got.Monthly.TimeOfDay != "09:15" {
		t.Fatalf("time = %q, want %q", got.Monthly.TimeOfDay, "09:15")
	}
	if got.Monthly.Weekday == nil || *got.Monthly.Weekday != time.Friday {
		t.Fatalf("weekday = %v, want Friday", got.Monthly.Weekday)
	}
	if got.Monthly.SetPos == nil || *got.Monthly.SetPos != -1 {
		t.Fatalf("set pos = %v, want -1", got.Monthly.SetPos)
	}
}

func TestParseSettingsProvider(t *testing.T) {
	t.Parallel()

	got := ParseSettings([]byte(`{"source":"provider","provider":"trippel-trumf"}`))
	if got.Kind != SourceProvider {
		t.Fatalf("kind = %q, want %q", got.Kind, SourceProvider)
	}
	if got.ProviderID != "trippel-trumf" {
		t.Fatalf("provider = %q, want %q", got.ProviderID, "trippel-trumf")
	}
}

func TestParseSettingsToleratesGarbage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"malformed json", `{"source":`},
		{"unknown source", `{"source":"lunar-phase"}`},
		{"fixed date without target", `{"source":"fixed-date"}`},
		{"fixed date with bad target", `{"source":"fixed-date","targetIso":"tomorrow"}`},
		{"provider without id", `{"source":"provider","provider":"  "}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ParseSettings([]byte(tc.blob))
			if got.Kind != SourceUnrecognized {
				t.Fatalf("kind = %q, want %q", got.Kind, SourceUnrecognized)
			}
		})
	}
}
