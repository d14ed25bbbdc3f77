// Package domain holds the countdown source model and pure calculations.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// SourceKind discriminates the configured countdown time source.
type SourceKind string

const (
	SourceFixedDate    SourceKind = "fixed-date"
	SourceMonthlyRule  SourceKind = "monthly-rule"
	SourceProvider     SourceKind = "provider"
	SourceUnrecognized SourceKind = "unrecognized"
)

// Settings is the parsed countdown configuration of a widget. Exactly the
// variant matching Kind is populated; anything unknown or malformed parses to
// SourceUnrecognized because a widget without a target is a valid state.
type Settings struct {
	Kind       SourceKind
	TargetAt   time.Time   // SourceFixedDate
	Monthly    MonthlyRule // SourceMonthlyRule
	ProviderID string      // SourceProvider
}

// MonthlyRule describes one occurrence per month, either by day of month or
// by the Nth weekday. A negative SetPos counts from the end of the month.
type MonthlyRule struct {
	TimeOfDay  string
	DayOfMonth *int
	Weekday    *time.Weekday
	SetPos     *int
}

// rawSettings mirrors the stored JSON shape of countdown widget settings.
type rawSettings struct {
	Source     string `json:"source"`
	TargetIso  string `json:"targetIso"`
	Time       string `json:"time"`
	DayOfMonth *int   `json:"dayOfMonth"`
	ByWeekday  string `json:"byWeekday"`
	BySetPos   *int   `json:"bySetPos"`
	Provider   string `json:"provider"`
}

var weekdayCodes = map[string]time.Weekday{
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
	"SU": time.Sunday,
}

// ParseSettings interprets a widget's opaque settings blob. It never fails:
// malformed JSON, unknown sources and unusable field combinations all map to
// SourceUnrecognized.
func ParseSettings(blob json.RawMessage) Settings {
	var raw rawSettings
	if len(blob) == 0 || json.Unmarshal(blob, &raw) != nil {
		return Settings{Kind: SourceUnrecognized}
	}

	switch strings.TrimSpace(raw.Source) {
	case string(SourceFixedDate):
		target, err := time.Parse(time.RFC3339, strings.TrimSpace(raw.TargetIso))
		if err != nil {
			return Settings{Kind: SourceUnrecognized}
		}
		return Settings{Kind: SourceFixedDate, TargetAt: target}
	case string(SourceMonthlyRule):
		rule := MonthlyRule{
			TimeOfDay:  strings.TrimSpace(raw.Time),
			DayOfMonth: raw.DayOfMonth,
			SetPos:     raw.BySetPos,
		}
		if code := strings.ToUpper(strings.TrimSpace(raw.ByWeekday)); code != "" {
			if weekday, ok := weekdayCodes[code]; ok {
				rule.Weekday = &weekday
			}
		}
		return Settings{Kind: SourceMonthlyRule, Monthly: rule}
	case string(SourceProvider):
		providerID := strings.TrimSpace(raw.Provider)
		if providerID == "" {
			return Settings{Kind: SourceUnrecognized}
		}
		return Settings{Kind: SourceProvider, ProviderID: providerID}
	default:
		return Settings{Kind: SourceUnrecognized}
	}
}
