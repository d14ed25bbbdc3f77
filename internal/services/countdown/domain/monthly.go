package domain

import (
	"strconv"
	"strings"
	"time"
)

// defaultTimeOfDay is used when a monthly rule has no time field.
const defaultTimeOfDay = "08:00"

// NextMonthlyOccurrence computes the next occurrence of rule strictly after
// now in the given zone. Day-of-month rules clamp to the length of the target
// month (31 in February resolves to the 28th or 29th). Weekday rules pick the
// Nth matching weekday, counting from the end when SetPos is negative. The
// second return value is false when the rule is under-specified or no
// candidate exists.
func NextMonthlyOccurrence(now time.Time, rule MonthlyRule, zone *time.Location) (time.Time, bool) {
	if zone == nil {
		zone = time.UTC
	}
	zonedNow := now.In(zone)

	hour, minute, ok := parseTimeOfDay(rule.TimeOfDay)
	if !ok {
		return time.Time{}, false
	}

	candidate, ok := candidateInMonth(zonedNow, hour, minute, rule)
	if !ok || !candidate.After(zonedNow) {
		// First of the following month; AddDate would skip short months
		// when now is late in a long one.
		nextMonth := time.Date(zonedNow.Year(), zonedNow.Month()+1, 1, 0, 0, 0, 0, zone)
		candidate, ok = candidateInMonth(nextMonth, hour, minute, rule)
		if !ok {
			return time.Time{}, false
		}
	}
	if !candidate.After(zonedNow) {
		return time.Time{}, false
	}
	return candidate, true
}

func parseTimeOfDay(value string) (hour, minute int, ok bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		value = defaultTimeOfDay
	}
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, false
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func candidateInMonth(base time.Time, hour, minute int, rule MonthlyRule) (time.Time, bool) {
	year, month := base.Year(), base.Month()
	zone := base.Location()

	if rule.DayOfMonth != nil {
		day := *rule.DayOfMonth
		if day < 1 {
			day = 1
		}
		if last := lengthOfMonth(year, month); day > last {
			day = last
		}
		return time.Date(year, month, day, hour, minute, 0, 0, zone), true
	}

	if rule.Weekday != nil && rule.SetPos != nil {
		var matches []int
		last := lengthOfMonth(year, month)
		for day := 1; day <= last; day++ {
			if time.Date(year, month, day, 0, 0, 0, 0, zone).Weekday() == *rule.Weekday {
				matches = append(matches, day)
			}
		}
		pos := *rule.SetPos
		var picked int
		switch {
		case pos > 0 && pos <= len(matches):
			picked = matches[pos-1]
		case pos < 0 && -pos <= len(matches):
			picked = matches[len(matches)+pos]
		default:
			return time.Time{}, false
		}
		return time.Date(year, month, picked, hour, minute, 0, 0, zone), true
	}

	return time.Time{}, false
}

func lengthOfMonth(year int, month time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
