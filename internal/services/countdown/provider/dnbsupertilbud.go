package provider

import (
	"context"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"
)

const dnbSupertilbudID = "dnb-supertilbud"
const dnbSupertilbudURL = "https://www.rabo.no/1336/dnb-supertilbud-2026-oversikt-over-neste-kampanjer/"

// dnbPlausibleWindowMaxHours is generous because campaigns can span a week or
// more.
const dnbPlausibleWindowMaxHours = 240

// Campaign windows appear as "21. august – 27. august" or "21 – 27. august".
var (
	dnbTwoMonthPattern = regexp.MustCompile(`(?i)(\d{1,2})\.?\s*([a-zæøå]+)\s*\p{Pd}\s*(\d{1,2})\.?\s*([a-zæøå]+)`)
	dnbOneMonthPattern = regexp.MustCompile(`(?i)(\d{1,2})\s*\p{Pd}\s*(\d{1,2})\.?\s*([a-zæøå]+)`)
)

// campaignWindow is one inclusive start/end day span.
type campaignWindow struct {
	start time.Time // start of day
	end   time.Time // start of the last day
}

// endExclusive is the first instant after the window.
func (w campaignWindow) endExclusive() time.Time {
	return w.end.AddDate(0, 0, 1)
}

func (w campaignWindow) contains(at time.Time) bool {
	return !at.Before(w.start) && at.Before(w.endExclusive())
}

// DNBSupertilbud scrapes a public overview of DNB "Supertilbud" campaign
// windows. Inside a window the next instant is the window end, so countdowns
// run toward the close of the ongoing campaign.
type DNBSupertilbud struct {
	Defaults
	client *http.Client
	zone   *time.Location
	url    string
}

// NewDNBSupertilbud creates the provider with the given HTTP client and zone.
func NewDNBSupertilbud(client *http.Client, zone *time.Location) *DNBSupertilbud {
	if zone == nil {
		zone = time.UTC
	}
	return &DNBSupertilbud{client: client, zone: zone, url: dnbSupertilbudURL}
}

// ID implements Provider.
func (p *DNBSupertilbud) ID() string {
	return dnbSupertilbudID
}

// Next returns the end of the ongoing window minus an epsilon, or the
// earliest upcoming window start.
func (p *DNBSupertilbud) Next(ctx context.Context, now time.Time) (time.Time, bool) {
	windows := p.scrapeWindows(ctx, now)
	for _, w := range windows {
		if w.contains(now) {
			return w.endExclusive().Add(-time.Millisecond), true
		}
	}
	for _, w := range windows {
		if !w.start.Before(now) {
			return w.start, true
		}
	}
	return time.Time{}, false
}

// Previous returns the most recent window start before now.
func (p *DNBSupertilbud) Previous(ctx context.Context, now time.Time) (time.Time, bool) {
	windows := p.scrapeWindows(ctx, now)
	var previous time.Time
	found := false
	for _, w := range windows {
		if w.start.Before(now) {
			previous = w.start
			found = true
		}
	}
	return previous, found
}

// ValidUntil returns the boundary of the currently relevant window: its end
// when ongoing, its start when still upcoming.
func (p *DNBSupertilbud) ValidUntil(ctx context.Context, now time.Time) (time.Time, bool) {
	for _, w := range p.scrapeWindows(ctx, now) {
		if w.contains(now) {
			return w.endExclusive(), true
		}
		if now.Before(w.start) {
			return w.start, true
		}
	}
	return time.Time{}, false
}

// SourceURL implements Provider.
func (p *DNBSupertilbud) SourceURL() string {
	return p.url
}

// PlausibleWindowMaxHours implements Provider.
func (p *DNBSupertilbud) PlausibleWindowMaxHours() int64 {
	return dnbPlausibleWindowMaxHours
}

// scrapeWindows fetches the overview page and extracts every campaign span,
// sorted by start. The page never mentions a year, so the year is taken from
// now in the provider's zone.
func (p *DNBSupertilbud) scrapeWindows(ctx context.Context, now time.Time) []campaignWindow {
	text, ok := fetchPageText(ctx, p.client, p.url)
	if !ok {
		return nil
	}
	year := now.In(p.zone).Year()

	var windows []campaignWindow
	for _, match := range dnbTwoMonthPattern.FindAllStringSubmatch(text, -1) {
		startDay, errA := strconv.Atoi(match[1])
		endDay, errB := strconv.Atoi(match[3])
		if errA != nil || errB != nil {
			continue
		}
		startMonth, okA := parseNorwegianMonth(match[2])
		endMonth, okB := parseNorwegianMonth(match[4])
		if !okA || !okB {
			continue
		}
		start := time.Date(year, startMonth, startDay, 0, 0, 0, 0, p.zone)
		end := time.Date(year, endMonth, endDay, 0, 0, 0, 0, p.zone)
		if !end.Before(start) {
			windows = append(windows, campaignWindow{start: start, end: end})
		}
	}
	for _, match := range dnbOneMonthPattern.FindAllStringSubmatch(text, -1) {
		startDay, errA := strconv.Atoi(match[1])
		endDay, errB := strconv.Atoi(match[2])
		if errA != nil || errB != nil {
			continue
		}
		month, ok := parseNorwegianMonth(match[3])
		if !ok {
			continue
		}
		start := time.Date(year, month, startDay, 0, 0, 0, 0, p.zone)
		end := time.Date(year, month, endDay, 0, 0, 0, 0, p.zone)
		if !end.Before(start) {
			windows = append(windows, campaignWindow{start: start, end: end})
		}
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].start.Before(windows[j].start)
	})
	return windows
}
