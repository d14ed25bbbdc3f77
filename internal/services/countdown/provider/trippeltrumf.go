package provider

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

const trippelTrumfID = "trippel-trumf"
const trippelTrumfURL = "https://www.trumf.no/trippel-trumf"

// The campaign day is always announced as a Thursday, e.g. "Torsdag 21. august".
var trippelTrumfDatePattern = regexp.MustCompile(`(?i)torsdag\s+(\d{1,2})\.?\s*([a-zæøå]+)`)

// TrippelTrumf scrapes the Trumf campaign page for the next "Trippel Trumf"
// day and reports it as an instant at start of day in the configured zone.
type TrippelTrumf struct {
	Defaults
	client *http.Client
	zone   *time.Location
	url    string
}

// NewTrippelTrumf creates the provider with the given HTTP client and zone.
func NewTrippelTrumf(client *http.Client, zone *time.Location) *TrippelTrumf {
	if zone == nil {
		zone = time.UTC
	}
	return &TrippelTrumf{client: client, zone: zone, url: trippelTrumfURL}
}

// ID implements Provider.
func (p *TrippelTrumf) ID() string {
	return trippelTrumfID
}

// Next returns the announced campaign day when it lies after now.
func (p *TrippelTrumf) Next(ctx context.Context, now time.Time) (time.Time, bool) {
	announced, ok := p.scrapeAnnouncedDay(ctx, now)
	if !ok {
		return time.Time{}, false
	}
	if !announced.After(now) {
		return time.Time{}, false
	}
	return announced, true
}

// Previous returns the announced campaign day when it lies before now.
func (p *TrippelTrumf) Previous(ctx context.Context, now time.Time) (time.Time, bool) {
	announced, ok := p.scrapeAnnouncedDay(ctx, now)
	if !ok {
		return time.Time{}, false
	}
	if !announced.Before(now) {
		return time.Time{}, false
	}
	return announced, true
}

// SourceURL implements Provider.
func (p *TrippelTrumf) SourceURL() string {
	return p.url
}

// scrapeAnnouncedDay fetches the campaign page and extracts the announced
// date. The page never mentions a year, so the year is taken from now in the
// provider's zone.
func (p *TrippelTrumf) scrapeAnnouncedDay(ctx context.Context, now time.Time) (time.Time, bool) {
	text, ok := fetchPageText(ctx, p.client, p.url)
	if !ok {
		return time.Time{}, false
	}
	match := trippelTrumfDatePattern.FindStringSubmatch(text)
	if match == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(match[1])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := parseNorwegianMonth(match[2])
	if !ok {
		return time.Time{}, false
	}
	year := now.In(p.zone).Year()
	return time.Date(year, month, day, 0, 0, 0, 0, p.zone), true
}
