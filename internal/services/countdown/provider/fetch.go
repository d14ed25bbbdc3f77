package provider

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// maxPageBytes caps how much of a scraped page is read.
const maxPageBytes = 4 << 20

var norwegianMonths = map[string]time.Month{
	"januar":    time.January,
	"februar":   time.February,
	"mars":      time.March,
	"april":     time.April,
	"mai":       time.May,
	"juni":      time.June,
	"juli":      time.July,
	"august":    time.August,
	"september": time.September,
	"oktober":   time.October,
	"november":  time.November,
	"desember":  time.December,
}

// fetchPageText retrieves url and reduces it to plain text. Any transport or
// status failure yields ok=false; providers translate that into "no data".
func fetchPageText(ctx context.Context, client *http.Client, url string) (string, bool) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Charset", "utf-8")

	resp, err := client.Do(req)
	if err != nil {
		log.Printf("provider fetch %s: %v", url, err)
		return "", false
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("provider fetch %s: status %d", url, resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		log.Printf("provider fetch %s: read body: %v", url, err)
		return "", false
	}
	return htmlToText(string(body)), true
}

func parseNorwegianMonth(name string) (time.Month, bool) {
	month, ok := norwegianMonths[strings.ToLower(strings.TrimSpace(name))]
	return month, ok
}
