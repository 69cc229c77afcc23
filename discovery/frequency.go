package discovery

import (
	"math"
	"strings"
	"time"

	"github.com/marketlyhq/contentscout/types"
)

// Layouts tried against the loosely-formatted date strings that feeds
// and scraped pages expose.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"02 Jan 2006",
}

func parseItemDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EstimatePostsPerMonth derives a posting cadence (posts per 30-day
// interval) from item dates. This is a simple rate estimator, not a
// seasonality model: unparseable dates are discarded, fewer than two
// valid dates degrade to a 1-or-0 answer, and a same-day burst returns
// the raw item count rather than dividing by a near-zero span.
func EstimatePostsPerMonth(items []types.DiscoveryItem) float64 {
	dates := make([]time.Time, 0, len(items))
	for _, item := range items {
		if t, ok := parseItemDate(item.Date); ok {
			dates = append(dates, t)
		}
	}

	if len(dates) < 2 {
		if len(items) > 0 {
			return 1
		}
		return 0
	}

	oldest, newest := dates[0], dates[0]
	for _, d := range dates[1:] {
		if d.Before(oldest) {
			oldest = d
		}
		if d.After(newest) {
			newest = d
		}
	}

	spanDays := newest.Sub(oldest).Hours() / 24
	if spanDays < 1 {
		return float64(len(items))
	}

	rate := float64(len(dates)) / math.Max(spanDays/30, 1)
	return math.Round(rate*10) / 10
}
