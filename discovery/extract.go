package discovery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marketlyhq/contentscout/types"
)

const (
	minTitleChars = 5
	maxTitleChars = 300
)

// Extractor turns one page fragment into a post candidate. It is a
// narrow seam so the heuristics can be tuned without touching the
// discovery-chain control flow.
type Extractor interface {
	Extract(sel *goquery.Selection, base *url.URL) (types.DiscoveryItem, bool)
}

// heuristicExtractor is the default best-effort implementation: title
// from the first heading or link, date from a time-marked or
// date-classed element, link resolved to an absolute URL.
type heuristicExtractor struct{}

func (heuristicExtractor) Extract(sel *goquery.Selection, base *url.URL) (types.DiscoveryItem, bool) {
	title := candidateTitle(sel)
	if title == "" {
		return types.DiscoveryItem{}, false
	}
	return types.DiscoveryItem{
		Title: title,
		Date:  candidateDate(sel),
		URL:   candidateLink(sel, base),
	}, true
}

func candidateTitle(sel *goquery.Selection) string {
	for _, heading := range []string{"h1", "h2", "h3", "h4"} {
		if text := collapseText(sel.Find(heading).First().Text()); acceptableTitle(text) {
			return text
		}
	}
	if text := collapseText(sel.Find("a").First().Text()); acceptableTitle(text) {
		return text
	}
	return ""
}

func acceptableTitle(text string) bool {
	return len(text) >= minTitleChars && len(text) <= maxTitleChars
}

func candidateDate(sel *goquery.Selection) string {
	timeEl := sel.Find("time").First()
	if dt, ok := timeEl.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return strings.TrimSpace(dt)
	}
	if text := collapseText(timeEl.Text()); text != "" {
		return text
	}
	if text := collapseText(sel.Find(`[class*="date"]`).First().Text()); text != "" {
		return text
	}
	return ""
}

func candidateLink(sel *goquery.Selection, base *url.URL) string {
	href, ok := sel.Find("a[href]").First().Attr("href")
	if !ok {
		return ""
	}
	return resolveHref(base, href)
}

func resolveHref(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}

func collapseText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
