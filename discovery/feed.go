package discovery

import (
	"context"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/marketlyhq/contentscout/types"
)

const (
	defaultFeedTimeout = 8 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (compatible; ContentScout/1.0)"
	maxExcerptChars    = 280
)

// Conventional feed locations, tried in order after platform rewrites.
var commonFeedPaths = []string{
	"/feed",
	"/feed/",
	"/rss",
	"/rss.xml",
	"/blog/feed",
	"/blog/rss.xml",
	"/atom.xml",
	"/feed.xml",
	"/index.xml",
}

// Hosted platforms with a canonical feed location. Keyed by host
// suffix; the value rewrites the site URL into its feed URL.
var platformFeeds = map[string]func(*url.URL) string{
	"substack.com": func(u *url.URL) string {
		return u.Scheme + "://" + u.Host + "/feed"
	},
	"medium.com": func(u *url.URL) string {
		p := strings.TrimSuffix(u.Path, "/")
		if p == "" {
			return u.Scheme + "://" + u.Host + "/feed"
		}
		return u.Scheme + "://" + u.Host + "/feed" + p
	},
	"tumblr.com": func(u *url.URL) string {
		return u.Scheme + "://" + u.Host + "/rss"
	},
	"blogspot.com": func(u *url.URL) string {
		return u.Scheme + "://" + u.Host + "/feeds/posts/default?alt=rss"
	},
	"wordpress.com": func(u *url.URL) string {
		return u.Scheme + "://" + u.Host + "/feed/"
	},
	"ghost.io": func(u *url.URL) string {
		return u.Scheme + "://" + u.Host + "/rss/"
	},
}

var tagStripper = regexp.MustCompile(`<[^>]*>`)

// FeedFinder locates a structured feed for a site: platform heuristics
// first, then common-path probing, then <link rel="alternate">
// declarations on the base page. Every candidate attempt has its own
// timeout, and any failure just advances to the next candidate.
type FeedFinder struct {
	parser    *gofeed.Parser
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

type FeedOption func(*FeedFinder)

func WithFeedTimeout(timeout time.Duration) FeedOption {
	return func(f *FeedFinder) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

func WithFeedHTTPClient(client *http.Client) FeedOption {
	return func(f *FeedFinder) {
		if client != nil {
			f.client = client
			f.parser.Client = client
		}
	}
}

func NewFeedFinder(opts ...FeedOption) *FeedFinder {
	// No client-level Timeout; each candidate attempt gets its own
	// context deadline, so a configured timeout above the default is
	// honored.
	f := &FeedFinder{
		parser:    gofeed.NewParser(),
		client:    &http.Client{},
		timeout:   defaultFeedTimeout,
		userAgent: defaultUserAgent,
	}
	f.parser.UserAgent = f.userAgent
	f.parser.Client = f.client
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Discover returns the site's feed items and the feed URL that worked,
// or (nil, "") when every candidate is exhausted. It never returns an
// error: an unreachable host is just a site without a feed.
func (f *FeedFinder) Discover(ctx context.Context, siteURL string) ([]types.DiscoveryItem, string) {
	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || base.Host == "" {
		return nil, ""
	}

	for _, candidate := range f.platformCandidates(base) {
		if items, ok := f.tryFeed(ctx, candidate); ok {
			return items, candidate
		}
	}
	for _, candidate := range f.commonPathCandidates(base) {
		if items, ok := f.tryFeed(ctx, candidate); ok {
			return items, candidate
		}
	}
	for _, candidate := range f.declaredCandidates(ctx, base) {
		if items, ok := f.tryFeed(ctx, candidate); ok {
			return items, candidate
		}
	}
	return nil, ""
}

func (f *FeedFinder) platformCandidates(base *url.URL) []string {
	host := strings.ToLower(strings.TrimPrefix(base.Hostname(), "www."))
	for suffix, rewrite := range platformFeeds {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return []string{rewrite(base)}
		}
	}
	return nil
}

func (f *FeedFinder) commonPathCandidates(base *url.URL) []string {
	root := base.Scheme + "://" + base.Host
	out := make([]string, 0, len(commonFeedPaths))
	for _, p := range commonFeedPaths {
		out = append(out, root+p)
	}
	return out
}

// declaredCandidates fetches the base page and collects feed URLs from
// <link rel="alternate"> declarations, resolving relative and
// protocol-relative hrefs against the page's origin.
func (f *FeedFinder) declaredCandidates(ctx context.Context, base *url.URL) []string {
	fetchCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil
	}

	var out []string
	seen := map[string]bool{}
	doc.Find(`link[rel="alternate"], link[type="application/rss+xml"], link[type="application/atom+xml"]`).
		Each(func(_ int, sel *goquery.Selection) {
			feedType, _ := sel.Attr("type")
			if !strings.Contains(feedType, "rss") && !strings.Contains(feedType, "atom") &&
				!strings.Contains(feedType, "feed+json") {
				return
			}
			href, ok := sel.Attr("href")
			if !ok {
				return
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			resolved := base.ResolveReference(ref).String()
			if !seen[resolved] {
				seen[resolved] = true
				out = append(out, resolved)
			}
		})
	return out
}

// tryFeed parses one candidate feed URL. Success requires at least one
// item; every failure is swallowed so the chain can continue.
func (f *FeedFinder) tryFeed(ctx context.Context, feedURL string) ([]types.DiscoveryItem, bool) {
	parseCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, parseCtx)
	if err != nil || feed == nil || len(feed.Items) == 0 {
		return nil, false
	}

	items := make([]types.DiscoveryItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		items = append(items, feedItem(it))
	}
	return items, true
}

func feedItem(it *gofeed.Item) types.DiscoveryItem {
	out := types.DiscoveryItem{
		Title: strings.TrimSpace(it.Title),
		URL:   strings.TrimSpace(it.Link),
	}
	switch {
	case it.PublishedParsed != nil:
		out.Date = it.PublishedParsed.UTC().Format(time.RFC3339)
	case it.Published != "":
		out.Date = it.Published
	case it.UpdatedParsed != nil:
		out.Date = it.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		out.Date = it.Updated
	}
	if excerpt := strings.TrimSpace(tagStripper.ReplaceAllString(it.Description, " ")); excerpt != "" {
		excerpt = strings.Join(strings.Fields(html.UnescapeString(excerpt)), " ")
		if len(excerpt) > maxExcerptChars {
			excerpt = truncateRunes(excerpt, maxExcerptChars)
		}
		out.Excerpt = excerpt
	}
	if it.Author != nil && it.Author.Name != "" {
		out.Author = it.Author.Name
	} else if len(it.Authors) > 0 && it.Authors[0] != nil {
		out.Author = it.Authors[0].Name
	}
	return out
}
