package discovery

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/marketlyhq/contentscout/types"
)

const (
	defaultPageTimeout   = 12 * time.Second
	defaultTruncateChars = 5000
	defaultMaxPosts      = 15
	maxBodyBytes         = 5 * 1024 * 1024
	truncationMarker     = "... (truncated)"
)

// Index paths tried after the bare URL when scraping a site for posts.
var contentIndexPaths = []string{"/blog", "/articles", "/resources", "/news"}

// Article-like containers, scanned in priority order.
var postSelectors = []string{
	"article",
	`[class*="post-item"]`,
	`[class*="blog-post"]`,
	`[class*="post"]`,
	`[class*="article"]`,
	".entry",
	`li[class*="blog"]`,
	`[class*="card"]`,
}

// Elements stripped before extracting page text.
var strippedSelectors = []string{
	"script", "style", "noscript", "iframe", "svg", "nav", "footer",
	"header", "aside", "form",
	`[class*="cookie"]`, `[class*="popup"]`, `[class*="overlay"]`,
}

// Containers preferred for page text, before falling back to body.
var mainContentSelectors = []string{"main", "article", `[role="main"]`, "#content", ".content"}

// Scraper is the HTML fallback when no structured feed exists, plus the
// generic single-page reader behind the scrape_page tool.
type Scraper struct {
	client        *http.Client
	timeout       time.Duration
	truncateChars int
	maxPosts      int
	userAgent     string
	extractor     Extractor
}

type ScrapeOption func(*Scraper)

func WithPageTimeout(timeout time.Duration) ScrapeOption {
	return func(s *Scraper) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

func WithTruncateChars(n int) ScrapeOption {
	return func(s *Scraper) {
		if n > 0 {
			s.truncateChars = n
		}
	}
}

func WithMaxPosts(n int) ScrapeOption {
	return func(s *Scraper) {
		if n > 0 {
			s.maxPosts = n
		}
	}
}

func WithHTTPClient(client *http.Client) ScrapeOption {
	return func(s *Scraper) {
		if client != nil {
			s.client = client
		}
	}
}

func WithExtractor(e Extractor) ScrapeOption {
	return func(s *Scraper) {
		if e != nil {
			s.extractor = e
		}
	}
}

func NewScraper(opts ...ScrapeOption) *Scraper {
	// The client carries no Timeout of its own; the per-request context
	// deadline in fetchDocument is the single budget, so a configured
	// timeout above the default is honored.
	s := &Scraper{
		client:        &http.Client{},
		timeout:       defaultPageTimeout,
		truncateChars: defaultTruncateChars,
		maxPosts:      defaultMaxPosts,
		userAgent:     defaultUserAgent,
		extractor:     heuristicExtractor{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScrapeSite extracts post candidates from a site's content-index
// pages. It tries the bare URL first plus conventional index paths and
// stops on the first page that yields at least one post.
func (s *Scraper) ScrapeSite(ctx context.Context, siteURL string) types.DiscoveryResult {
	base, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil || base.Host == "" {
		return types.DiscoveryResult{Error: fmt.Sprintf("invalid site url %q", siteURL)}
	}

	candidates := []string{base.String()}
	root := base.Scheme + "://" + base.Host
	for _, p := range contentIndexPaths {
		candidate := root + p
		if candidate != base.String() {
			candidates = append(candidates, candidate)
		}
	}

	for _, candidate := range candidates {
		doc, pageURL, err := s.fetchDocument(ctx, candidate)
		if err != nil {
			continue
		}
		posts := s.extractPosts(doc, pageURL)
		if len(posts) == 0 {
			continue
		}
		return types.DiscoveryResult{
			Success:       true,
			CanonicalURL:  candidate,
			Items:         posts,
			PostsPerMonth: EstimatePostsPerMonth(posts),
			TotalFound:    len(posts),
		}
	}

	return types.DiscoveryResult{
		Error: fmt.Sprintf("no feed and no recognizable post listing found for %s", siteURL),
	}
}

// extractPosts scans the selector list in priority order, capping the
// number of candidates and deduplicating by exact title.
func (s *Scraper) extractPosts(doc *goquery.Document, pageURL *url.URL) []types.DiscoveryItem {
	var posts []types.DiscoveryItem
	seenTitles := map[string]bool{}

	for _, selector := range postSelectors {
		doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if len(posts) >= s.maxPosts {
				return false
			}
			item, ok := s.extractor.Extract(sel, pageURL)
			if !ok || seenTitles[item.Title] {
				return true
			}
			seenTitles[item.Title] = true
			posts = append(posts, item)
			return true
		})
		if len(posts) >= s.maxPosts {
			break
		}
	}
	return posts
}

// ScrapePage reads a single page as plain text. It never returns an
// error; failures produce Success:false with an explanation.
func (s *Scraper) ScrapePage(ctx context.Context, pageURL string) types.PageContent {
	doc, _, err := s.fetchDocument(ctx, pageURL)
	if err != nil {
		return types.PageContent{URL: pageURL, Error: err.Error()}
	}

	title := collapseText(doc.Find("title").First().Text())

	doc.Find(strings.Join(strippedSelectors, ", ")).Remove()

	var text string
	for _, selector := range mainContentSelectors {
		if sel := doc.Find(selector).First(); sel.Length() > 0 {
			text = nodeText(sel)
			break
		}
	}
	if text == "" {
		text = nodeText(doc.Find("body"))
	}

	if len(text) > s.truncateChars {
		text = truncateRunes(text, s.truncateChars) + truncationMarker
	}

	return types.PageContent{
		Success: true,
		URL:     pageURL,
		Title:   title,
		Content: text,
	}
}

// truncateRunes cuts s to at most n bytes without splitting a
// multi-byte rune at the cut point.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// nodeText walks the selection's nodes collecting text with collapsed
// whitespace, the same walk the low-level html package exposes.
func nodeText(sel *goquery.Selection) string {
	var sb strings.Builder
	for _, node := range sel.Nodes {
		collectText(node, &sb)
	}
	return strings.TrimSpace(sb.String())
}

func collectText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		if text := collapseText(n.Data); text != "" {
			sb.WriteString(text)
			sb.WriteString(" ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, sb)
	}
}

func (s *Scraper) fetchDocument(ctx context.Context, rawURL string) (*goquery.Document, *url.URL, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("parse %s: %w", rawURL, err)
	}

	finalURL := resp.Request.URL
	return doc, finalURL, nil
}
