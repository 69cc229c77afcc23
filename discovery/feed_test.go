package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Acme Blog</title>
  <link>https://acme.example/blog</link>
  <item>
    <title>Post One</title>
    <link>https://acme.example/blog/one</link>
    <pubDate>Tue, 01 Apr 2025 10:00:00 +0000</pubDate>
    <description><![CDATA[<p>First post &amp; some <b>markup</b>.</p>]]></description>
  </item>
  <item>
    <title>Post Two</title>
    <link>https://acme.example/blog/two</link>
    <pubDate>Thu, 01 May 2025 10:00:00 +0000</pubDate>
  </item>
</channel>
</rss>`

func TestDiscover_CommonPathProbing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/rss.xml" {
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, sampleRSS)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFeedFinder(WithFeedHTTPClient(srv.Client()))
	items, feedURL := f.Discover(context.Background(), srv.URL)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if feedURL != srv.URL+"/rss.xml" {
		t.Fatalf("feed url = %q, want %q", feedURL, srv.URL+"/rss.xml")
	}
	if items[0].Title != "Post One" {
		t.Fatalf("first item title = %q", items[0].Title)
	}
	if !strings.Contains(items[0].Excerpt, "First post & some markup") {
		t.Fatalf("excerpt = %q, want stripped markup with decoded entities", items[0].Excerpt)
	}
	if _, ok := parseItemDate(items[0].Date); !ok {
		t.Fatalf("item date %q should be parseable", items[0].Date)
	}
}

func TestDiscover_HTMLLinkDeclaration(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head>
<link rel="alternate" type="application/rss+xml" href="/custom/feed.xml">
</head><body>hello</body></html>`)
		case "/custom/feed.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, sampleRSS)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFeedFinder(WithFeedHTTPClient(srv.Client()))
	items, feedURL := f.Discover(context.Background(), srv.URL)

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if feedURL != srv.URL+"/custom/feed.xml" {
		t.Fatalf("feed url = %q, want declared candidate resolved against origin", feedURL)
	}
}

func TestDiscover_EmptyFeedAdvancesChain(t *testing.T) {
	emptyRSS := `<?xml version="1.0"?><rss version="2.0"><channel><title>empty</title></channel></rss>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/feed":
			fmt.Fprint(w, emptyRSS)
		case "/rss.xml":
			fmt.Fprint(w, sampleRSS)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFeedFinder(WithFeedHTTPClient(srv.Client()))
	items, feedURL := f.Discover(context.Background(), srv.URL)

	if len(items) != 2 {
		t.Fatalf("a zero-item feed must not satisfy discovery; got %d items from %q", len(items), feedURL)
	}
	if feedURL != srv.URL+"/rss.xml" {
		t.Fatalf("feed url = %q, want the later candidate with items", feedURL)
	}
}

func TestDiscover_UnreachableHostReturnsNil(t *testing.T) {
	f := NewFeedFinder(WithFeedTimeout(200 * time.Millisecond))
	items, feedURL := f.Discover(context.Background(), "http://127.0.0.1:1")
	if items != nil || feedURL != "" {
		t.Fatalf("unreachable host should yield (nil, \"\"), got %d items, %q", len(items), feedURL)
	}
}

func TestDiscover_InvalidURL(t *testing.T) {
	f := NewFeedFinder()
	if items, _ := f.Discover(context.Background(), "not a url"); items != nil {
		t.Fatal("invalid url should yield nil")
	}
}

func TestPlatformCandidates(t *testing.T) {
	f := NewFeedFinder()
	cases := map[string]string{
		"https://example.substack.com":        "https://example.substack.com/feed",
		"https://www.example.tumblr.com":      "https://www.example.tumblr.com/rss",
		"https://medium.com/some-publication": "https://medium.com/feed/some-publication",
		"https://example.blogspot.com":        "https://example.blogspot.com/feeds/posts/default?alt=rss",
	}
	for site, want := range cases {
		u := mustParse(t, site)
		got := f.platformCandidates(u)
		if len(got) != 1 || got[0] != want {
			t.Errorf("platformCandidates(%s) = %v, want [%s]", site, got, want)
		}
	}
	if got := f.platformCandidates(mustParse(t, "https://selfhosted.example")); got != nil {
		t.Errorf("unknown host should have no platform candidates, got %v", got)
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestDiscover_ConfiguredTimeoutGovernsProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feed" {
			http.NotFound(w, r)
			return
		}
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	patient := NewFeedFinder(WithFeedTimeout(2 * time.Second))
	items, feedURL := patient.Discover(context.Background(), srv.URL)
	if len(items) == 0 || feedURL == "" {
		t.Fatal("a probe within the configured timeout must succeed")
	}
	if patient.client.Timeout != 0 {
		t.Fatalf("transport client must not carry its own timeout, got %v", patient.client.Timeout)
	}
}

func TestFeedItem_ExcerptTruncatesOnRuneBoundary(t *testing.T) {
	item := feedItem(&gofeed.Item{
		Title:       "Unicode Post",
		Link:        "https://acme.example/blog/unicode",
		Description: strings.Repeat("é", 300),
	})
	if len(item.Excerpt) > maxExcerptChars {
		t.Fatalf("excerpt length %d exceeds cap %d", len(item.Excerpt), maxExcerptChars)
	}
	if !utf8.ValidString(item.Excerpt) {
		t.Fatalf("truncation split a rune: %q", item.Excerpt)
	}
}
