// Package discovery implements the multi-strategy content-discovery
// chain: structured-feed discovery, platform heuristics, HTML link
// declarations, and an HTML scraping fallback, plus a posting-cadence
// estimator over the dated items it finds.
package discovery

import (
	"context"

	"github.com/marketlyhq/contentscout/types"
)

// Service composes the feed chain and the scrape fallback behind the
// browse_blog tool contract.
type Service struct {
	feeds    *FeedFinder
	scraper  *Scraper
	maxPosts int
}

func NewService(feeds *FeedFinder, scraper *Scraper) *Service {
	if feeds == nil {
		feeds = NewFeedFinder()
	}
	if scraper == nil {
		scraper = NewScraper()
	}
	return &Service{feeds: feeds, scraper: scraper, maxPosts: scraper.maxPosts}
}

// BrowseSite is feed-first: when the feed chain yields items, the
// cadence is estimated over the full feed and the returned item list is
// capped; otherwise the HTML scrape fallback runs.
func (s *Service) BrowseSite(ctx context.Context, siteURL string) types.DiscoveryResult {
	items, feedURL := s.feeds.Discover(ctx, siteURL)
	if len(items) > 0 {
		capped := items
		if len(capped) > s.maxPosts {
			capped = capped[:s.maxPosts]
		}
		return types.DiscoveryResult{
			Success:       true,
			CanonicalURL:  feedURL,
			Items:         capped,
			PostsPerMonth: EstimatePostsPerMonth(items),
			TotalFound:    len(items),
			FeedUsed:      true,
		}
	}
	return s.scraper.ScrapeSite(ctx, siteURL)
}

// ReadPage exposes the single-page reader behind the scrape_page tool.
func (s *Service) ReadPage(ctx context.Context, pageURL string) types.PageContent {
	return s.scraper.ScrapePage(ctx, pageURL)
}
