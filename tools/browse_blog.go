// Package tools exposes the content-discovery chain to the completion
// service as callable functions with JSON-schema declarations.
package tools

import (
	"context"
	"encoding/json"

	"github.com/marketlyhq/contentscout/discovery"
)

// NewBrowseBlog wraps the discovery chain: feed-first, HTML scrape
// fallback. The payload is always a DiscoveryResult, success or not.
func NewBrowseBlog(svc *discovery.Service) Tool {
	return NewFuncTool(
		"browse_blog",
		"Discover a company blog's recent posts and posting cadence. Tries the site's structured feed first and falls back to scraping its content pages.",
		urlSchema("The site or blog URL to analyze."),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			siteURL, err := decodeURLArg("browse_blog", args)
			if err != nil {
				return nil, err
			}
			return svc.BrowseSite(ctx, siteURL), nil
		},
	)
}

// NewScrapePage wraps the generic single-page reader.
func NewScrapePage(svc *discovery.Service) Tool {
	return NewFuncTool(
		"scrape_page",
		"Fetch a single web page and return its readable text content, truncated to a bounded size.",
		urlSchema("The page URL to read."),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			pageURL, err := decodeURLArg("scrape_page", args)
			if err != nil {
				return nil, err
			}
			return svc.ReadPage(ctx, pageURL), nil
		},
	)
}
