// Package runtimeconfig holds the externally tunable limits of a
// research invocation. Values come from defaults, then an optional
// JSON file, then CONTENTSCOUT_* environment overrides, in that order.
package runtimeconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marketlyhq/contentscout/internal/config"
)

type Limits struct {
	Model               string  `json:"model"`
	MaxIterations       int     `json:"maxIterations"`
	CostCapUSD          float64 `json:"costCapUsd"`
	FeedProbeTimeoutSec int     `json:"feedProbeTimeoutSec"`
	PageFetchTimeoutSec int     `json:"pageFetchTimeoutSec"`
	PageTruncateChars   int     `json:"pageTruncateChars"`
	MaxPostsPerScrape   int     `json:"maxPostsPerScrape"`
	MaxCompetitorSites  int     `json:"maxCompetitorSites"`
}

func Defaults() Limits {
	return Limits{
		Model:               "gpt-4o-mini",
		MaxIterations:       15,
		CostCapUSD:          3.00,
		FeedProbeTimeoutSec: 8,
		PageFetchTimeoutSec: 12,
		PageTruncateChars:   5000,
		MaxPostsPerScrape:   15,
		MaxCompetitorSites:  5,
	}
}

// Load reads limits from a JSON file. Absent or zero fields keep their
// defaults; an empty path returns the defaults unchanged.
func Load(path string) (Limits, error) {
	limits := Defaults()
	path = strings.TrimSpace(path)
	if path == "" {
		return limits, nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return limits, fmt.Errorf("failed to resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return limits, fmt.Errorf("failed to read config file %q: %w", absPath, err)
	}
	var fileLimits Limits
	if err := json.Unmarshal(data, &fileLimits); err != nil {
		return limits, fmt.Errorf("failed to decode config file %q as JSON: %w", absPath, err)
	}
	return merge(limits, fileLimits), nil
}

// FromEnv applies CONTENTSCOUT_* overrides on top of the given limits.
func FromEnv(limits Limits) Limits {
	if model := strings.TrimSpace(os.Getenv("CONTENTSCOUT_MODEL")); model != "" {
		limits.Model = model
	}
	limits.MaxIterations = config.ParseIntEnv("CONTENTSCOUT_MAX_ITERATIONS", limits.MaxIterations)
	limits.CostCapUSD = config.ParseFloatEnv("CONTENTSCOUT_COST_CAP_USD", limits.CostCapUSD)
	limits.FeedProbeTimeoutSec = config.ParseIntEnv("CONTENTSCOUT_FEED_TIMEOUT_SEC", limits.FeedProbeTimeoutSec)
	limits.PageFetchTimeoutSec = config.ParseIntEnv("CONTENTSCOUT_PAGE_TIMEOUT_SEC", limits.PageFetchTimeoutSec)
	limits.PageTruncateChars = config.ParseIntEnv("CONTENTSCOUT_PAGE_TRUNCATE_CHARS", limits.PageTruncateChars)
	limits.MaxPostsPerScrape = config.ParseIntEnv("CONTENTSCOUT_MAX_POSTS", limits.MaxPostsPerScrape)
	limits.MaxCompetitorSites = config.ParseIntEnv("CONTENTSCOUT_MAX_COMPETITORS", limits.MaxCompetitorSites)
	return limits
}

func (l Limits) FeedProbeTimeout() time.Duration {
	return time.Duration(l.FeedProbeTimeoutSec) * time.Second
}

func (l Limits) PageFetchTimeout() time.Duration {
	return time.Duration(l.PageFetchTimeoutSec) * time.Second
}

func merge(base, over Limits) Limits {
	if strings.TrimSpace(over.Model) != "" {
		base.Model = over.Model
	}
	if over.MaxIterations > 0 {
		base.MaxIterations = over.MaxIterations
	}
	if over.CostCapUSD > 0 {
		base.CostCapUSD = over.CostCapUSD
	}
	if over.FeedProbeTimeoutSec > 0 {
		base.FeedProbeTimeoutSec = over.FeedProbeTimeoutSec
	}
	if over.PageFetchTimeoutSec > 0 {
		base.PageFetchTimeoutSec = over.PageFetchTimeoutSec
	}
	if over.PageTruncateChars > 0 {
		base.PageTruncateChars = over.PageTruncateChars
	}
	if over.MaxPostsPerScrape > 0 {
		base.MaxPostsPerScrape = over.MaxPostsPerScrape
	}
	if over.MaxCompetitorSites > 0 {
		base.MaxCompetitorSites = over.MaxCompetitorSites
	}
	return base
}
