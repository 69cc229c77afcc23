// Package state persists finished research reports keyed by a
// caller-supplied entity id, and usage costs keyed by a caller-supplied
// user id. Persistence is fire-and-forget from the research core's
// perspective: a store failure never invalidates an agent result.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/marketlyhq/contentscout/types"
)

var ErrNotFound = errors.New("state: not found")

type ReportRecord struct {
	EntityID  string               `json:"entityId"`
	RunID     string               `json:"runId,omitempty"`
	Model     string               `json:"model,omitempty"`
	Result    types.ResearchResult `json:"result"`
	CreatedAt time.Time            `json:"createdAt"`
}

type CostEntry struct {
	UserID       string    `json:"userId"`
	RunID        string    `json:"runId,omitempty"`
	Model        string    `json:"model,omitempty"`
	TotalCostUSD float64   `json:"totalCostUsd"`
	TotalTokens  int       `json:"totalTokens"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Store interface {
	SaveReport(ctx context.Context, record ReportRecord) error
	LoadReport(ctx context.Context, entityID string) (ReportRecord, error)
	ListReports(ctx context.Context, limit int) ([]ReportRecord, error)

	LogCost(ctx context.Context, entry CostEntry) error
	ListCosts(ctx context.Context, userID string, limit int) ([]CostEntry, error)

	Close() error
}
