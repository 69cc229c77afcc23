// Package observe carries structured events out of the research loop:
// run lifecycle, generation round-trips with their cost deltas, tool
// dispatches, and budget exhaustion. Sinks are best-effort; the loop
// ignores emit failures.
package observe

import "time"

type Kind string

type Status string

const (
	KindRun      Kind = "run"
	KindGenerate Kind = "generate"
	KindTool     Kind = "tool"
	KindBudget   Kind = "budget"
	KindStore    Kind = "store"
)

const (
	StatusStarted   Status = "started"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusExceeded  Status = "exceeded"
)

type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	RunID      string    `json:"runId,omitempty"`
	Kind       Kind      `json:"kind"`
	Status     Status    `json:"status,omitempty"`
	Model      string    `json:"model,omitempty"`
	Iteration  int       `json:"iteration,omitempty"`
	ToolName   string    `json:"toolName,omitempty"`
	ToolCallID string    `json:"toolCallId,omitempty"`
	CostUSD    float64   `json:"costUsd,omitempty"`
	Error      string    `json:"error,omitempty"`
	Message    string    `json:"message,omitempty"`
}

func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	if e.Kind == "" {
		e.Kind = KindRun
	}
}
