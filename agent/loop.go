// Package agent runs the budget-bounded, tool-calling research loop:
// it converses with a completion provider, dispatches requested tool
// calls against the discovery registry, and terminates on a validated
// structured answer or on hitting its iteration/cost ceilings.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marketlyhq/contentscout/answer"
	"github.com/marketlyhq/contentscout/llm"
	"github.com/marketlyhq/contentscout/observe"
	"github.com/marketlyhq/contentscout/pricing"
	"github.com/marketlyhq/contentscout/runtimeconfig"
	"github.com/marketlyhq/contentscout/tools"
	"github.com/marketlyhq/contentscout/types"
)

// loopState names the loop's explicit states so the ceiling and budget
// interactions are plain transitions rather than scattered breaks.
type loopState int

const (
	stateAwaitingModel loopState = iota
	stateDispatchingTools
	stateValidatingFinal
	stateDone
	stateExhausted
)

type Agent struct {
	provider      llm.Provider
	registry      *tools.Registry
	limits        runtimeconfig.Limits
	observer      observe.Sink
	parallelTools bool
}

type Option func(*Agent)

func WithObserver(sink observe.Sink) Option {
	return func(a *Agent) {
		if sink != nil {
			a.observer = sink
		}
	}
}

func WithParallelToolCalls(enabled bool) Option {
	return func(a *Agent) { a.parallelTools = enabled }
}

func New(provider llm.Provider, registry *tools.Registry, limits runtimeconfig.Limits, opts ...Option) (*Agent, error) {
	if provider == nil {
		return nil, errors.New("provider is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if limits.MaxIterations <= 0 {
		return nil, fmt.Errorf("max iterations must be positive, got %d", limits.MaxIterations)
	}
	a := &Agent{
		provider: provider,
		registry: registry,
		limits:   limits,
		observer: observe.NoopSink{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// run bundles the mutable state of one invocation. It is owned by a
// single Research call and discarded when it returns.
type run struct {
	id             string
	messages       []types.Message
	budget         pricing.Budget
	toolCallsCount int
	lastResponse   types.Response
	exhaustReason  string
}

// Research drives one invocation to a terminal result. Budget and
// iteration exhaustion are defined outcomes, not errors: the returned
// result always carries the accumulated accounting so callers can bill
// for partial work. Only completion-service transport failures and a
// validation failure on the last permitted iteration return an error,
// and even then the result's accounting fields are populated.
func (a *Agent) Research(ctx context.Context, req ResearchRequest) (types.ResearchResult, error) {
	if err := req.validate(); err != nil {
		return types.ResearchResult{}, err
	}
	if max := a.limits.MaxCompetitorSites; max > 0 && len(req.CompetitorURLs) > max {
		req.CompetitorURLs = req.CompetitorURLs[:max]
	}

	r := &run{
		id:       uuid.NewString(),
		messages: []types.Message{{Role: types.RoleUser, Content: buildUserPrompt(req)}},
	}
	a.emit(ctx, observe.Event{Kind: observe.KindRun, Status: observe.StatusStarted, RunID: r.id, Model: a.limits.Model})

	state := stateAwaitingModel
	for {
		switch state {
		case stateAwaitingModel:
			next, err := a.stepGenerate(ctx, r)
			if err != nil {
				a.emit(ctx, observe.Event{Kind: observe.KindRun, Status: observe.StatusFailed, RunID: r.id, Error: err.Error()})
				return a.accountingOnly(r), err
			}
			state = next

		case stateDispatchingTools:
			a.dispatchToolCalls(ctx, r)
			state = stateAwaitingModel

		case stateValidatingFinal:
			final, next, err := a.stepValidate(ctx, r)
			if err != nil {
				a.emit(ctx, observe.Event{Kind: observe.KindRun, Status: observe.StatusFailed, RunID: r.id, Error: err.Error()})
				return a.accountingOnly(r), err
			}
			if next == stateDone {
				result := a.successResult(r, final)
				a.emit(ctx, observe.Event{Kind: observe.KindRun, Status: observe.StatusCompleted, RunID: r.id, Iteration: r.budget.Iterations, CostUSD: r.budget.CostUSD})
				return result, nil
			}
			state = next

		case stateExhausted:
			result := a.exhaustedResult(r)
			a.emit(ctx, observe.Event{Kind: observe.KindRun, Status: observe.StatusFailed, RunID: r.id, Iteration: r.budget.Iterations, CostUSD: r.budget.CostUSD, Message: r.exhaustReason})
			return result, nil

		default:
			return a.accountingOnly(r), fmt.Errorf("invalid loop state %d", state)
		}
	}
}

// stepGenerate enforces both ceilings before issuing the call, then
// accounts the round-trip unconditionally once it returns.
func (a *Agent) stepGenerate(ctx context.Context, r *run) (loopState, error) {
	if r.budget.Exceeded(a.limits.CostCapUSD) {
		r.exhaustReason = fmt.Sprintf("cost cap of $%.2f reached after %d iteration(s)", a.limits.CostCapUSD, r.budget.Iterations)
		a.emit(ctx, observe.Event{Kind: observe.KindBudget, Status: observe.StatusExceeded, RunID: r.id, Iteration: r.budget.Iterations, CostUSD: r.budget.CostUSD})
		return stateExhausted, nil
	}
	if r.budget.Iterations >= a.limits.MaxIterations {
		r.exhaustReason = fmt.Sprintf("iteration ceiling of %d reached without a validated answer", a.limits.MaxIterations)
		a.emit(ctx, observe.Event{Kind: observe.KindBudget, Status: observe.StatusExceeded, RunID: r.id, Iteration: r.budget.Iterations, CostUSD: r.budget.CostUSD})
		return stateExhausted, nil
	}

	iteration := r.budget.Iterations + 1
	a.emit(ctx, observe.Event{Kind: observe.KindGenerate, Status: observe.StatusStarted, RunID: r.id, Iteration: iteration, Model: a.limits.Model})

	resp, err := a.provider.Generate(ctx, types.Request{
		Model:        a.limits.Model,
		SystemPrompt: systemPrompt,
		Messages:     r.messages,
		Tools:        a.registry.Definitions(),
	})
	if err != nil {
		// Transport/auth failure is fatal to the loop; retries, if
		// desired, belong to a caller-side provider wrapper.
		return stateExhausted, fmt.Errorf("completion service failed: %w", err)
	}

	usage := types.Usage{}
	if resp.Usage != nil {
		usage = *resp.Usage
	}
	rec := pricing.Cost(a.limits.Model, usage)
	r.budget.Accumulate(rec)
	a.emit(ctx, observe.Event{Kind: observe.KindGenerate, Status: observe.StatusCompleted, RunID: r.id, Iteration: iteration, Model: a.limits.Model, CostUSD: rec.TotalCostUSD})

	modelMsg := resp.Message
	modelMsg.Role = types.RoleAssistant
	r.messages = append(r.messages, modelMsg)
	r.lastResponse = resp

	if len(modelMsg.ToolCalls) > 0 {
		return stateDispatchingTools, nil
	}
	return stateValidatingFinal, nil
}

// dispatchToolCalls executes every call requested in the last model
// response and appends all results, in call order, before the loop
// returns to the model. Unknown tools and tool failures become
// error-shaped results; nothing here aborts the loop.
func (a *Agent) dispatchToolCalls(ctx context.Context, r *run) {
	calls := r.messages[len(r.messages)-1].ToolCalls
	results := make([]types.Message, len(calls))

	runOne := func(i int, call types.ToolCall) {
		started := time.Now()
		a.emit(ctx, observe.Event{Kind: observe.KindTool, Status: observe.StatusStarted, RunID: r.id, ToolName: call.Name, ToolCallID: call.ID})
		results[i] = a.registry.Dispatch(ctx, call)
		a.emit(ctx, observe.Event{Kind: observe.KindTool, Status: observe.StatusCompleted, RunID: r.id, ToolName: call.Name, ToolCallID: call.ID, Message: time.Since(started).Round(time.Millisecond).String()})
	}

	if a.parallelTools && len(calls) > 1 {
		var wg sync.WaitGroup
		wg.Add(len(calls))
		for i, call := range calls {
			go func(i int, call types.ToolCall) {
				defer wg.Done()
				runOne(i, call)
			}(i, call)
		}
		wg.Wait()
	} else {
		for i, call := range calls {
			runOne(i, call)
		}
	}

	r.messages = append(r.messages, results...)
	r.toolCallsCount += len(calls)
}

// stepValidate parses the model's final text. On failure it appends a
// repair instruction when iterations remain; when none remain the
// validation error is terminal.
func (a *Agent) stepValidate(ctx context.Context, r *run) (types.FinalAnswer, loopState, error) {
	content := r.messages[len(r.messages)-1].Content

	var vErr error
	var final types.FinalAnswer
	if reason := r.lastResponse.FinishReason; reason != "" && reason != types.FinishStop {
		vErr = &answer.ValidationError{Detail: fmt.Sprintf("response did not finish normally (finish reason %q)", reason)}
	} else {
		final, vErr = answer.Parse(content)
	}
	if vErr == nil {
		return final, stateDone, nil
	}

	if r.budget.Iterations < a.limits.MaxIterations {
		r.messages = append(r.messages, types.Message{
			Role:    types.RoleUser,
			Content: buildRepairPrompt(vErr),
		})
		return types.FinalAnswer{}, stateAwaitingModel, nil
	}
	return types.FinalAnswer{}, stateExhausted, fmt.Errorf("final answer failed validation with no iterations remaining: %w", vErr)
}

func (a *Agent) successResult(r *run, final types.FinalAnswer) types.ResearchResult {
	result := types.ResearchResult{
		Success:               true,
		OfferParagraph:        final.OfferParagraph,
		InternalJustification: final.InternalJustification,
		CompanyBlogSnapshot:   final.CompanyBlogSnapshot,
		CompetitorSnapshots:   final.CompetitorSnapshots,
		CompetitorsAnalyzed:   len(final.CompetitorSnapshots),
		AgentIterations:       r.budget.Iterations,
		ToolCallsCount:        r.toolCallsCount,
		CostInfo:              r.budget.Info(),
		Model:                 a.limits.Model,
	}
	result.Stamp(time.Now())
	return result
}

// exhaustedResult is a defined terminal state, not an error: snapshot
// fields stay empty, the narrative explains the exhaustion, and the
// accounting is intact so callers can bill for partial work.
func (a *Agent) exhaustedResult(r *run) types.ResearchResult {
	result := a.accountingOnly(r)
	result.InternalJustification = "Research could not be completed: " + r.exhaustReason + "."
	return result
}

func (a *Agent) accountingOnly(r *run) types.ResearchResult {
	result := types.ResearchResult{
		Success:             false,
		CompetitorSnapshots: []types.CompetitorSnapshot{},
		AgentIterations:     r.budget.Iterations,
		ToolCallsCount:      r.toolCallsCount,
		CostInfo:            r.budget.Info(),
		Model:               a.limits.Model,
	}
	result.Stamp(time.Now())
	return result
}

func (a *Agent) emit(ctx context.Context, event observe.Event) {
	if a.observer == nil {
		return
	}
	event.Normalize()
	_ = a.observer.Emit(ctx, event)
}
