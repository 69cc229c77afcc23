package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/marketlyhq/contentscout/types"
)

// Registry maps tool names to handlers. An unknown name never escapes
// as a Go error to the loop's caller: Dispatch encodes it into an
// error-shaped tool result so the model can self-correct.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

func NewRegistry(list ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(list))}
	for _, t := range list {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool is required")
	}
	name := t.Definition().Name
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %q already registered", name)
	}
	r.tools[name] = t
	return nil
}

// Definitions returns the tool catalogue in stable name order.
func (r *Registry) Definitions() []types.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ToolDefinition, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Definition())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Dispatch executes one tool call and returns the tool-result message
// tagged with the originating call id. Unknown tools and execution
// failures become {"error": ...} payloads, never panics or Go errors.
func (r *Registry) Dispatch(ctx context.Context, call types.ToolCall) types.Message {
	r.mu.RLock()
	tool, ok := r.tools[call.Name]
	r.mu.RUnlock()

	var payload any
	if !ok {
		payload = map[string]any{"error": fmt.Sprintf("unsupported tool %q", call.Name)}
	} else {
		args := call.Arguments
		if len(args) == 0 {
			args = json.RawMessage(`{}`)
		}
		out, err := tool.Execute(ctx, args)
		if err != nil {
			payload = map[string]any{"error": err.Error()}
		} else {
			payload = out
		}
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		encoded = []byte(fmt.Sprintf(`{"error":"failed to encode tool output","detail":%q}`, err.Error()))
	}
	return types.Message{
		Role:       types.RoleTool,
		Name:       call.Name,
		ToolCallID: call.ID,
		Content:    string(encoded),
	}
}
