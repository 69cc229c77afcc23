package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/marketlyhq/contentscout/types"
)

// Tool is one callable function exposed to the completion service.
type Tool interface {
	Definition() types.ToolDefinition
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type FuncTool struct {
	def types.ToolDefinition
	fn  func(ctx context.Context, args json.RawMessage) (any, error)
}

func NewFuncTool(name, description string, schema map[string]any, fn func(ctx context.Context, args json.RawMessage) (any, error)) *FuncTool {
	return &FuncTool{
		def: types.ToolDefinition{
			Name:        name,
			Description: description,
			JSONSchema:  schema,
		},
		fn: fn,
	}
}

func (t *FuncTool) Definition() types.ToolDefinition {
	return t.def
}

func (t *FuncTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	if t.fn == nil {
		return nil, fmt.Errorf("tool %q has no execute function", t.def.Name)
	}
	return t.fn(ctx, args)
}

// urlArgs is the shared argument shape of both discovery tools.
type urlArgs struct {
	URL string `json:"url"`
}

func decodeURLArg(name string, args json.RawMessage) (string, error) {
	var in urlArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &in); err != nil {
			return "", fmt.Errorf("invalid %s args: %w", name, err)
		}
	}
	if in.URL == "" {
		return "", fmt.Errorf("%s: url is required", name)
	}
	return in.URL, nil
}

func urlSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"url"},
	}
}
