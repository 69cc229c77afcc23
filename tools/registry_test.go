package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/marketlyhq/contentscout/types"
)

func echoTool(name string) Tool {
	return NewFuncTool(name, "echoes its input", urlSchema("any url"),
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return map[string]any{"echo": string(args)}, nil
		})
}

func TestRegistry_DefinitionsSorted(t *testing.T) {
	r, err := NewRegistry(echoTool("zeta"), echoTool("alpha"))
	if err != nil {
		t.Fatal(err)
	}
	defs := r.Definitions()
	if len(defs) != 2 || defs[0].Name != "alpha" || defs[1].Name != "zeta" {
		t.Fatalf("definitions = %+v, want sorted by name", defs)
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	r, err := NewRegistry(echoTool("dup"))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Register(echoTool("dup")); err == nil {
		t.Fatal("duplicate registration must fail")
	}
}

func TestDispatch_UnknownToolBecomesErrorPayload(t *testing.T) {
	r, _ := NewRegistry(echoTool("known"))
	msg := r.Dispatch(context.Background(), types.ToolCall{ID: "call-9", Name: "mystery"})

	if msg.Role != types.RoleTool || msg.ToolCallID != "call-9" {
		t.Fatalf("result message = %+v, want tool role tagged with call id", msg)
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(msg.Content), &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if !strings.Contains(payload.Error, "mystery") {
		t.Fatalf("error payload should name the tool: %q", payload.Error)
	}
}

func TestDispatch_ToolErrorBecomesErrorPayload(t *testing.T) {
	failing := NewFuncTool("boom", "always fails", nil,
		func(ctx context.Context, args json.RawMessage) (any, error) {
			return nil, errors.New("upstream timeout")
		})
	r, _ := NewRegistry(failing)
	msg := r.Dispatch(context.Background(), types.ToolCall{ID: "c1", Name: "boom"})
	if !strings.Contains(msg.Content, "upstream timeout") {
		t.Fatalf("content = %q, want tool error in payload", msg.Content)
	}
}

func TestDispatch_EmptyArgumentsDefaulted(t *testing.T) {
	r, _ := NewRegistry(echoTool("echo"))
	msg := r.Dispatch(context.Background(), types.ToolCall{ID: "c2", Name: "echo"})
	if !strings.Contains(msg.Content, `{}`) {
		t.Fatalf("content = %q, want empty-object args", msg.Content)
	}
}

func TestDecodeURLArg(t *testing.T) {
	if _, err := decodeURLArg("browse_blog", json.RawMessage(`{}`)); err == nil {
		t.Fatal("missing url must error")
	}
	if _, err := decodeURLArg("browse_blog", json.RawMessage(`not json`)); err == nil {
		t.Fatal("malformed args must error")
	}
	got, err := decodeURLArg("browse_blog", json.RawMessage(`{"url":"https://acme.example"}`))
	if err != nil || got != "https://acme.example" {
		t.Fatalf("decode = (%q, %v)", got, err)
	}
}
