package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marketlyhq/contentscout/types"
)

func TestGenerateMapsToolCallsAndUsage(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call-1",
						"type": "function",
						"function": {"name": "browse_blog", "arguments": "{\"url\":\"https://example.com\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}],
			"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
		}`))
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL), WithModel("gpt-4o-mini"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := client.Generate(context.Background(), types.Request{
		SystemPrompt: "You are a researcher.",
		Messages:     []types.Message{{Role: types.RoleUser, Content: "research example.com"}},
		Tools: []types.ToolDefinition{
			{Name: "browse_blog", Description: "Browse a blog."},
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if resp.FinishReason != types.FinishToolCalls {
		t.Errorf("FinishReason = %q, want tool_calls", resp.FinishReason)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("got %d tool calls, want 1", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.ID != "call-1" || tc.Name != "browse_blog" {
		t.Errorf("tool call = %+v", tc)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 150 || resp.Usage.InputTokens != 120 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	msgs, ok := captured["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("request messages = %v", captured["messages"])
	}
	first := msgs[0].(map[string]any)
	if first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
	if captured["tool_choice"] != "auto" {
		t.Errorf("tool_choice = %v, want auto", captured["tool_choice"])
	}
}

func TestGenerateAPIErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit"}}`))
	}))
	defer server.Close()

	client, err := New("test-key", WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = client.Generate(context.Background(), types.Request{
		Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
}

func TestNormalizeJSONArgs(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "{}"},
		{`{"url":"https://a.com"}`, `{"url":"https://a.com"}`},
		{"not json", `{"raw":"not json"}`},
	}
	for _, tc := range cases {
		got := string(normalizeJSONArgs(tc.in))
		if got != tc.want {
			t.Errorf("normalizeJSONArgs(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestFinishReasonPassthrough(t *testing.T) {
	if got := finishReason("content_filter"); got != types.FinishReason("content_filter") {
		t.Errorf("finishReason passthrough = %q", got)
	}
	if got := finishReason("function_call"); got != types.FinishToolCalls {
		t.Errorf("function_call mapped to %q, want tool_calls", got)
	}
}
