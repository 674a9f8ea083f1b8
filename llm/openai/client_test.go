package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kamrul1157024/terminal-ai/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client, err := NewClient(
		llm.WithAPIKey("test-key"),
		llm.WithBaseURL(srv.URL),
		llm.WithModel("gpt-test"),
	)
	if err != nil {
		srv.Close()
		t.Fatalf("failed to create client: %v", err)
	}
	return client, srv.Close
}

func sseBody(lines ...string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("data: " + l + "\n\n")
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

func TestGenerateStreamingCompletion_TokensVisibleInOrder(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		body := sseBody(
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo "}}]}`,
			`{"choices":[{"delta":{"content":"world"}}]}`,
			`{"choices":[],"usage":{"prompt_tokens":12,"completion_tokens":3}}`,
		)
		w.Write([]byte(body))
	})
	defer done()

	var streamed strings.Builder
	result, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.UserMessage{Text: "hi"},
	}, func(token string) { streamed.WriteString(token) }, llm.CompletionOptions{ToolChoice: llm.ToolChoiceAuto})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Content != "Hello world" {
		t.Fatalf("expected content %q, got %q", "Hello world", result.Content)
	}
	if streamed.String() != result.Content {
		t.Fatalf("streamed tokens %q do not match final content %q", streamed.String(), result.Content)
	}
	if result.Usage == nil || result.Usage.InputTokens != 12 || result.Usage.OutputTokens != 3 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
	if len(result.ToolCalls) != 0 {
		t.Fatalf("expected no tool calls, got %d", len(result.ToolCalls))
	}
}

func TestGenerateStreamingCompletion_AccumulatesToolCallFragments(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		body := sseBody(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_x","type":"function","function":{"name":"execute_command","arguments":"{\"comm"}}]}}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"and\":\"ls\"}"}}]}}]}`,
		)
		w.Write([]byte(body))
	})
	defer done()

	result, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.UserMessage{Text: "list files"},
	}, nil, llm.CompletionOptions{
		Tools:      []llm.ToolDefinition{{Name: "execute_command", Parameters: map[string]any{"type": "object"}}},
		ToolChoice: llm.ToolChoiceAuto,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	call := result.ToolCalls[0]
	if call.Name != "execute_command" || call.CallID != "call_x" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.Arguments["command"] != "ls" {
		t.Fatalf("expected command=ls, got %v", call.Arguments["command"])
	}
}

func TestGenerateStreamingCompletion_InvalidArgumentsFailSoft(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		body := sseBody(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_y","function":{"name":"execute_command","arguments":"{\"broken"}}]}}]}`,
		)
		w.Write([]byte(body))
	})
	defer done()

	result, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.UserMessage{Text: "go"},
	}, nil, llm.CompletionOptions{ToolChoice: llm.ToolChoiceAuto})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(result.ToolCalls))
	}
	if len(result.ToolCalls[0].Arguments) != 0 {
		t.Fatalf("expected empty arguments map, got %v", result.ToolCalls[0].Arguments)
	}
}

func TestGenerateStreamingCompletion_WrapsAPIError(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})
	defer done()

	_, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.UserMessage{Text: "hi"},
	}, nil, llm.CompletionOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	var provErr *llm.ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}
	if provErr.Provider != "openai" {
		t.Fatalf("expected provider openai, got %q", provErr.Provider)
	}
	if !strings.Contains(provErr.Message, "bad key") {
		t.Fatalf("expected backend message preserved, got %q", provErr.Message)
	}
}

func TestConvertMessages_ToolPairExpansion(t *testing.T) {
	msgs := convertMessages([]llm.Message{
		llm.SystemMessage{Text: "sys"},
		llm.UserMessage{Text: "run it"},
		llm.ToolCallMessage{Calls: []llm.ToolCallRequest{
			{Name: "execute_command", Arguments: map[string]any{"command": "ls"}, CallID: "c1"},
			{Name: "git_status", Arguments: map[string]any{}, CallID: "c2"},
		}},
		llm.ToolMessage{Results: []llm.ToolCallResponse{
			{Name: "execute_command", Result: "a.txt\n", CallID: "c1"},
			{Name: "git_status", Error: "not a repo", CallID: "c2"},
		}},
	})

	if len(msgs) != 5 {
		t.Fatalf("expected 5 wire messages (tool message expands per result), got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Fatalf("unexpected leading roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if len(msgs[2].ToolCalls) != 2 {
		t.Fatalf("expected 2 wire tool calls, got %d", len(msgs[2].ToolCalls))
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(msgs[2].ToolCalls[0].Function.Arguments), &args); err != nil {
		t.Fatalf("arguments are not valid JSON: %v", err)
	}
	if msgs[3].ToolCallID != "c1" || msgs[4].ToolCallID != "c2" {
		t.Fatalf("tool result correlation lost: %q, %q", msgs[3].ToolCallID, msgs[4].ToolCallID)
	}
	if !strings.HasPrefix(*msgs[4].Content, "Error:") {
		t.Fatalf("expected error result prefixed, got %q", *msgs[4].Content)
	}
}
