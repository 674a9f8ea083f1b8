package anthropic

import (
	"context"
	"encoding/json"
	"io"
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
		llm.WithModel("claude-test"),
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
	return b.String()
}

func TestGenerateStreamingCompletion_TextDeltas(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		body := sseBody(
			`{"type":"message_start","message":{"usage":{"input_tokens":20,"output_tokens":1}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"text"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi "}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"there"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`,
			`{"type":"message_stop"}`,
		)
		w.Write([]byte(body))
	})
	defer done()

	var streamed strings.Builder
	result, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.SystemMessage{Text: "be brief"},
		llm.UserMessage{Text: "hello"},
	}, func(token string) { streamed.WriteString(token) }, llm.CompletionOptions{ToolChoice: llm.ToolChoiceAuto})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Content != "Hi there" {
		t.Fatalf("expected content %q, got %q", "Hi there", result.Content)
	}
	if streamed.String() != result.Content {
		t.Fatalf("streamed %q does not match content %q", streamed.String(), result.Content)
	}
	if result.Usage == nil || result.Usage.InputTokens != 20 || result.Usage.OutputTokens != 5 {
		t.Fatalf("unexpected usage: %+v", result.Usage)
	}
}

func TestGenerateStreamingCompletion_ToolUseInputFragments(t *testing.T) {
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		body := sseBody(
			`{"type":"message_start","message":{"usage":{"input_tokens":9,"output_tokens":0}}}`,
			`{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","id":"toolu_1","name":"execute_command"}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{\"command\""}}`,
			`{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":":\"ls\"}"}}`,
			`{"type":"content_block_stop","index":0}`,
			`{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":11}}`,
			`{"type":"message_stop"}`,
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
	if call.CallID != "toolu_1" || call.Name != "execute_command" {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.Arguments["command"] != "ls" {
		t.Fatalf("expected command=ls, got %v", call.Arguments["command"])
	}
}

func TestConvertRequest_SystemSlotAndToolBlocks(t *testing.T) {
	client := &Client{options: llm.ClientOptions{DefaultModel: "claude-test"}}

	req := client.convertRequest([]llm.Message{
		llm.SystemMessage{Text: "you are terminal-ai"},
		llm.UserMessage{Text: "run ls"},
		llm.ToolCallMessage{Calls: []llm.ToolCallRequest{
			{Name: "execute_command", Arguments: map[string]any{"command": "ls"}, CallID: "toolu_1"},
		}},
		llm.ToolMessage{Results: []llm.ToolCallResponse{
			{Name: "execute_command", Result: "a.txt\n", CallID: "toolu_1"},
		}},
	}, llm.CompletionOptions{})

	if req.System != "you are terminal-ai" {
		t.Fatalf("system message not routed to system slot: %q", req.System)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(req.Messages))
	}
	blocks, ok := req.Messages[1].Content.([]wireContentBlock)
	if !ok || blocks[0].Type != "tool_use" || blocks[0].ID != "toolu_1" {
		t.Fatalf("tool_call not mapped to tool_use block: %+v", req.Messages[1].Content)
	}
	results, ok := req.Messages[2].Content.([]wireContentBlock)
	if !ok || req.Messages[2].Role != "user" || results[0].ToolUseID != "toolu_1" {
		t.Fatalf("tool message not mapped to user tool_result: %+v", req.Messages[2])
	}
}

func TestGenerateStreamingCompletion_SendsWireRequest(t *testing.T) {
	var captured []byte
	client, done := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(sseBody(`{"type":"message_stop"}`)))
	})
	defer done()

	_, err := client.GenerateStreamingCompletion(context.Background(), []llm.Message{
		llm.SystemMessage{Text: "sys"},
		llm.UserMessage{Text: "hi"},
	}, nil, llm.CompletionOptions{
		Tools: []llm.ToolDefinition{{Name: "execute_command", Description: "run a command", Parameters: map[string]any{"type": "object"}}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(captured, &req); err != nil {
		t.Fatalf("request body is not JSON: %v", err)
	}
	if req["system"] != "sys" {
		t.Fatalf("expected system slot, got %v", req["system"])
	}
	if req["stream"] != true {
		t.Fatal("expected streaming request")
	}
	tools, _ := req["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool declaration, got %d", len(tools))
	}
}
