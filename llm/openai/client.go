package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamrul1157024/terminal-ai/llm"
)

const (
	providerName   = "openai"
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 120 * time.Second
	defaultModel   = "gpt-4o"
)

// Client is the provider adapter for the OpenAI chat-completions API.
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// NewClient creates a new OpenAI adapter. The API key falls back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...llm.ClientOption) (*Client, error) {
	options := llm.ClientOptions{
		BaseURL:      defaultBaseURL,
		Timeout:      defaultTimeout,
		DefaultModel: defaultModel,
		Headers:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.APIKey == "" {
		options.APIKey = os.Getenv("OPENAI_API_KEY")
		if options.APIKey == "" {
			return nil, llm.NewProviderError(providerName, "API key not provided", nil)
		}
	}

	return &Client{
		options:    options,
		httpClient: &http.Client{Timeout: options.Timeout},
	}, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string { return providerName }

// Wire types for the chat-completions endpoint.

type wireMessage struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content,omitempty"`
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireToolCall struct {
	Index    *int         `json:"index,omitempty"`
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

type wireRequest struct {
	Model         string         `json:"model"`
	Messages      []wireMessage  `json:"messages"`
	Stream        bool           `json:"stream"`
	StreamOptions map[string]any `json:"stream_options,omitempty"`
	Tools         []wireTool     `json:"tools,omitempty"`
	ToolChoice    string         `json:"tool_choice,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content   string         `json:"content"`
			ToolCalls []wireToolCall `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// GenerateStreamingCompletion maps the canonical messages to OpenAI's wire
// shape, opens an SSE stream, and forwards each content token to onToken
// before accumulating it. Tool-call fragments arrive keyed by index with
// name and arguments split across chunks; they are merged and finalized
// only once the stream ends.
func (c *Client) GenerateStreamingCompletion(ctx context.Context, messages []llm.Message, onToken llm.TokenSink, opts llm.CompletionOptions) (*llm.CompletionResult, error) {
	req := wireRequest{
		Model:         c.options.DefaultModel,
		Messages:      convertMessages(messages),
		Stream:        true,
		StreamOptions: map[string]any{"include_usage": true},
		ToolChoice:    string(opts.ToolChoice),
	}
	if opts.ToolChoice == llm.ToolChoiceNone {
		req.ToolChoice = "none"
	}
	for _, def := range opts.Tools {
		var t wireTool
		t.Type = "function"
		t.Function.Name = def.Name
		t.Function.Description = def.Description
		t.Function.Parameters = def.Parameters
		req.Tools = append(req.Tools, t)
	}
	if len(req.Tools) == 0 {
		req.ToolChoice = ""
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewProviderError(providerName, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.options.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewProviderError(providerName, "failed to create request", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.NewProviderError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, llm.NewProviderError(providerName, apiErrorMessage(resp.StatusCode, respBody), nil)
	}

	var content strings.Builder
	acc := newToolCallAccumulator()
	var usage *llm.TokenUsage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, llm.NewProviderError(providerName, "stream cancelled", ctx.Err())
		default:
		}

		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}

		if chunk.Usage != nil {
			usage = &llm.TokenUsage{
				InputTokens:  chunk.Usage.PromptTokens,
				OutputTokens: chunk.Usage.CompletionTokens,
				Model:        req.Model,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			if onToken != nil {
				onToken(delta.Content)
			}
			content.WriteString(delta.Content)
		}
		for _, tc := range delta.ToolCalls {
			acc.add(tc)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, llm.NewProviderError(providerName, "stream read failed", err)
	}

	return &llm.CompletionResult{
		Content:   content.String(),
		ToolCalls: acc.finalize(),
		Usage:     usage,
	}, nil
}

// toolCallAccumulator merges tool-call fragments that arrive keyed by index
// across stream chunks. The name arrives once; argument JSON is concatenated
// piecewise.
type toolCallAccumulator struct {
	byIndex map[int]*partialToolCall
	next    int
}

type partialToolCall struct {
	index int
	id    string
	name  string
	args  strings.Builder
}

func newToolCallAccumulator() *toolCallAccumulator {
	return &toolCallAccumulator{byIndex: make(map[int]*partialToolCall)}
}

func (a *toolCallAccumulator) add(tc wireToolCall) {
	idx := a.next
	if tc.Index != nil {
		idx = *tc.Index
	}

	p, ok := a.byIndex[idx]
	if !ok {
		p = &partialToolCall{index: idx}
		a.byIndex[idx] = p
		a.next = idx + 1
	}
	if tc.ID != "" {
		p.id = tc.ID
	}
	if tc.Function.Name != "" {
		p.name = tc.Function.Name
	}
	p.args.WriteString(tc.Function.Arguments)
}

func (a *toolCallAccumulator) finalize() []llm.ToolCallRequest {
	partials := make([]*partialToolCall, 0, len(a.byIndex))
	for _, p := range a.byIndex {
		partials = append(partials, p)
	}
	sort.Slice(partials, func(i, j int) bool { return partials[i].index < partials[j].index })

	var calls []llm.ToolCallRequest
	for _, p := range partials {
		if p.name == "" {
			continue
		}
		id := p.id
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		calls = append(calls, llm.ToolCallRequest{
			Name:      p.name,
			Arguments: llm.NormalizeToolArguments(json.RawMessage(p.args.String())),
			CallID:    id,
		})
	}
	return calls
}

// convertMessages maps canonical messages to OpenAI wire messages. System
// messages are sent inline as system-role turns; a tool message expands into
// one wire message per call result, as the API requires.
func convertMessages(messages []llm.Message) []wireMessage {
	var out []wireMessage
	for _, msg := range messages {
		switch m := msg.(type) {
		case llm.SystemMessage:
			out = append(out, wireMessage{Role: "system", Content: strPtr(m.Text)})
		case llm.UserMessage:
			out = append(out, wireMessage{Role: "user", Content: strPtr(m.Text)})
		case llm.AssistantMessage:
			out = append(out, wireMessage{Role: "assistant", Content: strPtr(m.Text)})
		case llm.ToolCallMessage:
			wm := wireMessage{Role: "assistant"}
			for _, call := range m.Calls {
				wm.ToolCalls = append(wm.ToolCalls, wireToolCall{
					ID:   call.CallID,
					Type: "function",
					Function: wireFunction{
						Name:      call.Name,
						Arguments: string(llm.MarshalToolArguments(call.Arguments)),
					},
				})
			}
			out = append(out, wm)
		case llm.ToolMessage:
			for _, res := range m.Results {
				body := res.Result
				if res.Error != "" {
					body = "Error: " + res.Error
				}
				out = append(out, wireMessage{
					Role:       "tool",
					Content:    strPtr(body),
					Name:       res.Name,
					ToolCallID: res.CallID,
				})
			}
		}
	}
	return out
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.options.APIKey)
	req.Header.Set("User-Agent", "terminal-ai/1.0")
	for k, v := range c.options.Headers {
		req.Header.Set(k, v)
	}
}

func apiErrorMessage(status int, body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("API error (status %d): %s", status, errResp.Error.Message)
	}
	return fmt.Sprintf("API error: status %d", status)
}

func strPtr(s string) *string { return &s }
