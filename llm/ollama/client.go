package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kamrul1157024/terminal-ai/llm"
)

const (
	providerName   = "ollama"
	defaultBaseURL = "http://localhost:11434"
	// Local models can be slow to load.
	defaultTimeout = 300 * time.Second
	defaultModel   = "llama3.1"
)

// Client is the provider adapter for a local Ollama server. Ollama streams
// newline-delimited JSON rather than SSE, and tool calls arrive whole inside
// a message object instead of as fragments.
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// NewClient creates a new Ollama adapter. The endpoint falls back to the
// OLLAMA_URL environment variable, then to localhost.
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

	if options.BaseURL == defaultBaseURL {
		if envURL := os.Getenv("OLLAMA_URL"); envURL != "" {
			options.BaseURL = envURL
		}
	}

	return &Client{
		options:    options,
		httpClient: &http.Client{Timeout: options.Timeout},
	}, nil
}

// Name returns the backend identifier.
func (c *Client) Name() string { return providerName }

type wireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role      string         `json:"role"`
	Content   string         `json:"content"`
	ToolCalls []wireToolCall `json:"tool_calls,omitempty"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Tools    []any         `json:"tools,omitempty"`
}

type streamResponse struct {
	Message         wireMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// GenerateStreamingCompletion sends the chat request and reads the NDJSON
// stream, forwarding content tokens to onToken before accumulating them.
// Usage comes from the final done-marked object's eval counts.
func (c *Client) GenerateStreamingCompletion(ctx context.Context, messages []llm.Message, onToken llm.TokenSink, opts llm.CompletionOptions) (*llm.CompletionResult, error) {
	req := wireRequest{
		Model:    c.options.DefaultModel,
		Messages: convertMessages(messages),
		Stream:   true,
	}
	if opts.ToolChoice != llm.ToolChoiceNone {
		for _, def := range opts.Tools {
			req.Tools = append(req.Tools, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        def.Name,
					"description": def.Description,
					"parameters":  def.Parameters,
				},
			})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewProviderError(providerName, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.options.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, llm.NewProviderError(providerName, "failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range c.options.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, llm.NewProviderError(providerName, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, llm.NewProviderError(providerName, fmt.Sprintf("API error: status %d, body: %s", resp.StatusCode, string(respBody)), nil)
	}

	var content strings.Builder
	var calls []llm.ToolCallRequest
	var usage *llm.TokenUsage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, llm.NewProviderError(providerName, "stream cancelled", ctx.Err())
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var chunk streamResponse
		if err := json.Unmarshal([]byte(line), &chunk); err != nil {
			continue
		}

		if chunk.Message.Content != "" {
			if onToken != nil {
				onToken(chunk.Message.Content)
			}
			content.WriteString(chunk.Message.Content)
		}
		for _, tc := range chunk.Message.ToolCalls {
			args := tc.Function.Arguments
			if args == nil {
				args = map[string]any{}
			}
			calls = append(calls, llm.ToolCallRequest{
				Name:      tc.Function.Name,
				Arguments: args,
				CallID:    "call_" + uuid.NewString(),
			})
		}

		if chunk.Done {
			usage = &llm.TokenUsage{
				InputTokens:  chunk.PromptEvalCount,
				OutputTokens: chunk.EvalCount,
				Model:        req.Model,
			}
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, llm.NewProviderError(providerName, "stream read failed", err)
	}

	return &llm.CompletionResult{
		Content:   content.String(),
		ToolCalls: calls,
		Usage:     usage,
	}, nil
}

// convertMessages maps canonical messages to Ollama's wire shape. Ollama has
// no call-id correlation, so tool results are sent as tool-role turns in
// request order.
func convertMessages(messages []llm.Message) []wireMessage {
	var out []wireMessage
	for _, msg := range messages {
		switch m := msg.(type) {
		case llm.SystemMessage:
			out = append(out, wireMessage{Role: "system", Content: m.Text})
		case llm.UserMessage:
			out = append(out, wireMessage{Role: "user", Content: m.Text})
		case llm.AssistantMessage:
			out = append(out, wireMessage{Role: "assistant", Content: m.Text})
		case llm.ToolCallMessage:
			wm := wireMessage{Role: "assistant"}
			for _, call := range m.Calls {
				var tc wireToolCall
				tc.Function.Name = call.Name
				tc.Function.Arguments = call.Arguments
				wm.ToolCalls = append(wm.ToolCalls, tc)
			}
			out = append(out, wm)
		case llm.ToolMessage:
			for _, res := range m.Results {
				body := res.Result
				if res.Error != "" {
					body = "Error: " + res.Error
				}
				out = append(out, wireMessage{Role: "tool", Content: body})
			}
		}
	}
	return out
}
