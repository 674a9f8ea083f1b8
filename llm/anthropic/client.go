package anthropic

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
	providerName    = "anthropic"
	defaultBaseURL  = "https://api.anthropic.com/v1"
	defaultTimeout  = 120 * time.Second
	defaultModel    = "claude-sonnet-4-20250514"
	apiVersion      = "2023-06-01"
	maxOutputTokens = 8192
)

// Client is the provider adapter for the Anthropic Messages API.
type Client struct {
	options    llm.ClientOptions
	httpClient *http.Client
}

// NewClient creates a new Anthropic adapter. The API key falls back to the
// ANTHROPIC_API_KEY environment variable.
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
		options.APIKey = os.Getenv("ANTHROPIC_API_KEY")
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

// Wire types for the Messages API.

type wireMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type wireContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
	IsError   bool            `json:"is_error,omitempty"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type wireRequest struct {
	Model      string        `json:"model"`
	Messages   []wireMessage `json:"messages"`
	MaxTokens  int           `json:"max_tokens"`
	Stream     bool          `json:"stream"`
	System     string        `json:"system,omitempty"`
	Tools      []wireTool    `json:"tools,omitempty"`
	ToolChoice any           `json:"tool_choice,omitempty"`
}

// streamEvent covers the union of SSE event payloads we consume.
type streamEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Message *struct {
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	ContentBlock *struct {
		Type string `json:"type"`
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"content_block"`
	Delta *struct {
		Type        string `json:"type"`
		Text        string `json:"text"`
		PartialJSON string `json:"partial_json"`
	} `json:"delta"`
	Usage *struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// GenerateStreamingCompletion maps canonical messages to Anthropic's wire
// shape and reads the SSE stream. The system message goes into the dedicated
// system slot; tool_call and tool messages become tool_use and tool_result
// content blocks. Tool input JSON arrives as input_json_delta fragments per
// content block and is finalized when the block stops.
func (c *Client) GenerateStreamingCompletion(ctx context.Context, messages []llm.Message, onToken llm.TokenSink, opts llm.CompletionOptions) (*llm.CompletionResult, error) {
	req := c.convertRequest(messages, opts)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, llm.NewProviderError(providerName, "failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.options.BaseURL+"/messages", bytes.NewReader(body))
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
	usage := &llm.TokenUsage{Model: req.Model}
	sawUsage := false

	// Per-index accumulation of tool_use blocks.
	type toolBlock struct {
		id   string
		name string
		args strings.Builder
	}
	blocks := make(map[int]*toolBlock)
	var order []int

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

		var event streamEvent
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				usage.InputTokens = event.Message.Usage.InputTokens
				usage.OutputTokens = event.Message.Usage.OutputTokens
				sawUsage = true
			}
		case "content_block_start":
			if event.ContentBlock != nil && event.ContentBlock.Type == "tool_use" {
				blocks[event.Index] = &toolBlock{id: event.ContentBlock.ID, name: event.ContentBlock.Name}
				order = append(order, event.Index)
			}
		case "content_block_delta":
			if event.Delta == nil {
				continue
			}
			switch event.Delta.Type {
			case "text_delta":
				if event.Delta.Text != "" {
					if onToken != nil {
						onToken(event.Delta.Text)
					}
					content.WriteString(event.Delta.Text)
				}
			case "input_json_delta":
				if b, ok := blocks[event.Index]; ok {
					b.args.WriteString(event.Delta.PartialJSON)
				}
			}
		case "message_delta":
			if event.Usage != nil {
				usage.OutputTokens = event.Usage.OutputTokens
				sawUsage = true
			}
		case "message_stop":
			// Terminal event; the read loop drains naturally after it.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, llm.NewProviderError(providerName, "stream read failed", err)
	}

	var calls []llm.ToolCallRequest
	for _, idx := range order {
		b := blocks[idx]
		if b.name == "" {
			continue
		}
		id := b.id
		if id == "" {
			id = "toolu_" + uuid.NewString()
		}
		calls = append(calls, llm.ToolCallRequest{
			Name:      b.name,
			Arguments: llm.NormalizeToolArguments(json.RawMessage(b.args.String())),
			CallID:    id,
		})
	}

	result := &llm.CompletionResult{
		Content:   content.String(),
		ToolCalls: calls,
	}
	if sawUsage {
		result.Usage = usage
	}
	return result, nil
}

func (c *Client) convertRequest(messages []llm.Message, opts llm.CompletionOptions) *wireRequest {
	req := &wireRequest{
		Model:     c.options.DefaultModel,
		MaxTokens: maxOutputTokens,
		Stream:    true,
	}

	for _, msg := range messages {
		switch m := msg.(type) {
		case llm.SystemMessage:
			req.System = m.Text
		case llm.UserMessage:
			req.Messages = append(req.Messages, wireMessage{Role: "user", Content: m.Text})
		case llm.AssistantMessage:
			req.Messages = append(req.Messages, wireMessage{Role: "assistant", Content: m.Text})
		case llm.ToolCallMessage:
			var content []wireContentBlock
			for _, call := range m.Calls {
				content = append(content, wireContentBlock{
					Type:  "tool_use",
					ID:    call.CallID,
					Name:  call.Name,
					Input: llm.MarshalToolArguments(call.Arguments),
				})
			}
			req.Messages = append(req.Messages, wireMessage{Role: "assistant", Content: content})
		case llm.ToolMessage:
			var content []wireContentBlock
			for _, res := range m.Results {
				block := wireContentBlock{
					Type:      "tool_result",
					ToolUseID: res.CallID,
					Content:   res.Result,
				}
				if res.Error != "" {
					block.Content = res.Error
					block.IsError = true
				}
				content = append(content, block)
			}
			req.Messages = append(req.Messages, wireMessage{Role: "user", Content: content})
		}
	}

	for _, def := range opts.Tools {
		req.Tools = append(req.Tools, wireTool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.Parameters,
		})
	}
	if len(req.Tools) > 0 && opts.ToolChoice == llm.ToolChoiceNone {
		req.ToolChoice = map[string]any{"type": "none"}
	}

	return req
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("x-api-key", c.options.APIKey)
	req.Header.Set("anthropic-version", apiVersion)
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
