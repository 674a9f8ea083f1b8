package llm

import (
	"context"
	"fmt"
	"time"
)

// Provider is the streaming completion contract every backend adapter
// implements. Adapters translate the canonical message and tool vocabulary
// into their backend's wire shape and back; no backend-specific type leaks
// through this interface.
type Provider interface {
	// Name returns the backend identifier ("openai", "anthropic", ...).
	Name() string

	// GenerateStreamingCompletion sends the messages and streams the reply.
	// onToken is called for each incremental token before the adapter
	// accumulates it, so output is visible in real time. Cancelling ctx
	// stops the stream read loop cooperatively.
	GenerateStreamingCompletion(ctx context.Context, messages []Message, onToken TokenSink, opts CompletionOptions) (*CompletionResult, error)
}

// ProviderError wraps any backend request, auth, or stream failure. A raw
// backend error never escapes an adapter uncategorized.
type ProviderError struct {
	Provider string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps err with the backend name and a short description.
func NewProviderError(provider, message string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Message: message, Err: err}
}

// ClientOptions contains common construction options for adapters.
type ClientOptions struct {
	APIKey       string
	BaseURL      string
	Timeout      time.Duration
	DefaultModel string
	Headers      map[string]string
}

// ClientOption is a functional option for configuring adapters.
type ClientOption func(*ClientOptions)

// WithAPIKey sets the API key.
func WithAPIKey(key string) ClientOption {
	return func(o *ClientOptions) { o.APIKey = key }
}

// WithBaseURL overrides the backend endpoint.
func WithBaseURL(url string) ClientOption {
	return func(o *ClientOptions) {
		if url != "" {
			o.BaseURL = url
		}
	}
}

// WithTimeout sets the request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) { o.Timeout = timeout }
}

// WithModel sets the default model.
func WithModel(model string) ClientOption {
	return func(o *ClientOptions) {
		if model != "" {
			o.DefaultModel = model
		}
	}
}

// WithHeaders adds extra request headers.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}
