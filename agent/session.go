// Package agent drives the request/response/tool-execution loop against a
// provider and a tool registry.
package agent

import (
	"context"
	"log/slog"

	"github.com/kamrul1157024/terminal-ai/history"
	"github.com/kamrul1157024/terminal-ai/llm"
	"github.com/kamrul1157024/terminal-ai/tokens"
	"github.com/kamrul1157024/terminal-ai/tools/registry"
)

// defaultMaxCycles caps tool-call recursion within one user turn.
const defaultMaxCycles = 8

// giveUpMessage terminates a turn that hit the cycle cap.
const giveUpMessage = "I've reached the tool-call limit for this turn without finishing. Giving up, over to you."

// Config assembles a Session. Provider and Registry are required; the rest
// defaults sensibly.
type Config struct {
	Provider llm.Provider
	Registry *registry.Registry

	// Store and ThreadID enable persistence; leave Store nil for an
	// ephemeral session.
	Store    *history.Store
	ThreadID string

	SystemPrompt string
	Model        string

	// InputLimit overrides the model's input-token budget. Zero means look
	// it up from the model identifier.
	InputLimit int

	// Estimate overrides token estimation, mainly for tests.
	Estimate tokens.Estimator

	// OnToken receives incremental output as it streams.
	OnToken llm.TokenSink

	// OnSpinnerStop fires once per turn when the first token arrives, so a
	// thinking indicator can be cleared before output renders.
	OnSpinnerStop func()

	// MaxCycles caps tool-call recursion per turn. Zero means the default.
	MaxCycles int

	Autopilot bool
}

// Session owns one conversation: its provider, tools, history, and token
// accounting. Not safe for concurrent Run calls.
type Session struct {
	provider   llm.Provider
	registry   *registry.Registry
	store      *history.Store
	threadID   string
	model      string
	inputLimit int
	estimate   tokens.Estimator
	onToken    llm.TokenSink
	onSpinner  func()
	maxCycles  int
	cost       *CostTracker

	autopilot      bool
	spinnerStopped bool
	messages       []llm.Message
}

// NewSession builds a session from cfg. The system prompt, when set, becomes
// the permanent head of the conversation.
func NewSession(cfg Config) *Session {
	s := &Session{
		provider:   cfg.Provider,
		registry:   cfg.Registry,
		store:      cfg.Store,
		threadID:   cfg.ThreadID,
		model:      cfg.Model,
		inputLimit: cfg.InputLimit,
		estimate:   cfg.Estimate,
		onToken:    cfg.OnToken,
		onSpinner:  cfg.OnSpinnerStop,
		maxCycles:  cfg.MaxCycles,
		cost:       &CostTracker{},
		autopilot:  cfg.Autopilot,
	}
	if s.inputLimit == 0 {
		s.inputLimit = tokens.InputLimit(cfg.Model)
	}
	if s.estimate == nil {
		s.estimate = tokens.Estimate
	}
	if s.maxCycles == 0 {
		s.maxCycles = defaultMaxCycles
	}
	if cfg.SystemPrompt != "" {
		s.messages = append(s.messages, llm.SystemMessage{Text: cfg.SystemPrompt})
	}
	return s
}

// Resume replaces the session history with a persisted thread's messages
// and targets future writes at that thread.
func (s *Session) Resume(thread *history.Thread) {
	s.threadID = thread.ID
	s.messages = append([]llm.Message(nil), thread.Messages...)
}

// ThreadID returns the persisted thread id, empty for ephemeral sessions.
func (s *Session) ThreadID() string { return s.threadID }

// History returns a copy of the conversation so far.
func (s *Session) History() []llm.Message {
	return append([]llm.Message(nil), s.messages...)
}

// Autopilot reports whether mutation confirmations are skipped.
func (s *Session) Autopilot() bool { return s.autopilot }

// Cost returns the accumulated token totals for the session.
func (s *Session) Cost() Totals { return s.cost.Totals() }

// Run executes one user turn: append the input, cycle through completions
// and tool dispatches until the model answers with plain content (or the
// cycle cap is hit), then persist. A provider failure aborts the turn:
// messages appended so far stay in memory but nothing is persisted for it.
// A persistence failure is logged and the session continues in memory.
func (s *Session) Run(ctx context.Context, input string) (string, error) {
	s.spinnerStopped = false
	s.messages = append(s.messages, llm.UserMessage{Text: input})

	reply, err := s.cycle(ctx, 0)
	if err != nil {
		return "", err
	}

	s.persist()
	return reply, nil
}

func (s *Session) cycle(ctx context.Context, depth int) (string, error) {
	if depth >= s.maxCycles {
		slog.Warn("tool-call cycle cap reached", "max_cycles", s.maxCycles)
		s.emitToken(giveUpMessage)
		s.messages = append(s.messages, llm.AssistantMessage{Text: giveUpMessage})
		return giveUpMessage, nil
	}

	window := truncateToBudget(s.messages, s.estimate, s.model, s.inputLimit)
	opts := llm.CompletionOptions{
		Tools:      s.registry.Declarations(),
		ToolChoice: llm.ToolChoiceAuto,
	}

	result, err := s.provider.GenerateStreamingCompletion(ctx, window, s.emitToken, opts)
	if err != nil {
		return "", err
	}
	usage := result.Usage
	if usage == nil {
		usage = s.estimateUsage(window, result)
	}
	s.cost.Record(usage)

	if len(result.ToolCalls) == 0 {
		s.messages = append(s.messages, llm.AssistantMessage{Text: result.Content})
		return result.Content, nil
	}

	s.messages = append(s.messages, llm.ToolCallMessage{Calls: result.ToolCalls})
	for _, call := range result.ToolCalls {
		s.registry.Render(call)
	}
	responses := s.registry.DispatchAll(ctx, result.ToolCalls)
	s.messages = append(s.messages, llm.ToolMessage{Results: responses})

	return s.cycle(ctx, depth+1)
}

// estimateUsage approximates token accounting locally when the backend
// reports none: input from the sent window, output from the reply.
func (s *Session) estimateUsage(window []llm.Message, result *llm.CompletionResult) *llm.TokenUsage {
	input := 0
	for _, msg := range window {
		input += estimateMessage(s.estimate, s.model, msg)
	}
	output := s.estimate(s.model, result.Content)
	if len(result.ToolCalls) > 0 {
		output += estimateMessage(s.estimate, s.model, llm.ToolCallMessage{Calls: result.ToolCalls})
	}
	return &llm.TokenUsage{InputTokens: input, OutputTokens: output, Model: s.model}
}

func (s *Session) emitToken(token string) {
	if !s.spinnerStopped {
		s.spinnerStopped = true
		if s.onSpinner != nil {
			s.onSpinner()
		}
	}
	if s.onToken != nil {
		s.onToken(token)
	}
}

func (s *Session) persist() {
	if s.store == nil || s.threadID == "" {
		return
	}
	if _, err := s.store.Update(s.threadID, s.messages); err != nil {
		slog.Warn("failed to persist thread, continuing in memory",
			"thread", s.threadID, "error", err)
	}
}
