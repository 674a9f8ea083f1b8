package agent

import (
	"encoding/json"
	"log/slog"

	"github.com/kamrul1157024/terminal-ai/llm"
	"github.com/kamrul1157024/terminal-ai/tokens"
)

// messageOverheadTokens covers per-message framing the serialized text does
// not account for.
const messageOverheadTokens = 4

// estimateMessage approximates the token cost of one message under model.
func estimateMessage(estimate tokens.Estimator, model string, msg llm.Message) int {
	var text string
	switch m := msg.(type) {
	case llm.SystemMessage:
		text = m.Text
	case llm.UserMessage:
		text = m.Text
	case llm.AssistantMessage:
		text = m.Text
	case llm.ToolCallMessage:
		if data, err := json.Marshal(m.Calls); err == nil {
			text = string(data)
		}
	case llm.ToolMessage:
		if data, err := json.Marshal(m.Results); err == nil {
			text = string(data)
		}
	}
	return estimate(model, text) + messageOverheadTokens
}

// truncateToBudget drops the oldest non-system messages until the estimated
// token sum of the rest fits within limit. A greedy newest-first window: the
// leading system prompt is always retained outside the budget, and when even
// the newest message alone exceeds the limit it is sent anyway.
func truncateToBudget(messages []llm.Message, estimate tokens.Estimator, model string, limit int) []llm.Message {
	var system []llm.Message
	rest := messages
	if len(messages) > 0 {
		if _, ok := messages[0].(llm.SystemMessage); ok {
			system = messages[:1]
			rest = messages[1:]
		}
	}

	total := 0
	start := len(rest)
	for i := len(rest) - 1; i >= 0; i-- {
		cost := estimateMessage(estimate, model, rest[i])
		if total+cost > limit {
			break
		}
		total += cost
		start = i
	}

	if start == len(rest) && len(rest) > 0 {
		slog.Warn("newest message alone exceeds the input budget, sending anyway",
			"model", model, "limit", limit)
		start = len(rest) - 1
	}

	if start == 0 {
		return messages
	}
	out := make([]llm.Message, 0, len(system)+len(rest)-start)
	out = append(out, system...)
	out = append(out, rest[start:]...)
	return out
}
