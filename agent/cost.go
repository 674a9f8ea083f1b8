package agent

import (
	"sync"

	"github.com/kamrul1157024/terminal-ai/llm"
)

// Totals is the accumulated token accounting for a session.
type Totals struct {
	Requests     int
	InputTokens  int
	OutputTokens int
}

// CostTracker accumulates backend-reported usage across requests. Safe for
// concurrent use.
type CostTracker struct {
	mu     sync.Mutex
	totals Totals
}

// Record adds the usage of one completion request. Nil usage still counts
// the request.
func (c *CostTracker) Record(usage *llm.TokenUsage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totals.Requests++
	if usage != nil {
		c.totals.InputTokens += usage.InputTokens
		c.totals.OutputTokens += usage.OutputTokens
	}
}

// Totals returns a snapshot of the session totals.
func (c *CostTracker) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}
