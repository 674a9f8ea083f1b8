package llm

// Role identifies the kind of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleToolCall  Role = "tool_call"
	RoleTool      Role = "tool"
)

// Message is the canonical conversation message, a sealed union over role.
// Consumers switch exhaustively on the concrete type, so adding a role is a
// compile-visible change at every consumption site.
type Message interface {
	Role() Role
	sealed()
}

// SystemMessage carries the system prompt.
type SystemMessage struct {
	Text string
}

// UserMessage is a plain user turn.
type UserMessage struct {
	Text string
}

// AssistantMessage is a plain model turn.
type AssistantMessage struct {
	Text string
}

// ToolCallMessage is an assistant-issued batch of tool invocations.
type ToolCallMessage struct {
	Calls []ToolCallRequest
}

// ToolMessage aggregates the outcomes for one ToolCallMessage. Results are
// ordered to match the corresponding Calls, and every CallID from the
// request batch appears exactly once.
type ToolMessage struct {
	Results []ToolCallResponse
}

func (SystemMessage) Role() Role    { return RoleSystem }
func (UserMessage) Role() Role      { return RoleUser }
func (AssistantMessage) Role() Role { return RoleAssistant }
func (ToolCallMessage) Role() Role  { return RoleToolCall }
func (ToolMessage) Role() Role      { return RoleTool }

func (SystemMessage) sealed()    {}
func (UserMessage) sealed()      {}
func (AssistantMessage) sealed() {}
func (ToolCallMessage) sealed()  {}
func (ToolMessage) sealed()      {}

// ToolCallRequest asks for one tool invocation. CallID correlates the
// request with its response across provider round-trips and is unique
// within a single tool_call/tool pair.
type ToolCallRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	CallID    string         `json:"call_id"`
}

// ToolCallResponse is the outcome of one tool invocation. Error is empty
// on success.
type ToolCallResponse struct {
	Name   string `json:"name"`
	Result string `json:"result"`
	Error  string `json:"error,omitempty"`
	CallID string `json:"call_id"`
}

// ToolDefinition describes an invocable capability to the model.
// Parameters holds a JSON schema object. Immutable once registered.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// TokenUsage is the token accounting for a single completion request.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	Model        string
}

// ToolChoice is the tool-call policy for a completion request.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// CompletionOptions configures one streaming completion request.
type CompletionOptions struct {
	Tools      []ToolDefinition
	ToolChoice ToolChoice
}

// CompletionResult is the finalized outcome of one streaming completion.
// Content and ToolCalls may both be set when a backend emits explanatory
// text alongside a call.
type CompletionResult struct {
	Content   string
	ToolCalls []ToolCallRequest
	Usage     *TokenUsage
}

// TokenSink receives incremental output tokens. It is invoked synchronously
// from the adapter's stream read loop; callers must not block in it.
type TokenSink func(token string)
