package history

import (
	"encoding/json"

	"github.com/kamrul1157024/terminal-ai/llm"
)

// encodeMessage serializes a canonical message to its stored role and
// content. Text roles are stored verbatim; tool payloads are serialized to
// JSON text.
func encodeMessage(msg llm.Message) (role, content string) {
	switch m := msg.(type) {
	case llm.SystemMessage:
		return string(llm.RoleSystem), m.Text
	case llm.UserMessage:
		return string(llm.RoleUser), m.Text
	case llm.AssistantMessage:
		return string(llm.RoleAssistant), m.Text
	case llm.ToolCallMessage:
		data, err := json.Marshal(m.Calls)
		if err != nil {
			return string(llm.RoleAssistant), ""
		}
		return string(llm.RoleToolCall), string(data)
	case llm.ToolMessage:
		data, err := json.Marshal(m.Results)
		if err != nil {
			return string(llm.RoleAssistant), ""
		}
		return string(llm.RoleTool), string(data)
	default:
		return string(llm.RoleAssistant), ""
	}
}

// decodeMessage parses a stored record back into a canonical message.
// A malformed tool payload or unknown role degrades to opaque assistant
// text rather than failing the read path.
func decodeMessage(role, content string) llm.Message {
	switch llm.Role(role) {
	case llm.RoleSystem:
		return llm.SystemMessage{Text: content}
	case llm.RoleUser:
		return llm.UserMessage{Text: content}
	case llm.RoleAssistant:
		return llm.AssistantMessage{Text: content}
	case llm.RoleToolCall:
		var calls []llm.ToolCallRequest
		if err := json.Unmarshal([]byte(content), &calls); err != nil {
			return llm.AssistantMessage{Text: content}
		}
		return llm.ToolCallMessage{Calls: calls}
	case llm.RoleTool:
		var results []llm.ToolCallResponse
		if err := json.Unmarshal([]byte(content), &results); err != nil {
			return llm.AssistantMessage{Text: content}
		}
		return llm.ToolMessage{Results: results}
	default:
		return llm.AssistantMessage{Text: content}
	}
}
