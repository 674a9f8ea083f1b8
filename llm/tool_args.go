package llm

import (
	"bytes"
	"encoding/json"
)

// NormalizeToolArguments converts raw tool arguments into a key/value map.
// It accepts a JSON object or a JSON-encoded string containing an object;
// some backends double-encode and some split arguments across stream
// fragments that reassemble into either shape. Invalid or non-object input
// fails soft to an empty map rather than erroring, so one malformed call
// never aborts a turn.
func NormalizeToolArguments(raw json.RawMessage) map[string]any {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}
	}

	// Unquote once when the backend returns args as a JSON string.
	if trimmed[0] == '"' {
		var unquoted string
		if err := json.Unmarshal(trimmed, &unquoted); err != nil {
			return map[string]any{}
		}
		trimmed = bytes.TrimSpace([]byte(unquoted))
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return map[string]any{}
		}
	}

	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return map[string]any{}
	}

	args, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return args
}

// MarshalToolArguments renders an argument map back to canonical JSON for
// backends that want the raw object. A nil map marshals to {}.
func MarshalToolArguments(args map[string]any) json.RawMessage {
	if len(args) == 0 {
		return json.RawMessage(`{}`)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
