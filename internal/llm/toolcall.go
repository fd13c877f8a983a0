package llm

import (
	"encoding/json"
	"strings"
)

// textToolCall covers the shapes models use when they write a call out as
// JSON instead of using structured function calling.
type textToolCall struct {
	Tool       string          `json:"tool"`
	Name       string          `json:"name"`
	Function   string          `json:"function"`
	Args       json.RawMessage `json:"args"`
	Arguments  json.RawMessage `json:"arguments"`
	Parameters json.RawMessage `json:"parameters"`
}

// ExtractToolCall finds a JSON tool call in text. Only declared tool names
// are accepted.
func ExtractToolCall(text string, tools []ToolSpec) (ToolCall, bool) {
	jsonContent := extractJSON(text)
	if jsonContent == "" {
		return ToolCall{}, false
	}

	var parsed textToolCall
	if err := json.Unmarshal([]byte(jsonContent), &parsed); err != nil {
		return ToolCall{}, false
	}

	name := firstNonEmpty(parsed.Tool, parsed.Name, parsed.Function)
	if name == "" || !declared(name, tools) {
		return ToolCall{}, false
	}

	args := firstRaw(parsed.Args, parsed.Arguments, parsed.Parameters)
	// Arguments are sometimes a JSON string holding the object.
	var encoded string
	if json.Unmarshal(args, &encoded) == nil {
		args = json.RawMessage(encoded)
	}
	return ToolCall{Name: name, Arguments: normalizeArguments(string(args))}, true
}

func extractJSON(content string) string {
	// Look for JSON object in the content
	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	end := strings.LastIndex(content, "}")
	if end == -1 || end <= start {
		return ""
	}

	return content[start : end+1]
}

func declared(name string, tools []ToolSpec) bool {
	for _, spec := range tools {
		if spec.Name == name {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstRaw(values ...json.RawMessage) json.RawMessage {
	for _, v := range values {
		if len(v) > 0 && string(v) != "null" {
			return v
		}
	}
	return nil
}
