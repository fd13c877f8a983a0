// Package llm is the language capability: given a turn context and a set of
// declared tools it returns free text and/or structured tool calls.
package llm

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrEmptyResponse is returned when the model produced neither text nor
	// tool calls.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrStaleContext is returned when the prepared context was rejected
	// even after being rebuilt.
	ErrStaleContext = errors.New("llm: stale context")
)

// Provider defines the interface for language providers
type Provider interface {
	Respond(ctx context.Context, req Request) (*Response, error)
}

// ToolSpec declares a tool the model may call. Parameters is a JSON schema.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is one structured invocation emitted by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// ToolResult is the outcome of a ToolCall, fed back on the second pass.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
}

// Request is one call to the model. Calls and Results are only set on the
// second pass, in the order the calls were emitted.
type Request struct {
	System  string
	Prompt  string
	Tools   []ToolSpec
	Calls   []ToolCall
	Results []ToolResult
}

// Response is what the model returned.
type Response struct {
	Text      string
	ToolCalls []ToolCall
}
