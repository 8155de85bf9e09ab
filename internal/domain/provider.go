package domain

import "context"

// ModelResponse is the normalized envelope returned by a provider.
// Exactly one of the following holds: Text is non-empty (final answer),
// ToolCalls is non-empty (the model wants tools run), or both are empty
// (the model produced nothing — a soft failure, not an error).
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// IsEmpty reports whether the model produced neither text nor tool calls.
func (r *ModelResponse) IsEmpty() bool {
	return r.Text == "" && len(r.ToolCalls) == 0
}

// SubmitOptions carries per-run parameters that are not part of the
// conversation itself.
type SubmitOptions struct {
	SystemPrompt string
	// CallerID identifies the end user for providers that accept one.
	CallerID string
}

// Provider submits a conversation to a model backend and returns the
// normalized response. Implementations translate the role/content
// representation (including assistant tool-call turns and role=tool
// results) into their own wire format.
type Provider interface {
	Name() string
	// Emoji is the reaction indicator added to messages produced by this
	// model.
	Emoji() string
	Submit(ctx context.Context, msgs []Message, tools []ToolSchema, opts SubmitOptions) (*ModelResponse, error)
}
