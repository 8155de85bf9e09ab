package domain

import (
	"context"
	"encoding/json"
	"sync"
)

// ToolSchema describes a tool for the LLM function-calling protocol.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolCall represents a model's request to invoke a tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of executing a tool. Errors travel in Content
// with IsError set so the model sees the failure and can react.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// RunContext is the per-run surface a tool may touch beyond its own
// arguments. It exposes only the pending-file append operation.
type RunContext interface {
	AddFile(f File)
}

// Tool is the interface every tool must implement. Tools are registered
// at process start and shared read-only across runs; any files they
// generate go through the RunContext.
type Tool interface {
	Name() string
	Description() string
	// Emoji is the user-facing reaction indicator for this tool.
	Emoji() string
	Schema() ToolSchema
	Execute(ctx context.Context, params json.RawMessage, run RunContext) (*ToolResult, error)
}

// ToolResolver abstracts caller-aware tool lookup.
type ToolResolver interface {
	// Resolve returns the tool with the given name, honoring the
	// caller's privilege level.
	Resolve(name, callerID string) (Tool, error)
	// Schemas returns the schemas of all tools visible to the caller.
	Schemas(callerID string) []ToolSchema
}

// PendingFiles is the ephemeral ordered collection of attachments
// generated by tools during one orchestration run. It is created at run
// start and discarded at run end; it must never be shared across runs.
// Tool calls within one model turn may execute concurrently, hence the
// mutex.
type PendingFiles struct {
	mu    sync.Mutex
	files []File
}

// NewPendingFiles returns an empty per-run file collection.
func NewPendingFiles() *PendingFiles {
	return &PendingFiles{}
}

// AddFile appends a generated attachment.
func (p *PendingFiles) AddFile(f File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.files = append(p.files, f)
}

// Files returns the accumulated attachments in append order.
func (p *PendingFiles) Files() []File {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]File, len(p.files))
	copy(out, p.files)
	return out
}
