package domain

import "time"

// Role constants for normalized message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is a platform-native message. The bot only reads these,
// except for the trigger message of a run, which it may edit or reply to.
type ChatMessage struct {
	ID            string
	ChannelID     string
	AuthorID      string
	AuthorName    string
	AuthorMention string
	AuthorIsBot   bool
	Content       string
	// ReferenceID is the id of the message this one replies to.
	// Empty when the message is not a reply.
	ReferenceID string
}

// Message is the provider-agnostic role/content representation submitted
// to a model. Assistant messages may carry tool calls; tool messages carry
// exactly one tool result correlated via ToolCalls[0].ID.
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	Name      string     `json:"name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// File is a binary attachment generated by a tool during a run.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}
