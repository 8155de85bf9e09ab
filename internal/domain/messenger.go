package domain

import "context"

// Messenger is the chat-platform capability consumed by the orchestrator.
// Implementations own all network I/O against the platform.
type Messenger interface {
	// FetchReferenced resolves the message msg replies to. It returns
	// (nil, nil) when msg is not a reply or the reference no longer
	// resolves to a message (deleted, or a non-message entity). A fetch
	// failure is returned as an error and aborts the caller's run.
	FetchReferenced(ctx context.Context, msg *ChatMessage) (*ChatMessage, error)

	// Reply sends content as a reply to msg and returns the sent message.
	Reply(ctx context.Context, to *ChatMessage, content string) (*ChatMessage, error)

	// Edit replaces the content of a message previously sent by the bot.
	Edit(ctx context.Context, msg *ChatMessage, content string) (*ChatMessage, error)

	// React adds a reaction indicator to msg. Best effort: callers treat
	// failures as non-fatal.
	React(ctx context.Context, msg *ChatMessage, emoji string) error

	// AttachFiles adds files to an existing bot message.
	AttachFiles(ctx context.Context, msg *ChatMessage, files []File) (*ChatMessage, error)

	// SendTyping shows the typing indicator in a channel.
	SendTyping(ctx context.Context, channelID string) error
}
