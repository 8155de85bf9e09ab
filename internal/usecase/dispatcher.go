package usecase

import (
	"context"
	"log/slog"

	"halbot/internal/domain"
)

// Dispatcher splits final text into platform-size-limited chunks and
// emits them as a sequence of edits/replies.
type Dispatcher struct {
	messenger domain.Messenger
	chunkSize int
	logger    *slog.Logger
}

// NewDispatcher creates a dispatcher. chunkSize is the platform's maximum
// message length.
func NewDispatcher(messenger domain.Messenger, chunkSize int, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		messenger: messenger,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// Emit sends text to the channel. When firstChunkIsEdit is true, the
// first chunk replaces the content of target (the placeholder message);
// remaining chunks are sent as sequential replies, each targeting the
// previous chunk's message so they render threaded. When false, every
// chunk is a new reply to target. Files are attached to the message
// carrying the final chunk. Returns that message.
func (d *Dispatcher) Emit(ctx context.Context, text string, target *domain.ChatMessage, firstChunkIsEdit bool, files []domain.File) (*domain.ChatMessage, error) {
	chunks := Chunk(text, d.chunkSize)
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	d.logger.Debug("emitting response", "chunks", len(chunks), "files", len(files))

	last := target
	start := 0
	if firstChunkIsEdit {
		edited, err := d.messenger.Edit(ctx, target, chunks[0])
		if err != nil {
			return nil, domain.WrapOp("edit first chunk", err)
		}
		last = edited
		start = 1
	}

	for i := start; i < len(chunks); i++ {
		sent, err := d.messenger.Reply(ctx, last, chunks[i])
		if err != nil {
			return nil, domain.WrapOp("send chunk", err)
		}
		last = sent
	}

	if len(files) > 0 {
		withFiles, err := d.messenger.AttachFiles(ctx, last, files)
		if err != nil {
			return nil, domain.WrapOp("attach files", err)
		}
		last = withFiles
	}

	return last, nil
}

// Chunk splits text into pieces of at most size runes. Splitting by rune
// keeps multi-byte characters intact. Concatenating the chunks yields the
// original text.
func Chunk(text string, size int) []string {
	if text == "" {
		return nil
	}
	runes := []rune(text)
	chunks := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
