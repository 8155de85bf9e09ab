package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"halbot/internal/domain"
)

// nopLogger returns a logger that discards output.
func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sentMessage records one outgoing Reply or Edit.
type sentMessage struct {
	TargetID string
	Content  string
}

// fakeMessenger is an in-memory Messenger for orchestration tests.
type fakeMessenger struct {
	mu sync.Mutex

	// store backs FetchReferenced, keyed by message id.
	store map[string]*domain.ChatMessage

	fetchErr error
	replyErr error
	editErr  error

	replies   []sentMessage
	edits     []sentMessage
	reactions map[string][]string // message id -> emojis
	attached  map[string][]domain.File
	typing    int
	nextID    int
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{
		store:     make(map[string]*domain.ChatMessage),
		reactions: make(map[string][]string),
		attached:  make(map[string][]domain.File),
	}
}

func (f *fakeMessenger) FetchReferenced(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if msg.ReferenceID == "" {
		return nil, nil
	}
	ref, ok := f.store[msg.ReferenceID]
	if !ok {
		return nil, nil
	}
	cp := *ref
	return &cp, nil
}

func (f *fakeMessenger) Reply(_ context.Context, to *domain.ChatMessage, content string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyErr != nil {
		return nil, f.replyErr
	}
	f.nextID++
	sent := &domain.ChatMessage{
		ID:        fmt.Sprintf("sent-%d", f.nextID),
		ChannelID: to.ChannelID,
		AuthorID:  "bot",
		Content:   content,
	}
	f.replies = append(f.replies, sentMessage{TargetID: to.ID, Content: content})
	f.store[sent.ID] = sent
	return sent, nil
}

func (f *fakeMessenger) Edit(_ context.Context, msg *domain.ChatMessage, content string) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.editErr != nil {
		return nil, f.editErr
	}
	f.edits = append(f.edits, sentMessage{TargetID: msg.ID, Content: content})
	cp := *msg
	cp.Content = content
	f.store[cp.ID] = &cp
	return &cp, nil
}

func (f *fakeMessenger) React(_ context.Context, msg *domain.ChatMessage, emoji string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reactions[msg.ID] = append(f.reactions[msg.ID], emoji)
	return nil
}

func (f *fakeMessenger) AttachFiles(_ context.Context, msg *domain.ChatMessage, files []domain.File) (*domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[msg.ID] = append(f.attached[msg.ID], files...)
	return msg, nil
}

func (f *fakeMessenger) SendTyping(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.typing++
	return nil
}

func (f *fakeMessenger) reactionsFor(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reactions[id]...)
}

// stubProvider replays scripted responses and captures submitted
// conversations.
type stubProvider struct {
	mu        sync.Mutex
	responses []*domain.ModelResponse
	err       error
	calls     [][]domain.Message
}

func (s *stubProvider) Name() string  { return "stub" }
func (s *stubProvider) Emoji() string { return "📙" }

func (s *stubProvider) Submit(_ context.Context, msgs []domain.Message, _ []domain.ToolSchema, _ domain.SubmitOptions) (*domain.ModelResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.Message, len(msgs))
	copy(cp, msgs)
	s.calls = append(s.calls, cp)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &domain.ModelResponse{}, nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

// stubTool executes a configurable function.
type stubTool struct {
	name  string
	emoji string
	fn    func(ctx context.Context, params json.RawMessage, run domain.RunContext) (*domain.ToolResult, error)
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return "stub tool" }
func (s *stubTool) Emoji() string       { return s.emoji }
func (s *stubTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{Name: s.name, Parameters: json.RawMessage(`{"type":"object"}`)}
}
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage, run domain.RunContext) (*domain.ToolResult, error) {
	return s.fn(ctx, params, run)
}

// stubResolver resolves from a fixed map.
type stubResolver struct {
	tools map[string]domain.Tool
}

func (r *stubResolver) Resolve(name, _ string) (domain.Tool, error) {
	if t, ok := r.tools[name]; ok {
		return t, nil
	}
	return nil, domain.NewDomainError("stubResolver.Resolve", domain.ErrToolNotFound, name)
}

func (r *stubResolver) Schemas(_ string) []domain.ToolSchema {
	out := make([]domain.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t.Schema())
	}
	return out
}

// testTrigger builds a trigger message with no reply reference.
func testTrigger() *domain.ChatMessage {
	return &domain.ChatMessage{
		ID:            "trigger-1",
		ChannelID:     "chan-1",
		AuthorID:      "user-1",
		AuthorName:    "dave",
		AuthorMention: "<@user-1>",
		Content:       "open the pod bay doors",
	}
}

func newTestOrchestrator(m *fakeMessenger, p domain.Provider, tools domain.ToolResolver, rounds int) *Orchestrator {
	if tools == nil {
		tools = &stubResolver{tools: map[string]domain.Tool{}}
	}
	return NewOrchestrator(OrchestratorDeps{
		Provider:      p,
		Tools:         tools,
		Messenger:     m,
		Logger:        nopLogger(),
		SystemPrompt:  "you are a test bot",
		MaxToolRounds: rounds,
		BotUserID:     "bot",
		Dispatcher:    NewDispatcher(m, 2000, nopLogger()),
	})
}

var errBoom = errors.New("boom")

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
