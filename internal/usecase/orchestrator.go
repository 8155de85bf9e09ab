package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"

	"halbot/internal/domain"
	"halbot/internal/infra/tracer"
)

// User-facing indicators and messages. The apology phrasing is part of
// the bot's personality and shared by every failure path.
const (
	thinkingIndicator = "🤔"
	attentionReaction = "⚠️"

	apologyFormat       = "I'm sorry, %s, I'm afraid I can't do that.\n%v"
	emptyResponseFormat = "I'm sorry, %s, but I didn't generate any response or tool calls."
	maxRoundsMessage    = "too many tool steps in one conversation"
)

// OrchestratorDeps holds injected dependencies for the orchestrator.
type OrchestratorDeps struct {
	Provider  domain.Provider
	Tools     domain.ToolResolver
	Messenger domain.Messenger
	Logger    *slog.Logger

	SystemPrompt string
	// MaxToolRounds bounds the model-call/tool-execution cycles per run.
	MaxToolRounds int
	// MaxConversationDepth bounds reply-chain reconstruction.
	MaxConversationDepth int
	// BotUserID identifies the bot's own messages during normalization.
	BotUserID string

	Dispatcher *Dispatcher
}

// Orchestrator drives one run per trigger message: reconstruct the
// conversation, submit it to the model, execute requested tools, resubmit,
// and emit the final answer. Runs are independent; the only shared state
// is the read-only tool registry.
type Orchestrator struct {
	deps OrchestratorDeps
}

// NewOrchestrator creates an orchestrator with the given dependencies.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	if deps.MaxToolRounds <= 0 {
		deps.MaxToolRounds = 5
	}
	if deps.MaxConversationDepth <= 0 {
		deps.MaxConversationDepth = 50
	}
	return &Orchestrator{deps: deps}
}

// HandleMessage processes a single trigger message through the full run.
// The returned error is for logging only; every failure path has already
// been rendered to the user by the time it returns.
func (o *Orchestrator) HandleMessage(ctx context.Context, trigger *domain.ChatMessage) error {
	runID := ulid.Make().String()
	log := o.deps.Logger.With("run_id", runID, "channel", trigger.ChannelID)

	ctx, span := tracer.StartSpan(ctx, "orchestrator.handle_message",
		trace.WithAttributes(
			tracer.StringAttr("run.id", runID),
			tracer.StringAttr("llm.provider", o.deps.Provider.Name()),
		),
	)
	defer span.End()

	if err := o.deps.Messenger.SendTyping(ctx, trigger.ChannelID); err != nil {
		log.Debug("typing indicator failed", "error", err)
	}

	conv, err := Reconstruct(ctx, o.deps.Messenger, trigger, o.deps.MaxConversationDepth)
	if err != nil {
		log.Error("conversation reconstruction failed", "error", err)
		tracer.RecordError(span, err)
		o.replyFailure(ctx, trigger, nil, err, log)
		return err
	}
	log.Info("conversation reconstructed", "messages", len(conv))

	msgs := Normalize(conv, o.deps.BotUserID)
	schemas := o.deps.Tools.Schemas(trigger.AuthorID)
	opts := domain.SubmitOptions{
		SystemPrompt: o.deps.SystemPrompt,
		CallerID:     trigger.AuthorID,
	}

	// Per-run pending files, never shared across runs.
	files := domain.NewPendingFiles()

	// The 🤔 placeholder, created on the first tool round. When set, the
	// final answer edits it instead of replying to the trigger.
	var thinking *domain.ChatMessage

	for round := 0; round < o.deps.MaxToolRounds; round++ {
		span.AddEvent("round", trace.WithAttributes(tracer.IntAttr("round", round)))

		resp, err := o.deps.Provider.Submit(ctx, msgs, schemas, opts)
		if err != nil {
			log.Error("model call failed", "round", round, "error", err)
			tracer.RecordError(span, err)
			o.replyFailure(ctx, trigger, thinking, err, log)
			return err
		}

		switch {
		case len(resp.ToolCalls) > 0:
			if thinking == nil {
				thinking, err = o.deps.Messenger.Reply(ctx, trigger, thinkingIndicator)
				if err != nil {
					log.Error("placeholder reply failed", "error", err)
					tracer.RecordError(span, err)
					return domain.WrapOp("send placeholder", err)
				}
				o.react(ctx, thinking, o.deps.Provider.Emoji(), log)
			}

			// Record the assistant's tool-call turn, then the results in
			// call order so id correlation survives resubmission.
			msgs = append(msgs, domain.Message{
				Role:      domain.RoleAssistant,
				Content:   resp.Text,
				ToolCalls: resp.ToolCalls,
				Timestamp: time.Now(),
			})
			msgs = append(msgs, o.executeBatch(ctx, resp.ToolCalls, trigger.AuthorID, files, thinking, log)...)

		case resp.Text != "":
			target, isEdit := trigger, false
			if thinking != nil {
				target, isEdit = thinking, true
			}
			last, err := o.deps.Dispatcher.Emit(ctx, resp.Text, target, isEdit, files.Files())
			if err != nil {
				log.Error("response dispatch failed", "error", err)
				tracer.RecordError(span, err)
				return err
			}
			log.Info("run completed", "rounds", round+1, "final_message", last.ID)
			tracer.SetOK(span)
			return nil

		default:
			// Neither text nor tool calls: terminal, but not an error.
			content := fmt.Sprintf(emptyResponseFormat, trigger.AuthorMention)
			if thinking != nil {
				_, err = o.deps.Messenger.Edit(ctx, thinking, content)
			} else {
				_, err = o.deps.Messenger.Reply(ctx, trigger, content)
			}
			if err != nil {
				log.Error("empty-response reply failed", "error", err)
				return domain.WrapOp("send empty-response notice", err)
			}
			log.Info("run completed with empty model response", "rounds", round+1)
			tracer.SetOK(span)
			return nil
		}
	}

	err = domain.NewDomainError("Orchestrator.HandleMessage", domain.ErrMaxRounds,
		fmt.Sprintf("%d rounds", o.deps.MaxToolRounds))
	log.Error("run aborted", "error", err)
	tracer.RecordError(span, err)
	o.replyFailure(ctx, trigger, thinking, errors.New(maxRoundsMessage), log)
	return err
}

// executeBatch runs all tool calls of one model turn. Calls execute
// concurrently; results land in an indexed slice so the conversation
// records them in the order the model issued the calls.
func (o *Orchestrator) executeBatch(ctx context.Context, calls []domain.ToolCall, callerID string, files *domain.PendingFiles, indicator *domain.ChatMessage, log *slog.Logger) []domain.Message {
	results := make([]domain.Message, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(idx int, c domain.ToolCall) {
			defer wg.Done()
			results[idx] = o.executeTool(ctx, c, callerID, files, indicator, log)
		}(i, call)
	}
	wg.Wait()
	return results
}

// executeTool resolves and runs a single tool call. Failures never abort
// the run: unknown tools and execution errors become error payloads the
// model can react to.
func (o *Orchestrator) executeTool(ctx context.Context, call domain.ToolCall, callerID string, files *domain.PendingFiles, indicator *domain.ChatMessage, log *slog.Logger) domain.Message {
	ctx, span := tracer.StartSpan(ctx, "orchestrator.execute_tool",
		trace.WithAttributes(tracer.StringAttr("tool.name", call.Name)),
	)
	defer span.End()

	log.Info("tool call", "id", call.ID, "tool", call.Name, "args", string(call.Arguments))

	t, err := o.deps.Tools.Resolve(call.Name, callerID)
	if err != nil {
		log.Warn("unknown tool requested", "tool", call.Name)
		tracer.RecordError(span, err)
		o.react(ctx, indicator, attentionReaction, log)
		return toolMessage(call, fmt.Sprintf(`{"status":"error","message":"Unknown tool %s"}`, call.Name))
	}

	o.react(ctx, indicator, t.Emoji(), log)

	result, err := t.Execute(ctx, call.Arguments, files)
	if err != nil {
		log.Error("tool execution failed", "tool", call.Name, "error", err)
		tracer.RecordError(span, err)
		o.react(ctx, indicator, attentionReaction, log)
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		return toolMessage(call, string(payload))
	}
	if result.IsError {
		log.Warn("tool reported error", "tool", call.Name, "result", result.Content)
		o.react(ctx, indicator, attentionReaction, log)
	}

	tracer.SetOK(span)
	content := result.Content
	if !json.Valid([]byte(content)) {
		// Quote plain text so the resubmitted result is always JSON.
		quoted, _ := json.Marshal(content)
		content = string(quoted)
	}
	return toolMessage(call, content)
}

// toolMessage builds the role=tool conversation entry for one result,
// correlated to its originating call id.
func toolMessage(call domain.ToolCall, content string) domain.Message {
	return domain.Message{
		Role:    domain.RoleTool,
		Name:    call.Name,
		Content: content,
		ToolCalls: []domain.ToolCall{{
			ID:   call.ID,
			Name: call.Name,
		}},
		Timestamp: time.Now(),
	}
}

// replyFailure renders a run-fatal error to the user and tags the
// message with the attention indicator. When a placeholder exists its
// content is replaced; otherwise the trigger gets a new reply.
func (o *Orchestrator) replyFailure(ctx context.Context, trigger, thinking *domain.ChatMessage, cause error, log *slog.Logger) {
	content := fmt.Sprintf(apologyFormat, trigger.AuthorMention, cause)

	var sent *domain.ChatMessage
	var err error
	if thinking != nil {
		sent, err = o.deps.Messenger.Edit(ctx, thinking, content)
	} else {
		sent, err = o.deps.Messenger.Reply(ctx, trigger, content)
	}
	if err != nil {
		log.Error("failure reply failed", "error", err)
		return
	}
	o.react(ctx, sent, attentionReaction, log)
}

// react adds a reaction, logging failures instead of propagating them.
func (o *Orchestrator) react(ctx context.Context, msg *domain.ChatMessage, emoji string, log *slog.Logger) {
	if msg == nil || emoji == "" {
		return
	}
	if err := o.deps.Messenger.React(ctx, msg, emoji); err != nil {
		log.Debug("reaction failed", "emoji", emoji, "error", err)
	}
}
