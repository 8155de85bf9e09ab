package discord

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"halbot/internal/domain"
)

// Handler processes one trigger message. Each invocation is an
// independent orchestration run.
type Handler func(ctx context.Context, trigger *domain.ChatMessage) error

// Option configures the bot.
type Option func(*Bot)

// WithMentionOnly gates guild messages on the bot being mentioned.
func WithMentionOnly(v bool) Option {
	return func(b *Bot) { b.mentionOnly = v }
}

// Bot connects to Discord, dispatches incoming messages to the handler,
// and implements domain.Messenger for outgoing traffic.
type Bot struct {
	token       string
	session     *discordgo.Session
	logger      *slog.Logger
	mentionOnly bool
	botUserID   string
	ctx         context.Context
	cancel      context.CancelFunc

	mu      sync.RWMutex
	handler Handler
}

// New creates a Discord bot.
func New(token string, logger *slog.Logger, opts ...Option) *Bot {
	b := &Bot{
		token:  token,
		logger: logger,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// BotUserID returns the bot's own user id. Valid after Start.
func (b *Bot) BotUserID() string { return b.botUserID }

// SetHandler installs the message handler. Messages arriving before a
// handler is set are dropped.
func (b *Bot) SetHandler(h Handler) {
	b.mu.Lock()
	b.handler = h
	b.mu.Unlock()
}

// Start opens the gateway connection and begins dispatching messages.
func (b *Bot) Start(ctx context.Context) error {
	b.ctx, b.cancel = context.WithCancel(ctx)

	dg, err := discordgo.New("Bot " + b.token)
	if err != nil {
		return err
	}
	b.session = dg
	b.session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	b.session.AddHandler(b.onMessageCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	b.botUserID = b.session.State.User.ID
	b.logger.Info("discord bot started", "user_id", b.botUserID)
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop(_ context.Context) error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.session != nil {
		return b.session.Close()
	}
	return nil
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own and other bots' messages.
	if m.Author == nil || m.Author.ID == b.botUserID || m.Author.Bot {
		return
	}

	isMention := false
	for _, u := range m.Mentions {
		if u.ID == b.botUserID {
			isMention = true
			break
		}
	}

	// Mention-only gating for guild messages; DMs always pass.
	if b.mentionOnly && m.GuildID != "" && !isMention {
		return
	}

	b.mu.RLock()
	handler := b.handler
	b.mu.RUnlock()
	if handler == nil {
		return
	}

	msg := b.toChatMessage(m.Message)
	if isMention {
		msg.Content = stripMention(msg.Content, b.botUserID)
	}

	// One run per trigger, independent of the gateway event loop.
	go func() {
		if err := handler(b.ctx, msg); err != nil {
			b.logger.Error("message handler error", "error", err, "channel", msg.ChannelID)
		}
	}()
}

// stripMention removes the bot's mention tokens for cleaner model input.
func stripMention(content, botUserID string) string {
	content = strings.ReplaceAll(content, "<@"+botUserID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botUserID+">", "")
	return strings.TrimSpace(content)
}

func (b *Bot) toChatMessage(m *discordgo.Message) *domain.ChatMessage {
	msg := &domain.ChatMessage{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
		msg.AuthorMention = m.Author.Mention()
		msg.AuthorIsBot = m.Author.Bot
	}
	if m.MessageReference != nil {
		msg.ReferenceID = m.MessageReference.MessageID
	}
	return msg
}

// --- domain.Messenger ---

// FetchReferenced implements domain.Messenger. A reference to a deleted
// message resolves to (nil, nil); other fetch failures are returned.
func (b *Bot) FetchReferenced(_ context.Context, msg *domain.ChatMessage) (*domain.ChatMessage, error) {
	if msg.ReferenceID == "" {
		return nil, nil
	}

	fetched, err := b.session.ChannelMessage(msg.ChannelID, msg.ReferenceID)
	if err != nil {
		var restErr *discordgo.RESTError
		if errors.As(err, &restErr) && restErr.Response != nil &&
			restErr.Response.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return b.toChatMessage(fetched), nil
}

// Reply implements domain.Messenger.
func (b *Bot) Reply(_ context.Context, to *domain.ChatMessage, content string) (*domain.ChatMessage, error) {
	sent, err := b.session.ChannelMessageSendComplex(to.ChannelID, &discordgo.MessageSend{
		Content: content,
		Reference: &discordgo.MessageReference{
			MessageID: to.ID,
			ChannelID: to.ChannelID,
		},
	})
	if err != nil {
		return nil, err
	}
	return b.toChatMessage(sent), nil
}

// Edit implements domain.Messenger.
func (b *Bot) Edit(_ context.Context, msg *domain.ChatMessage, content string) (*domain.ChatMessage, error) {
	edited, err := b.session.ChannelMessageEdit(msg.ChannelID, msg.ID, content)
	if err != nil {
		return nil, err
	}
	return b.toChatMessage(edited), nil
}

// React implements domain.Messenger.
func (b *Bot) React(_ context.Context, msg *domain.ChatMessage, emoji string) error {
	return b.session.MessageReactionAdd(msg.ChannelID, msg.ID, emoji)
}

// AttachFiles implements domain.Messenger.
func (b *Bot) AttachFiles(_ context.Context, msg *domain.ChatMessage, files []domain.File) (*domain.ChatMessage, error) {
	edit := discordgo.NewMessageEdit(msg.ChannelID, msg.ID)
	for _, f := range files {
		edit.Files = append(edit.Files, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}

	edited, err := b.session.ChannelMessageEditComplex(edit)
	if err != nil {
		return nil, err
	}
	return b.toChatMessage(edited), nil
}

// SendTyping implements domain.Messenger.
func (b *Bot) SendTyping(_ context.Context, channelID string) error {
	return b.session.ChannelTyping(channelID)
}
