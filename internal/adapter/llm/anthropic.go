package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"halbot/internal/domain"
	"halbot/internal/infra/config"
	"halbot/internal/infra/tracer"
)

const (
	defaultAnthropicVersion = "2023-06-01"
	defaultAnthropicTokens  = 1024
)

// AnthropicProvider implements domain.Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	name      string
	model     string
	emoji     string
	apiKey    string
	baseURL   string
	maxTokens int
	client    *http.Client
	logger    *slog.Logger
	version   string
}

// NewAnthropicProvider creates a provider for the Anthropic Messages API.
func NewAnthropicProvider(cfg config.ProviderConfig, logger *slog.Logger) *AnthropicProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicTokens
	}
	emoji := cfg.Emoji
	if emoji == "" {
		emoji = "📙"
	}

	return &AnthropicProvider{
		name:      cfg.Name,
		model:     cfg.Model,
		emoji:     emoji,
		apiKey:    cfg.APIKey,
		baseURL:   baseURL,
		maxTokens: maxTokens,
		client:    NewHTTPClient(cfg),
		logger:    logger,
		version:   defaultAnthropicVersion,
	}
}

// Name implements domain.Provider.
func (p *AnthropicProvider) Name() string { return p.name }

// Emoji implements domain.Provider.
func (p *AnthropicProvider) Emoji() string { return p.emoji }

// Submit implements domain.Provider.
func (p *AnthropicProvider) Submit(ctx context.Context, msgs []domain.Message, tools []domain.ToolSchema, opts domain.SubmitOptions) (*domain.ModelResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.submit",
		trace.WithAttributes(
			tracer.StringAttr("llm.provider", p.name),
			tracer.StringAttr("llm.model", p.model),
		),
	)
	defer span.End()

	body, err := json.Marshal(p.toRequest(msgs, tools, opts))
	if err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": p.version,
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/v1/messages", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var antResp anthropicResponse
	if err := json.Unmarshal(respBody, &antResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := fromAnthropicResponse(antResp)
	tracer.SetOK(span)
	logSubmitCompleted(p.logger, p.name, result)

	return result, nil
}

// --- Anthropic API wire types ---

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

func (p *AnthropicProvider) toRequest(msgs []domain.Message, tools []domain.ToolSchema, opts domain.SubmitOptions) anthropicRequest {
	antReq := anthropicRequest{
		Model:     p.model,
		System:    opts.SystemPrompt,
		MaxTokens: p.maxTokens,
	}

	for _, m := range msgs {
		if m.Role == domain.RoleTool {
			// Tool results are user-role tool_result blocks in the
			// Anthropic protocol.
			antReq.Messages = append(antReq.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{
					{
						Type:      "tool_result",
						ToolUseID: toolCallID(m),
						Content:   m.Content,
					},
				},
			})
			continue
		}

		antMsg := anthropicMessage{Role: m.Role}
		if len(m.ToolCalls) > 0 {
			if m.Content != "" {
				antMsg.Content = append(antMsg.Content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				antMsg.Content = append(antMsg.Content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: tc.Arguments,
				})
			}
		} else {
			antMsg.Content = append(antMsg.Content, anthropicContent{Type: "text", Text: m.Content})
		}
		antReq.Messages = append(antReq.Messages, antMsg)
	}

	for _, t := range tools {
		antReq.Tools = append(antReq.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	return antReq
}

func toolCallID(m domain.Message) string {
	if len(m.ToolCalls) > 0 {
		return m.ToolCalls[0].ID
	}
	return ""
}

func fromAnthropicResponse(resp anthropicResponse) *domain.ModelResponse {
	result := &domain.ModelResponse{}
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			result.Text = block.Text
		case "tool_use":
			result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: block.Input,
			})
		}
	}
	return result
}
