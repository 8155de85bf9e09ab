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

// OpenAIProvider implements domain.Provider for any OpenAI-compatible
// chat-completions API.
type OpenAIProvider struct {
	name        string
	model       string
	emoji       string
	apiKey      string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

// NewOpenAIProvider creates a provider with configured timeouts.
func NewOpenAIProvider(cfg config.ProviderConfig, logger *slog.Logger) *OpenAIProvider {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 1.0
	}
	emoji := cfg.Emoji
	if emoji == "" {
		emoji = "📗"
	}

	return &OpenAIProvider{
		name:        cfg.Name,
		model:       cfg.Model,
		emoji:       emoji,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		maxTokens:   cfg.MaxTokens,
		temperature: temperature,
		client:      NewHTTPClient(cfg),
		logger:      logger,
	}
}

// Name implements domain.Provider.
func (p *OpenAIProvider) Name() string { return p.name }

// Emoji implements domain.Provider.
func (p *OpenAIProvider) Emoji() string { return p.emoji }

// Submit implements domain.Provider.
func (p *OpenAIProvider) Submit(ctx context.Context, msgs []domain.Message, tools []domain.ToolSchema, opts domain.SubmitOptions) (*domain.ModelResponse, error) {
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

	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	respBody, err := doJSONRequest(ctx, p.client, p.baseURL+"/chat/completions", body, headers)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}

	var oaiResp openaiResponse
	if err := json.Unmarshal(respBody, &oaiResp); err != nil {
		tracer.RecordError(span, err)
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	result := fromOpenAIResponse(oaiResp)
	tracer.SetOK(span)
	logSubmitCompleted(p.logger, p.name, result)

	return result, nil
}

// --- OpenAI API wire types ---

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Tools       []openaiTool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	User        string          `json:"user,omitempty"`
}

type openaiMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	Name       string           `json:"name,omitempty"`
	ToolCalls  []openaiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openaiTool struct {
	Type     string             `json:"type"`
	Function openaiToolFunction `json:"function"`
}

type openaiToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type openaiToolCall struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Function openaiToolCallFunction `json:"function"`
}

type openaiToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openaiChoice `json:"choices"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

func (p *OpenAIProvider) toRequest(msgs []domain.Message, tools []domain.ToolSchema, opts domain.SubmitOptions) openaiRequest {
	oaiMsgs := make([]openaiMessage, 0, len(msgs)+1)
	if opts.SystemPrompt != "" {
		oaiMsgs = append(oaiMsgs, openaiMessage{Role: "system", Content: opts.SystemPrompt})
	}

	for _, m := range msgs {
		oaiMsg := openaiMessage{
			Role:    m.Role,
			Content: m.Content,
			Name:    m.Name,
		}

		// Tool result messages carry the originating call id.
		if m.Role == domain.RoleTool && len(m.ToolCalls) > 0 {
			oaiMsg.ToolCallID = m.ToolCalls[0].ID
		}

		// Assistant tool-call turns.
		if m.Role == domain.RoleAssistant && len(m.ToolCalls) > 0 {
			oaiMsg.ToolCalls = make([]openaiToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				oaiMsg.ToolCalls[i] = openaiToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: openaiToolCallFunction{
						Name:      tc.Name,
						Arguments: string(tc.Arguments),
					},
				}
			}
		}

		oaiMsgs = append(oaiMsgs, oaiMsg)
	}

	req := openaiRequest{
		Model:     p.model,
		Messages:  oaiMsgs,
		MaxTokens: p.maxTokens,
		User:      opts.CallerID,
	}

	temperature := p.temperature
	topP := 1.0
	req.Temperature = &temperature
	req.TopP = &topP

	if len(tools) > 0 {
		req.ToolChoice = "auto"
		for _, t := range tools {
			req.Tools = append(req.Tools, openaiTool{
				Type: "function",
				Function: openaiToolFunction{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
	}

	return req
}

func fromOpenAIResponse(resp openaiResponse) *domain.ModelResponse {
	result := &domain.ModelResponse{}
	if len(resp.Choices) == 0 {
		return result
	}

	msg := resp.Choices[0].Message
	result.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, domain.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: json.RawMessage(tc.Function.Arguments),
		})
	}
	return result
}
