package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"halbot/internal/domain"
	"halbot/internal/infra/tracer"
)

const defaultAPODURL = "https://api.nasa.gov/planetary/apod"

// maxAPODBody bounds how much of the APOD response we read.
const maxAPODBody = 1 * 1024 * 1024

// APODTool fetches NASA's Astronomy Picture of the Day.
type APODTool struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time // for testing
	logger  *slog.Logger
}

// APODOption configures the APOD tool.
type APODOption func(*APODTool)

// WithAPODBaseURL overrides the NASA API endpoint.
func WithAPODBaseURL(u string) APODOption {
	return func(t *APODTool) { t.baseURL = u }
}

// WithAPODClock overrides the clock used for the default date.
func WithAPODClock(now func() time.Time) APODOption {
	return func(t *APODTool) { t.now = now }
}

// NewAPODTool creates the astronomy picture of the day tool.
func NewAPODTool(apiKey string, logger *slog.Logger, opts ...APODOption) *APODTool {
	t := &APODTool{
		apiKey:  apiKey,
		baseURL: defaultAPODURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		now:     time.Now,
		logger:  logger,
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *APODTool) Name() string { return "nasa_apod" }
func (t *APODTool) Description() string {
	return "Get an image of the day from NASA's Astronomy Picture of the Day."
}
func (t *APODTool) Emoji() string { return "🚀" }

func (t *APODTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"date": {"type": "string", "description": "The date of the image to retrieve (YYYY-MM-DD)."}
			},
			"required": []
		}`),
	}
}

type apodParams struct {
	Date string `json:"date,omitempty"`
}

func (t *APODTool) Execute(ctx context.Context, params json.RawMessage, run domain.RunContext) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.nasa_apod", t.logger, params, run,
		func(ctx context.Context, span trace.Span, p apodParams, _ domain.RunContext) (any, error) {
			date := p.Date
			if date == "" {
				date = t.now().UTC().Format("2006-01-02")
			}
			if _, err := time.Parse("2006-01-02", date); err != nil {
				return ErrResult("date must be in YYYY-MM-DD format")
			}
			span.SetAttributes(tracer.StringAttr("tool.date", date))

			q := url.Values{}
			q.Set("api_key", t.apiKey)
			q.Set("date", date)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?"+q.Encode(), nil)
			if err != nil {
				return nil, fmt.Errorf("create request: %w", err)
			}

			resp, err := t.client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("fetch apod: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPODBody))
			if err != nil {
				return nil, fmt.Errorf("read response: %w", err)
			}
			if resp.StatusCode != http.StatusOK {
				return nil, fmt.Errorf("apod API returned %d", resp.StatusCode)
			}

			// Pass the API's JSON through untouched.
			return TextResult(string(body)), nil
		},
	)
}
