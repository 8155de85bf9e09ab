package tool

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand"

	"go.opentelemetry.io/otel/trace"

	"halbot/internal/domain"
	"halbot/internal/infra/tracer"
)

// maxRNGCount bounds how many numbers one call may request.
const maxRNGCount = 1000

// RNGTool generates random integers in an inclusive range.
type RNGTool struct {
	logger *slog.Logger
}

// NewRNGTool creates the random number generator tool.
func NewRNGTool(logger *slog.Logger) *RNGTool {
	return &RNGTool{logger: logger}
}

func (t *RNGTool) Name() string { return "rng" }
func (t *RNGTool) Description() string {
	return "Generate a random number between min and max, inclusive"
}
func (t *RNGTool) Emoji() string { return "🎲" }

func (t *RNGTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"min": {"type": "number", "description": "The minimum number"},
				"max": {"type": "number", "description": "The maximum number"},
				"n": {"type": "number", "description": "The number of random numbers to generate"},
				"response": {"type": "string", "description": "The confirmation message to the user."}
			},
			"required": ["min", "max"]
		}`),
	}
}

type rngParams struct {
	Min int `json:"min"`
	Max int `json:"max"`
	N   int `json:"n,omitempty"`
}

type rngResult struct {
	Result []int `json:"result"`
}

func (t *RNGTool) Execute(ctx context.Context, params json.RawMessage, run domain.RunContext) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.rng", t.logger, params, run,
		func(_ context.Context, span trace.Span, p rngParams, _ domain.RunContext) (any, error) {
			if p.Max < p.Min {
				return ErrResult("max (%d) must not be less than min (%d)", p.Max, p.Min)
			}
			n := p.N
			if n <= 0 {
				n = 1
			}
			if n > maxRNGCount {
				n = maxRNGCount
			}
			span.SetAttributes(tracer.IntAttr("tool.count", n))

			out := make([]int, n)
			for i := range out {
				out[i] = p.Min + rand.Intn(p.Max-p.Min+1)
			}
			return rngResult{Result: out}, nil
		},
	)
}
