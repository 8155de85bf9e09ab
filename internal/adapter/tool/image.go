package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"halbot/internal/domain"
	"halbot/internal/infra/tracer"
)

const defaultImageSize = "1024x1024"

// ImageGenerator produces image bytes from a text prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, size string) ([]byte, error)
}

// ImageTool generates images from text prompts and registers them as
// pending files on the run.
type ImageTool struct {
	generator ImageGenerator
	maxImages int
	logger    *slog.Logger
}

// NewImageTool creates the image generation tool.
func NewImageTool(generator ImageGenerator, maxImages int, logger *slog.Logger) *ImageTool {
	if maxImages <= 0 {
		maxImages = 7
	}
	return &ImageTool{
		generator: generator,
		maxImages: maxImages,
		logger:    logger,
	}
}

func (t *ImageTool) Name() string { return "generate_image" }
func (t *ImageTool) Description() string {
	return "Generate an image from a text prompt"
}
func (t *ImageTool) Emoji() string { return "🎨" }

func (t *ImageTool) Schema() domain.ToolSchema {
	return domain.ToolSchema{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"prompt": {"type": "string", "description": "The text prompt from which the image will be generated"},
				"size": {"type": "string", "description": "The size of the image", "enum": ["1024x1024", "1792x1024", "1024x1792"], "default": "1024x1024"},
				"n": {"type": "number", "description": "The number of images to generate", "default": 1}
			},
			"required": ["prompt"]
		}`),
	}
}

type imageParams struct {
	Prompt string `json:"prompt"`
	Size   string `json:"size,omitempty"`
	N      int    `json:"n,omitempty"`
}

type imageToolResult struct {
	Filenames []string `json:"filenames"`
}

func (t *ImageTool) Execute(ctx context.Context, params json.RawMessage, run domain.RunContext) (*domain.ToolResult, error) {
	return Execute(ctx, "tool.generate_image", t.logger, params, run,
		func(ctx context.Context, span trace.Span, p imageParams, run domain.RunContext) (any, error) {
			if p.Prompt == "" {
				return ErrResult("prompt must not be empty")
			}
			size := p.Size
			if size == "" {
				size = defaultImageSize
			}
			n := p.N
			if n <= 0 {
				n = 1
			}
			if n > t.maxImages {
				n = t.maxImages
			}
			span.SetAttributes(tracer.IntAttr("tool.count", n))

			filenames := make([]string, 0, n)
			for i := 0; i < n; i++ {
				data, err := t.generator.Generate(ctx, p.Prompt, size)
				if err != nil {
					return nil, fmt.Errorf("generate image %d: %w", i, err)
				}
				name := fmt.Sprintf("generated-%d.png", i)
				run.AddFile(domain.File{
					Name:        name,
					ContentType: "image/png",
					Data:        data,
				})
				filenames = append(filenames, "attachment://"+name)
			}
			return imageToolResult{Filenames: filenames}, nil
		},
	)
}
