package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"halbot/internal/infra/config"
)

// ImageClient calls the OpenAI images API. Consumed by the image
// generation tool; one image per request, b64_json transport.
type ImageClient struct {
	apiKey  string
	baseURL string
	model   string
	quality string
	style   string
	client  *http.Client
	logger  *slog.Logger
}

// NewImageClient creates an image generation client.
func NewImageClient(cfg config.ProviderConfig, img config.ImageConfig, logger *slog.Logger) *ImageClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &ImageClient{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   img.Model,
		quality: img.Quality,
		style:   img.Style,
		client:  NewHTTPClient(cfg),
		logger:  logger,
	}
}

type imageRequest struct {
	Prompt         string `json:"prompt"`
	Model          string `json:"model"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	N              int    `json:"n"`
	ResponseFormat string `json:"response_format"`
}

type imageResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

// Generate produces one image for prompt at the given size and returns
// the decoded bytes.
func (c *ImageClient) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	c.logger.Info("generating image",
		"model", c.model,
		"size", size,
		"quality", c.quality,
		"style", c.style,
	)

	body, err := json.Marshal(imageRequest{
		Prompt:         prompt,
		Model:          c.model,
		Size:           size,
		Quality:        c.quality,
		Style:          c.style,
		N:              1,
		ResponseFormat: "b64_json",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	headers := map[string]string{}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	respBody, err := doJSONRequest(ctx, c.client, c.baseURL+"/images/generations", body, headers)
	if err != nil {
		return nil, err
	}

	var resp imageResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, fmt.Errorf("image API returned no data")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}
