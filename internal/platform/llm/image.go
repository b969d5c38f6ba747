package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/yungbote/school-backend/internal/platform/envutil"
	"github.com/yungbote/school-backend/internal/platform/logger"
)

var ErrImagesDisabled = errors.New("image generation not configured")

type ImageConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// ImageConfigFromEnv reads OPENAI_IMAGE_MODEL and reuses the OpenAI key and
// base URL.
func ImageConfigFromEnv(log *logger.Logger) ImageConfig {
	return ImageConfig{
		APIKey:  envutil.String("OPENAI_API_KEY", "", log),
		Model:   envutil.String("OPENAI_IMAGE_MODEL", openai.CreateImageModelDallE3, log),
		BaseURL: envutil.String("OPENAI_BASE_URL", "", log),
	}
}

// ImageGenerator draws course covers through the OpenAI images API.
type ImageGenerator struct {
	client *openai.Client
	model  string
}

func NewImageGenerator(cfg ImageConfig) (*ImageGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrImagesDisabled
	}
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}
	return &ImageGenerator{client: openai.NewClientWithConfig(config), model: cfg.Model}, nil
}

// GenerateImage returns PNG bytes at the closest supported size; the caller
// crops to the exact width and height.
func (g *ImageGenerator) GenerateImage(ctx context.Context, prompt string, width, height int) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("image prompt required")
	}
	req := openai.ImageRequest{
		Prompt: prompt,
		Model:  g.model,
		N:      1,
		Size:   imageSize(width, height),
	}
	// gpt-image models always answer with base64 and reject the parameter.
	if !strings.HasPrefix(strings.ToLower(g.model), "gpt-image-") {
		req.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}
	resp, err := g.client.CreateImage(ctx, req)
	if err != nil {
		return nil, openAIError(err)
	}
	if len(resp.Data) == 0 || strings.TrimSpace(resp.Data[0].B64JSON) == "" {
		return nil, &ErrInvalidResponse{Err: errors.New("image response missing b64_json")}
	}
	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image base64: %w", err)
	}
	return raw, nil
}

func imageSize(width, height int) string {
	switch {
	case width > height:
		return openai.CreateImageSize1792x1024
	case height > width:
		return openai.CreateImageSize1024x1792
	default:
		return openai.CreateImageSize1024x1024
	}
}
