package embedder

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

// CLIPEmbedder talks to a self-hosted CLIP inference service over HTTP.
type CLIPEmbedder struct {
	client  *resty.Client
	baseURL string
}

// CLIPConfig holds configuration for the CLIP inference service.
type CLIPConfig struct {
	BaseURL string
}

// NewCLIPEmbedder creates a new CLIP embedder.
// Parameters:
//   - cfg: inference service configuration.
// Returns:
//   - *CLIPEmbedder: embedder instance.
func NewCLIPEmbedder(cfg *CLIPConfig) *CLIPEmbedder {
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(120 * time.Second)

	return &CLIPEmbedder{
		client:  client,
		baseURL: cfg.BaseURL,
	}
}

// Name returns the model family identifier.
func (e *CLIPEmbedder) Name() string { return "clip" }

// Dimensions returns the size of vectors this embedder produces.
func (e *CLIPEmbedder) Dimensions() int { return domain.CLIPDimensions }

// Inference service request/response structures
type clipImageRequest struct {
	Image string `json:"image"` // base64-encoded image bytes
}

type clipTextRequest struct {
	Text string `json:"text"`
}

type clipResponse struct {
	Embedding []float32 `json:"embedding"`
	Detail    string    `json:"detail,omitempty"`
}

// EmbedImage computes a CLIP embedding for raw image bytes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - data: encoded image bytes (JPEG, PNG, ...).
// Returns:
//   - []float32: embedding vector.
//   - error: non-nil if the inference call fails.
func (e *CLIPEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	req := clipImageRequest{Image: base64.StdEncoding.EncodeToString(data)}
	return e.post(ctx, "/embed/image", req)
}

// EmbedText computes a CLIP embedding for a text string.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: input text.
// Returns:
//   - []float32: embedding vector.
//   - error: non-nil if the inference call fails.
func (e *CLIPEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	req := clipTextRequest{Text: text}
	return e.post(ctx, "/embed/text", req)
}

func (e *CLIPEmbedder) post(ctx context.Context, path string, body interface{}) ([]float32, error) {
	var resp clipResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(e.baseURL + path)

	if err != nil {
		return nil, fmt.Errorf("failed to call CLIP service: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("CLIP service error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("CLIP service error: status %d", httpResp.StatusCode())
	}

	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Embedding, nil
}
