package embedder

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mbruun/artsearch/internal/domain"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// JinaEmbedder uses the hosted jina-clip-v2 API. The model accepts both
// images and text in the same request shape, distinguished by the input
// object's key.
type JinaEmbedder struct {
	client     *resty.Client
	model      string
	dimensions int
}

// JinaConfig holds configuration for the Jina embeddings API.
type JinaConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

// NewJinaEmbedder creates a new Jina embedder.
// Parameters:
//   - cfg: API configuration.
// Returns:
//   - *JinaEmbedder: embedder instance.
func NewJinaEmbedder(cfg *JinaConfig) *JinaEmbedder {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(120 * time.Second)

	model := cfg.Model
	if model == "" {
		model = "jina-clip-v2"
	}
	dimensions := cfg.Dimensions
	if dimensions <= 0 {
		dimensions = domain.JinaDimensions
	}

	return &JinaEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// Name returns the model family identifier.
func (e *JinaEmbedder) Name() string { return "jina" }

// Dimensions returns the size of vectors this embedder produces.
func (e *JinaEmbedder) Dimensions() int { return e.dimensions }

// Jina API request/response structures
type jinaRequest struct {
	Model      string                   `json:"model"`
	Dimensions int                      `json:"dimensions,omitempty"`
	Input      []map[string]interface{} `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Detail string `json:"detail,omitempty"`
}

// EmbedImage computes a jina-clip-v2 embedding for raw image bytes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - data: encoded image bytes (JPEG, PNG, ...).
// Returns:
//   - []float32: embedding vector.
//   - error: non-nil if the API call fails.
func (e *JinaEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	input := map[string]interface{}{"image": base64.StdEncoding.EncodeToString(data)}
	return e.embed(ctx, input)
}

// EmbedText computes a jina-clip-v2 embedding for a text string.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - text: input text.
// Returns:
//   - []float32: embedding vector.
//   - error: non-nil if the API call fails.
func (e *JinaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	input := map[string]interface{}{"text": text}
	return e.embed(ctx, input)
}

func (e *JinaEmbedder) embed(ctx context.Context, input map[string]interface{}) ([]float32, error) {
	req := jinaRequest{
		Model:      e.model,
		Dimensions: e.dimensions,
		Input:      []map[string]interface{}{input},
	}

	var resp jinaResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(jinaEndpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call Jina API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("Jina API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("Jina API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	return resp.Data[0].Embedding, nil
}
