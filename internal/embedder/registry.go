package embedder

import (
	"fmt"

	"github.com/mbruun/artsearch/internal/domain"
)

// Registry maps model family names to embedders.
type Registry map[string]Embedder

// NewRegistry constructs the embedders for both supported model families.
// Parameters:
//   - clipCfg: CLIP inference service configuration.
//   - jinaCfg: Jina API configuration.
// Returns:
//   - Registry: registry keyed by model family.
func NewRegistry(clipCfg *CLIPConfig, jinaCfg *JinaConfig) Registry {
	return Registry{
		"clip": NewCLIPEmbedder(clipCfg),
		"jina": NewJinaEmbedder(jinaCfg),
	}
}

// ForModel returns the embedder for a model family.
// Parameters:
//   - model: model family name ("clip" or "jina").
// Returns:
//   - Embedder: matching embedder.
//   - error: non-nil if the family is not registered.
func (r Registry) ForModel(model string) (Embedder, error) {
	e, ok := r[model]
	if !ok {
		return nil, fmt.Errorf("no embedder registered for model %q", model)
	}
	return e, nil
}

// ForVectorType returns the embedder that computes the given vector type.
// Parameters:
//   - vt: vector type.
// Returns:
//   - Embedder: matching embedder.
//   - error: non-nil if no embedder covers the type.
func (r Registry) ForVectorType(vt domain.VectorType) (Embedder, error) {
	return r.ForModel(vt.Model())
}
