// Package embedder provides clients for the embedding models used to build
// and query the vector index. Each embedder produces vectors in its own
// space; an image vector and a text vector from the same embedder are
// comparable, vectors from different embedders are not.
package embedder

import "context"

// Embedder computes image and text embeddings in one shared vector space.
type Embedder interface {
	// Name identifies the model family (e.g. "clip", "jina").
	Name() string

	// Dimensions returns the size of vectors this embedder produces.
	Dimensions() int

	// EmbedImage computes an embedding for raw image bytes.
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)

	// EmbedText computes an embedding for a text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)
}
