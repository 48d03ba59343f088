package domain

import "fmt"

// VectorType identifies one named embedding vector on a Qdrant point.
// The universe is fixed; which types are actually computed is configured per
// deployment (see config "etl.active_vector_types"). Inactive types are
// stored as zero placeholders so the collection schema stays stable while
// new types roll out incrementally.
type VectorType string

const (
	VectorImageCLIP VectorType = "image_clip"
	VectorTextCLIP  VectorType = "text_clip"
	VectorImageJina VectorType = "image_jina"
	VectorTextJina  VectorType = "text_jina"
)

const (
	// CLIPDimensions is the vector size of the CLIP ViT-B/32 model.
	CLIPDimensions = 768
	// JinaDimensions is the configured vector size for jina-clip-v2.
	JinaDimensions = 256
)

// AllVectorTypes lists the full vector universe in a stable order.
var AllVectorTypes = []VectorType{
	VectorImageCLIP,
	VectorTextCLIP,
	VectorImageJina,
	VectorTextJina,
}

// ParseVectorType validates a vector type name from configuration.
// Parameters:
//   - s: vector type name.
// Returns:
//   - VectorType: parsed vector type.
//   - error: non-nil if the name is not part of the universe.
func ParseVectorType(s string) (VectorType, error) {
	for _, vt := range AllVectorTypes {
		if string(vt) == s {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown vector type %q", s)
}

// Dimensions returns the vector size for this type.
func (vt VectorType) Dimensions() int {
	switch vt {
	case VectorImageCLIP, VectorTextCLIP:
		return CLIPDimensions
	case VectorImageJina, VectorTextJina:
		return JinaDimensions
	}
	return 0
}

// Model returns the model family this vector type is computed with.
func (vt VectorType) Model() string {
	switch vt {
	case VectorImageCLIP, VectorTextCLIP:
		return "clip"
	case VectorImageJina, VectorTextJina:
		return "jina"
	}
	return ""
}

// VectorTypeFor returns the vector type for a model family and input kind.
// Parameters:
//   - model: model family name ("clip" or "jina").
//   - image: true for the image-derived vector, false for the text vector.
// Returns:
//   - VectorType: matching vector type.
//   - error: non-nil if the model family is unknown.
func VectorTypeFor(model string, image bool) (VectorType, error) {
	for _, vt := range AllVectorTypes {
		if vt.Model() == model && vt.IsImage() == image {
			return vt, nil
		}
	}
	return "", fmt.Errorf("unknown embedding model %q", model)
}

// IsImage reports whether this vector type is computed from image bytes
// (as opposed to the artwork's metadata text).
func (vt VectorType) IsImage() bool {
	return vt == VectorImageCLIP || vt == VectorImageJina
}

// String returns the Qdrant named-vector name for this type.
func (vt VectorType) String() string {
	return string(vt)
}
