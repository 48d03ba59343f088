package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// StringArray is a custom type for storing string arrays as JSON in the database.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the slice.
//   - error: non-nil if marshaling fails.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// Artwork is a standardized artwork record derived from an ArtworkRaw row,
// keyed by (museum_slug, object_number).
//
// The boolean pipeline-state fields are owned by the image and embedding
// loaders. The transformer overwrites every content field on re-run but must
// carry these flags over untouched, so repeating an earlier stage never
// discards progress already made by a later one.
type Artwork struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	MuseumSlug   string `gorm:"type:text;not null;index:idx_artworks_museum_object,unique" json:"museum_slug"`
	ObjectNumber string `gorm:"type:text;not null;index:idx_artworks_museum_object,unique" json:"object_number"`
	MuseumDBID   string `gorm:"type:text" json:"museum_db_id"`

	Title               string      `gorm:"type:text" json:"title"`
	Artists             StringArray `gorm:"type:text" json:"artists"`
	WorkTypes           StringArray `gorm:"type:text" json:"work_types"`
	SearchableWorkTypes StringArray `gorm:"type:text" json:"searchable_work_types"`
	ProductionDateStart *int        `json:"production_date_start,omitempty"`
	ProductionDateEnd   *int        `json:"production_date_end,omitempty"`
	Period              string      `gorm:"type:text" json:"period,omitempty"`
	ThumbnailURL        string      `gorm:"type:text" json:"thumbnail_url"`
	ImageURL            string      `gorm:"type:text" json:"image_url,omitempty"`
	FrontendURL         string      `gorm:"type:text" json:"frontend_url,omitempty"`

	// Pipeline state. Mutated only by the image and embedding loaders.
	ImageLoaded           bool `gorm:"default:false;index:idx_artworks_image_loaded" json:"image_loaded"`
	ImageVectorCLIPLoaded bool `gorm:"column:image_vector_clip_loaded;default:false" json:"image_vector_clip_loaded"`
	TextVectorCLIPLoaded  bool `gorm:"column:text_vector_clip_loaded;default:false" json:"text_vector_clip_loaded"`
	ImageVectorJinaLoaded bool `gorm:"column:image_vector_jina_loaded;default:false" json:"image_vector_jina_loaded"`
	TextVectorJinaLoaded  bool `gorm:"column:text_vector_jina_loaded;default:false" json:"text_vector_jina_loaded"`

	// Failure markers used to drive retry-failed runs. Selection hints only;
	// eligibility is still governed by the *_loaded flags above.
	ImageLoadFailed bool `gorm:"default:false" json:"image_load_failed"`
	EmbedFailed     bool `gorm:"default:false" json:"embed_failed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Artwork.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Artwork) TableName() string {
	return "artworks"
}

// StorageKey returns the object-storage key for this artwork's thumbnail.
func (a *Artwork) StorageKey() string {
	return StorageKey(a.MuseumSlug, a.ObjectNumber)
}

// EmbeddingText returns the text embedded for text-vector types: the title
// followed by the artist names.
func (a *Artwork) EmbeddingText() string {
	parts := make([]string, 0, 2)
	if a.Title != "" {
		parts = append(parts, a.Title)
	}
	if len(a.Artists) > 0 {
		parts = append(parts, strings.Join(a.Artists, ", "))
	}
	return strings.Join(parts, "; ")
}

// VectorFlag reports whether the flag for the given vector type is set.
func (a *Artwork) VectorFlag(vt VectorType) bool {
	switch vt {
	case VectorImageCLIP:
		return a.ImageVectorCLIPLoaded
	case VectorTextCLIP:
		return a.TextVectorCLIPLoaded
	case VectorImageJina:
		return a.ImageVectorJinaLoaded
	case VectorTextJina:
		return a.TextVectorJinaLoaded
	}
	return false
}

// SetVectorFlag sets the flag for the given vector type.
func (a *Artwork) SetVectorFlag(vt VectorType, v bool) {
	switch vt {
	case VectorImageCLIP:
		a.ImageVectorCLIPLoaded = v
	case VectorTextCLIP:
		a.TextVectorCLIPLoaded = v
	case VectorImageJina:
		a.ImageVectorJinaLoaded = v
	case VectorTextJina:
		a.TextVectorJinaLoaded = v
	}
}

// StorageKey returns the object-storage key for a thumbnail.
// Parameters:
//   - museumSlug: museum identifier.
//   - objectNumber: artwork's public identifier within the museum.
// Returns:
//   - string: flat storage key of the form "{museum}_{object_number}.jpg".
func StorageKey(museumSlug, objectNumber string) string {
	return museumSlug + "_" + objectNumber + ".jpg"
}

// ArtworkSearchResult represents a search result with a similarity score.
type ArtworkSearchResult struct {
	Artwork
	Score float32 `json:"score"`
}
