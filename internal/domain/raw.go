package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// JSONMap is a custom type for storing a raw JSON document in the database.
type JSONMap map[string]interface{}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the map.
//   - error: non-nil if marshaling fails.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return json.Marshal(m)
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan JSONMap")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, m)
}

// ArtworkRaw is one raw record as fetched from a museum API, keyed by
// (museum_slug, object_number). The object number is the museum's public
// identifier; not every museum guarantees it is unique, so MuseumDBID keeps
// the museum-internal database id as the update discriminant: a later record
// that presents an already-stored object number under a different internal id
// must never overwrite the stored row.
type ArtworkRaw struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	MuseumSlug   string    `gorm:"type:text;not null;index:idx_raw_museum_object,unique" json:"museum_slug"`
	ObjectNumber string    `gorm:"type:text;not null;index:idx_raw_museum_object,unique" json:"object_number"`
	MuseumDBID   string    `gorm:"type:text" json:"museum_db_id"`
	Payload      JSONMap   `gorm:"type:text" json:"payload"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// TableName returns the database table name for ArtworkRaw.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (ArtworkRaw) TableName() string {
	return "artworks_raw"
}
