package storage

import "strings"

// NewStorage creates the object storage client that holds artwork
// thumbnails. The concrete provider is inferred from the endpoint when
// the configuration does not name one.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - ObjectStorage: initialized storage client implementation.
//   - error: non-nil if the storage client cannot be created.
func NewStorage(cfg *S3Config) (ObjectStorage, error) {
	if cfg.Type == "" {
		cfg.Type = DetectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(cfg)
}

// DetectStorageType infers the provider from the endpoint host. Linode
// Object Storage speaks the S3 protocol, so it maps to the compatible
// client like any other non-AWS endpoint.
func DetectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	case strings.Contains(endpoint, "linodeobjects.com"):
		return StorageTypeS3Compatible
	default:
		return StorageTypeS3Compatible
	}
}
