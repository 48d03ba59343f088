package storage

import "testing"

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     StorageType
	}{
		{"cloudflare r2", "https://abc123.r2.cloudflarestorage.com", StorageTypeR2},
		{"aws s3", "https://s3.eu-central-1.amazonaws.com", StorageTypeS3},
		{"linode", "https://eu-central-1.linodeobjects.com", StorageTypeS3Compatible},
		{"minio", "http://localhost:9000", StorageTypeS3Compatible},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectStorageType(tt.endpoint); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
