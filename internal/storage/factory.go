package storage

import (
	"fmt"

	"github.com/consortial/counterharvest/internal/config"
)

// NewArchive creates the raw-response archive selected by configuration.
// Returns nil when archival is disabled (no reports path configured).
func NewArchive(cfg *config.Config) (Archive, error) {
	if cfg.Reports.Path == "" {
		return nil, nil
	}

	switch cfg.Storage.Type {
	case "", "local":
		return NewLocalArchive(cfg.Reports.Path), nil
	case "s3", "r2", "s3compatible":
		return NewS3Archive(&S3Config{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Prefix:    cfg.Reports.Path,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Storage.Type)
	}
}
