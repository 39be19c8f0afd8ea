package storage

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-homedir"
)

// Adapter names accepted by the configuration.
const (
	AdapterLocal = "local"
	AdapterS3    = "s3"
)

// Config selects and configures a storage backend.
type Config struct {
	Adapter   string      `yaml:"adapter"`
	CacheSize int64       `yaml:"cache_size"` // Bytes of objects kept in memory, 0 disables
	Local     LocalConfig `yaml:"local"`
	S3        S3Config    `yaml:"s3"`
}

// LocalConfig configures the filesystem backend.
type LocalConfig struct {
	BasePath string `yaml:"base_path"`
}

// S3Config configures the S3 backend.
type S3Config struct {
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
}

// NewAdapter creates a new storage adapter based on the configuration.
func NewAdapter(ctx context.Context, cfg Config) (Adapter, error) {
	var (
		adapter Adapter
		err     error
	)

	switch cfg.Adapter {
	case AdapterLocal, "":
		base, expandErr := homedir.Expand(cfg.Local.BasePath)
		if expandErr != nil {
			return nil, fmt.Errorf("invalid base path: %w", expandErr)
		}
		adapter, err = NewLocalAdapter(base)
	case AdapterS3:
		adapter, err = NewS3Adapter(ctx, S3Options{
			Endpoint:        cfg.S3.Endpoint,
			Region:          cfg.S3.Region,
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UseSSL:          cfg.S3.UseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage adapter: %s", cfg.Adapter)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheSize > 0 {
		return NewCached(adapter, cfg.CacheSize), nil
	}
	return adapter, nil
}
