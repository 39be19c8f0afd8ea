package library

import (
	"fmt"
	"path/filepath"

	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/dgnsrekt/recite/internal/storage"
)

// Config contains library settings.
type Config struct {
	Storage storage.Config `yaml:"storage"`
}

// DefaultConfig stores books in the user data directory.
func DefaultConfig() Config {
	scope := gap.NewScope(gap.User, "recite")
	dir, err := scope.DataPath("library")
	if err != nil {
		dir = filepath.Join("~", ".local", "share", "recite", "library")
	}

	return Config{
		Storage: storage.Config{
			Adapter:   storage.AdapterLocal,
			CacheSize: 0,
			Local:     storage.LocalConfig{BasePath: dir},
			S3:        storage.S3Config{Region: "us-east-1", UseSSL: true},
		},
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Storage.Adapter {
	case storage.AdapterLocal:
		if c.Storage.Local.BasePath == "" {
			return fmt.Errorf("library.storage.local.base_path cannot be empty")
		}
	case storage.AdapterS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("library.storage.s3.bucket cannot be empty")
		}
	default:
		return fmt.Errorf("library.storage.adapter %q must be %q or %q", c.Storage.Adapter, storage.AdapterLocal, storage.AdapterS3)
	}
	if c.Storage.CacheSize < 0 {
		return fmt.Errorf("library.storage.cache_size cannot be negative")
	}
	return nil
}

// LoadConfigFromViper loads the library configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()
	s := &cfg.Storage

	if viper.IsSet("library.storage.adapter") {
		s.Adapter = viper.GetString("library.storage.adapter")
	}
	if viper.IsSet("library.storage.cache_size") {
		s.CacheSize = viper.GetInt64("library.storage.cache_size")
	}
	if viper.IsSet("library.storage.local.base_path") {
		s.Local.BasePath = viper.GetString("library.storage.local.base_path")
	}

	for name, dst := range map[string]*string{
		"endpoint":          &s.S3.Endpoint,
		"region":            &s.S3.Region,
		"bucket":            &s.S3.Bucket,
		"prefix":            &s.S3.Prefix,
		"access_key_id":     &s.S3.AccessKeyID,
		"secret_access_key": &s.S3.SecretAccessKey,
	} {
		if k := "library.storage.s3." + name; viper.IsSet(k) {
			*dst = viper.GetString(k)
		}
	}
	if viper.IsSet("library.storage.s3.use_ssl") {
		s.S3.UseSSL = viper.GetBool("library.storage.s3.use_ssl")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid library configuration: %w", err)
	}
	return cfg, nil
}

// SetDefaults registers the library defaults with Viper.
func SetDefaults() {
	d := DefaultConfig()
	viper.SetDefault("library.storage.adapter", d.Storage.Adapter)
	viper.SetDefault("library.storage.cache_size", d.Storage.CacheSize)
	viper.SetDefault("library.storage.local.base_path", d.Storage.Local.BasePath)
	viper.SetDefault("library.storage.s3.region", d.Storage.S3.Region)
	viper.SetDefault("library.storage.s3.use_ssl", d.Storage.S3.UseSSL)
}
