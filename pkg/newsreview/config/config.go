// Package config loads the review server configuration and assembles the
// review service from it.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()
	return apply(&cfg, opts...)
}

func apply(cfg *ServerConfig, opts ...Option) (*ServerConfig, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:             "8080",
		Environment:      "development",
		LogLevel:         "info",
		LogFormat:        "text",
		DatabaseType:     "memory",
		DBSchema:         "public",
		LockType:         "memory",
		SearchIndexName:  "app_info_article",
		ImageURLStrategy: "passthrough",
		DictionarySource: "database",
		DictionaryS3Key:  "sensitive/words.txt",
		DictionaryMaxAge: 5 * time.Minute,
		S3: S3Config{
			Region:          "us-east-1",
			PresignDuration: 3600,
		},
		CallTimeout:           5 * time.Second,
		CompensationTimeout:   10 * time.Second,
		IndexRetryMax:         10,
		IndexRetryMinInterval: time.Second,
		IndexRetryMaxInterval: 2 * time.Minute,
		IndexRetryQueue:       1024,
		IndexRetryWorkers:     2,
		ScheduleSpec:          "@every 1m",
		DictionaryRefreshSpec: "@every 5m",
		EnableMetrics:         true,
	}
}

// ServerConfig represents server configuration for the review service
type ServerConfig struct {
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	Environment string `yaml:"environment" env:"ENVIRONMENT" env-default:"development"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat   string `yaml:"log_format" env:"LOG_FORMAT" env-default:"text"`

	// Database configuration
	DatabaseType string `yaml:"database_type" env:"DATABASE_TYPE" env-default:"memory"` // "memory", "postgres"
	DatabaseURL  string `yaml:"database_url" env:"DATABASE_URL"`
	DBSchema     string `yaml:"db_schema" env:"DB_SCHEMA" env-default:"public"`
	AutoMigrate  bool   `yaml:"auto_migrate" env:"AUTO_MIGRATE" env-default:"false"`
	SeedFile     string `yaml:"seed_file" env:"SEED_FILE"` // YAML fixture for the memory database

	LockType string `yaml:"lock_type" env:"LOCK_TYPE" env-default:"memory"` // "memory", "postgres"

	// Search index
	SearchIndexURL      string `yaml:"search_index_url" env:"SEARCH_INDEX_URL"`
	SearchIndexName     string `yaml:"search_index_name" env:"SEARCH_INDEX_NAME" env-default:"app_info_article"`
	SearchIndexUser     string `yaml:"search_index_user" env:"SEARCH_INDEX_USER"`
	SearchIndexPassword string `yaml:"search_index_password" env:"SEARCH_INDEX_PASSWORD"`

	// Image URLs
	FileServerURL    string `yaml:"file_server_url" env:"FILE_SERVER_URL"`
	ImageURLStrategy string `yaml:"image_url_strategy" env:"IMAGE_URL_STRATEGY" env-default:"passthrough"` // "passthrough", "file_server", "s3"

	// Sensitive word dictionary
	DictionarySource string        `yaml:"dictionary_source" env:"DICTIONARY_SOURCE" env-default:"database"` // "database", "s3", "memory"
	DictionaryS3Key  string        `yaml:"dictionary_s3_key" env:"DICTIONARY_S3_KEY" env-default:"sensitive/words.txt"`
	DictionaryMaxAge time.Duration `yaml:"dictionary_max_age" env:"DICTIONARY_MAX_AGE" env-default:"5m"`
	SensitiveWords   []string      `yaml:"sensitive_words" env:"SENSITIVE_WORDS" env-separator:","`

	S3 S3Config `yaml:"s3"`

	// Timeouts
	CallTimeout         time.Duration `yaml:"call_timeout" env:"CALL_TIMEOUT" env-default:"5s"`
	CompensationTimeout time.Duration `yaml:"compensation_timeout" env:"COMPENSATION_TIMEOUT" env-default:"10s"`

	// Index projection retry
	IndexRetryMax         int           `yaml:"index_retry_max" env:"INDEX_RETRY_MAX" env-default:"10"`
	IndexRetryMinInterval time.Duration `yaml:"index_retry_min_interval" env:"INDEX_RETRY_MIN_INTERVAL" env-default:"1s"`
	IndexRetryMaxInterval time.Duration `yaml:"index_retry_max_interval" env:"INDEX_RETRY_MAX_INTERVAL" env-default:"2m"`
	IndexRetryQueue       int           `yaml:"index_retry_queue" env:"INDEX_RETRY_QUEUE" env-default:"1024"`
	IndexRetryWorkers     int           `yaml:"index_retry_workers" env:"INDEX_RETRY_WORKERS" env-default:"2"`

	// Scheduler; an empty spec disables the job
	ScheduleSpec          string `yaml:"schedule_spec" env:"SCHEDULE_SPEC" env-default:"@every 1m"`
	DictionaryRefreshSpec string `yaml:"dictionary_refresh_spec" env:"DICTIONARY_REFRESH_SPEC" env-default:"@every 5m"`

	EnableMetrics bool `yaml:"enable_metrics" env:"ENABLE_METRICS" env-default:"true"`
}

// S3Config represents configuration for the object store
type S3Config struct {
	Region          string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	Bucket          string `yaml:"bucket" env:"S3_BUCKET"`
	AccessKeyID     string `yaml:"access_key_id" env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"S3_SECRET_ACCESS_KEY"`
	Endpoint        string `yaml:"endpoint" env:"S3_ENDPOINT"`
	UsePathStyle    bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE" env-default:"false"`
	PresignDuration int    `yaml:"presign_duration" env:"S3_PRESIGN_DURATION" env-default:"3600"`
	ImagePrefix     string `yaml:"image_prefix" env:"S3_IMAGE_PREFIX"`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}
	// The memory database doubles as the search index; postgres needs a real one.
	if c.DatabaseType == "postgres" && c.SearchIndexURL == "" {
		return errors.New("search_index_url is required when using postgres")
	}

	switch c.LockType {
	case "memory":
	case "postgres":
		if c.DatabaseType != "postgres" {
			return errors.New("lock_type 'postgres' requires database_type 'postgres'")
		}
	default:
		return errors.New("lock_type must be 'memory' or 'postgres'")
	}

	switch c.DictionarySource {
	case "database", "memory":
	case "s3":
		if c.S3.Bucket == "" || c.DictionaryS3Key == "" {
			return errors.New("s3 bucket and dictionary_s3_key are required for dictionary_source 's3'")
		}
	default:
		return errors.New("dictionary_source must be 'database', 's3' or 'memory'")
	}

	switch c.ImageURLStrategy {
	case "passthrough":
	case "file_server":
		if c.FileServerURL == "" {
			return errors.New("file_server_url is required for image_url_strategy 'file_server'")
		}
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required for image_url_strategy 's3'")
		}
	default:
		return errors.New("image_url_strategy must be 'passthrough', 'file_server' or 's3'")
	}

	if c.CallTimeout <= 0 {
		return errors.New("call_timeout must be positive")
	}
	if c.CompensationTimeout <= 0 {
		return errors.New("compensation_timeout must be positive")
	}
	if c.IndexRetryQueue <= 0 || c.IndexRetryWorkers <= 0 {
		return errors.New("index_retry_queue and index_retry_workers must be positive")
	}
	if c.IndexRetryMinInterval > c.IndexRetryMaxInterval {
		return errors.New("index_retry_min_interval must not exceed index_retry_max_interval")
	}

	for name, spec := range map[string]string{
		"schedule_spec":           c.ScheduleSpec,
		"dictionary_refresh_spec": c.DictionaryRefreshSpec,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}

	return nil
}
