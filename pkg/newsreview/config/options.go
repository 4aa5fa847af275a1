package config

import (
	"errors"
	"time"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return errors.New("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the runtime environment
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		c.Environment = env
		return nil
	}
}

// WithLogging sets the log level and format
func WithLogging(level, format string) Option {
	return func(c *ServerConfig) error {
		c.LogLevel = level
		c.LogFormat = format
		return nil
	}
}

// WithDatabase sets the database type and connection URL
func WithDatabase(dbType, url string) Option {
	return func(c *ServerConfig) error {
		c.DatabaseType = dbType
		c.DatabaseURL = url
		return nil
	}
}

// WithDatabaseSchema sets the Postgres search_path schema
func WithDatabaseSchema(schema string) Option {
	return func(c *ServerConfig) error {
		c.DBSchema = schema
		return nil
	}
}

// WithSeedFile loads a YAML fixture into the memory database
func WithSeedFile(path string) Option {
	return func(c *ServerConfig) error {
		c.SeedFile = path
		return nil
	}
}

// WithAdvisoryLocks serializes draft work with Postgres advisory locks
func WithAdvisoryLocks() Option {
	return func(c *ServerConfig) error {
		c.LockType = "postgres"
		return nil
	}
}

// WithSearchIndex sets the Elasticsearch base URL and index name
func WithSearchIndex(url, name string) Option {
	return func(c *ServerConfig) error {
		c.SearchIndexURL = url
		if name != "" {
			c.SearchIndexName = name
		}
		return nil
	}
}

// WithFileServerURLs renders image references relative to baseURL
func WithFileServerURLs(baseURL string) Option {
	return func(c *ServerConfig) error {
		c.ImageURLStrategy = "file_server"
		c.FileServerURL = baseURL
		return nil
	}
}

// WithPresignedImageURLs renders image references as presigned S3 URLs
func WithPresignedImageURLs() Option {
	return func(c *ServerConfig) error {
		c.ImageURLStrategy = "s3"
		return nil
	}
}

// WithS3 sets the bucket and region of the object store
func WithS3(bucket, region string) Option {
	return func(c *ServerConfig) error {
		c.S3.Bucket = bucket
		if region != "" {
			c.S3.Region = region
		}
		return nil
	}
}

// WithS3Credentials sets static credentials for the object store
func WithS3Credentials(accessKeyID, secretAccessKey string) Option {
	return func(c *ServerConfig) error {
		c.S3.AccessKeyID = accessKeyID
		c.S3.SecretAccessKey = secretAccessKey
		return nil
	}
}

// WithS3Endpoint sets a custom endpoint for S3-compatible services
func WithS3Endpoint(endpoint string, usePathStyle bool) Option {
	return func(c *ServerConfig) error {
		c.S3.Endpoint = endpoint
		c.S3.UsePathStyle = usePathStyle
		return nil
	}
}

// WithDictionaryFromDatabase loads sensitive words from the admin table
func WithDictionaryFromDatabase() Option {
	return func(c *ServerConfig) error {
		c.DictionarySource = "database"
		return nil
	}
}

// WithDictionaryFromS3 loads sensitive words from an object
func WithDictionaryFromS3(key string) Option {
	return func(c *ServerConfig) error {
		c.DictionarySource = "s3"
		c.DictionaryS3Key = key
		return nil
	}
}

// WithStaticDictionary uses a fixed word list
func WithStaticDictionary(words ...string) Option {
	return func(c *ServerConfig) error {
		c.DictionarySource = "memory"
		c.SensitiveWords = words
		return nil
	}
}

// WithTimeouts sets the remote call and compensation timeouts
func WithTimeouts(call, compensation time.Duration) Option {
	return func(c *ServerConfig) error {
		c.CallTimeout = call
		c.CompensationTimeout = compensation
		return nil
	}
}

// WithIndexRetry tunes the index projection retry policy and queue
func WithIndexRetry(maxRetries int, minInterval, maxInterval time.Duration, queue, workers int) Option {
	return func(c *ServerConfig) error {
		c.IndexRetryMax = maxRetries
		c.IndexRetryMinInterval = minInterval
		c.IndexRetryMaxInterval = maxInterval
		c.IndexRetryQueue = queue
		c.IndexRetryWorkers = workers
		return nil
	}
}

// WithSchedules sets the cron specs of the scan and dictionary refresh jobs
func WithSchedules(scanSpec, refreshSpec string) Option {
	return func(c *ServerConfig) error {
		c.ScheduleSpec = scanSpec
		c.DictionaryRefreshSpec = refreshSpec
		return nil
	}
}

// WithMetrics toggles the Prometheus event sink
func WithMetrics(enabled bool) Option {
	return func(c *ServerConfig) error {
		c.EnableMetrics = enabled
		return nil
	}
}
