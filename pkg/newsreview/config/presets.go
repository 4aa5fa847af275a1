package config

import "time"

// WithDevelopmentPreset configures a local run: an in-memory database
// seeded from seedFile, debug text logs and fast schedules.
func WithDevelopmentPreset(seedFile string) Option {
	return func(c *ServerConfig) error {
		c.Environment = "development"
		c.LogLevel = "debug"
		c.LogFormat = "text"
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		c.LockType = "memory"
		c.SeedFile = seedFile
		c.DictionarySource = "database"
		c.ScheduleSpec = "@every 10s"
		c.DictionaryRefreshSpec = "@every 1m"
		return nil
	}
}

// WithTestingPreset configures an isolated instance for tests: an empty
// in-memory database, a fixed dictionary, no schedules, no metrics and
// short timeouts.
func WithTestingPreset(words ...string) Option {
	return func(c *ServerConfig) error {
		c.Environment = "testing"
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		c.LockType = "memory"
		c.SeedFile = ""
		c.DictionarySource = "memory"
		c.SensitiveWords = words
		c.ScheduleSpec = ""
		c.DictionaryRefreshSpec = ""
		c.EnableMetrics = false
		c.CallTimeout = time.Second
		c.CompensationTimeout = 2 * time.Second
		c.IndexRetryMinInterval = 10 * time.Millisecond
		c.IndexRetryMaxInterval = 100 * time.Millisecond
		return nil
	}
}
