package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// LoadFromEnv reads the configuration from environment variables, then
// applies opts on top.
func LoadFromEnv(opts ...Option) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return apply(&cfg, opts...)
}

// LoadFromFile reads a YAML configuration file. Environment variables
// override values from the file.
func LoadFromFile(path string, opts ...Option) (*ServerConfig, error) {
	var cfg ServerConfig
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return apply(&cfg, opts...)
}

// Usage returns a description of every environment variable.
func Usage() (string, error) {
	var cfg ServerConfig
	return cleanenv.GetDescription(&cfg, nil)
}
