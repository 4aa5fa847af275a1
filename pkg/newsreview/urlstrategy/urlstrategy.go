// Package urlstrategy renders stored image references into URLs a client
// can display.
package urlstrategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// StrategyType names a URL strategy
type StrategyType string

const (
	// Prefix relative references with a file server host
	StrategyTypeFileServer StrategyType = "file_server"

	// Presign references through an object storage backend
	StrategyTypeStorageDelegated StrategyType = "s3"

	// Return references unchanged
	StrategyTypePassthrough StrategyType = "passthrough"
)

// Presigner generates signed URLs for stored objects
type Presigner interface {
	ImageURL(ctx context.Context, ref string) (string, error)
}

// Config holds configuration for strategy creation
type Config struct {
	Type          StrategyType
	FileServerURL string    // For file server strategy
	Presigner     Presigner // For storage-delegated strategy
}

// New creates a URL strategy based on the configuration
func New(config Config) (newsreview.ImageURLStrategy, error) {
	switch config.Type {
	case StrategyTypeFileServer:
		if config.FileServerURL == "" {
			return nil, fmt.Errorf("file server URL is required for file_server strategy")
		}
		return NewFileServerStrategy(config.FileServerURL), nil

	case StrategyTypeStorageDelegated:
		if config.Presigner == nil {
			return nil, fmt.Errorf("presigner is required for s3 strategy")
		}
		return NewStorageDelegatedStrategy(config.Presigner), nil

	case StrategyTypePassthrough, "":
		return newsreview.PassthroughImageURLs{}, nil

	default:
		return nil, fmt.Errorf("unknown URL strategy type: %s", config.Type)
	}
}

// FileServerStrategy prefixes relative image references with the file
// server host. Absolute references are returned unchanged.
type FileServerStrategy struct {
	BaseURL string // e.g., "http://192.168.200.130:9000/leadnews"
}

// NewFileServerStrategy creates a file server strategy
func NewFileServerStrategy(baseURL string) *FileServerStrategy {
	return &FileServerStrategy{BaseURL: strings.TrimSuffix(baseURL, "/")}
}

// ImageURL joins the base URL and the reference
func (s *FileServerStrategy) ImageURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty image reference")
	}
	if isAbsolute(ref) {
		return ref, nil
	}
	if s.BaseURL == "" {
		return "", fmt.Errorf("file server URL not configured")
	}
	return s.BaseURL + "/" + strings.TrimPrefix(ref, "/"), nil
}

// StorageDelegatedStrategy delegates URL generation to a storage backend
type StorageDelegatedStrategy struct {
	Presigner Presigner
}

// NewStorageDelegatedStrategy creates a storage-delegated strategy
func NewStorageDelegatedStrategy(presigner Presigner) *StorageDelegatedStrategy {
	return &StorageDelegatedStrategy{Presigner: presigner}
}

// ImageURL asks the backend for a signed URL
func (s *StorageDelegatedStrategy) ImageURL(ctx context.Context, ref string) (string, error) {
	if ref == "" {
		return "", fmt.Errorf("empty image reference")
	}
	if isAbsolute(ref) {
		return ref, nil
	}
	return s.Presigner.ImageURL(ctx, ref)
}

func isAbsolute(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
