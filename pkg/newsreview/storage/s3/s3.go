// Package s3 serves sensitive word lists and image URLs from an S3
// compatible object store.
package s3

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	Bucket          string // S3 bucket name
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)
	PresignDuration int    // Duration in seconds for presigned URLs (default: 3600)

	DictionaryKey string // Object holding one sensitive word per line
	ImagePrefix   string // Prefix prepended to relative image references
}

// ObjectAPI is the subset of the S3 client used by Backend
type ObjectAPI interface {
	manager.DownloadAPIClient
}

// PresignAPI is the subset of the presign client used by Backend
type PresignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Backend reads the dictionary object and presigns image downloads
type Backend struct {
	client          ObjectAPI
	presignClient   PresignAPI
	bucket          string
	dictionaryKey   string
	imagePrefix     string
	presignDuration time.Duration
}

// New creates a new S3-compatible backend
func New(config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)
	return NewWithClients(client, s3.NewPresignClient(client), config)
}

// NewWithClients creates a backend on existing clients
func NewWithClients(client ObjectAPI, presignClient PresignAPI, config Config) (*Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if config.PresignDuration == 0 {
		config.PresignDuration = 3600
	}
	return &Backend{
		client:          client,
		presignClient:   presignClient,
		bucket:          config.Bucket,
		dictionaryKey:   config.DictionaryKey,
		imagePrefix:     config.ImagePrefix,
		presignDuration: time.Duration(config.PresignDuration) * time.Second,
	}, nil
}

// GetSensitiveDictionary downloads the dictionary object and returns one
// term per non-empty line. Lines starting with '#' are comments.
func (b *Backend) GetSensitiveDictionary(ctx context.Context) ([]string, error) {
	if b.dictionaryKey == "" {
		return nil, errors.New("dictionary key is not configured")
	}

	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(b.client, func(d *manager.Downloader) {
		d.Concurrency = 1
	})
	_, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.dictionaryKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: dictionary object %s", newsreview.ErrNotFound, b.dictionaryKey)
		}
		return nil, fmt.Errorf("failed to download dictionary: %w", err)
	}

	return parseTerms(buf.Bytes())
}

func parseTerms(data []byte) ([]string, error) {
	var terms []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		terms = append(terms, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dictionary: %w", err)
	}
	return terms, nil
}

// ImageURL presigns a download URL for a stored image. Absolute http(s)
// references are returned unchanged.
func (b *Backend) ImageURL(ctx context.Context, ref string) (string, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref, nil
	}
	key := b.imagePrefix + strings.TrimPrefix(ref, "/")

	req, err := b.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = b.presignDuration
	})
	if err != nil {
		return "", fmt.Errorf("failed to presign image %s: %w", key, err)
	}
	return req.URL, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

var (
	_ newsreview.DictionarySource = (*Backend)(nil)
	_ newsreview.ImageURLStrategy = (*Backend)(nil)
)
