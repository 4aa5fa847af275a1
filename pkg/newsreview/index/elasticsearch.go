// Package index writes article projections to an Elasticsearch cluster.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// Client upserts documents with the index API (PUT /{index}/_doc/{id}).
type Client struct {
	es      *elasticsearch.Client
	index   string
	refresh string
}

type clientConfig struct {
	index     string
	refresh   string
	username  string
	password  string
	transport http.RoundTripper
}

// ClientOption is a functional option for configuring a Client
type ClientOption func(*clientConfig)

// WithTransport sets the HTTP transport used to reach the cluster
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *clientConfig) {
		c.transport = rt
	}
}

// WithIndex overrides the target index name
func WithIndex(name string) ClientOption {
	return func(c *clientConfig) {
		c.index = name
	}
}

// WithBasicAuth sets cluster credentials
func WithBasicAuth(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = password
	}
}

// WithRefresh sets the refresh policy sent with every write ("true", "false", "wait_for").
func WithRefresh(policy string) ClientOption {
	return func(c *clientConfig) {
		c.refresh = policy
	}
}

// NewClient creates a search index client for the cluster at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid search index url %q: %w", baseURL, err)
	}
	cfg := clientConfig{index: newsreview.SearchIndexName}
	for _, opt := range opts {
		opt(&cfg)
	}

	// Retries are owned by the index projector.
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{strings.TrimSuffix(baseURL, "/")},
		Username:     cfg.username,
		Password:     cfg.password,
		Transport:    cfg.transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &Client{es: es, index: cfg.index, refresh: cfg.refresh}, nil
}

// StatusError is returned when the cluster answers with an error status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search index returned %d: %s", e.StatusCode, e.Body)
}

// UpsertIndexDocument creates or replaces the document keyed by doc.ID.
func (c *Client) UpsertIndexDocument(ctx context.Context, doc *newsreview.IndexDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode index document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      c.index,
		DocumentID: doc.ID,
		Body:       bytes.NewReader(body),
		Refresh:    c.refresh,
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("index request failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return &StatusError{StatusCode: res.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, res.Body)
	return nil
}

var _ newsreview.SearchIndex = (*Client)(nil)
