package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/backoff/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/leadnews/newsreview/pkg/newsreview"
	"github.com/leadnews/newsreview/pkg/newsreview/index"
	"github.com/leadnews/newsreview/pkg/newsreview/metrics"
	"github.com/leadnews/newsreview/pkg/newsreview/repo/memory"
	repopg "github.com/leadnews/newsreview/pkg/newsreview/repo/postgres"
	"github.com/leadnews/newsreview/pkg/newsreview/sensitive"
	s3storage "github.com/leadnews/newsreview/pkg/newsreview/storage/s3"
	"github.com/leadnews/newsreview/pkg/newsreview/urlstrategy"
)

// Runtime is an assembled review service and the resources behind it.
type Runtime struct {
	Service newsreview.Service
	// Drafts lists drafts for the periodic scan.
	Drafts newsreview.WemediaStore
	// Registry holds the service metrics; nil when metrics are disabled.
	Registry *prometheus.Registry

	pool *pgxpool.Pool
}

// Close stops the service and releases the database pool.
func (r *Runtime) Close() error {
	err := r.Service.Close()
	if r.pool != nil {
		r.pool.Close()
	}
	return err
}

type stores struct {
	wemedia  newsreview.WemediaStore
	articles newsreview.ArticleStore
	channels newsreview.ChannelStore
	words    newsreview.DictionarySource
	index    newsreview.SearchIndex
	pool     *pgxpool.Pool
}

// BuildService creates the review service from the server configuration
func (c *ServerConfig) BuildService(ctx context.Context, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := c.buildStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}
	runtime := &Runtime{Drafts: st.wemedia, pool: st.pool}

	fail := func(err error) (*Runtime, error) {
		if st.pool != nil {
			st.pool.Close()
		}
		return nil, err
	}

	options := []newsreview.Option{
		newsreview.WithWemediaStore(st.wemedia),
		newsreview.WithArticleStore(st.articles),
		newsreview.WithChannelStore(st.channels),
		newsreview.WithLogger(logger),
		newsreview.WithCallTimeout(c.CallTimeout),
		newsreview.WithCompensationTimeout(c.CompensationTimeout),
		newsreview.WithHost(c.FileServerURL),
	}

	if c.LockType == "postgres" {
		options = append(options, newsreview.WithLocker(
			repopg.NewAdvisoryLocker(st.pool, repopg.DefaultLockNamespace, logger)))
	}

	var backend *s3storage.Backend
	if c.DictionarySource == "s3" || c.ImageURLStrategy == "s3" {
		backend, err = s3storage.New(s3storage.Config{
			Region:          c.S3.Region,
			Bucket:          c.S3.Bucket,
			AccessKeyID:     c.S3.AccessKeyID,
			SecretAccessKey: c.S3.SecretAccessKey,
			Endpoint:        c.S3.Endpoint,
			UsePathStyle:    c.S3.UsePathStyle,
			PresignDuration: c.S3.PresignDuration,
			DictionaryKey:   c.DictionaryS3Key,
			ImagePrefix:     c.S3.ImagePrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("failed to build s3 backend: %w", err))
		}
	}

	var source newsreview.DictionarySource
	switch c.DictionarySource {
	case "database":
		source = st.words
	case "s3":
		source = backend
	case "memory":
		source = sensitive.StaticSource(c.SensitiveWords)
	}
	dict := sensitive.NewDictionary(source,
		sensitive.WithMaxAge(c.DictionaryMaxAge),
		sensitive.WithLogger(logger))
	options = append(options, newsreview.WithDictionary(dict))

	strategyConfig := urlstrategy.Config{
		Type:          urlstrategy.StrategyType(c.ImageURLStrategy),
		FileServerURL: c.FileServerURL,
	}
	if backend != nil {
		strategyConfig.Presigner = backend
	}
	strategy, err := urlstrategy.New(strategyConfig)
	if err != nil {
		return fail(err)
	}
	options = append(options, newsreview.WithImageURLStrategy(strategy))

	searchIndex := st.index
	if c.SearchIndexURL != "" {
		indexOpts := []index.ClientOption{index.WithIndex(c.SearchIndexName)}
		if c.SearchIndexUser != "" {
			indexOpts = append(indexOpts, index.WithBasicAuth(c.SearchIndexUser, c.SearchIndexPassword))
		}
		client, err := index.NewClient(c.SearchIndexURL, indexOpts...)
		if err != nil {
			return fail(fmt.Errorf("failed to build search index client: %w", err))
		}
		searchIndex = client
	}
	if searchIndex == nil {
		return fail(errors.New("no search index configured"))
	}
	options = append(options,
		newsreview.WithSearchIndex(searchIndex),
		newsreview.WithProjectorOptions(
			newsreview.WithRetryPolicy(c.retryPolicy()),
			newsreview.WithRetryQueue(c.IndexRetryQueue, c.IndexRetryWorkers),
		))

	if c.EnableMetrics {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		sink, err := metrics.New(registry)
		if err != nil {
			return fail(fmt.Errorf("failed to register metrics: %w", err))
		}
		options = append(options, newsreview.WithEventSink(sink))
		runtime.Registry = registry
	}

	svc, err := newsreview.New(options...)
	if err != nil {
		return fail(err)
	}
	runtime.Service = svc
	return runtime, nil
}

func (c *ServerConfig) retryPolicy() backoff.Policy {
	return backoff.Exponential(
		backoff.WithMinInterval(c.IndexRetryMinInterval),
		backoff.WithMaxInterval(c.IndexRetryMaxInterval),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(c.IndexRetryMax),
	)
}

// buildStores creates the repositories based on the configuration
func (c *ServerConfig) buildStores(ctx context.Context) (*stores, error) {
	switch c.DatabaseType {
	case "memory":
		repo := memory.New()
		if c.SeedFile != "" {
			if err := repo.LoadSeedFile(c.SeedFile); err != nil {
				return nil, err
			}
		}
		return &stores{
			wemedia:  repo,
			articles: repo,
			channels: repo,
			words:    repo,
			index:    repo,
		}, nil

	case "postgres":
		if c.DatabaseURL == "" {
			return nil, errors.New("database_url is required for postgres")
		}
		pool, err := NewPool(ctx, c.DatabaseURL, c.DBSchema)
		if err != nil {
			return nil, err
		}
		if c.AutoMigrate {
			if err := repopg.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("failed to migrate schema: %w", err)
			}
		}
		repo := repopg.NewWithPool(pool)
		return &stores{
			wemedia:  repo,
			articles: repo,
			channels: repo,
			words:    repo,
			pool:     pool,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

// NewPool opens a pgx pool whose sessions use schema as search_path.
func NewPool(ctx context.Context, databaseURL, schema string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, "SET search_path TO "+pgx.Identifier{schema}.Sanitize())
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	return pool, nil
}
