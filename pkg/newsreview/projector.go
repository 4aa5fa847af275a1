package newsreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/backoff/v2"
)

// ErrRetryQueueFull indicates a failed projection could not be scheduled
// for retry.
var ErrRetryQueueFull = errors.New("index retry queue full")

type projectionJob struct {
	id       string
	doc      *IndexDocument
	queuedAt time.Time
}

// IndexProjector writes search documents. A failed write is queued and
// retried in the background with exponential backoff until it succeeds or
// the retry budget is exhausted.
type IndexProjector struct {
	index       SearchIndex
	events      EventSink
	logger      *slog.Logger
	policy      backoff.Policy
	callTimeout time.Duration
	workers     int

	jobs    chan projectionJob
	pending atomic.Int64

	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// ProjectorOption configures an IndexProjector.
type ProjectorOption func(*IndexProjector)

// WithRetryPolicy replaces the default backoff policy.
func WithRetryPolicy(policy backoff.Policy) ProjectorOption {
	return func(p *IndexProjector) {
		p.policy = policy
	}
}

// WithProjectorLogger sets the logger.
func WithProjectorLogger(logger *slog.Logger) ProjectorOption {
	return func(p *IndexProjector) {
		p.logger = logger
	}
}

// WithProjectorEvents sets the event sink notified of failed projections.
func WithProjectorEvents(events EventSink) ProjectorOption {
	return func(p *IndexProjector) {
		p.events = events
	}
}

// WithProjectorTimeout bounds each index call.
func WithProjectorTimeout(d time.Duration) ProjectorOption {
	return func(p *IndexProjector) {
		p.callTimeout = d
	}
}

// WithRetryQueue sets the retry queue capacity and worker count.
func WithRetryQueue(size, workers int) ProjectorOption {
	return func(p *IndexProjector) {
		if size > 0 {
			p.jobs = make(chan projectionJob, size)
		}
		if workers > 0 {
			p.workers = workers
		}
	}
}

// DefaultRetryPolicy retries up to ten times between one second and two
// minutes apart.
func DefaultRetryPolicy() backoff.Policy {
	return backoff.Exponential(
		backoff.WithMinInterval(time.Second),
		backoff.WithMaxInterval(2*time.Minute),
		backoff.WithJitterFactor(0.1),
		backoff.WithMaxRetries(10),
	)
}

// NewIndexProjector creates a projector. Call Start to run the retry
// workers.
func NewIndexProjector(index SearchIndex, opts ...ProjectorOption) *IndexProjector {
	p := &IndexProjector{
		index:       index,
		events:      NewNoopEventSink(),
		logger:      slog.Default(),
		policy:      DefaultRetryPolicy(),
		callTimeout: 5 * time.Second,
		workers:     1,
		jobs:        make(chan projectionJob, 1024),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "index-projector")
	return p
}

// Project writes doc once. On failure the document is queued for retry and
// an error wrapping ErrIndexProjectionFailed is returned.
func (p *IndexProjector) Project(ctx context.Context, doc *IndexDocument) error {
	err := p.write(ctx, doc)
	if err == nil {
		return nil
	}

	p.logger.Warn("index projection failed, scheduling retry", "article_id", doc.ID, "err", err)
	job := projectionJob{id: uuid.NewString(), doc: doc, queuedAt: time.Now().UTC()}
	// Count before the send so a worker never decrements below zero.
	p.pending.Add(1)
	select {
	case p.jobs <- job:
	default:
		p.pending.Add(-1)
		p.logger.Error("index retry queue full, dropping projection", "article_id", doc.ID)
		err = errors.Join(err, ErrRetryQueueFull)
	}
	return fmt.Errorf("%w: article %s: %w", ErrIndexProjectionFailed, doc.ID, err)
}

func (p *IndexProjector) write(ctx context.Context, doc *IndexDocument) error {
	callCtx, cancel := context.WithTimeout(ctx, p.callTimeout)
	defer cancel()
	return p.index.UpsertIndexDocument(callCtx, doc)
}

// Start launches the retry workers. The workers stop when ctx is done or
// Stop is called.
func (p *IndexProjector) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		ctx, p.cancel = context.WithCancel(ctx)
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.workerLoop(ctx)
		}
	})
}

// Stop cancels in-flight retries and waits for the workers to exit.
// Queued jobs that were not retried are reported in the log.
func (p *IndexProjector) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		p.wg.Wait()
		if n := p.pending.Load(); n > 0 {
			p.logger.Warn("index projector stopped with pending retries", "pending", n)
		}
	})
}

// Pending returns the number of documents waiting for a retry.
func (p *IndexProjector) Pending() int {
	return int(p.pending.Load())
}

func (p *IndexProjector) workerLoop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			p.retry(ctx, job)
			p.pending.Add(-1)
		}
	}
}

func (p *IndexProjector) retry(ctx context.Context, job projectionJob) {
	logger := p.logger.With("job_id", job.id, "article_id", job.doc.ID)

	b := p.policy.Start(ctx)
	attempt := 0
	var lastErr error
	for backoff.Continue(b) {
		attempt++
		lastErr = p.write(ctx, job.doc)
		if lastErr == nil {
			logger.Info("index projection recovered", "attempts", attempt, "delay", time.Since(job.queuedAt))
			return
		}
		logger.Warn("index projection retry failed", "attempt", attempt, "err", lastErr)
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	logger.Error("index projection abandoned", "attempts", attempt, "err", lastErr)

	id, _ := parseArticleID(job.doc.ID)
	if err := p.events.IndexProjectionFailed(context.WithoutCancel(ctx), id, lastErr); err != nil {
		logger.Error("event sink failed", "event", "index_projection_failed", "err", err)
	}
}
