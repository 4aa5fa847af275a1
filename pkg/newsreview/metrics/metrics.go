// Package metrics exports review lifecycle events as Prometheus metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

const namespace = "newsreview"

// Sink is a newsreview.EventSink backed by Prometheus collectors.
type Sink struct {
	outcomes           *prometheus.CounterVec
	sensitiveHits      *prometheus.CounterVec
	publicationFailure *prometheus.CounterVec
	indexFailures      prometheus.Counter
	publishDuration    prometheus.Histogram
}

// New creates a Sink and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Sink, error) {
	s := &Sink{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "review_outcomes_total",
			Help:      "Drafts leaving the automatic or manual review path, by outcome.",
		}, []string{"outcome"}),
		sensitiveHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sensitive_term_hits_total",
			Help:      "Occurrences of sensitive terms in rejected drafts.",
		}, []string{"term"}),
		publicationFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publication_failures_total",
			Help:      "Rolled back publications, by failing step.",
		}, []string{"step"}),
		indexFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_projection_failures_total",
			Help:      "Search index projections abandoned after retries.",
		}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "publish_duration_seconds",
			Help:      "Time spent committing a publication.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{
		s.outcomes, s.sensitiveHits, s.publicationFailure, s.indexFailures, s.publishDuration,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sink) DraftRejected(ctx context.Context, draft *newsreview.Draft, matches map[string]int) error {
	s.outcomes.WithLabelValues("rejected").Inc()
	for term, n := range matches {
		s.sensitiveHits.WithLabelValues(term).Add(float64(n))
	}
	return nil
}

func (s *Sink) DraftQueuedForReview(ctx context.Context, draft *newsreview.Draft) error {
	s.outcomes.WithLabelValues("queued").Inc()
	return nil
}

func (s *Sink) ArticlePublished(ctx context.Context, draft *newsreview.Draft, articleID int64, took time.Duration) error {
	s.outcomes.WithLabelValues("published").Inc()
	s.publishDuration.Observe(took.Seconds())
	return nil
}

func (s *Sink) PublicationFailed(ctx context.Context, draft *newsreview.Draft, step string, err error) error {
	s.publicationFailure.WithLabelValues(step).Inc()
	return nil
}

func (s *Sink) IndexProjectionFailed(ctx context.Context, articleID int64, err error) error {
	s.indexFailures.Inc()
	return nil
}

var _ newsreview.EventSink = (*Sink)(nil)
