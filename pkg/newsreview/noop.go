package newsreview

import (
	"context"
	"time"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) DraftRejected(ctx context.Context, draft *Draft, matches map[string]int) error {
	return nil
}

func (n *NoopEventSink) DraftQueuedForReview(ctx context.Context, draft *Draft) error {
	return nil
}

func (n *NoopEventSink) ArticlePublished(ctx context.Context, draft *Draft, articleID int64, took time.Duration) error {
	return nil
}

func (n *NoopEventSink) PublicationFailed(ctx context.Context, draft *Draft, step string, err error) error {
	return nil
}

func (n *NoopEventSink) IndexProjectionFailed(ctx context.Context, articleID int64, err error) error {
	return nil
}

// PassthroughImageURLs returns image references unchanged.
type PassthroughImageURLs struct{}

func (PassthroughImageURLs) ImageURL(ctx context.Context, ref string) (string, error) {
	return ref, nil
}
