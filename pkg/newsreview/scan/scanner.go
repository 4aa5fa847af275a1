// Package scan walks drafts that the automatic review path can advance
// and feeds each one to ReviewArticle.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// DraftLister lists drafts matching a filter.
type DraftLister interface {
	ListDrafts(ctx context.Context, filter newsreview.DraftFilter) ([]*newsreview.Draft, error)
}

// Reviewer runs the automatic review path for one draft.
type Reviewer interface {
	ReviewArticle(ctx context.Context, draftID int64) (*newsreview.ReviewResult, error)
}

// DefaultStatuses are the statuses the periodic scan visits.
var DefaultStatuses = []newsreview.Status{
	newsreview.StatusManuallyApproved,
	newsreview.StatusScheduledPublish,
}

// Scanner queries drafts and reviews them.
type Scanner struct {
	lister   DraftLister
	reviewer Reviewer
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithLogger sets the scanner logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// WithClock overrides the time source used for due checks.
func WithClock(now func() time.Time) Option {
	return func(s *Scanner) {
		s.now = now
	}
}

// New creates a new Scanner instance.
func New(lister DraftLister, reviewer Reviewer, opts ...Option) *Scanner {
	s := &Scanner{
		lister:   lister,
		reviewer: reviewer,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "scanner")
	return s
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// Statuses to visit (default: DefaultStatuses)
	Statuses []newsreview.Status

	// BatchSize controls how many drafts to query at once (default: 100)
	BatchSize int

	// DryRun if true, only reports what would be reviewed
	DryRun bool

	// OnProgress is called after each batch is listed (optional)
	OnProgress func(processed, total int64)
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// TotalFound is the number of drafts matching the filters
	TotalFound int64

	// TotalProcessed is the number of drafts reviewed without error
	TotalProcessed int64

	// TotalFailed is the number of drafts whose review returned an error
	TotalFailed int64

	// Actions counts review outcomes by action
	Actions map[newsreview.Action]int64

	// FailedIDs contains the IDs of drafts that failed review
	FailedIDs []int64
}

// Scan lists every matching draft first and then reviews them one by one.
// Listing completes before any review so that status changes do not shift
// the pages. A failed review is recorded and the scan continues.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{Actions: make(map[newsreview.Action]int64)}

	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	statuses := opts.Statuses
	if len(statuses) == 0 {
		statuses = DefaultStatuses
	}

	now := s.now()
	var ids []int64
	for _, status := range statuses {
		filter := newsreview.DraftFilter{Statuses: []newsreview.Status{status}}
		if status == newsreview.StatusScheduledPublish {
			filter.DueBefore = &now
		}
		found, err := s.collect(ctx, filter, opts.BatchSize)
		if err != nil {
			return result, err
		}
		ids = append(ids, found...)
	}
	result.TotalFound = int64(len(ids))

	for i, id := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if opts.DryRun {
			s.logger.Info("dry run: would review draft", "draft_id", id)
			result.TotalProcessed++
		} else {
			res, err := s.reviewer.ReviewArticle(ctx, id)
			if err != nil {
				result.TotalFailed++
				result.FailedIDs = append(result.FailedIDs, id)
				s.logger.Error("review failed", "draft_id", id, "err", err)
			} else {
				result.TotalProcessed++
				if res != nil {
					result.Actions[res.Action]++
				}
			}
		}

		if opts.OnProgress != nil && ((i+1)%opts.BatchSize == 0 || i == len(ids)-1) {
			opts.OnProgress(result.TotalProcessed+result.TotalFailed, result.TotalFound)
		}
	}

	s.logger.Info("scan finished",
		"found", result.TotalFound,
		"processed", result.TotalProcessed,
		"failed", result.TotalFailed)
	return result, nil
}

func (s *Scanner) collect(ctx context.Context, filter newsreview.DraftFilter, batchSize int) ([]int64, error) {
	var ids []int64
	filter.Limit = batchSize
	for offset := 0; ; offset += batchSize {
		filter.Offset = offset
		drafts, err := s.lister.ListDrafts(ctx, filter)
		if err != nil {
			return ids, fmt.Errorf("failed to list drafts: %w", err)
		}
		for _, d := range drafts {
			ids = append(ids, d.ID)
		}
		if len(drafts) < batchSize {
			return ids, nil
		}
	}
}
