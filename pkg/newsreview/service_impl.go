package newsreview

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leadnews/newsreview/pkg/newsreview/saga"
	"github.com/leadnews/newsreview/pkg/newsreview/sensitive"
)

// service implements the Service interface
type service struct {
	wemedia    WemediaStore
	articles   ArticleStore
	channels   ChannelStore
	index      SearchIndex
	dictionary *sensitive.Dictionary
	source     DictionarySource
	locker     Locker
	events     EventSink
	recognizer ImageTextRecognizer
	imageURLs  ImageURLStrategy
	logger     *slog.Logger
	now        func() time.Time
	host       string

	callTimeout         time.Duration
	compensationTimeout time.Duration
	projectorOpts       []ProjectorOption

	projector *IndexProjector
	publisher *Publisher
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithWemediaStore sets the draft and user store
func WithWemediaStore(store WemediaStore) Option {
	return func(s *service) {
		s.wemedia = store
	}
}

// WithArticleStore sets the publishing domain store
func WithArticleStore(store ArticleStore) Option {
	return func(s *service) {
		s.articles = store
	}
}

// WithChannelStore sets the channel lookup
func WithChannelStore(store ChannelStore) Option {
	return func(s *service) {
		s.channels = store
	}
}

// WithSearchIndex sets the search projection target
func WithSearchIndex(index SearchIndex) Option {
	return func(s *service) {
		s.index = index
	}
}

// WithDictionarySource sets where sensitive words are loaded from
func WithDictionarySource(source DictionarySource) Option {
	return func(s *service) {
		s.source = source
	}
}

// WithDictionary sets a prepared dictionary; it takes precedence over
// WithDictionarySource
func WithDictionary(dict *sensitive.Dictionary) Option {
	return func(s *service) {
		s.dictionary = dict
	}
}

// WithLocker sets the per-draft lock; defaults to an in-process KeyedLocker
func WithLocker(locker Locker) Option {
	return func(s *service) {
		s.locker = locker
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithImageTextRecognizer adds text found in images to the scanned text
func WithImageTextRecognizer(r ImageTextRecognizer) Option {
	return func(s *service) {
		s.recognizer = r
	}
}

// WithImageURLStrategy sets how image references are rendered in draft details
func WithImageURLStrategy(strategy ImageURLStrategy) Option {
	return func(s *service) {
		s.imageURLs = strategy
	}
}

// WithHost sets the file server host reported alongside draft details
func WithHost(host string) Option {
	return func(s *service) {
		s.host = host
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithCallTimeout bounds every remote call
func WithCallTimeout(d time.Duration) Option {
	return func(s *service) {
		s.callTimeout = d
	}
}

// WithCompensationTimeout bounds every rollback call
func WithCompensationTimeout(d time.Duration) Option {
	return func(s *service) {
		s.compensationTimeout = d
	}
}

// WithProjectorOptions tunes the index retry worker
func WithProjectorOptions(opts ...ProjectorOption) Option {
	return func(s *service) {
		s.projectorOpts = append(s.projectorOpts, opts...)
	}
}

// New creates a new service instance with the given options. It starts the
// index retry workers; call Close to stop them.
func New(options ...Option) (Service, error) {
	s := &service{
		events:              NewNoopEventSink(),
		imageURLs:           PassthroughImageURLs{},
		logger:              slog.Default(),
		now:                 func() time.Time { return time.Now().UTC() },
		callTimeout:         5 * time.Second,
		compensationTimeout: 10 * time.Second,
	}

	for _, option := range options {
		option(s)
	}

	if s.wemedia == nil {
		return nil, fmt.Errorf("wemedia store is required")
	}
	if s.articles == nil {
		return nil, fmt.Errorf("article store is required")
	}
	if s.index == nil {
		return nil, fmt.Errorf("search index is required")
	}
	if s.dictionary == nil {
		if s.source == nil {
			return nil, fmt.Errorf("dictionary or dictionary source is required")
		}
		s.dictionary = sensitive.NewDictionary(s.source, sensitive.WithLogger(s.logger))
	}
	if s.locker == nil {
		s.locker = NewKeyedLocker()
	}
	s.logger = s.logger.With("component", "review-service")

	opts := append([]ProjectorOption{
		WithProjectorLogger(s.logger),
		WithProjectorEvents(s.events),
		WithProjectorTimeout(s.callTimeout),
	}, s.projectorOpts...)
	s.projector = NewIndexProjector(s.index, opts...)
	s.projector.Start(context.Background())

	runner := saga.New(
		saga.WithStepTimeout(s.callTimeout),
		saga.WithCompensationTimeout(s.compensationTimeout),
		saga.WithLogger(s.logger),
	)
	s.publisher = NewPublisher(s.wemedia, s.articles, s.channels, s.projector, runner,
		WithPublisherLogger(s.logger),
		WithPublisherEvents(s.events),
		WithPublisherClock(s.now),
		WithLookupTimeout(s.callTimeout),
	)

	return s, nil
}

// Close stops the index retry worker.
func (s *service) Close() error {
	if s.projector != nil {
		s.projector.Stop()
	}
	return nil
}

// Review operations

func (s *service) ReviewArticle(ctx context.Context, draftID int64) (*ReviewResult, error) {
	unlock, err := s.locker.Lock(ctx, draftID)
	if err != nil {
		return nil, &DraftError{DraftID: draftID, Op: "lock", Err: err}
	}
	defer unlock()

	draft, err := s.getDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	action := NextAction(draft, now)
	logger := s.logger.With("draft_id", draftID, "status", draft.Status.String(), "action", string(action))

	switch action {
	case ActionPublish:
		if ok, err := canPublish(draft, now); !ok {
			return nil, &DraftError{DraftID: draftID, Op: "publish", Err: err}
		}
		return s.publish(ctx, draft)
	case ActionScan:
		return s.scan(ctx, draft, logger)
	case ActionWait:
		logger.Debug("scheduled draft not yet due", "publish_time", draft.PublishTime)
	default:
		logger.Debug("status not handled by automatic review")
	}
	return resultFor(draft, action), nil
}

func (s *service) scan(ctx context.Context, draft *Draft, logger *slog.Logger) (*ReviewResult, error) {
	extracted, err := ExtractContent(draft)
	if err != nil {
		return nil, &DraftError{DraftID: draft.ID, Op: "extract", Err: err}
	}

	text := extracted.Text
	if s.recognizer != nil {
		text = s.appendImageText(ctx, draft.ID, text, extracted.Images)
	}

	matcher, err := s.dictionary.Matcher(ctx)
	if err != nil {
		return nil, &DraftError{DraftID: draft.ID, Op: "scan", Err: fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)}
	}
	matches := matcher.Scan(text)
	status, reason, action := ScanOutcome(matches)

	updated := draft.Clone()
	updated.Status = status
	updated.Reason = reason
	if err := s.updateDraft(ctx, updated); err != nil {
		return nil, &DraftError{DraftID: draft.ID, Op: "update", Err: err}
	}

	if action == ActionReject {
		logger.Warn("draft rejected for sensitive content", "matches", matches)
		if err := s.events.DraftRejected(ctx, updated, matches); err != nil {
			logger.Error("event sink failed", "event", "draft_rejected", "err", err)
		}
	} else {
		logger.Info("draft queued for manual review")
		if err := s.events.DraftQueuedForReview(ctx, updated); err != nil {
			logger.Error("event sink failed", "event", "draft_queued", "err", err)
		}
	}

	result := resultFor(updated, action)
	if len(matches) > 0 {
		result.Matches = matches
	}
	return result, nil
}

// appendImageText adds recognized image text to the scanned text.
// Recognition failures are skipped.
func (s *service) appendImageText(ctx context.Context, draftID int64, text string, images []string) string {
	var sb strings.Builder
	sb.WriteString(text)
	for _, ref := range images {
		rctx, cancel := context.WithTimeout(ctx, s.callTimeout)
		found, err := s.recognizer.RecognizeText(rctx, ref)
		cancel()
		if err != nil {
			s.logger.Warn("image text recognition failed", "draft_id", draftID, "image", ref, "err", err)
			continue
		}
		if found != "" {
			sb.WriteString("-")
			sb.WriteString(found)
		}
	}
	return sb.String()
}

func (s *service) publish(ctx context.Context, draft *Draft) (*ReviewResult, error) {
	pub, err := s.publisher.Publish(ctx, draft)
	if err != nil {
		result := resultFor(draft, ActionPublish)
		result.Reason = err.Error()
		return result, err
	}

	result := resultFor(pub.Draft, ActionPublish)
	if pub.IndexErr != nil {
		result.Warnings = append(result.Warnings, pub.IndexErr.Error())
	}
	return result, nil
}

func (s *service) DecideManually(ctx context.Context, req ManualDecisionRequest) (*ReviewResult, error) {
	if err := validateDecision(req); err != nil {
		return nil, &DraftError{DraftID: req.DraftID, Op: "decide", Err: err}
	}

	unlock, err := s.locker.Lock(ctx, req.DraftID)
	if err != nil {
		return nil, &DraftError{DraftID: req.DraftID, Op: "lock", Err: err}
	}
	defer unlock()

	draft, err := s.getDraft(ctx, req.DraftID)
	if err != nil {
		return nil, err
	}

	ok, err := canDecideManually(draft.Status)
	if err != nil {
		return nil, &DraftError{DraftID: draft.ID, Op: "decide", Err: err}
	}
	if !ok {
		s.logger.Info("manual decision ignored for terminal draft", "draft_id", draft.ID, "status", draft.Status.String())
		return resultFor(draft, ActionNone), nil
	}

	if req.Decision == DecisionReject {
		reason := strings.TrimSpace(req.Reason)
		if reason == "" {
			reason = ReasonManuallyRejected
		}
		updated := draft.Clone()
		updated.Status = StatusRejected
		updated.Reason = reason
		if err := s.updateDraft(ctx, updated); err != nil {
			return nil, &DraftError{DraftID: draft.ID, Op: "reject", Err: err}
		}
		if err := s.events.DraftRejected(ctx, updated, nil); err != nil {
			s.logger.Error("event sink failed", "event", "draft_rejected", "err", err)
		}
		return resultFor(updated, ActionReject), nil
	}

	approved := draft
	if draft.Status != StatusManuallyApproved {
		approved = draft.Clone()
		approved.Status = StatusManuallyApproved
		approved.Reason = strings.TrimSpace(req.Reason)
		if err := s.updateDraft(ctx, approved); err != nil {
			return nil, &DraftError{DraftID: draft.ID, Op: "approve", Err: err}
		}
	}
	return s.publish(ctx, approved)
}

// Query operations

func (s *service) GetDraftDetails(ctx context.Context, draftID int64) (*DraftDetails, error) {
	draft, err := s.getDraft(ctx, draftID)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, draft, true), nil
}

func (s *service) ListDrafts(ctx context.Context, filter DraftFilter) ([]*DraftDetails, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	drafts, err := s.wemedia.ListDrafts(callCtx, filter)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	out := make([]*DraftDetails, 0, len(drafts))
	for _, d := range drafts {
		out = append(out, s.decorate(ctx, d, false))
	}
	return out, nil
}

func (s *service) decorate(ctx context.Context, draft *Draft, withAuthor bool) *DraftDetails {
	details := &DraftDetails{Draft: draft, Host: s.host, ImageURLs: []string{}}

	images := draft.Images
	if extracted, err := ExtractContent(draft); err != nil {
		s.logger.Warn("draft body not parseable for display", "draft_id", draft.ID, "err", err)
	} else {
		details.Text = extracted.Text
		images = extracted.Images
	}

	for _, ref := range images {
		u, err := s.imageURLs.ImageURL(ctx, ref)
		if err != nil {
			s.logger.Warn("image url resolution failed", "draft_id", draft.ID, "image", ref, "err", err)
			u = ref
		}
		details.ImageURLs = append(details.ImageURLs, u)
	}

	if withAuthor && draft.UserID != 0 {
		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		if user, err := s.wemedia.GetUser(callCtx, draft.UserID); err == nil {
			details.AuthorName = user.Name
		}
	}
	return details
}

// Dictionary operations

func (s *service) RefreshDictionary(ctx context.Context) (int, error) {
	m, err := s.dictionary.Refresh(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDictionaryUnavailable, err)
	}
	return m.Len(), nil
}

// helpers

func (s *service) getDraft(ctx context.Context, id int64) (*Draft, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()

	draft, err := s.wemedia.GetDraft(callCtx, id)
	if err != nil {
		return nil, &DraftError{DraftID: id, Op: "get", Err: err}
	}
	return draft, nil
}

func (s *service) updateDraft(ctx context.Context, draft *Draft) error {
	callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.wemedia.UpdateDraft(callCtx, draft)
}

func resultFor(draft *Draft, action Action) *ReviewResult {
	r := &ReviewResult{
		DraftID: draft.ID,
		Status:  draft.Status,
		Reason:  draft.Reason,
		Action:  action,
	}
	if draft.ArticleID != nil {
		id := *draft.ArticleID
		r.ArticleID = &id
	}
	return r
}

var _ Service = (*service)(nil)
