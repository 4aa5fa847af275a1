package newsreview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/leadnews/newsreview/pkg/newsreview/saga"
)

// Publication step names, also used as PublicationError.Step.
const (
	StepCreateArticle = "create_article"
	StepCreateConfig  = "create_article_config"
	StepCreateContent = "create_article_content"
	StepUpdateDraft   = "update_draft"
)

// Publication is the outcome of a successful publish.
type Publication struct {
	Draft   *Draft
	Article *Article
	// IndexErr is set when the search projection was deferred to the
	// retry queue.
	IndexErr error
}

// Publisher materializes a published article from an approved draft.
type Publisher struct {
	wemedia   WemediaStore
	articles  ArticleStore
	channels  ChannelStore
	projector *IndexProjector
	events    EventSink
	runner    *saga.Runner
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
}

// NewPublisher wires a Publisher. channels and projector may be nil.
func NewPublisher(wemedia WemediaStore, articles ArticleStore, channels ChannelStore, projector *IndexProjector, runner *saga.Runner, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		wemedia:   wemedia,
		articles:  articles,
		channels:  channels,
		projector: projector,
		runner:    runner,
		events:    NewNoopEventSink(),
		logger:    slog.Default(),
		now:       func() time.Time { return time.Now().UTC() },
		timeout:   5 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.runner == nil {
		p.runner = saga.New(saga.WithLogger(p.logger), saga.WithStepTimeout(p.timeout))
	}
	p.logger = p.logger.With("component", "publisher")
	return p
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithPublisherEvents(events EventSink) PublisherOption {
	return func(p *Publisher) { p.events = events }
}

func WithPublisherClock(now func() time.Time) PublisherOption {
	return func(p *Publisher) { p.now = now }
}

// WithLookupTimeout bounds the author and channel lookups.
func WithLookupTimeout(d time.Duration) PublisherOption {
	return func(p *Publisher) { p.timeout = d }
}

// Publish creates the article, its config and content, marks the draft
// published and projects the article into the search index. If any of the
// first four writes fails, the completed ones are compensated and a
// *PublicationError is returned with the draft left as it was.
func (p *Publisher) Publish(ctx context.Context, draft *Draft) (*Publication, error) {
	start := p.now()
	prior := draft.Clone()

	article := &Article{
		Title:       draft.Title,
		Layout:      draft.Layout,
		Images:      append([]string(nil), draft.Images...),
		PublishTime: draft.PublishTime,
		CreatedTime: start,
	}
	p.resolveMetadata(ctx, draft, article)

	var articleID int64
	published := draft.Clone()

	steps := []saga.Step{
		{
			Name: StepCreateArticle,
			Do: func(ctx context.Context) error {
				id, err := p.articles.CreateArticle(ctx, article)
				if err != nil {
					return err
				}
				articleID = id
				article.ID = id
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if articleID == 0 {
					// The create timed out before an id came back; nothing
					// addressable to delete.
					return nil
				}
				return p.articles.DeleteArticle(ctx, articleID)
			},
		},
		{
			Name: StepCreateConfig,
			Do: func(ctx context.Context) error {
				return p.articles.CreateArticleConfig(ctx, DefaultArticleConfig(articleID))
			},
			Compensate: func(ctx context.Context) error {
				return p.articles.DeleteArticleConfig(ctx, articleID)
			},
		},
		{
			Name: StepCreateContent,
			Do: func(ctx context.Context) error {
				return p.articles.CreateArticleContent(ctx, &ArticleContent{ArticleID: articleID, Content: draft.Content})
			},
			Compensate: func(ctx context.Context) error {
				return p.articles.DeleteArticleContent(ctx, articleID)
			},
		},
		{
			Name: StepUpdateDraft,
			Do: func(ctx context.Context) error {
				id := articleID
				published.Status = StatusPublished
				published.Reason = ""
				published.ArticleID = &id
				return p.wemedia.UpdateDraft(ctx, published)
			},
			Compensate: func(ctx context.Context) error {
				return p.wemedia.UpdateDraft(ctx, prior)
			},
		},
	}

	if err := p.runner.Run(ctx, steps...); err != nil {
		pubErr := &PublicationError{DraftID: draft.ID, Err: err}
		var sagaErr *saga.Error
		if errors.As(err, &sagaErr) {
			pubErr.Step = sagaErr.Step
			pubErr.Err = sagaErr.Err
			pubErr.RollbackErr = sagaErr.CompensationErr
		}
		if pubErr.RollbackErr != nil {
			p.logger.Error("publication rollback incomplete", "draft_id", draft.ID, "step", pubErr.Step, "err", pubErr.RollbackErr)
		}
		if evErr := p.events.PublicationFailed(context.WithoutCancel(ctx), prior, pubErr.Step, pubErr.Err); evErr != nil {
			p.logger.Error("event sink failed", "event", "publication_failed", "err", evErr)
		}
		return nil, pubErr
	}

	result := &Publication{Draft: published, Article: article}

	if p.projector != nil {
		if err := p.projector.Project(ctx, BuildIndexDocument(article, draft.Content)); err != nil {
			result.IndexErr = err
		}
	}

	if err := p.events.ArticlePublished(ctx, published, articleID, p.now().Sub(start)); err != nil {
		p.logger.Error("event sink failed", "event", "article_published", "err", err)
	}
	p.logger.Info("article published", "draft_id", draft.ID, "article_id", articleID)
	return result, nil
}

// resolveMetadata fills author and channel fields. Lookups run
// concurrently and any failure leaves the fields unset.
func (p *Publisher) resolveMetadata(ctx context.Context, draft *Draft, article *Article) {
	var author *Author
	var channel *Channel

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lctx, cancel := context.WithTimeout(gctx, p.timeout)
		defer cancel()
		a, err := p.lookupAuthor(lctx, draft.UserID)
		if err != nil {
			p.logger.Warn("author lookup failed, publishing without author", "draft_id", draft.ID, "user_id", draft.UserID, "err", err)
			return nil
		}
		author = a
		return nil
	})
	if p.channels != nil && draft.ChannelID != 0 {
		g.Go(func() error {
			lctx, cancel := context.WithTimeout(gctx, p.timeout)
			defer cancel()
			c, err := p.channels.GetChannel(lctx, draft.ChannelID)
			if err != nil {
				p.logger.Warn("channel lookup failed, publishing without channel", "draft_id", draft.ID, "channel_id", draft.ChannelID, "err", err)
				return nil
			}
			channel = c
			return nil
		})
	}
	_ = g.Wait()

	if author != nil {
		id := author.ID
		article.AuthorID = &id
		article.AuthorName = author.Name
	}
	if channel != nil {
		id := channel.ID
		article.ChannelID = &id
		article.ChannelName = channel.Name
	}
}

func (p *Publisher) lookupAuthor(ctx context.Context, userID int64) (*Author, error) {
	user, err := p.wemedia.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	author, err := p.articles.FindAuthorByName(ctx, user.Name)
	if err != nil {
		return nil, fmt.Errorf("find author %q: %w", user.Name, err)
	}
	return author, nil
}

// BuildIndexDocument derives the search projection of a published article.
func BuildIndexDocument(article *Article, content string) *IndexDocument {
	return &IndexDocument{
		ID:          strconv.FormatInt(article.ID, 10),
		PublishTime: article.PublishTime,
		Layout:      article.Layout,
		Images:      JoinImages(article.Images),
		AuthorID:    article.AuthorID,
		Title:       article.Title,
		Content:     content,
	}
}

func parseArticleID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
