package newsreview

import (
	"context"
	"time"
)

// Service is the review workflow entry point.
type Service interface {
	// ReviewArticle runs the automatic review path for one draft.
	ReviewArticle(ctx context.Context, draftID int64) (*ReviewResult, error)
	// DecideManually applies a moderator verdict.
	DecideManually(ctx context.Context, req ManualDecisionRequest) (*ReviewResult, error)

	GetDraftDetails(ctx context.Context, draftID int64) (*DraftDetails, error)
	ListDrafts(ctx context.Context, filter DraftFilter) ([]*DraftDetails, error)

	// RefreshDictionary reloads the sensitive word dictionary and returns
	// the number of terms now active.
	RefreshDictionary(ctx context.Context) (int, error)

	// Close stops background workers.
	Close() error
}

// WemediaStore is the self-media domain: drafts and their submitting users.
type WemediaStore interface {
	GetDraft(ctx context.Context, id int64) (*Draft, error)
	UpdateDraft(ctx context.Context, draft *Draft) error
	ListDrafts(ctx context.Context, filter DraftFilter) ([]*Draft, error)
	GetUser(ctx context.Context, id int64) (*User, error)
}

// ArticleStore is the publishing domain. Delete operations are
// compensations and must succeed when the record is already absent.
type ArticleStore interface {
	FindAuthorByName(ctx context.Context, name string) (*Author, error)
	CreateArticle(ctx context.Context, article *Article) (int64, error)
	DeleteArticle(ctx context.Context, id int64) error
	CreateArticleConfig(ctx context.Context, config *ArticleConfig) error
	DeleteArticleConfig(ctx context.Context, articleID int64) error
	CreateArticleContent(ctx context.Context, content *ArticleContent) error
	DeleteArticleContent(ctx context.Context, articleID int64) error
}

// ChannelStore resolves channel metadata.
type ChannelStore interface {
	GetChannel(ctx context.Context, id int64) (*Channel, error)
}

// SearchIndex receives article projections.
type SearchIndex interface {
	UpsertIndexDocument(ctx context.Context, doc *IndexDocument) error
}

// DictionarySource loads the sensitive word list.
type DictionarySource interface {
	GetSensitiveDictionary(ctx context.Context) ([]string, error)
}

// Locker serializes work on a single draft id. The returned unlock func
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, draftID int64) (func(), error)
}

// ImageTextRecognizer extracts text embedded in an image.
type ImageTextRecognizer interface {
	RecognizeText(ctx context.Context, imageRef string) (string, error)
}

// ImageURLStrategy turns a stored image reference into a displayable URL.
type ImageURLStrategy interface {
	ImageURL(ctx context.Context, ref string) (string, error)
}

// EventSink receives review lifecycle events.
type EventSink interface {
	DraftRejected(ctx context.Context, draft *Draft, matches map[string]int) error
	DraftQueuedForReview(ctx context.Context, draft *Draft) error
	ArticlePublished(ctx context.Context, draft *Draft, articleID int64, took time.Duration) error
	PublicationFailed(ctx context.Context, draft *Draft, step string, err error) error
	IndexProjectionFailed(ctx context.Context, articleID int64, err error) error
}
