package newsreview

import (
	"fmt"
	"time"
)

// Status is the review status of a draft. Numeric values match the
// wm_news.status column.
type Status int16

const (
	StatusDraft               Status = 0
	StatusPendingAutoScan     Status = 1
	StatusRejected            Status = 2
	StatusPendingManualReview Status = 3
	StatusManuallyApproved    Status = 4
	StatusScheduledPublish    Status = 8
	StatusPublished           Status = 9
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusPendingAutoScan:
		return "pending_auto_scan"
	case StatusRejected:
		return "rejected"
	case StatusPendingManualReview:
		return "pending_manual_review"
	case StatusManuallyApproved:
		return "manually_approved"
	case StatusScheduledPublish:
		return "scheduled_publish"
	case StatusPublished:
		return "published"
	default:
		return fmt.Sprintf("status(%d)", int16(s))
	}
}

// Terminal reports whether the status ends the review cycle.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// Layout is the cover layout of a draft. LayoutNone means the flat image
// list is not part of the article.
type Layout int16

const (
	LayoutNone   Layout = 0
	LayoutSingle Layout = 1
	LayoutMulti  Layout = 3
	LayoutAuto   Layout = -1
)

// Review reasons recorded on the draft.
const (
	ReasonAwaitingManualReview = "submitted, awaiting manual review"
	ReasonManuallyRejected     = "rejected by manual review"
	sensitiveReasonPrefix      = "content contains sensitive words: "
)

// SearchIndexName is the default index for published article documents.
const SearchIndexName = "app_info_article"

// Draft is a self-media article awaiting or undergoing review.
type Draft struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Layout      Layout    `json:"layout"`
	Images      []string  `json:"images,omitempty"`
	ChannelID   int64     `json:"channel_id"`
	Labels      string    `json:"labels,omitempty"`
	PublishTime time.Time `json:"publish_time"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	ArticleID   *int64    `json:"article_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Clone returns a deep copy.
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	out := *d
	if d.Images != nil {
		out.Images = append([]string(nil), d.Images...)
	}
	if d.ArticleID != nil {
		id := *d.ArticleID
		out.ArticleID = &id
	}
	return &out
}

// User is a self-media account.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Author is the publishing-domain identity of a self-media user.
type Author struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	UserID int64  `json:"user_id"`
}

// Channel groups published articles.
type Channel struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Article is the published article record.
type Article struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Layout      Layout    `json:"layout"`
	Images      []string  `json:"images,omitempty"`
	AuthorID    *int64    `json:"author_id,omitempty"`
	AuthorName  string    `json:"author_name,omitempty"`
	ChannelID   *int64    `json:"channel_id,omitempty"`
	ChannelName string    `json:"channel_name,omitempty"`
	PublishTime time.Time `json:"publish_time"`
	CreatedTime time.Time `json:"created_time"`
}

// ArticleConfig holds the behaviour flags of a published article.
type ArticleConfig struct {
	ArticleID int64 `json:"article_id"`
	IsForward bool  `json:"is_forward"`
	IsDelete  bool  `json:"is_delete"`
	IsDown    bool  `json:"is_down"`
	IsComment bool  `json:"is_comment"`
}

// DefaultArticleConfig returns the flags every newly published article gets.
func DefaultArticleConfig(articleID int64) *ArticleConfig {
	return &ArticleConfig{
		ArticleID: articleID,
		IsForward: true,
		IsDelete:  false,
		IsDown:    false,
		IsComment: true,
	}
}

// ArticleContent is the raw structured body of a published article.
type ArticleContent struct {
	ArticleID int64  `json:"article_id"`
	Content   string `json:"content"`
}

// IndexDocument is the search projection of a published article.
type IndexDocument struct {
	ID          string    `json:"id"`
	PublishTime time.Time `json:"publishTime"`
	Layout      Layout    `json:"layout"`
	Images      string    `json:"images"`
	AuthorID    *int64    `json:"authorId,omitempty"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
}

// ReviewResult is the outcome of a review or manual decision.
type ReviewResult struct {
	DraftID   int64          `json:"draft_id"`
	Status    Status         `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	ArticleID *int64         `json:"article_id,omitempty"`
	Action    Action         `json:"action"`
	Matches   map[string]int `json:"matches,omitempty"`
	// Warnings carries soft failures such as a deferred index projection.
	Warnings []string `json:"warnings,omitempty"`
}

// Decision is a moderator verdict.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ManualDecisionRequest is the input of DecideManually.
type ManualDecisionRequest struct {
	DraftID  int64    `json:"draft_id"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
}

// DraftFilter narrows ListDrafts. Zero values mean "any".
type DraftFilter struct {
	Statuses []Status
	Title    string
	UserID   int64
	// DueBefore selects drafts whose publish time is at or before it.
	DueBefore *time.Time
	Limit     int
	Offset    int
}

// DraftDetails is a draft decorated for display.
type DraftDetails struct {
	Draft      *Draft   `json:"draft"`
	AuthorName string   `json:"author_name,omitempty"`
	Text       string   `json:"text"`
	ImageURLs  []string `json:"image_urls"`
	Host       string   `json:"host,omitempty"`
}
