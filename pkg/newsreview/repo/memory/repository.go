// Package memory provides an in-memory implementation of every remote
// capability the review workflow consumes. It is meant for tests and local
// development and supports per-operation failure injection.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// Operation names accepted by FailOn and DelayOn.
const (
	OpGetDraft               = "GetDraft"
	OpUpdateDraft            = "UpdateDraft"
	OpListDrafts             = "ListDrafts"
	OpGetUser                = "GetUser"
	OpFindAuthorByName       = "FindAuthorByName"
	OpGetChannel             = "GetChannel"
	OpCreateArticle          = "CreateArticle"
	OpDeleteArticle          = "DeleteArticle"
	OpCreateArticleConfig    = "CreateArticleConfig"
	OpDeleteArticleConfig    = "DeleteArticleConfig"
	OpCreateArticleContent   = "CreateArticleContent"
	OpDeleteArticleContent   = "DeleteArticleContent"
	OpUpsertIndexDocument    = "UpsertIndexDocument"
	OpGetSensitiveDictionary = "GetSensitiveDictionary"
)

// Repository implements the newsreview store interfaces using in-memory storage
type Repository struct {
	mu             sync.RWMutex
	drafts         map[int64]*newsreview.Draft
	users          map[int64]*newsreview.User
	authors        map[int64]*newsreview.Author
	channels       map[int64]*newsreview.Channel
	articles       map[int64]*newsreview.Article
	configs        map[int64]*newsreview.ArticleConfig
	contents       map[int64]*newsreview.ArticleContent
	documents      map[string]*newsreview.IndexDocument
	sensitiveWords []string
	nextArticleID  int64

	faultMu  sync.Mutex
	failures map[string]error
	failOnce map[string]bool
	delays   map[string]time.Duration
	calls    map[string]int
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		drafts:        make(map[int64]*newsreview.Draft),
		users:         make(map[int64]*newsreview.User),
		authors:       make(map[int64]*newsreview.Author),
		channels:      make(map[int64]*newsreview.Channel),
		articles:      make(map[int64]*newsreview.Article),
		configs:       make(map[int64]*newsreview.ArticleConfig),
		contents:      make(map[int64]*newsreview.ArticleContent),
		documents:     make(map[string]*newsreview.IndexDocument),
		nextArticleID: 1000,
		failures:      make(map[string]error),
		failOnce:      make(map[string]bool),
		delays:        make(map[string]time.Duration),
		calls:         make(map[string]int),
	}
}

// Fault injection

// FailOn makes every call to op return err until ClearFaults.
func (r *Repository) FailOn(op string, err error) {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	r.failures[op] = err
	delete(r.failOnce, op)
}

// FailOnce makes the next call to op return err.
func (r *Repository) FailOnce(op string, err error) {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	r.failures[op] = err
	r.failOnce[op] = true
}

// DelayOn makes op wait d before running. A call whose context expires
// first returns the context error without applying the change.
func (r *Repository) DelayOn(op string, d time.Duration) {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	r.delays[op] = d
}

// ClearFaults removes all injected failures and delays.
func (r *Repository) ClearFaults() {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	r.failures = make(map[string]error)
	r.failOnce = make(map[string]bool)
	r.delays = make(map[string]time.Duration)
}

// Calls returns how many times op has been invoked.
func (r *Repository) Calls(op string) int {
	r.faultMu.Lock()
	defer r.faultMu.Unlock()
	return r.calls[op]
}

func (r *Repository) enter(ctx context.Context, op string) error {
	r.faultMu.Lock()
	r.calls[op]++
	err := r.failures[op]
	if err != nil && r.failOnce[op] {
		delete(r.failures, op)
		delete(r.failOnce, op)
	}
	delay := r.delays[op]
	r.faultMu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// Seeding

func (r *Repository) PutDraft(d *newsreview.Draft) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[d.ID] = d.Clone()
}

func (r *Repository) PutUser(u *newsreview.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *u
	r.users[u.ID] = &c
}

func (r *Repository) PutAuthor(a *newsreview.Author) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *a
	r.authors[a.ID] = &c
}

func (r *Repository) PutChannel(c *newsreview.Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.channels[c.ID] = &cp
}

func (r *Repository) SetSensitiveWords(words ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sensitiveWords = append([]string(nil), words...)
}

// Wemedia operations

func (r *Repository) GetDraft(ctx context.Context, id int64) (*newsreview.Draft, error) {
	if err := r.enter(ctx, OpGetDraft); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drafts[id]
	if !ok {
		return nil, newsreview.ErrDraftNotFound
	}
	return d.Clone(), nil
}

func (r *Repository) UpdateDraft(ctx context.Context, draft *newsreview.Draft) error {
	if err := r.enter(ctx, OpUpdateDraft); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.drafts[draft.ID]; !ok {
		return newsreview.ErrDraftNotFound
	}
	r.drafts[draft.ID] = draft.Clone()
	return nil
}

func (r *Repository) ListDrafts(ctx context.Context, filter newsreview.DraftFilter) ([]*newsreview.Draft, error) {
	if err := r.enter(ctx, OpListDrafts); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*newsreview.Draft
	for _, d := range r.drafts {
		if matchesFilter(d, filter) {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(d *newsreview.Draft, f newsreview.DraftFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if d.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Title != "" && !strings.Contains(d.Title, f.Title) {
		return false
	}
	if f.UserID != 0 && d.UserID != f.UserID {
		return false
	}
	if f.DueBefore != nil && d.PublishTime.After(*f.DueBefore) {
		return false
	}
	return true
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*newsreview.User, error) {
	if err := r.enter(ctx, OpGetUser); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, newsreview.ErrNotFound
	}
	c := *u
	return &c, nil
}

// Article operations

func (r *Repository) FindAuthorByName(ctx context.Context, name string) (*newsreview.Author, error) {
	if err := r.enter(ctx, OpFindAuthorByName); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.authors {
		if a.Name == name {
			c := *a
			return &c, nil
		}
	}
	return nil, newsreview.ErrNotFound
}

func (r *Repository) GetChannel(ctx context.Context, id int64) (*newsreview.Channel, error) {
	if err := r.enter(ctx, OpGetChannel); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.channels[id]
	if !ok {
		return nil, newsreview.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *Repository) CreateArticle(ctx context.Context, article *newsreview.Article) (int64, error) {
	if err := r.enter(ctx, OpCreateArticle); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextArticleID++
	c := *article
	c.ID = r.nextArticleID
	c.Images = append([]string(nil), article.Images...)
	r.articles[c.ID] = &c
	return c.ID, nil
}

func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	if err := r.enter(ctx, OpDeleteArticle); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.articles, id)
	return nil
}

func (r *Repository) CreateArticleConfig(ctx context.Context, config *newsreview.ArticleConfig) error {
	if err := r.enter(ctx, OpCreateArticleConfig); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[config.ArticleID]; !ok {
		return newsreview.ErrNotFound
	}
	c := *config
	r.configs[config.ArticleID] = &c
	return nil
}

func (r *Repository) DeleteArticleConfig(ctx context.Context, articleID int64) error {
	if err := r.enter(ctx, OpDeleteArticleConfig); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, articleID)
	return nil
}

func (r *Repository) CreateArticleContent(ctx context.Context, content *newsreview.ArticleContent) error {
	if err := r.enter(ctx, OpCreateArticleContent); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.articles[content.ArticleID]; !ok {
		return newsreview.ErrNotFound
	}
	c := *content
	r.contents[content.ArticleID] = &c
	return nil
}

func (r *Repository) DeleteArticleContent(ctx context.Context, articleID int64) error {
	if err := r.enter(ctx, OpDeleteArticleContent); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contents, articleID)
	return nil
}

// Index and dictionary operations

func (r *Repository) UpsertIndexDocument(ctx context.Context, doc *newsreview.IndexDocument) error {
	if err := r.enter(ctx, OpUpsertIndexDocument); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *doc
	r.documents[doc.ID] = &c
	return nil
}

func (r *Repository) GetSensitiveDictionary(ctx context.Context) ([]string, error) {
	if err := r.enter(ctx, OpGetSensitiveDictionary); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.sensitiveWords...), nil
}

// Inspection

func (r *Repository) Article(id int64) (*newsreview.Article, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.articles[id]
	if !ok {
		return nil, false
	}
	c := *a
	return &c, true
}

func (r *Repository) ArticleConfig(articleID int64) (*newsreview.ArticleConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.configs[articleID]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (r *Repository) ArticleContent(articleID int64) (*newsreview.ArticleContent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contents[articleID]
	if !ok {
		return nil, false
	}
	cp := *c
	return &cp, true
}

func (r *Repository) IndexDocument(articleID int64) (*newsreview.IndexDocument, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.documents[strconv.FormatInt(articleID, 10)]
	if !ok {
		return nil, false
	}
	c := *d
	return &c, true
}

// Counts returns the number of articles, configs and contents stored.
func (r *Repository) Counts() (articles, configs, contents int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.articles), len(r.configs), len(r.contents)
}

var (
	_ newsreview.WemediaStore     = (*Repository)(nil)
	_ newsreview.ArticleStore     = (*Repository)(nil)
	_ newsreview.ChannelStore     = (*Repository)(nil)
	_ newsreview.SearchIndex      = (*Repository)(nil)
	_ newsreview.DictionarySource = (*Repository)(nil)
)
