// Package postgres implements the newsreview stores on PostgreSQL with pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements the newsreview store interfaces using PostgreSQL
type Repository struct {
	db DBTX
	sb sq.StatementBuilderType
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return New(pool)
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "config") {
				return fmt.Errorf("article config already exists")
			}
			if strings.Contains(pgErr.ConstraintName, "content") {
				return fmt.Errorf("article content already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: referenced record not found", newsreview.ErrNotFound)
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const draftColumns = `id, user_id, title, content, type, images, channel_id, labels,
	publish_time, status, reason, article_id, created_time, submited_time`

func scanDraft(row pgx.Row) (*newsreview.Draft, error) {
	var (
		d      newsreview.Draft
		images string
	)
	err := row.Scan(
		&d.ID, &d.UserID, &d.Title, &d.Content, &d.Layout, &images, &d.ChannelID, &d.Labels,
		&d.PublishTime, &d.Status, &d.Reason, &d.ArticleID, &d.CreatedAt, &d.SubmittedAt)
	if err != nil {
		return nil, err
	}
	d.Images = newsreview.SplitImages(images)
	return &d, nil
}

// Wemedia operations

func (r *Repository) GetDraft(ctx context.Context, id int64) (*newsreview.Draft, error) {
	query := `SELECT ` + draftColumns + ` FROM wm_news WHERE id = $1`

	d, err := scanDraft(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newsreview.ErrDraftNotFound
		}
		return nil, r.handlePostgresError("get draft", err)
	}
	return d, nil
}

func (r *Repository) UpdateDraft(ctx context.Context, draft *newsreview.Draft) error {
	query := `
		UPDATE wm_news SET
			title = $2, content = $3, type = $4, images = $5, channel_id = $6,
			labels = $7, publish_time = $8, status = $9, reason = $10, article_id = $11
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		draft.ID, draft.Title, draft.Content, draft.Layout, newsreview.JoinImages(draft.Images),
		draft.ChannelID, draft.Labels, draft.PublishTime, draft.Status, draft.Reason, draft.ArticleID)
	if err != nil {
		return r.handlePostgresError("update draft", err)
	}
	if tag.RowsAffected() == 0 {
		return newsreview.ErrDraftNotFound
	}
	return nil
}

// draftQuery builds the ListDrafts statement for filter.
func (r *Repository) draftQuery(filter newsreview.DraftFilter) sq.SelectBuilder {
	q := r.sb.Select(draftColumns).From("wm_news").OrderBy("id")

	if len(filter.Statuses) > 0 {
		statuses := make([]int16, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = int16(s)
		}
		q = q.Where(sq.Eq{"status": statuses})
	}
	if filter.Title != "" {
		q = q.Where(sq.ILike{"title": "%" + filter.Title + "%"})
	}
	if filter.UserID != 0 {
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.DueBefore != nil {
		q = q.Where(sq.LtOrEq{"publish_time": *filter.DueBefore})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}
	return q
}

func (r *Repository) ListDrafts(ctx context.Context, filter newsreview.DraftFilter) ([]*newsreview.Draft, error) {
	query, args, err := r.draftQuery(filter).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build draft query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list drafts", err)
	}
	defer rows.Close()

	var drafts []*newsreview.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan draft", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list drafts", err)
	}
	return drafts, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*newsreview.User, error) {
	var u newsreview.User
	err := r.db.QueryRow(ctx, `SELECT id, name FROM wm_user WHERE id = $1`, id).Scan(&u.ID, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newsreview.ErrNotFound
		}
		return nil, r.handlePostgresError("get user", err)
	}
	return &u, nil
}

// Article operations

func (r *Repository) FindAuthorByName(ctx context.Context, name string) (*newsreview.Author, error) {
	query := `SELECT id, name, COALESCE(user_id, 0) FROM ap_author WHERE name = $1 ORDER BY id LIMIT 1`

	var a newsreview.Author
	if err := r.db.QueryRow(ctx, query, name).Scan(&a.ID, &a.Name, &a.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newsreview.ErrNotFound
		}
		return nil, r.handlePostgresError("find author", err)
	}
	return &a, nil
}

func (r *Repository) GetChannel(ctx context.Context, id int64) (*newsreview.Channel, error) {
	var c newsreview.Channel
	err := r.db.QueryRow(ctx, `SELECT id, name FROM ad_channel WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, newsreview.ErrNotFound
		}
		return nil, r.handlePostgresError("get channel", err)
	}
	return &c, nil
}

func (r *Repository) CreateArticle(ctx context.Context, article *newsreview.Article) (int64, error) {
	query := `
		INSERT INTO ap_article (
			title, author_id, author_name, channel_id, channel_name,
			layout, images, publish_time, created_time
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	var id int64
	err := r.db.QueryRow(ctx, query,
		article.Title, article.AuthorID, article.AuthorName, article.ChannelID, article.ChannelName,
		article.Layout, newsreview.JoinImages(article.Images), article.PublishTime, article.CreatedTime,
	).Scan(&id)
	if err != nil {
		return 0, r.handlePostgresError("create article", err)
	}
	return id, nil
}

func (r *Repository) DeleteArticle(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ap_article WHERE id = $1`, id); err != nil {
		return r.handlePostgresError("delete article", err)
	}
	return nil
}

func (r *Repository) CreateArticleConfig(ctx context.Context, config *newsreview.ArticleConfig) error {
	query := `
		INSERT INTO ap_article_config (article_id, is_forward, is_delete, is_down, is_comment)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(ctx, query, config.ArticleID, config.IsForward, config.IsDelete, config.IsDown, config.IsComment)
	if err != nil {
		return r.handlePostgresError("create article config", err)
	}
	return nil
}

func (r *Repository) DeleteArticleConfig(ctx context.Context, articleID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ap_article_config WHERE article_id = $1`, articleID); err != nil {
		return r.handlePostgresError("delete article config", err)
	}
	return nil
}

func (r *Repository) CreateArticleContent(ctx context.Context, content *newsreview.ArticleContent) error {
	_, err := r.db.Exec(ctx, `INSERT INTO ap_article_content (article_id, content) VALUES ($1, $2)`,
		content.ArticleID, content.Content)
	if err != nil {
		return r.handlePostgresError("create article content", err)
	}
	return nil
}

func (r *Repository) DeleteArticleContent(ctx context.Context, articleID int64) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM ap_article_content WHERE article_id = $1`, articleID); err != nil {
		return r.handlePostgresError("delete article content", err)
	}
	return nil
}

// Dictionary operations

func (r *Repository) GetSensitiveDictionary(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT sensitives FROM ad_sensitive`)
	if err != nil {
		return nil, r.handlePostgresError("load sensitive words", err)
	}
	words, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, r.handlePostgresError("load sensitive words", err)
	}
	return words, nil
}

var (
	_ newsreview.WemediaStore     = (*Repository)(nil)
	_ newsreview.ArticleStore     = (*Repository)(nil)
	_ newsreview.ChannelStore     = (*Repository)(nil)
	_ newsreview.DictionarySource = (*Repository)(nil)
)
