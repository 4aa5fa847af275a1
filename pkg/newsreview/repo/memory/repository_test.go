package memory_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
	"github.com/leadnews/newsreview/pkg/newsreview/repo/memory"
)

func TestMemoryRepository_DraftOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	repo.PutDraft(&newsreview.Draft{ID: 1, Title: "first", Status: newsreview.StatusPendingAutoScan})
	repo.PutDraft(&newsreview.Draft{ID: 2, Title: "second", Status: newsreview.StatusPublished})

	t.Run("GetDraft returns a copy", func(t *testing.T) {
		d, err := repo.GetDraft(ctx, 1)
		require.NoError(t, err)
		d.Title = "changed"

		again, err := repo.GetDraft(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "first", again.Title)
	})

	t.Run("GetDraft missing", func(t *testing.T) {
		_, err := repo.GetDraft(ctx, 99)
		assert.ErrorIs(t, err, newsreview.ErrDraftNotFound)
	})

	t.Run("UpdateDraft", func(t *testing.T) {
		d, err := repo.GetDraft(ctx, 1)
		require.NoError(t, err)
		d.Status = newsreview.StatusRejected
		require.NoError(t, repo.UpdateDraft(ctx, d))

		got, err := repo.GetDraft(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, newsreview.StatusRejected, got.Status)
	})

	t.Run("UpdateDraft missing", func(t *testing.T) {
		err := repo.UpdateDraft(ctx, &newsreview.Draft{ID: 42})
		assert.ErrorIs(t, err, newsreview.ErrDraftNotFound)
	})

	t.Run("ListDrafts by status", func(t *testing.T) {
		got, err := repo.ListDrafts(ctx, newsreview.DraftFilter{Statuses: []newsreview.Status{newsreview.StatusPublished}})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].ID)
	})

	t.Run("ListDrafts paging", func(t *testing.T) {
		got, err := repo.ListDrafts(ctx, newsreview.DraftFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].ID)

		got, err = repo.ListDrafts(ctx, newsreview.DraftFilter{Offset: 5})
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestMemoryRepository_ArticleOperations(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	id, err := repo.CreateArticle(ctx, &newsreview.Article{Title: "t"})
	require.NoError(t, err)

	require.NoError(t, repo.CreateArticleConfig(ctx, newsreview.DefaultArticleConfig(id)))
	require.NoError(t, repo.CreateArticleContent(ctx, &newsreview.ArticleContent{ArticleID: id, Content: "[]"}))

	articles, configs, contents := repo.Counts()
	assert.Equal(t, 1, articles)
	assert.Equal(t, 1, configs)
	assert.Equal(t, 1, contents)

	t.Run("config requires article", func(t *testing.T) {
		err := repo.CreateArticleConfig(ctx, newsreview.DefaultArticleConfig(id+100))
		assert.ErrorIs(t, err, newsreview.ErrNotFound)
	})

	t.Run("deletes are idempotent", func(t *testing.T) {
		require.NoError(t, repo.DeleteArticleContent(ctx, id))
		require.NoError(t, repo.DeleteArticleContent(ctx, id))
		require.NoError(t, repo.DeleteArticleConfig(ctx, id))
		require.NoError(t, repo.DeleteArticleConfig(ctx, id))
		require.NoError(t, repo.DeleteArticle(ctx, id))
		require.NoError(t, repo.DeleteArticle(ctx, id))

		articles, configs, contents := repo.Counts()
		assert.Zero(t, articles+configs+contents)
	})
}

func TestMemoryRepository_FaultInjection(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	boom := errors.New("boom")

	repo.FailOnce(memory.OpCreateArticle, boom)
	_, err := repo.CreateArticle(ctx, &newsreview.Article{})
	assert.ErrorIs(t, err, boom)

	_, err = repo.CreateArticle(ctx, &newsreview.Article{})
	assert.NoError(t, err)
	assert.Equal(t, 2, repo.Calls(memory.OpCreateArticle))

	repo.FailOn(memory.OpGetUser, boom)
	_, err = repo.GetUser(ctx, 1)
	assert.ErrorIs(t, err, boom)
	_, err = repo.GetUser(ctx, 1)
	assert.ErrorIs(t, err, boom)

	repo.ClearFaults()
	_, err = repo.GetUser(ctx, 1)
	assert.ErrorIs(t, err, newsreview.ErrNotFound)

	repo.DelayOn(memory.OpCreateArticle, time.Second)
	tctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = repo.CreateArticle(tctx, &newsreview.Article{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	articles, _, _ := repo.Counts()
	assert.Equal(t, 1, articles)
}

func TestMemoryRepository_LoadSeed(t *testing.T) {
	repo := memory.New()
	seed := `
sensitive_words: [spam, scam]
users:
  - {id: 1, name: alice}
authors:
  - {id: 10, name: alice, user_id: 1}
channels:
  - {id: 3, name: tech}
drafts:
  - id: 100
    user_id: 1
    title: hello
    content: '[{"type":"text","value":"hello"}]'
    channel_id: 3
    status: 1
`
	require.NoError(t, repo.LoadSeed(strings.NewReader(seed)))
	ctx := context.Background()

	words, err := repo.GetSensitiveDictionary(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"spam", "scam"}, words)

	d, err := repo.GetDraft(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, newsreview.StatusPendingAutoScan, d.Status)

	a, err := repo.FindAuthorByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(10), a.ID)

	c, err := repo.GetChannel(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "tech", c.Name)
}

func TestMemoryRepository_LoadSeedRejectsUnknownFields(t *testing.T) {
	repo := memory.New()
	err := repo.LoadSeed(strings.NewReader("unknown: 1\n"))
	assert.Error(t, err)
}
