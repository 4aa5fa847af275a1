package config

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
	"github.com/leadnews/newsreview/pkg/newsreview/repo/memory"
)

const testSeed = `
sensitive_words: ["spam"]
users:
  - {id: 1, name: alice}
authors:
  - {id: 10, name: alice, user_id: 1}
channels:
  - {id: 3, name: tech}
drafts:
  - id: 1
    user_id: 1
    title: clean
    content: '[{"type":"text","value":"hello"},{"type":"image","value":"a.png"}]'
    layout: 1
    channel_id: 3
    publish_time: 2024-05-01T10:00:00Z
    status: 1
  - id: 2
    user_id: 1
    title: dirty
    content: '[{"type":"text","value":"buy spam now"}]'
    channel_id: 3
    publish_time: 2024-05-01T10:00:00Z
    status: 1
`

func writeSeed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSeed), 0o600))
	return path
}

func TestBuildService_Memory(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(
		WithSeedFile(writeSeed(t)),
		WithFileServerURLs("http://files.local/leadnews"),
	)
	require.NoError(t, err)

	rt, err := cfg.BuildService(ctx, nil)
	require.NoError(t, err)
	defer rt.Close()

	res, err := rt.Service.ReviewArticle(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, newsreview.StatusRejected, res.Status)

	res, err = rt.Service.ReviewArticle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, newsreview.StatusPendingManualReview, res.Status)

	res, err = rt.Service.DecideManually(ctx, newsreview.ManualDecisionRequest{DraftID: 1, Decision: newsreview.DecisionAccept})
	require.NoError(t, err)
	assert.Equal(t, newsreview.StatusPublished, res.Status)
	require.NotNil(t, res.ArticleID)

	repo, ok := rt.Drafts.(*memory.Repository)
	require.True(t, ok)
	doc, ok := repo.IndexDocument(*res.ArticleID)
	require.True(t, ok, "published article must be projected into the memory index")
	assert.Equal(t, strconv.FormatInt(*res.ArticleID, 10), doc.ID)

	details, err := rt.Service.GetDraftDetails(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://files.local/leadnews/a.png"}, details.ImageURLs)
	assert.Equal(t, "http://files.local/leadnews", details.Host)

	drafts, err := rt.Drafts.ListDrafts(ctx, newsreview.DraftFilter{})
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	require.NotNil(t, rt.Registry)
	families, err := rt.Registry.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["newsreview_review_outcomes_total"])
	assert.True(t, names["go_goroutines"])
}

func TestBuildService_StaticDictionary(t *testing.T) {
	ctx := context.Background()
	cfg, err := Load(
		WithSeedFile(writeSeed(t)),
		WithStaticDictionary("hello"),
		WithMetrics(false),
	)
	require.NoError(t, err)

	rt, err := cfg.BuildService(ctx, nil)
	require.NoError(t, err)
	defer rt.Close()
	assert.Nil(t, rt.Registry)

	n, err := rt.Service.RefreshDictionary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := rt.Service.ReviewArticle(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, newsreview.StatusRejected, res.Status)
	assert.Equal(t, map[string]int{"hello": 1}, res.Matches)
}

func TestBuildService_PresignedImages(t *testing.T) {
	cfg, err := Load(
		WithS3("leadnews", "us-east-1"),
		WithS3Credentials("key", "secret"),
		WithS3Endpoint("http://localhost:9000", true),
		WithPresignedImageURLs(),
		WithMetrics(false),
	)
	require.NoError(t, err)

	rt, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()
	assert.NotNil(t, rt.Service)
}

func TestBuildService_MissingSeed(t *testing.T) {
	cfg, err := Load(WithSeedFile(filepath.Join(t.TempDir(), "none.yaml")))
	require.NoError(t, err)

	_, err = cfg.BuildService(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to build repository")
}

func TestBuildService_InvalidSearchIndexURL(t *testing.T) {
	cfg, err := Load(WithSearchIndex("not a url", ""), WithMetrics(false))
	require.NoError(t, err)

	_, err = cfg.BuildService(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search index client")
}
