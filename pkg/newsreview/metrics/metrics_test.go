package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

func TestSink(t *testing.T) {
	reg := prometheus.NewRegistry()
	s, err := New(reg)
	require.NoError(t, err)

	ctx := context.Background()
	draft := &newsreview.Draft{ID: 1}

	require.NoError(t, s.DraftRejected(ctx, draft, map[string]int{"spam": 2, "cheap X": 1}))
	require.NoError(t, s.DraftQueuedForReview(ctx, draft))
	require.NoError(t, s.ArticlePublished(ctx, draft, 1001, 250*time.Millisecond))
	require.NoError(t, s.PublicationFailed(ctx, draft, newsreview.StepCreateContent, errors.New("boom")))
	require.NoError(t, s.IndexProjectionFailed(ctx, 1001, errors.New("es down")))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.outcomes.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.outcomes.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.outcomes.WithLabelValues("published")))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.sensitiveHits.WithLabelValues("spam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.publicationFailure.WithLabelValues(newsreview.StepCreateContent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.indexFailures))

	expected := `
# HELP newsreview_index_projection_failures_total Search index projections abandoned after retries.
# TYPE newsreview_index_projection_failures_total counter
newsreview_index_projection_failures_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "newsreview_index_projection_failures_total"))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	assert.Error(t, err)
}
