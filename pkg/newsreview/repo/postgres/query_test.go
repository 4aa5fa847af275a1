package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

func TestDraftQuery(t *testing.T) {
	r := New(nil)
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    newsreview.DraftFilter
		wantWhere string
		wantArgs  []interface{}
	}{
		{
			name:      "no filter",
			filter:    newsreview.DraftFilter{},
			wantWhere: "FROM wm_news ORDER BY id",
		},
		{
			name: "statuses and due time",
			filter: newsreview.DraftFilter{
				Statuses:  []newsreview.Status{newsreview.StatusManuallyApproved, newsreview.StatusScheduledPublish},
				DueBefore: &due,
			},
			wantWhere: "FROM wm_news WHERE status IN ($1,$2) AND publish_time <= $3 ORDER BY id",
			wantArgs:  []interface{}{int16(4), int16(8), due},
		},
		{
			name:      "title user and paging",
			filter:    newsreview.DraftFilter{Title: "go", UserID: 3, Limit: 20, Offset: 40},
			wantWhere: "FROM wm_news WHERE title ILIKE $1 AND user_id = $2 ORDER BY id LIMIT 20 OFFSET 40",
			wantArgs:  []interface{}{"%go%", int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := r.draftQuery(tt.filter).ToSql()
			require.NoError(t, err)
			assert.Contains(t, query, tt.wantWhere)
			if tt.wantArgs == nil {
				assert.Empty(t, args)
			} else {
				assert.Equal(t, tt.wantArgs, args)
			}
		})
	}
}
