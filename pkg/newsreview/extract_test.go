package newsreview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContent(t *testing.T) {
	tests := []struct {
		name       string
		draft      Draft
		wantText   string
		wantImages []string
	}{
		{
			name:     "text segments concatenated in order",
			draft:    Draft{Content: `[{"type":"text","value":"hello "},{"type":"text","value":"world"}]`},
			wantText: "hello world",
		},
		{
			name:       "images from body",
			draft:      Draft{Content: `[{"type":"image","value":"a.png"},{"type":"text","value":"x"},{"type":"image","value":" b.png "}]`},
			wantText:   "x",
			wantImages: []string{"a.png", "b.png"},
		},
		{
			name: "flat images appended when layout is set",
			draft: Draft{
				Content: `[{"type":"image","value":"a.png"}]`,
				Layout:  LayoutMulti,
				Images:  []string{"c1.png", "c2.png"},
			},
			wantImages: []string{"a.png", "c1.png", "c2.png"},
		},
		{
			name: "flat images ignored for layout none",
			draft: Draft{
				Content: `[{"type":"text","value":"t"}]`,
				Layout:  LayoutNone,
				Images:  []string{"c1.png"},
			},
			wantText: "t",
		},
		{
			name:     "unknown segment types ignored",
			draft:    Draft{Content: `[{"type":"video","value":"v.mp4"},{"type":"text","value":"ok"}]`},
			wantText: "ok",
		},
		{
			name:  "empty body",
			draft: Draft{Content: ""},
		},
		{
			name:  "null body",
			draft: Draft{Content: "null"},
		},
		{
			name:     "missing value",
			draft:    Draft{Content: `[{"type":"text"},{"type":"text","value":"x"}]`},
			wantText: "x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractContent(&tt.draft)
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, got.Text)
			assert.Equal(t, tt.wantImages, got.Images)
		})
	}
}

func TestExtractContentMalformed(t *testing.T) {
	bodies := []string{
		`{"type":"text","value":"x"}`,
		`"just a string"`,
		`[{"type":"text","value":"x"}`,
		`[1, 2]`,
		`[null]`,
		`[{"type":"text","value":42}]`,
		`plain text`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			_, err := ExtractContent(&Draft{Content: body})
			assert.ErrorIs(t, err, ErrMalformedBody)
		})
	}
}

func TestSplitJoinImages(t *testing.T) {
	assert.Nil(t, SplitImages(""))
	assert.Equal(t, []string{"a.png", "b.png"}, SplitImages("a.png, b.png,"))
	assert.Equal(t, "a.png,b.png", JoinImages([]string{"a.png", "b.png"}))
}
