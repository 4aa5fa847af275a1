package urlstrategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
)

type mockPresigner struct {
	mock.Mock
}

func (m *mockPresigner) ImageURL(ctx context.Context, ref string) (string, error) {
	args := m.Called(ctx, ref)
	return args.String(0), args.Error(1)
}

func TestFileServerStrategy(t *testing.T) {
	s := NewFileServerStrategy("http://files.local:9000/leadnews/")
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{"relative", "2024/05/a.png", "http://files.local:9000/leadnews/2024/05/a.png", false},
		{"leading slash", "/a.png", "http://files.local:9000/leadnews/a.png", false},
		{"absolute", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png", false},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ImageURL(ctx, tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStorageDelegatedStrategy(t *testing.T) {
	ctx := context.Background()

	t.Run("Delegates", func(t *testing.T) {
		p := &mockPresigner{}
		p.On("ImageURL", mock.Anything, "a.png").Return("https://bucket/a.png?sig=1", nil)

		got, err := NewStorageDelegatedStrategy(p).ImageURL(ctx, "a.png")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket/a.png?sig=1", got)
		p.AssertExpectations(t)
	})

	t.Run("AbsoluteSkipsPresigner", func(t *testing.T) {
		p := &mockPresigner{}
		got, err := NewStorageDelegatedStrategy(p).ImageURL(ctx, "http://x/a.png")
		require.NoError(t, err)
		assert.Equal(t, "http://x/a.png", got)
		p.AssertNotCalled(t, "ImageURL", mock.Anything, mock.Anything)
	})

	t.Run("PresignerError", func(t *testing.T) {
		p := &mockPresigner{}
		p.On("ImageURL", mock.Anything, "a.png").Return("", errors.New("denied"))

		_, err := NewStorageDelegatedStrategy(p).ImageURL(ctx, "a.png")
		assert.EqualError(t, err, "denied")
	})
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
		check   func(t *testing.T, s newsreview.ImageURLStrategy)
	}{
		{
			name:   "file server",
			config: Config{Type: StrategyTypeFileServer, FileServerURL: "http://files"},
			check: func(t *testing.T, s newsreview.ImageURLStrategy) {
				assert.IsType(t, &FileServerStrategy{}, s)
			},
		},
		{
			name:    "file server without url",
			config:  Config{Type: StrategyTypeFileServer},
			wantErr: "file server URL is required",
		},
		{
			name:   "storage delegated",
			config: Config{Type: StrategyTypeStorageDelegated, Presigner: &mockPresigner{}},
			check: func(t *testing.T, s newsreview.ImageURLStrategy) {
				assert.IsType(t, &StorageDelegatedStrategy{}, s)
			},
		},
		{
			name:    "storage delegated without presigner",
			config:  Config{Type: StrategyTypeStorageDelegated},
			wantErr: "presigner is required",
		},
		{
			name:   "default passthrough",
			config: Config{},
			check: func(t *testing.T, s newsreview.ImageURLStrategy) {
				assert.IsType(t, newsreview.PassthroughImageURLs{}, s)
			},
		},
		{
			name:    "unknown",
			config:  Config{Type: "cdn"},
			wantErr: "unknown URL strategy type: cdn",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.config)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, s)
		})
	}
}
