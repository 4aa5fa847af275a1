package index_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadnews/newsreview/pkg/newsreview"
	"github.com/leadnews/newsreview/pkg/newsreview/index"
)

func TestClient_UpsertIndexDocument(t *testing.T) {
	var gotPath, gotMethod, gotUser, gotRefresh string
	var gotBody map[string]interface{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotUser, _, _ = r.BasicAuth()
		gotRefresh = r.URL.Query().Get("refresh")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	c, err := index.NewClient(srv.URL+"/",
		index.WithBasicAuth("elastic", "secret"),
		index.WithRefresh("wait_for"),
	)
	require.NoError(t, err)

	author := int64(10)
	err = c.UpsertIndexDocument(context.Background(), &newsreview.IndexDocument{
		ID:          "1001",
		PublishTime: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Layout:      newsreview.LayoutSingle,
		Images:      "a.png",
		AuthorID:    &author,
		Title:       "hello",
		Content:     "[]",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/app_info_article/_doc/1001", gotPath)
	assert.Equal(t, "elastic", gotUser)
	assert.Equal(t, "wait_for", gotRefresh)
	assert.Equal(t, "1001", gotBody["id"])
	assert.Equal(t, "hello", gotBody["title"])
	assert.Equal(t, float64(10), gotBody["authorId"])
	assert.Equal(t, "2024-05-01T00:00:00Z", gotBody["publishTime"])
}

func TestClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		http.Error(w, `{"error":"cluster_block_exception"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c, err := index.NewClient(srv.URL, index.WithIndex("articles"))
	require.NoError(t, err)

	err = c.UpsertIndexDocument(context.Background(), &newsreview.IndexDocument{ID: "1"})
	var statusErr *index.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "cluster_block_exception")
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := index.NewClient("not a url")
	assert.Error(t, err)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestClient_CustomTransport(t *testing.T) {
	var calls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		assert.Equal(t, "/articles/_doc/7", r.URL.Path)
		header := make(http.Header)
		header.Set("X-Elastic-Product", "Elasticsearch")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       io.NopCloser(strings.NewReader(`{"result":"updated"}`)),
			Request:    r,
		}, nil
	})

	c, err := index.NewClient("http://search.local:9200", index.WithIndex("articles"), index.WithTransport(rt))
	require.NoError(t, err)

	require.NoError(t, c.UpsertIndexDocument(context.Background(), &newsreview.IndexDocument{ID: "7"}))
	assert.Equal(t, 1, calls)
}

func TestClient_TransportErrorIsNotRetried(t *testing.T) {
	var calls int
	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls++
		return nil, errors.New("connection refused")
	})

	c, err := index.NewClient("http://search.local:9200", index.WithTransport(rt))
	require.NoError(t, err)

	err = c.UpsertIndexDocument(context.Background(), &newsreview.IndexDocument{ID: "7"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, calls)
}
