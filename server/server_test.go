package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmoa/readmoa/pkg/domain"
	"github.com/readmoa/readmoa/pkg/store"
	"github.com/readmoa/readmoa/pkg/urlkey"
)

func setupTestServer(t *testing.T) (*httptest.Server, *store.Store) {
	t.Helper()
	st, err := store.New(context.Background(), store.Config{
		DSN:          ":memory:",
		Mode:         store.ModeTest,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, st.Close()) })

	srv := New(st.Feeds, st.Posts, Config{Version: "test"})
	ts := httptest.NewServer(srv.router)
	t.Cleanup(ts.Close)
	return ts, st
}

func addTestPost(t *testing.T, st *store.Store, url, title, author string, submitted time.Time) {
	t.Helper()
	post := domain.PostFromItem(domain.FeedItem{
		URL:       url,
		Title:     title,
		Author:    author,
		Published: submitted.Add(-time.Hour),
	}, submitted)
	inserted, err := st.Posts.InsertIfAbsent(context.Background(), &post)
	require.NoError(t, err)
	require.True(t, inserted)
}

func addTestFeed(t *testing.T, st *store.Store, url string) *domain.Feed {
	t.Helper()
	f := &domain.Feed{
		Key:   urlkey.ForURL(url),
		URL:   url,
		Title: "Feed " + url,
		Type:  domain.TypeRSS,
	}
	require.NoError(t, st.Feeds.Insert(context.Background(), f))
	return f
}

func TestServer_Status(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestServer_Ping(t *testing.T) {
	ts, _ := setupTestServer(t)

	resp, err := http.Get(ts.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
