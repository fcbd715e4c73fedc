package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readmoa/readmoa/pkg/domain"
	"github.com/readmoa/readmoa/pkg/urlkey"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(context.Background(), Config{
		DSN:          ":memory:",
		Mode:         ModeTest,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	})
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, st.Close()) })
	return st
}

func testFeed(url string, scheduled time.Time) *domain.Feed {
	return &domain.Feed{
		Key:            urlkey.ForURL(url),
		URL:            url,
		Title:          "Feed " + url,
		Type:           domain.TypeRSS,
		Changerate:     86400,
		FirstFetched:   scheduled.Add(-48 * time.Hour),
		LastFetched:    scheduled.Add(-24 * time.Hour),
		ScheduledFetch: scheduled,
	}
}

func TestParseMode(t *testing.T) {
	for _, ok := range []string{"prod", "dev", "test"} {
		m, err := ParseMode(ok)
		require.NoError(t, err)
		assert.Equal(t, ok, string(m))
	}

	for _, bad := range []string{"", "staging", "PROD", "test; DROP TABLE x"} {
		_, err := ParseMode(bad)
		assert.Error(t, err, "mode %q must be rejected", bad)
	}
}

func TestNew_BadMode(t *testing.T) {
	_, err := New(context.Background(), Config{DSN: ":memory:", Mode: "qa"})
	require.Error(t, err)
}

func TestStore_Ping(t *testing.T) {
	st := setupTestStore(t)
	require.NoError(t, st.Ping(context.Background()))
}

func TestStore_ModeNamespacesAreIsolated(t *testing.T) {
	// two stores over the same shared connection, different namespaces
	dsn := "file:namespaces?mode=memory&cache=shared"
	ctx := context.Background()

	devStore, err := New(ctx, Config{DSN: dsn, Mode: ModeDev, MaxOpenConns: 1})
	require.NoError(t, err)
	defer devStore.Close()

	testStore, err := New(ctx, Config{DSN: dsn, Mode: ModeTest, MaxOpenConns: 1})
	require.NoError(t, err)
	defer testStore.Close()

	feed := testFeed("https://example.com/rss", time.Now().UTC())
	require.NoError(t, devStore.Feeds.Insert(ctx, feed))

	_, err = devStore.Feeds.Get(ctx, feed.Key)
	require.NoError(t, err)

	_, err = testStore.Feeds.Get(ctx, feed.Key)
	assert.ErrorIs(t, err, ErrNotFound, "dev feed must not leak into test namespace")
}
