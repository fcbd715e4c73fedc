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

func TestFetchLogRepo_AppendAndScan(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	key := urlkey.ForURL("https://example.com/rss")

	// append out of chronological order
	for _, offset := range []time.Duration{-2 * time.Hour, 0, -time.Hour} {
		require.NoError(t, st.FetchLog.Append(ctx, &domain.FetchEvent{
			FeedKey:            key,
			FetchedAt:          now.Add(offset),
			Updated:            offset == 0,
			NewestPublished:    now.Add(offset - 24*time.Hour),
			PrevChangerate:     86400,
			PrevScheduledFetch: now.Add(offset),
		}))
	}

	events, err := st.FetchLog.ScanByFeed(ctx, key, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)

	// newest first
	assert.WithinDuration(t, now, events[0].FetchedAt, time.Second)
	assert.WithinDuration(t, now.Add(-2*time.Hour), events[2].FetchedAt, time.Second)
	assert.True(t, events[0].Updated)
	assert.False(t, events[1].Updated)
	assert.Equal(t, 86400, events[0].PrevChangerate)

	// limit respected
	limited, err := st.FetchLog.ScanByFeed(ctx, key, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// unrelated feed sees nothing
	other, err := st.FetchLog.ScanByFeed(ctx, urlkey.ForURL("https://other.example.com"), 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFetchLogRepo_DeleteByFeed(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	key := urlkey.ForURL("https://example.com/rss")

	require.NoError(t, st.FetchLog.Append(ctx, &domain.FetchEvent{
		FeedKey:            key,
		FetchedAt:          time.Now().UTC(),
		NewestPublished:    time.Now().UTC().Add(-time.Hour),
		PrevScheduledFetch: time.Now().UTC(),
	}))

	require.NoError(t, st.FetchLog.DeleteByFeed(ctx, key))

	events, err := st.FetchLog.ScanByFeed(ctx, key, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
