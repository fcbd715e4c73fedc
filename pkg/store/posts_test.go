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

func testPost(url string, submitted time.Time) *domain.Post {
	post := domain.PostFromItem(domain.FeedItem{
		URL:         url,
		Title:       "Post " + url,
		Description: "summary",
		Author:      "Jane Writer",
		Published:   submitted.Add(-time.Hour),
	}, submitted)
	return &post
}

func TestPostsRepo_InsertIfAbsent_Idempotent(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	post := testPost("https://example.com/post/1", now)

	inserted, err := st.Posts.InsertIfAbsent(ctx, post)
	require.NoError(t, err)
	assert.True(t, inserted)

	// second insert with the same key is a no-op, not an error
	inserted, err = st.Posts.InsertIfAbsent(ctx, post)
	require.NoError(t, err)
	assert.False(t, inserted)

	posts, err := st.Posts.Scan(ctx, 0, 10, "")
	require.NoError(t, err)
	require.Len(t, posts, 1, "exactly one record per identity key")
}

func TestPostsRepo_InsertIfAbsent_Invalid(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	post := testPost("https://example.com/post/1", time.Now().UTC())
	post.Key = urlkey.ForURL("https://example.com/post/2")

	_, err := st.Posts.InsertIfAbsent(ctx, post)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPostsRepo_GetAndExists(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	post := testPost("https://example.com/post/1", now)
	_, err := st.Posts.InsertIfAbsent(ctx, post)
	require.NoError(t, err)

	got, err := st.Posts.Get(ctx, post.Key)
	require.NoError(t, err)
	assert.Equal(t, post.URL, got.URL)
	assert.Equal(t, post.Title, got.Title)
	assert.Equal(t, urlkey.ForAuthor("Jane Writer"), got.AuthorKey)
	assert.Equal(t, domain.SystemUserID, got.UserID)

	exists, err := st.Posts.Exists(ctx, post.Key)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = st.Posts.Exists(ctx, urlkey.ForURL("https://nope.example.com"))
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = st.Posts.Get(ctx, urlkey.ForURL("https://nope.example.com"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostsRepo_Scan(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	// oldest to newest submissions
	for i, url := range []string{
		"https://example.com/post/1",
		"https://example.com/post/2",
		"https://example.com/post/3",
	} {
		post := testPost(url, now.Add(time.Duration(i)*time.Minute))
		if url == "https://example.com/post/2" {
			post.Author = "Other Author"
			post.AuthorKey = urlkey.ForAuthor("Other Author")
		}
		_, err := st.Posts.InsertIfAbsent(ctx, post)
		require.NoError(t, err)
	}

	posts, err := st.Posts.Scan(ctx, 0, 10, "")
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "https://example.com/post/3", posts[0].URL, "newest submission first")
	assert.Equal(t, "https://example.com/post/1", posts[2].URL)

	// author filter
	byAuthor, err := st.Posts.Scan(ctx, 0, 10, urlkey.ForAuthor("Other Author"))
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "https://example.com/post/2", byAuthor[0].URL)

	// pagination
	page, err := st.Posts.Scan(ctx, 1, 1, "")
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "https://example.com/post/2", page[0].URL)
}

func TestPostsRepo_Delete(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	post := testPost("https://example.com/post/1", time.Now().UTC())
	_, err := st.Posts.InsertIfAbsent(ctx, post)
	require.NoError(t, err)

	require.NoError(t, st.Posts.Delete(ctx, post.Key))

	exists, err := st.Posts.Exists(ctx, post.Key)
	require.NoError(t, err)
	assert.False(t, exists)
}
