package domain

import (
	"fmt"
	"time"

	"github.com/readmoa/readmoa/pkg/urlkey"
)

// attribution identity used for posts ingested by the crawler rather than
// submitted by a person
const (
	SystemDisplayName = "리드모아"
	SystemEmail       = "admin@readmoa.net"
	SystemPhotoURL    = "/static/readmoa_profile.png"
	SystemUserID      = "ReadMoa"
	SystemProviderID  = "ReadMoa"
)

// Post is a single ingested content item, keyed by the hash of its URL.
// SubmittedAt is the ingestion wall-clock time and is distinct from
// Published, which comes from the source feed.
type Post struct {
	Key          string    `db:"post_url_hash"`
	URL          string    `db:"post_url"`
	Title        string    `db:"title"`
	Author       string    `db:"post_author"`
	AuthorKey    string    `db:"post_author_hash"`
	Published    time.Time `db:"post_published_date"`
	SubmittedAt  time.Time `db:"submission_time"`
	MainImageURL string    `db:"main_image_url"`
	Description  string    `db:"description"`

	UserDisplayName string `db:"user_display_name"`
	UserEmail       string `db:"user_email"`
	UserPhotoURL    string `db:"user_photo_url"`
	UserID          string `db:"user_id"`
	UserProviderID  string `db:"user_provider_id"`
}

// PostFromItem builds a Post from a parsed feed item with the system
// attribution identity. The key is derived from the item URL.
func PostFromItem(item FeedItem, now time.Time) Post {
	return Post{
		Key:             urlkey.ForURL(item.URL),
		URL:             item.URL,
		Title:           item.Title,
		Author:          item.Author,
		AuthorKey:       urlkey.ForAuthor(item.Author),
		Published:       item.Published,
		SubmittedAt:     now,
		Description:     item.Description,
		UserDisplayName: SystemDisplayName,
		UserEmail:       SystemEmail,
		UserPhotoURL:    SystemPhotoURL,
		UserID:          SystemUserID,
		UserProviderID:  SystemProviderID,
	}
}

// Validate checks required fields and that the declared key matches the
// hash of the post URL
func (p *Post) Validate() error {
	if p.URL == "" || p.Key == "" || p.Title == "" {
		return fmt.Errorf("post %q: required field empty: %w", p.URL, ErrValidation)
	}
	if p.Key != urlkey.ForURL(p.URL) {
		return fmt.Errorf("post %q: key %q does not match url hash: %w", p.URL, p.Key, ErrValidation)
	}
	return nil
}
