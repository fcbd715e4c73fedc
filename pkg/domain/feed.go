package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/readmoa/readmoa/pkg/urlkey"
)

// FeedType identifies the syndication family of a feed document
type FeedType string

// feed families, Sitemap is reserved and not parsed yet
const (
	TypeRSS     FeedType = "RSS"
	TypeAtom    FeedType = "ATOM"
	TypeUnknown FeedType = "UNKNOWN"
	TypeSitemap FeedType = "SITEMAP"
)

// ErrValidation indicates a record failed its consistency checks and must
// not be persisted
var ErrValidation = errors.New("validation failed")

// Feed represents a subscribed web feed and its crawl bookkeeping.
// Changerate is the estimated seconds between content updates and doubles
// as the polling interval. ScheduledFetch is authoritative, the crawler
// never fetches a feed before it.
type Feed struct {
	Key             string    `db:"url_key"`
	URL             string    `db:"url"`
	Title           string    `db:"title"`
	Description     string    `db:"description"`
	Language        string    `db:"language"`
	Type            FeedType  `db:"feed_type"`
	Generator       string    `db:"generator"`
	Label           string    `db:"label"`
	Popularity      int       `db:"popularity"`
	Changerate      int       `db:"changerate"` // seconds
	FirstFetched    time.Time `db:"first_fetched_time"`
	LastFetched     time.Time `db:"latest_fetched_time"`
	LatestItemURL   string    `db:"latest_item_url"`
	LatestItemTitle string    `db:"latest_item_title"`
	ScheduledFetch  time.Time `db:"scheduled_fetch_time"`
}

// FeedItem is the transient output of a feed reader, one entry of a
// fetched document. A zero Published means the feed did not declare a date.
type FeedItem struct {
	URL         string
	Title       string
	Description string
	Author      string
	Published   time.Time
}

// Validate checks required fields and that the declared key matches the
// hash of the feed URL
func (f *Feed) Validate() error {
	if f.URL == "" || f.Key == "" || f.Title == "" {
		return fmt.Errorf("feed %q: required field empty: %w", f.URL, ErrValidation)
	}
	if f.Key != urlkey.ForURL(f.URL) {
		return fmt.Errorf("feed %q: key %q does not match url hash: %w", f.URL, f.Key, ErrValidation)
	}
	return nil
}
