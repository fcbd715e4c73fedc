package domain

import "time"

// FetchEvent is one append-only record of a poll attempt for a feed.
// PrevChangerate and PrevScheduledFetch capture the values that were in
// effect before this event, i.e. the ones it superseded.
type FetchEvent struct {
	FeedKey            string    `db:"url_key"`
	FetchedAt          time.Time `db:"fetched_time"`
	Updated            bool      `db:"feed_updated"`
	NewestPublished    time.Time `db:"newest_post_published_date"`
	PrevChangerate     int       `db:"previous_changerate"`
	PrevScheduledFetch time.Time `db:"previous_scheduled_fetch_time"`
}
