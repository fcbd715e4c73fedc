package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/readmoa/readmoa/pkg/domain"
)

// FetchLogRepo handles the append-only fetch history for one mode
// namespace. Events are never mutated, deletion happens only through the
// owning feed's cascade.
type FetchLogRepo struct {
	db    *sqlx.DB
	table string
}

func newFetchLogRepo(db *sqlx.DB, prefix string) *FetchLogRepo {
	return &FetchLogRepo{db: db, table: prefix + "fetch_log"}
}

// Append records one fetch event
func (r *FetchLogRepo) Append(ctx context.Context, event *domain.FetchEvent) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (url_key, fetched_time, feed_updated,
		                newest_post_published_date, previous_changerate,
		                previous_scheduled_fetch_time)
		VALUES (:url_key, :fetched_time, :feed_updated,
		        :newest_post_published_date, :previous_changerate,
		        :previous_scheduled_fetch_time)
	`, r.table)

	return withRetry(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
			return fmt.Errorf("append fetch event: %w", err)
		}
		return nil
	})
}

// ScanByFeed returns up to limit events for a feed, newest first
func (r *FetchLogRepo) ScanByFeed(ctx context.Context, key string, limit int) ([]domain.FetchEvent, error) {
	var events []domain.FetchEvent
	query := fmt.Sprintf(`
		SELECT url_key, fetched_time, feed_updated, newest_post_published_date,
		       previous_changerate, previous_scheduled_fetch_time
		FROM %s WHERE url_key = ? ORDER BY fetched_time DESC LIMIT ?
	`, r.table)
	if err := r.db.SelectContext(ctx, &events, query, key, limit); err != nil {
		return nil, fmt.Errorf("scan fetch log: %w", err)
	}
	return events, nil
}

// DeleteByFeed removes all events for a feed, used by the feed delete
// cascade and maintenance tooling
func (r *FetchLogRepo) DeleteByFeed(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE url_key = ?", r.table)
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete fetch log: %w", err)
	}
	return nil
}
