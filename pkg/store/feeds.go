package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/readmoa/readmoa/pkg/domain"
)

// FeedsRepo handles feed records for one mode namespace
type FeedsRepo struct {
	db       *sqlx.DB
	table    string
	logTable string
}

func newFeedsRepo(db *sqlx.DB, prefix string) *FeedsRepo {
	return &FeedsRepo{db: db, table: prefix + "feeds", logTable: prefix + "fetch_log"}
}

// Insert stores a new feed record, rejecting it before any write if
// validation fails
func (r *FeedsRepo) Insert(ctx context.Context, feed *domain.Feed) error {
	if err := feed.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (url_key, url, title, description, language, feed_type,
		                generator, label, popularity, changerate,
		                first_fetched_time, latest_fetched_time,
		                latest_item_url, latest_item_title, scheduled_fetch_time)
		VALUES (:url_key, :url, :title, :description, :language, :feed_type,
		        :generator, :label, :popularity, :changerate,
		        :first_fetched_time, :latest_fetched_time,
		        :latest_item_url, :latest_item_title, :scheduled_fetch_time)
	`, r.table)

	return withRetry(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, query, feed); err != nil {
			return fmt.Errorf("insert feed: %w", err)
		}
		return nil
	})
}

// Get retrieves a feed by its identity key
func (r *FeedsRepo) Get(ctx context.Context, key string) (*domain.Feed, error) {
	var feed domain.Feed
	query := fmt.Sprintf("SELECT * FROM %s WHERE url_key = ?", r.table)
	if err := r.db.GetContext(ctx, &feed, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feed %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return &feed, nil
}

// ScanRecent returns feeds ordered by latest fetch time descending
func (r *FeedsRepo) ScanRecent(ctx context.Context, offset, limit int) ([]domain.Feed, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("offset %d / limit %d out of range", offset, limit)
	}

	var feeds []domain.Feed
	query := fmt.Sprintf(
		"SELECT * FROM %s ORDER BY latest_fetched_time DESC LIMIT ? OFFSET ?", r.table)
	if err := r.db.SelectContext(ctx, &feeds, query, limit, offset); err != nil {
		return nil, fmt.Errorf("scan feeds: %w", err)
	}
	return feeds, nil
}

// UpdateAfterFetch persists the crawl bookkeeping recomputed after a fetch
// event: changerate, fetch timestamps, the scheduled time and the
// latest-item cache
func (r *FeedsRepo) UpdateAfterFetch(ctx context.Context, feed *domain.Feed) error {
	if err := feed.Validate(); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET changerate = :changerate,
		    first_fetched_time = :first_fetched_time,
		    latest_fetched_time = :latest_fetched_time,
		    scheduled_fetch_time = :scheduled_fetch_time,
		    latest_item_url = :latest_item_url,
		    latest_item_title = :latest_item_title
		WHERE url_key = :url_key
	`, r.table)

	return withRetry(ctx, func() error {
		if _, err := r.db.NamedExecContext(ctx, query, feed); err != nil {
			return fmt.Errorf("update feed after fetch: %w", err)
		}
		return nil
	})
}

// Delete removes a feed and cascades to its fetch log
func (r *FeedsRepo) Delete(ctx context.Context, key string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete feed: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE url_key = ?", r.logTable), key); err != nil {
		return fmt.Errorf("delete fetch log for feed: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE url_key = ?", r.table), key); err != nil {
		return fmt.Errorf("delete feed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete feed: %w", err)
	}
	return nil
}
