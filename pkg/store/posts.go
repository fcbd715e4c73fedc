package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"

	"github.com/readmoa/readmoa/pkg/domain"
)

// PostsRepo handles ingested posts for one mode namespace
type PostsRepo struct {
	db    *sqlx.DB
	table string
}

func newPostsRepo(db *sqlx.DB, prefix string) *PostsRepo {
	return &PostsRepo{db: db, table: prefix + "posts"}
}

// Get retrieves a post by its identity key
func (r *PostsRepo) Get(ctx context.Context, key string) (*domain.Post, error) {
	var post domain.Post
	query := fmt.Sprintf("SELECT * FROM %s WHERE post_url_hash = ?", r.table)
	if err := r.db.GetContext(ctx, &post, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &post, nil
}

// Exists reports whether a post with the given key is stored
func (r *PostsRepo) Exists(ctx context.Context, key string) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE post_url_hash = ?", r.table)
	if err := r.db.GetContext(ctx, &count, query, key); err != nil {
		return false, fmt.Errorf("check post existence: %w", err)
	}
	return count > 0, nil
}

// InsertIfAbsent stores a post unless its key is already present. The
// duplicate case is a logged no-op, never an error, so ingestion stays
// idempotent per identity key.
func (r *PostsRepo) InsertIfAbsent(ctx context.Context, post *domain.Post) (inserted bool, err error) {
	if err := post.Validate(); err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (post_url_hash, post_url, title, post_author,
		                post_author_hash, post_published_date, submission_time,
		                main_image_url, description, user_display_name,
		                user_email, user_photo_url, user_id, user_provider_id)
		VALUES (:post_url_hash, :post_url, :title, :post_author,
		        :post_author_hash, :post_published_date, :submission_time,
		        :main_image_url, :description, :user_display_name,
		        :user_email, :user_photo_url, :user_id, :user_provider_id)
		ON CONFLICT(post_url_hash) DO NOTHING
	`, r.table)

	var res sql.Result
	err = withRetry(ctx, func() error {
		var execErr error
		res, execErr = r.db.NamedExecContext(ctx, query, post)
		if execErr != nil {
			return fmt.Errorf("insert post: %w", execErr)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert post rows affected: %w", err)
	}
	if rows == 0 {
		lgr.Printf("[INFO] post already present: %s (%s)", post.Key, post.URL)
		return false, nil
	}
	return true, nil
}

// Scan returns posts in reverse chronological submission order, optionally
// restricted to one author key
func (r *PostsRepo) Scan(ctx context.Context, offset, limit int, authorKey string) ([]domain.Post, error) {
	if offset < 0 || limit < 0 {
		return nil, fmt.Errorf("offset %d / limit %d out of range", offset, limit)
	}

	query := fmt.Sprintf(
		"SELECT * FROM %s ORDER BY submission_time DESC LIMIT ? OFFSET ?", r.table)
	args := []any{limit, offset}
	if authorKey != "" {
		query = fmt.Sprintf(
			"SELECT * FROM %s WHERE post_author_hash = ? ORDER BY submission_time DESC LIMIT ? OFFSET ?",
			r.table)
		args = []any{authorKey, limit, offset}
	}

	var posts []domain.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}
	return posts, nil
}

// Delete removes a post by key, an operator-only action
func (r *PostsRepo) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE post_url_hash = ?", r.table)
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
