package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// PostStore implements storage.PostStore using PostgreSQL.
// Authors are stored normalized (lowercase, no '@') so lookups hit posts_author_ts_idx.
type PostStore struct {
	db DB
}

// NewPostStore creates a new PostStore.
func NewPostStore(db DB) *PostStore {
	return &PostStore{db: db}
}

// Compile-time interface check.
var _ storage.PostStore = (*PostStore)(nil)

const insertPostQuery = `
		INSERT INTO posts (
			id, author, timestamp_ms, text, reply_to, likes, reposts, replies, quotes, views
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

const selectPostColumns = `
		SELECT id, author, timestamp_ms, text, reply_to, likes, reposts, replies, quotes, views
		FROM posts
	`

// InsertBulk adds multiple posts atomically. Fails entire batch on any duplicate id.
func (s *PostStore) InsertBulk(ctx context.Context, posts []*domain.Post) (err error) {
	if len(posts) == 0 {
		return nil
	}
	for _, p := range posts {
		if p == nil || p.ID == "" || p.Author == "" {
			return storage.ErrInvalidInput
		}
	}
	defer func(start time.Time) { observe("insert_posts", start, err) }(time.Now())

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range posts {
		_, err := tx.Exec(ctx, insertPostQuery,
			p.ID,
			domain.NormalizeHandle(p.Author),
			p.TimestampMs,
			p.Text,
			p.ReplyTo,
			p.Likes,
			p.Reposts,
			p.Replies,
			p.Quotes,
			p.Views,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert post in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByAuthor retrieves all posts of an author, ordered by timestamp ASC, id ASC.
func (s *PostStore) GetByAuthor(ctx context.Context, author string) (posts []*domain.Post, err error) {
	defer func(start time.Time) { observe("get_posts_by_author", start, err) }(time.Now())

	query := selectPostColumns + `
		WHERE author = $1
		ORDER BY timestamp_ms ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, domain.NormalizeHandle(author))
	if err != nil {
		return nil, fmt.Errorf("get posts by author: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// GetByTimeRange retrieves posts of an author within [start, end] (inclusive).
func (s *PostStore) GetByTimeRange(ctx context.Context, author string, start, end int64) (posts []*domain.Post, err error) {
	defer func(began time.Time) { observe("get_posts_by_time_range", began, err) }(time.Now())

	query := selectPostColumns + `
		WHERE author = $1 AND timestamp_ms >= $2 AND timestamp_ms <= $3
		ORDER BY timestamp_ms ASC, id ASC
	`

	rows, err := s.db.Query(ctx, query, domain.NormalizeHandle(author), start, end)
	if err != nil {
		return nil, fmt.Errorf("get posts by time range: %w", err)
	}
	defer rows.Close()

	return scanPosts(rows)
}

// scanPosts scans multiple rows into a slice of Post.
func scanPosts(rows pgx.Rows) ([]*domain.Post, error) {
	var posts []*domain.Post

	for rows.Next() {
		var p domain.Post
		err := rows.Scan(
			&p.ID,
			&p.Author,
			&p.TimestampMs,
			&p.Text,
			&p.ReplyTo,
			&p.Likes,
			&p.Reposts,
			&p.Replies,
			&p.Quotes,
			&p.Views,
		)
		if err != nil {
			return nil, fmt.Errorf("scan post row: %w", err)
		}
		posts = append(posts, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate post rows: %w", err)
	}

	return posts, nil
}
