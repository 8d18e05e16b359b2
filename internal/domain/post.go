package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPost is returned by ValidatePosts for posts that must not enter clustering.
var ErrMalformedPost = errors.New("malformed post")

// Post is a single social-media post by one author.
// Corresponds to posts table in PostgreSQL. Immutable once ingested.
type Post struct {
	ID          string  // PRIMARY KEY, provider post id
	Author      string  // author handle without leading '@'
	TimestampMs int64   // Unix timestamp in milliseconds
	Text        string  // raw post text
	ReplyTo     *string // handle this post replies to (nullable)
	Likes       int64
	Reposts     int64
	Replies     int64
	Quotes      int64
	Views       int64
}

// NormalizeHandle lowercases a handle and strips a leading '@'.
func NormalizeHandle(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(h), "@"))
}

// IsReplyTo reports whether the post replies to the given handle (case-insensitive).
func (p *Post) IsReplyTo(handle string) bool {
	if p.ReplyTo == nil || *p.ReplyTo == "" {
		return false
	}
	return NormalizeHandle(*p.ReplyTo) == NormalizeHandle(handle)
}

// ValidatePosts rejects input that violates clustering preconditions:
// empty ids, non-positive timestamps, duplicate ids, or posts from more than one author.
func ValidatePosts(posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(posts))
	var author string
	for i, p := range posts {
		if p == nil {
			return fmt.Errorf("%w: nil post at index %d", ErrMalformedPost, i)
		}
		if p.ID == "" {
			return fmt.Errorf("%w: empty id at index %d", ErrMalformedPost, i)
		}
		if p.Author == "" {
			return fmt.Errorf("%w: post %s has empty author", ErrMalformedPost, p.ID)
		}
		if p.TimestampMs <= 0 {
			return fmt.Errorf("%w: post %s has non-positive timestamp %d", ErrMalformedPost, p.ID, p.TimestampMs)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: duplicate post id %s", ErrMalformedPost, p.ID)
		}
		seen[p.ID] = struct{}{}

		a := NormalizeHandle(p.Author)
		if author == "" {
			author = a
		} else if a != author {
			return fmt.Errorf("%w: post %s by %q mixed with author %q", ErrMalformedPost, p.ID, a, author)
		}
	}
	return nil
}
