package memory

import (
	"context"
	"sort"
	"sync"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

// PostStore is an in-memory implementation of storage.PostStore.
type PostStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Post // keyed by post id
}

// NewPostStore creates a new in-memory post store.
func NewPostStore() *PostStore {
	return &PostStore{
		data: make(map[string]*domain.Post),
	}
}

// InsertBulk adds multiple posts atomically. Fails entire batch on any duplicate id.
func (s *PostStore) InsertBulk(_ context.Context, posts []*domain.Post) error {
	if len(posts) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(posts))
	for _, p := range posts {
		if p == nil || p.ID == "" || p.Author == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[p.ID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[p.ID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[p.ID] = struct{}{}
	}

	for _, p := range posts {
		s.data[p.ID] = copyPost(p)
	}

	return nil
}

// GetByAuthor retrieves all posts of an author, ordered by timestamp ASC, id ASC.
func (s *PostStore) GetByAuthor(_ context.Context, author string) ([]*domain.Post, error) {
	return s.collect(author, func(*domain.Post) bool { return true }), nil
}

// GetByTimeRange retrieves posts of an author within [start, end] (inclusive).
func (s *PostStore) GetByTimeRange(_ context.Context, author string, start, end int64) ([]*domain.Post, error) {
	return s.collect(author, func(p *domain.Post) bool {
		return p.TimestampMs >= start && p.TimestampMs <= end
	}), nil
}

func (s *PostStore) collect(author string, keep func(*domain.Post) bool) []*domain.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handle := domain.NormalizeHandle(author)
	var result []*domain.Post
	for _, p := range s.data {
		if domain.NormalizeHandle(p.Author) == handle && keep(p) {
			result = append(result, copyPost(p))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TimestampMs != result[j].TimestampMs {
			return result[i].TimestampMs < result[j].TimestampMs
		}
		return result[i].ID < result[j].ID
	})

	return result
}

func copyPost(p *domain.Post) *domain.Post {
	postCopy := *p
	if p.ReplyTo != nil {
		replyTo := *p.ReplyTo
		postCopy.ReplyTo = &replyTo
	}
	return &postCopy
}

var _ storage.PostStore = (*PostStore)(nil)
