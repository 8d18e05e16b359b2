package memory

import (
	"context"
	"errors"
	"testing"

	"tweet-price-lab/internal/domain"
	"tweet-price-lab/internal/storage"
)

func strPtr(s string) *string { return &s }

func TestPostStore_InsertBulkAndGetByAuthor(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	posts := []*domain.Post{
		{ID: "p3", Author: "Founder", TimestampMs: 3000, Text: "third"},
		{ID: "p1", Author: "founder", TimestampMs: 1000, Text: "first"},
		{ID: "p2", Author: "founder", TimestampMs: 1000, Text: "tie", ReplyTo: strPtr("founder")},
		{ID: "x1", Author: "someone", TimestampMs: 2000, Text: "other"},
	}
	if err := store.InsertBulk(ctx, posts); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByAuthor(ctx, "@FOUNDER")
	if err != nil {
		t.Fatalf("GetByAuthor failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 posts, got %d", len(result))
	}

	wantOrder := []string{"p1", "p2", "p3"}
	for i, id := range wantOrder {
		if result[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, result[i].ID)
		}
	}
	if result[1].ReplyTo == nil || *result[1].ReplyTo != "founder" {
		t.Errorf("expected ReplyTo to be preserved")
	}
}

func TestPostStore_GetByTimeRange(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	posts := []*domain.Post{
		{ID: "p1", Author: "founder", TimestampMs: 1000},
		{ID: "p2", Author: "founder", TimestampMs: 2000},
		{ID: "p3", Author: "founder", TimestampMs: 3000},
	}
	if err := store.InsertBulk(ctx, posts); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "founder", 1500, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("expected 2 posts in range, got %d", len(result))
	}
}

func TestPostStore_DuplicateKey(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	posts := []*domain.Post{{ID: "p1", Author: "founder", TimestampMs: 1000}}
	if err := store.InsertBulk(ctx, posts); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := store.InsertBulk(ctx, posts); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestPostStore_InvalidInput(t *testing.T) {
	store := NewPostStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, []*domain.Post{nil}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil post, got %v", err)
	}
	if err := store.InsertBulk(ctx, []*domain.Post{{ID: "p1"}}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty author, got %v", err)
	}
}
