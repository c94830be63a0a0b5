package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/1Browser/backend/internal/model"
)

func TestPostgresCommentRepo_CreateAndList(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresCommentRepo(db)
	ctx := context.Background()

	user, err := users.UpsertByEmail(ctx, "comment@example.com", "a")
	if err != nil {
		t.Fatalf("user upsert failed: %v", err)
	}

	origin := "https://example.com"
	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 3; i++ {
		c := &model.Comment{
			ID:        uuid.New().String(),
			URL:       "https://example.com/page",
			Selector:  "#p" + fmt.Sprint(i),
			UserID:    user.ID,
			Content:   fmt.Sprintf("comment %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
		if i == 0 {
			c.Origin = &origin
		}
		if err := repo.Create(ctx, c); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	got, err := repo.ListByURL(ctx, "https://example.com/page", 0, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Content != "comment 2" || got[1].Content != "comment 1" {
		t.Errorf("unexpected order: %q, %q", got[0].Content, got[1].Content)
	}

	page2, err := repo.ListByURL(ctx, "https://example.com/page", 1, 2)
	if err != nil {
		t.Fatalf("list page 1 failed: %v", err)
	}
	if len(page2) != 1 {
		t.Fatalf("len = %d, want 1", len(page2))
	}
	if page2[0].Origin == nil || *page2[0].Origin != origin {
		t.Errorf("Origin = %v, want %q", page2[0].Origin, origin)
	}
}

func TestPostgresCommentRepo_ListByURL_Empty(t *testing.T) {
	db := setupRepoDB(t)
	repo := NewPostgresCommentRepo(db)

	got, err := repo.ListByURL(context.Background(), "https://nowhere.example", 0, 100)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}
