package repository

import (
	"context"
	"testing"
	"time"

	"github.com/1Browser/backend/internal/model"
)

func TestPostgresChatRepo_FindByUserAndURL_NotFound_ReturnsNil(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresChatRepo(db)
	ctx := context.Background()

	user, err := users.UpsertByEmail(ctx, "chat@example.com", "a")
	if err != nil {
		t.Fatalf("user upsert failed: %v", err)
	}

	got, err := repo.FindByUserAndURL(ctx, user.ID, "https://example.com/none")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

// 同じキーへの2回目の保存ではmessageのみが置き換わる
func TestPostgresChatRepo_Upsert_KeepsArticleContent(t *testing.T) {
	db := setupRepoDB(t)
	users := NewPostgresUserRepo(db)
	repo := NewPostgresChatRepo(db)
	ctx := context.Background()

	user, err := users.UpsertByEmail(ctx, "ledger@example.com", "a")
	if err != nil {
		t.Fatalf("user upsert failed: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Microsecond)
	first := &model.Chat{
		UserID:         user.ID,
		ArticleURL:     "https://example.com/a",
		ArticleContent: "original text",
		Message:        "first",
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	later := now.Add(time.Minute)
	second := &model.Chat{
		UserID:         user.ID,
		ArticleURL:     "https://example.com/a",
		ArticleContent: "should be ignored",
		Message:        "second",
		CreatedAt:      later,
		UpdatedAt:      later,
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	got, err := repo.FindByUserAndURL(ctx, user.ID, "https://example.com/a")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored chat")
	}
	if got.ArticleContent != "original text" {
		t.Errorf("ArticleContent = %q, want %q", got.ArticleContent, "original text")
	}
	if got.Message != "second" {
		t.Errorf("Message = %q, want %q", got.Message, "second")
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, now)
	}
	if !got.UpdatedAt.Equal(later) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, later)
	}

	var count int
	if err := db.QueryRow(`SELECT count(*) FROM chat WHERE user_id = $1`, user.ID).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}
