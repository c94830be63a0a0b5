package comment

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/repository"
)

// --- モック定義 ---

type mockCommentRepo struct {
	createFn    func(ctx context.Context, c *model.Comment) error
	listByURLFn func(ctx context.Context, url string, page, limit int) ([]*model.Comment, error)
	createCalls int
}

func (m *mockCommentRepo) Create(ctx context.Context, c *model.Comment) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, c)
	}
	return nil
}

func (m *mockCommentRepo) ListByURL(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
	if m.listByURLFn != nil {
		return m.listByURLFn(ctx, url, page, limit)
	}
	return []*model.Comment{}, nil
}

// --- compile-time interface checks ---
var _ repository.CommentRepository = (*mockCommentRepo)(nil)

func strPtr(s string) *string { return &s }

// --- テスト ---

func TestCreate_Success(t *testing.T) {
	var stored *model.Comment
	repo := &mockCommentRepo{
		createFn: func(ctx context.Context, c *model.Comment) error {
			stored = c
			return nil
		},
	}
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	c, err := svc.Create(context.Background(), "user-1", CreateInput{
		URL:      "https://example.com/a",
		Selector: "#main > p:nth-child(2)",
		Origin:   strPtr("https://example.com"),
		Content:  "nice",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := uuid.Parse(c.ID); err != nil {
		t.Errorf("ID is not a uuid: %q", c.ID)
	}
	if c.UserID != "user-1" {
		t.Errorf("UserID = %q", c.UserID)
	}
	if !c.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", c.CreatedAt, fixed)
	}
	if stored != c {
		t.Error("repository did not receive the created comment")
	}
}

func TestCreate_EmptyOrigin_TreatedAsNil(t *testing.T) {
	svc := NewService(&mockCommentRepo{})

	c, err := svc.Create(context.Background(), "user-1", CreateInput{
		URL: "https://example.com/a", Selector: "p", Origin: strPtr(" "), Content: "x",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if c.Origin != nil {
		t.Errorf("Origin = %q, want nil", *c.Origin)
	}
}

func TestCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   CreateInput
	}{
		{"url 無し", CreateInput{Selector: "p", Content: "x"}},
		{"selector 無し", CreateInput{URL: "https://example.com", Content: "x"}},
		{"content 空白のみ", CreateInput{URL: "https://example.com", Selector: "p", Content: "  \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockCommentRepo{}
			svc := NewService(repo)

			_, err := svc.Create(context.Background(), "user-1", tt.in)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeInvalidRequest {
				t.Fatalf("expected INVALID_REQUEST, got %v", err)
			}
			if repo.createCalls != 0 {
				t.Errorf("Create called %d times, want 0", repo.createCalls)
			}
		})
	}
}

func TestCreate_StorageFailure(t *testing.T) {
	repo := &mockCommentRepo{
		createFn: func(ctx context.Context, c *model.Comment) error {
			return errors.New("fk violation")
		},
	}
	svc := NewService(repo)

	_, err := svc.Create(context.Background(), "user-1", CreateInput{URL: "u", Selector: "s", Content: "c"})
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestList_NormalizesPaging(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantPage  int
		wantLimit int
	}{
		{"既定値", 0, 0, 0, DefaultLimit},
		{"負のページ", -3, 10, 0, 10},
		{"上限超過", 2, 500, 2, MaxLimit},
		{"そのまま", 1, 20, 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPage, gotLimit int
			repo := &mockCommentRepo{
				listByURLFn: func(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
					gotPage, gotLimit = page, limit
					return []*model.Comment{}, nil
				},
			}
			svc := NewService(repo)

			if _, err := svc.List(context.Background(), "https://example.com", tt.page, tt.limit); err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if gotPage != tt.wantPage || gotLimit != tt.wantLimit {
				t.Errorf("page, limit = %d, %d, want %d, %d", gotPage, gotLimit, tt.wantPage, tt.wantLimit)
			}
		})
	}
}

func TestList_PageOutOfRange_Rejected(t *testing.T) {
	tests := []struct {
		name  string
		page  int
		limit int
	}{
		{"最大値のページ", math.MaxInt, 0},
		{"既定limitで溢れる", math.MaxInt/DefaultLimit + 1, 0},
		{"limit指定で溢れる", math.MaxInt/20 + 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			repo := &mockCommentRepo{
				listByURLFn: func(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
					calls++
					return []*model.Comment{}, nil
				},
			}
			svc := NewService(repo)

			_, err := svc.List(context.Background(), "https://example.com", tt.page, tt.limit)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if apiErr.Code != model.ErrCodeInvalidRequest {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidRequest)
			}
			if calls != 0 {
				t.Errorf("ListByURL called %d times, want 0", calls)
			}
		})
	}
}

func TestList_LastAddressablePage_Allowed(t *testing.T) {
	var gotPage int
	repo := &mockCommentRepo{
		listByURLFn: func(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
			gotPage = page
			return []*model.Comment{}, nil
		},
	}
	svc := NewService(repo)

	if _, err := svc.List(context.Background(), "https://example.com", math.MaxInt/DefaultLimit, 0); err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if gotPage != math.MaxInt/DefaultLimit {
		t.Errorf("page = %d, want %d", gotPage, math.MaxInt/DefaultLimit)
	}
}

func TestList_MissingURL(t *testing.T) {
	svc := NewService(&mockCommentRepo{})

	_, err := svc.List(context.Background(), "", 0, 0)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
}

func TestList_StorageFailure(t *testing.T) {
	repo := &mockCommentRepo{
		listByURLFn: func(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
			return nil, errors.New("db down")
		},
	}
	svc := NewService(repo)

	_, err := svc.List(context.Background(), "https://example.com", 0, 0)
	if !errors.Is(err, model.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
