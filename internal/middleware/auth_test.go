package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/1Browser/backend/internal/auth"
	"github.com/1Browser/backend/internal/model"
)

// --- モック定義 ---

type mockUserFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	calls      int
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.calls++
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

const aliceID = "3f2b8c1e-0a4d-4e5f-9b6c-7d8e9f0a1b2c"

// --- compile-time interface checks ---
var _ UserFinder = (*mockUserFinder)(nil)
var _ TokenVerifier = (*auth.Codec)(nil)

func newTestCodec(t *testing.T) *auth.Codec {
	t.Helper()
	codec, err := auth.NewCodec("middleware-test-secret")
	if err != nil {
		t.Fatalf("NewCodec() error = %v", err)
	}
	return codec
}

func issueToken(t *testing.T, codec *auth.Codec, userID string, ttl time.Duration) string {
	t.Helper()
	token, err := codec.Issue(userID, ttl)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return token
}

func okHandler(t *testing.T, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

// --- テスト ---

func TestAuthMiddleware_ValidToken_InjectsUser(t *testing.T) {
	codec := newTestCodec(t)
	finder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "a@example.com"}, nil
		},
	}

	var got *model.User
	handler := NewAuthMiddleware(codec, finder)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := UserFromContext(r.Context())
		if err != nil {
			t.Fatalf("UserFromContext() error = %v", err)
		}
		got = user
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/users/@me", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, codec, aliceID, time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got == nil || got.ID != aliceID {
		t.Errorf("user = %+v, want ID 3f2b8c1e-0a4d-4e5f-9b6c-7d8e9f0a1b2c", got)
	}
}

// 検証に失敗したリクエストではストレージを参照しない
func TestAuthMiddleware_Rejections_NoStorageCall(t *testing.T) {
	codec := newTestCodec(t)
	otherCodec, _ := auth.NewCodec("another-secret")

	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダー無し", ""},
		{"スキーム違い", "Basic dXNlcjpwYXNz"},
		{"トークン無し", "Bearer"},
		{"余分なフィールド", "Bearer a b"},
		{"不正なトークン", "Bearer not-a-jwt"},
		{"期限切れ", "Bearer " + issueToken(t, codec, aliceID, -time.Minute)},
		{"別の鍵で署名", "Bearer " + issueToken(t, otherCodec, aliceID, time.Hour)},
		{"uuidでないuser_id", "Bearer " + issueToken(t, codec, "user-1", time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			finder := &mockUserFinder{}
			called := false
			handler := NewAuthMiddleware(codec, finder)(okHandler(t, &called))

			req := httptest.NewRequest(http.MethodGet, "/users/@me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if called {
				t.Error("next handler should not be called")
			}
			if finder.calls != 0 {
				t.Errorf("FindByID called %d times, want 0", finder.calls)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthorized)
			}
		})
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	codec := newTestCodec(t)
	finder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id}, nil
		},
	}
	called := false
	handler := NewAuthMiddleware(codec, finder)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+issueToken(t, codec, aliceID, time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !called {
		t.Errorf("status = %d, called = %v", w.Code, called)
	}
}

// 存在しないユーザーのトークンは検証ではなく解決で失敗する
func TestAuthMiddleware_UnknownUser_Returns401(t *testing.T) {
	codec := newTestCodec(t)
	finder := &mockUserFinder{}
	called := false
	handler := NewAuthMiddleware(codec, finder)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, codec, "9a8b7c6d-5e4f-4a3b-8c2d-1e0f9a8b7c6d", time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if finder.calls != 1 {
		t.Errorf("FindByID called %d times, want 1", finder.calls)
	}
	if called {
		t.Error("next handler should not be called")
	}
}

func TestAuthMiddleware_StorageFailure_Returns500(t *testing.T) {
	codec := newTestCodec(t)
	finder := &mockUserFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return nil, errors.New("connection refused")
		},
	}
	called := false
	handler := NewAuthMiddleware(codec, finder)(okHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, codec, aliceID, time.Hour))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if called {
		t.Error("next handler should not be called")
	}
}

func TestUserFromContext_Missing(t *testing.T) {
	if _, err := UserFromContext(context.Background()); err == nil {
		t.Error("expected error for empty context")
	}

	ctx := ContextWithUser(context.Background(), &model.User{ID: "u"})
	user, err := UserFromContext(ctx)
	if err != nil || user.ID != "u" {
		t.Errorf("UserFromContext() = %+v, %v", user, err)
	}
}
