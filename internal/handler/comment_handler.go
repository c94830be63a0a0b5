package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/1Browser/backend/internal/comment"
	"github.com/1Browser/backend/internal/middleware"
	"github.com/1Browser/backend/internal/model"
)

// CommentServiceInterface はコメントハンドラーが必要とするサービスインターフェース。
type CommentServiceInterface interface {
	Create(ctx context.Context, userID string, in comment.CreateInput) (*model.Comment, error)
	List(ctx context.Context, url string, page, limit int) ([]*model.Comment, error)
}

// CommentHandler はコメントのHTTPハンドラー。
type CommentHandler struct {
	service CommentServiceInterface
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(service CommentServiceInterface) *CommentHandler {
	return &CommentHandler{service: service}
}

// createCommentRequest はコメント作成リクエストのボディ。
type createCommentRequest struct {
	URL      string  `json:"url"`
	Selector string  `json:"selector"`
	Origin   *string `json:"origin"`
	Content  string  `json:"content"`
}

// createCommentResponse はコメント作成のレスポンス。
type createCommentResponse struct {
	ID string `json:"id"`
}

// Create はコメントを作成する。
// POST /comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createCommentRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	c, err := h.service.Create(r.Context(), user.ID, comment.CreateInput{
		URL:      req.URL,
		Selector: req.Selector,
		Origin:   req.Origin,
		Content:  req.Content,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createCommentResponse{ID: c.ID})
}

// List は指定URLのコメント一覧を返す。
// GET /comments?url=xxx&page=0&limit=100
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, ok := optionalInt(q.Get("page"))
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("page must be an integer"))
		return
	}
	limit, ok := optionalInt(q.Get("limit"))
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("limit must be an integer"))
		return
	}

	comments, err := h.service.List(r.Context(), q.Get("url"), page, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, comments)
}

// optionalInt は空文字を0として整数に変換する。
func optionalInt(s string) (int, bool) {
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
