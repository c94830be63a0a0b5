package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/1Browser/backend/internal/completion"
	"github.com/1Browser/backend/internal/middleware"
	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/security"
)

// クライアントへ返すストリームのメッセージ
const (
	msgUpstreamUnavailable = "the language model is unavailable, please try again later"
	msgStreamInterrupted   = "the response was interrupted"
	msgFetchFailed         = "could not fetch the article"
	msgContextUnavailable  = "could not retrieve context"
)

// CompletionServiceInterface は補完ハンドラーが必要とするサービスインターフェース。
type CompletionServiceInterface interface {
	Summarize(ctx context.Context, content string) (<-chan completion.Chunk, error)
	Chat(ctx context.Context, userID, articleURL, message string) (<-chan completion.Chunk, error)
}

// CompletionHandler は補完ストリームのHTTPハンドラー。
type CompletionHandler struct {
	service CompletionServiceInterface
}

// NewCompletionHandler はCompletionHandlerを生成する。
func NewCompletionHandler(service CompletionServiceInterface) *CompletionHandler {
	return &CompletionHandler{service: service}
}

// summaryRequest は要約リクエストのボディ。
type summaryRequest struct {
	Content string `json:"content"`
}

// chatRequest はチャットリクエストのボディ。
type chatRequest struct {
	UserID     string `json:"user_id"`
	ArticleURL string `json:"article_url"`
	Message    string `json:"message"`
}

// Summary はcontent（テキストまたは記事URL）の要約をSSEで返す。
// POST /summary
func (h *CompletionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("content is required"))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	chunks, err := h.service.Summarize(ctx, req.Content)
	h.stream(ctx, w, chunks, err)
}

// Chat は記事についての会話をSSEで返す。
// POST /chat
func (h *CompletionHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.UserFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req chatRequest
	if apiErr := decodeJSONBody(w, r, &req); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	if apiErr := req.validate(); apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}
	// 他ユーザーの会話には書き込ませない
	if !strings.EqualFold(req.UserID, user.ID) {
		middleware.WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	chunks, err := h.service.Chat(ctx, user.ID, req.ArticleURL, req.Message)
	h.stream(ctx, w, chunks, err)
}

func (req chatRequest) validate() *model.APIError {
	if _, err := uuid.Parse(req.UserID); err != nil {
		return model.NewInvalidRequestError("user_id must be a uuid")
	}
	if !security.IsHTTPURL(req.ArticleURL) {
		return model.NewInvalidRequestError("article_url must be an absolute http(s) URL")
	}
	if strings.TrimSpace(req.Message) == "" {
		return model.NewInvalidRequestError("message is required")
	}
	return nil
}

// stream はチャンクをSSEイベントとして書き込む。
// 開始前の失敗も接続を閉じる前に1件の終端イベントとして返す。
func (h *CompletionHandler) stream(ctx context.Context, w http.ResponseWriter, chunks <-chan completion.Chunk, openErr error) {
	sse := newSSEWriter(w)

	if openErr != nil {
		event, msg := terminalEvent(openErr)
		if err := sse.send(event, msg); err != nil {
			slog.Debug("failed to write terminal event", slog.String("error", err.Error()))
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			if chunk.Err != nil {
				if err := sse.send(sseEventError, msgStreamInterrupted); err != nil {
					slog.Debug("failed to write error event", slog.String("error", err.Error()))
				}
				return
			}
			if err := sse.send("", chunk.Text); err != nil {
				// クライアント切断。deferのcancelで上流も閉じられる
				slog.Debug("client disconnected during stream", slog.String("error", err.Error()))
				return
			}
		}
	}
}

// terminalEvent はストリーム開始前のエラーをSSEイベント名とメッセージに変換する。
func terminalEvent(err error) (string, string) {
	switch {
	case errors.Is(err, model.ErrContextUnavailable):
		return sseEventInfo, msgContextUnavailable
	case errors.Is(err, model.ErrFetch):
		return sseEventError, msgFetchFailed
	default:
		return sseEventError, msgUpstreamUnavailable
	}
}
