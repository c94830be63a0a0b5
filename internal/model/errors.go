package model

import (
	"errors"
	"fmt"
)

// エラー種別。各コンポーネントは原因を %w でラップし、
// 境界層は errors.Is で種別を判定してHTTPステータスやSSEイベントに変換する。
// 原因の詳細はログにのみ出力し、クライアントには返さない。
var (
	// ErrUnauthenticated は認証情報が無い、または解決できないことを表す。
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidToken は署名・構造・有効期限いずれかの検証に失敗したトークンを表す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrUpstream はIdP・LLMなど外部サービスの呼び出し失敗を表す。
	ErrUpstream = errors.New("upstream error")
	// ErrMissingEmail はIdPのプロフィールに検証済みメールアドレスが無いことを表す。
	ErrMissingEmail = errors.New("verified email is required")
	// ErrStorage はデータベース操作の失敗を表す。
	ErrStorage = errors.New("storage error")
	// ErrFetch は記事本文の取得失敗を表す。
	ErrFetch = errors.New("failed to fetch article content")
	// ErrContextUnavailable はチャットの会話コンテキストを取得・作成できなかったことを表す。
	ErrContextUnavailable = errors.New("could not retrieve context")
)

// APIError は統一エラーフォーマットを表す。
type APIError struct {
	Code    string // エラーコード
	Message string // ユーザー向けメッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeMissingEmail    = "MISSING_EMAIL"
	ErrCodeUpstreamFailed  = "UPSTREAM_FAILED"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeInvalidState    = "INVALID_STATE"
	ErrCodeMissingAuthCode = "MISSING_AUTHORIZATION_CODE"
)

// NewInvalidRequestError はリクエストボディ・パラメータの検証エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: fmt.Sprintf("invalid request: %s", reason),
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "authentication is required",
	}
}

// NewForbiddenError は他ユーザーのリソースへのアクセスを拒否するエラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: "access to this resource is not allowed",
	}
}

// NewMissingEmailError はIdPアカウントに検証済みメールが無い場合のエラーを生成する。
func NewMissingEmailError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingEmail,
		Message: "your Discord account has no verified email address",
	}
}

// NewUpstreamFailedError は外部サービスの障害によるエラーを生成する。
func NewUpstreamFailedError() *APIError {
	return &APIError{
		Code:    ErrCodeUpstreamFailed,
		Message: "an upstream service is unavailable, please try again later",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "internal server error",
	}
}
