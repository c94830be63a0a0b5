// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"

	"github.com/1Browser/backend/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// UpsertByEmail はemailをキーにユーザーを作成する。
	// 既に存在する場合はavatarのみ更新し、既存のidを維持する。
	UpsertByEmail(ctx context.Context, email, avatar string) (*model.User, error)
}

// ChatRepository は会話ターンの永続化インターフェース。
// (user_id, article_url) ごとに高々1行を保持する。
type ChatRepository interface {
	// FindByUserAndURL は会話ターンを取得する。見つからない場合はnilを返す。
	FindByUserAndURL(ctx context.Context, userID, articleURL string) (*model.Chat, error)

	// Upsert は会話ターンを保存する。
	// 競合時はmessageとupdated_atのみ上書きし、article_contentは保持する。
	Upsert(ctx context.Context, chat *model.Chat) error
}

// CommentRepository はコメントの永続化インターフェース。
type CommentRepository interface {
	// Create はコメントを作成する。IDとCreatedAtは呼び出し側が設定する。
	Create(ctx context.Context, comment *model.Comment) error

	// ListByURL は指定URLのコメントをcreated_at降順で返す。
	// pageは0始まりで、offset = page * limit となる。
	ListByURL(ctx context.Context, url string, page, limit int) ([]*model.Comment, error)
}
