package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/1Browser/backend/internal/model"
)

// PostgresChatRepo はPostgreSQLを使用した会話ターンリポジトリ。
type PostgresChatRepo struct {
	db *sql.DB
}

// NewPostgresChatRepo はPostgresChatRepoを生成する。
func NewPostgresChatRepo(db *sql.DB) *PostgresChatRepo {
	return &PostgresChatRepo{db: db}
}

// FindByUserAndURL は会話ターンを取得する。見つからない場合はnilを返す。
func (r *PostgresChatRepo) FindByUserAndURL(ctx context.Context, userID, articleURL string) (*model.Chat, error) {
	c := &model.Chat{}
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, article_url, article_content, message, created_at, updated_at
		 FROM chat WHERE user_id = $1 AND article_url = $2`,
		userID, articleURL,
	).Scan(&c.UserID, &c.ArticleURL, &c.ArticleContent, &c.Message, &c.CreatedAt, &c.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find chat: %w", err)
	}

	return c, nil
}

// Upsert は会話ターンを保存する。
// PK(user_id, article_url)の競合時はmessageとupdated_atのみ更新する。
func (r *PostgresChatRepo) Upsert(ctx context.Context, c *model.Chat) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat (user_id, article_url, article_content, message, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, article_url) DO UPDATE
		 SET message = EXCLUDED.message, updated_at = EXCLUDED.updated_at`,
		c.UserID, c.ArticleURL, c.ArticleContent, c.Message, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert chat: %w", err)
	}
	return nil
}

// compile-time interface check
var _ ChatRepository = (*PostgresChatRepo)(nil)
