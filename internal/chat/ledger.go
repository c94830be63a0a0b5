// Package chat はユーザーと記事URLの組ごとに1件の会話ターンを保持する台帳を提供する。
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/repository"
)

// Extractor は記事URLから本文を取得する。
type Extractor interface {
	Extract(ctx context.Context, articleURL string) (string, error)
}

// Ledger は会話ターンの取得と作成を行う。
type Ledger struct {
	repo      repository.ChatRepository
	extractor Extractor
	now       func() time.Time
}

// NewLedger はLedgerを生成する。
func NewLedger(repo repository.ChatRepository, extractor Extractor) *Ledger {
	return &Ledger{
		repo:      repo,
		extractor: extractor,
		now:       time.Now,
	}
}

// GetOrCreate は(userID, articleURL)の会話ターンを最新のmessageで保存して返す。
// 未登録の場合のみ本文を抽出する。既存ターンは本文を保持したままmessageだけ置き換える。
// 検索の失敗は未登録とは区別してErrStorageを返す。
func (l *Ledger) GetOrCreate(ctx context.Context, userID, articleURL, message string) (*model.Chat, error) {
	existing, err := l.repo.FindByUserAndURL(ctx, userID, articleURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorage, err)
	}

	now := l.now().UTC()
	turn := &model.Chat{
		UserID:     userID,
		ArticleURL: articleURL,
		Message:    message,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if existing != nil {
		turn.ArticleContent = existing.ArticleContent
		turn.CreatedAt = existing.CreatedAt
	} else {
		content, err := l.extractor.Extract(ctx, articleURL)
		if err != nil {
			if !errors.Is(err, model.ErrFetch) {
				err = fmt.Errorf("%w: %w", model.ErrFetch, err)
			}
			return nil, err
		}
		turn.ArticleContent = content
		slog.Info("captured article for chat",
			slog.String("user_id", userID),
			slog.String("article_url", articleURL),
			slog.Int("content_length", len(content)),
		)
	}

	if err := l.repo.Upsert(ctx, turn); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorage, err)
	}

	return turn, nil
}
