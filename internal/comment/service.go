// Package comment はWebページに紐付くコメントのドメインロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/repository"
)

// 一覧取得の件数
const (
	DefaultLimit = 100
	MaxLimit     = 100
)

// CreateInput はコメント作成の入力。
type CreateInput struct {
	URL      string
	Selector string
	Origin   *string
	Content  string
}

// Service はコメント管理のサービス層。
type Service struct {
	repo repository.CommentRepository
	now  func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.CommentRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create はuserIDを投稿者としてコメントを作成する。
// url・selector・contentが空の場合はINVALID_REQUESTのAPIErrorを返す。
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*model.Comment, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, model.NewInvalidRequestError("url is required")
	}
	if strings.TrimSpace(in.Selector) == "" {
		return nil, model.NewInvalidRequestError("selector is required")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, model.NewInvalidRequestError("content is required")
	}

	// 空文字のoriginは未指定として扱う
	origin := in.Origin
	if origin != nil && strings.TrimSpace(*origin) == "" {
		origin = nil
	}

	c := &model.Comment{
		ID:        uuid.NewString(),
		URL:       in.URL,
		Selector:  in.Selector,
		Origin:    origin,
		UserID:    userID,
		Content:   in.Content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("%w: コメントの作成に失敗しました: %w", model.ErrStorage, err)
	}
	return c, nil
}

// List は指定URLのコメントを新しい順に返す。
// pageは0始まりで負数は0、limitは0以下でDefaultLimit、上限はMaxLimit。
// page*limitがintに収まらないpageはINVALID_REQUESTとなる。
func (s *Service) List(ctx context.Context, url string, page, limit int) ([]*model.Comment, error) {
	if strings.TrimSpace(url) == "" {
		return nil, model.NewInvalidRequestError("url is required")
	}
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if page > math.MaxInt/limit {
		return nil, model.NewInvalidRequestError("page is out of range")
	}

	comments, err := s.repo.ListByURL(ctx, url, page, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: コメント一覧の取得に失敗しました: %w", model.ErrStorage, err)
	}
	return comments, nil
}
