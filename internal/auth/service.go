// Package auth はDiscord OAuthによるログインとセッショントークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/1Browser/backend/internal/metrics"
	"github.com/1Browser/backend/internal/model"
	"github.com/1Browser/backend/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
type OAuthUserInfo struct {
	ProviderUserID string
	Username       string
	Email          string
	EmailVerified  bool
	AvatarHash     string
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionTTL time.Duration
}

// LoginResult はログイン成功時のユーザーと発行済みトークン。
type LoginResult struct {
	User  *model.User
	Token string
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth    OAuthProvider
	userRepo repository.UserRepository
	codec    *Codec
	metrics  metrics.MetricsCollector
	config   ServiceConfig
}

// NewService はServiceを生成する。mcがnilの場合はメトリクスを記録しない。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	codec *Codec,
	mc metrics.MetricsCollector,
	config ServiceConfig,
) *Service {
	if mc == nil {
		mc = metrics.Nop{}
	}
	return &Service{
		oauth:    oauth,
		userRepo: userRepo,
		codec:    codec,
		metrics:  mc,
		config:   config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// Exchange は認可コードからプロフィールを取得し、emailをキーにユーザーをUPSERTする。
// 検証済みのメールアドレスが無い場合はErrMissingEmailを返し、ストレージには書き込まない。
// リトライは行わない。
func (s *Service) Exchange(ctx context.Context, code string) (*model.User, error) {
	start := time.Now()
	info, err := s.oauth.ExchangeCode(ctx, code)
	s.metrics.RecordUpstreamLatency("discord", time.Since(start))
	if err != nil {
		if !errors.Is(err, model.ErrUpstream) {
			err = fmt.Errorf("%w: %w", model.ErrUpstream, err)
		}
		return nil, err
	}

	email := strings.TrimSpace(info.Email)
	if email == "" || !info.EmailVerified {
		return nil, fmt.Errorf("%w: discord user %s", model.ErrMissingEmail, info.ProviderUserID)
	}

	avatar := AvatarURL(info.ProviderUserID, info.AvatarHash, email)

	user, err := s.userRepo.UpsertByEmail(ctx, email, avatar)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorage, err)
	}

	return user, nil
}

// Login はExchangeの後にセッショントークンを発行する。
func (s *Service) Login(ctx context.Context, code string) (*LoginResult, error) {
	user, err := s.Exchange(ctx, code)
	if err != nil {
		s.metrics.RecordLogin(loginResultLabel(err))
		return nil, err
	}

	token, err := s.codec.Issue(user.ID, s.config.SessionTTL)
	if err != nil {
		s.metrics.RecordLogin(metrics.ResultFailure)
		return nil, fmt.Errorf("failed to issue session token: %w", err)
	}

	s.metrics.RecordLogin(metrics.ResultSuccess)
	slog.Info("user logged in", slog.String("user_id", user.ID))

	return &LoginResult{User: user, Token: token}, nil
}

func loginResultLabel(err error) string {
	switch {
	case errors.Is(err, model.ErrMissingEmail):
		return "missing_email"
	case errors.Is(err, model.ErrUpstream):
		return "upstream"
	case errors.Is(err, model.ErrStorage):
		return "storage"
	default:
		return metrics.ResultFailure
	}
}
