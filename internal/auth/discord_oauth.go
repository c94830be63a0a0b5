package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/1Browser/backend/internal/model"
)

const (
	defaultDiscordAuthURL    = "https://discord.com/oauth2/authorize"
	defaultDiscordTokenURL   = "https://discord.com/api/oauth2/token"
	defaultDiscordAPIBaseURL = "https://discord.com/api"

	// maxProfileSize はプロフィールレスポンスの最大サイズ。
	maxProfileSize = 1 << 20
)

// DiscordOAuthConfig はDiscord OAuthプロバイダーの設定。
type DiscordOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL    string
	TokenURL   string
	APIBaseURL string

	// HTTPClient はトークン交換とプロフィール取得に使用する。nilの場合はhttp.DefaultClient。
	HTTPClient *http.Client
}

// DiscordOAuthProvider はDiscord OAuth 2.0による認証を提供する。
type DiscordOAuthProvider struct {
	oauth2Config *oauth2.Config
	apiBaseURL   string
	httpClient   *http.Client
}

// NewDiscordOAuthProvider はDiscordOAuthProviderを生成する。
func NewDiscordOAuthProvider(config DiscordOAuthConfig) *DiscordOAuthProvider {
	if config.AuthURL == "" {
		config.AuthURL = defaultDiscordAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultDiscordTokenURL
	}
	if config.APIBaseURL == "" {
		config.APIBaseURL = defaultDiscordAPIBaseURL
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	return &DiscordOAuthProvider{
		oauth2Config: &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RedirectURL:  config.RedirectURL,
			Scopes:       []string{"identify", "email"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		apiBaseURL: strings.TrimRight(config.APIBaseURL, "/"),
		httpClient: config.HTTPClient,
	}
}

// GetLoginURL はDiscordの同意画面URLを生成する。スコープはidentifyとemail。
func (p *DiscordOAuthProvider) GetLoginURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// discordUser は GET /users/@me のレスポンスのうち使用するフィールド。
type discordUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Avatar   *string `json:"avatar"`
	Email    *string `json:"email"`
	Verified bool    `json:"verified"`
}

// ExchangeCode は認可コードをアクセストークンに交換し、プロフィールを取得する。
// 通信失敗・非2xx・不正なレスポンスはすべてErrUpstreamとなる。
func (p *DiscordOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange authorization code: %w", model.ErrUpstream, err)
	}

	profile, err := p.fetchProfile(ctx, token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch discord profile: %w", model.ErrUpstream, err)
	}

	info := &OAuthUserInfo{
		ProviderUserID: profile.ID,
		Username:       profile.Username,
		EmailVerified:  profile.Verified,
	}
	if profile.Email != nil {
		info.Email = *profile.Email
	}
	if profile.Avatar != nil {
		info.AvatarHash = *profile.Avatar
	}
	return info, nil
}

// fetchProfile はアクセストークンでログイン中ユーザーのプロフィールを取得する。
func (p *DiscordOAuthProvider) fetchProfile(ctx context.Context, accessToken string) (*discordUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBaseURL+"/users/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("profile request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProfileSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read profile response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("profile fetch failed with status %d", resp.StatusCode)
	}

	var user discordUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to parse profile response: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty id in profile response")
	}

	return &user, nil
}

// compile-time interface check
var _ OAuthProvider = (*DiscordOAuthProvider)(nil)
