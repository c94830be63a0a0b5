package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/1Browser/backend/internal/database"
	"github.com/1Browser/backend/internal/metrics"
	"github.com/1Browser/backend/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	UserFinder        middleware.UserFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 公開エンドポイント
	HealthChecker  database.Pinger
	MetricsHandler http.Handler

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// コメント
	CommentService CommentServiceInterface

	// 要約・チャット
	CompletionService CompletionServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → Metrics → SecurityHeaders → CORS → Auth → RateLimit(General) → RateLimit(Completion)
//
// 認証ルート（/oauth2/*）・コメント一覧・ヘルスチェックは認証不要。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mc := deps.Metrics
	if mc == nil {
		mc = metrics.Nop{}
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewMetricsMiddleware(mc))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler()
	commentHandler := NewCommentHandler(deps.CommentService)
	completionHandler := NewCompletionHandler(deps.CompletionService)

	// --- 認証不要のルート ---

	if deps.HealthChecker != nil {
		r.Get("/health", NewHealthHandler(deps.HealthChecker).Health)
	}
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/oauth2", func(r chi.Router) {
		r.Get("/authorize", authHandler.Authorize)
		r.Get("/callback", authHandler.Callback)
	})

	r.Get("/comments", commentHandler.List)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Auth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewAuthMiddleware(deps.TokenVerifier, deps.UserFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/users/@me", userHandler.Me)
		r.Post("/comments", commentHandler.Create)

		// 補完は専用のレート制限を追加
		r.Group(func(r chi.Router) {
			r.Use(deps.RateLimiter.CompletionMiddleware())
			r.Post("/summary", completionHandler.Summary)
			r.Post("/chat", completionHandler.Chat)
		})
	})

	return r
}
