package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/schoolnews/internal/metrics"
	"github.com/hitoshi/schoolnews/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 認証・ユーザー
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	UserService UserServiceInterface

	// 学校・購読
	SchoolService       SchoolServiceInterface
	SubscriptionService SubscriptionServiceInterface

	// 記事・ニュースフィード
	ArticleService ArticleServiceInterface
	FeedReader     FeedReaderInterface
	SchoolArticles SchoolArticleLister

	// RSS
	BaseURL   string
	PlainText func(string) string
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → Logging → CORS
//	  認証が必要なルート: → Session → RateLimit(General) → CSRF
//	  記事投稿のみ: → RateLimit(ArticlePost)
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := deps.Metrics
	if m == nil {
		m = metrics.Nop{}
	}

	r := chi.NewRouter()
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.CSRFConfig.CookieSecure))
	r.Use(middleware.NewLoggingMiddleware(logger, m))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	userHandler := NewUserHandler(deps.UserService, authHandler)
	schoolHandler := NewSchoolHandler(deps.SchoolService, deps.SubscriptionService, deps.SchoolArticles, deps.BaseURL, deps.PlainText)
	articleHandler := NewArticleHandler(deps.ArticleService, deps.FeedReader)

	// --- 認証不要のルート ---
	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)
	r.Post("/api/users/registration", authHandler.Register)
	r.Get("/api/regions", schoolHandler.ListRegions)
	r.Get("/api/schools", schoolHandler.ListSchools)
	r.Get("/api/schools/{id}", schoolHandler.GetSchool)
	r.Get("/api/schools/{id}/rss", schoolHandler.RSS)
	r.Get("/api/articles", articleHandler.ListArticles)
	r.Get("/api/articles/{id}", articleHandler.GetArticle)

	// --- 認証が必要なルート ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		// ユーザー（{id}には"me"も指定できる）
		r.Get("/api/users/{id}", userHandler.GetProfile)
		r.Put("/api/users/{id}", userHandler.UpdateProfile)
		r.Delete("/api/users/{id}", userHandler.Withdraw)

		// 学校
		r.Post("/api/schools", schoolHandler.CreateSchool)
		r.Put("/api/schools/{id}", schoolHandler.UpdateSchool)
		r.Delete("/api/schools/{id}", schoolHandler.DeleteSchool)

		// 購読
		r.Post("/api/schools/{id}/subscribe", schoolHandler.Subscribe)
		r.Delete("/api/schools/{id}/unsubscribe", schoolHandler.Unsubscribe)

		// 記事（投稿は専用のレート制限を追加）
		r.With(deps.RateLimiter.ArticlePostMiddleware()).Post("/api/articles", articleHandler.CreateArticle)
		r.Put("/api/articles/{id}", articleHandler.UpdateArticle)
		r.Delete("/api/articles/{id}", articleHandler.DeleteArticle)
		r.Get("/api/articles/{id}/deliveries", articleHandler.Deliveries)

		// ニュースフィード
		r.Get("/api/newsfeed", articleHandler.NewsFeed)
	})

	return r
}
