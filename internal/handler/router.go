package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/bookman/internal/identity"
	"github.com/hitoshi/bookman/internal/metrics"
	"github.com/hitoshi/bookman/internal/middleware"
)

// loginPath は認証ガードがエラーレスポンスで案内するログイン開始パス。
const loginPath = "/auth/google/login"

// Pinger はデータベースの死活確認インターフェース。
// *sql.DBがそのまま満たす。
type Pinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	SessionResolver   middleware.SessionResolver
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	Logger            *slog.Logger
	Collector         metrics.MetricsCollector
	Gatherer          prometheus.Gatherer

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig
	Normalizer  *identity.Normalizer

	// カタログ
	BookService   BookServiceInterface
	AuthorService AuthorServiceInterface

	// ヘルスチェック
	DB Pinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → Metrics → Session
//
// セッションミドルウェアは全ルートでプリンシパルを解決するが拒否はしない。
// 認可（401/403）はカタログの変更系ルートに適用するガードが行う。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewMetricsMiddleware(deps.Collector))
	r.Use(middleware.NewSessionMiddleware(deps.SessionResolver))

	authHandler := NewAuthHandler(deps.AuthService, deps.Normalizer, deps.AuthConfig)
	bookHandler := NewBookHandler(deps.BookService)
	authorHandler := NewAuthorHandler(deps.AuthorService)

	// --- 認証ルート（OAuthフロー・セッション管理） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Get("/session", authHandler.Session)
		r.Post("/logout", authHandler.Logout)

		r.With(middleware.RequireAuthenticated(loginPath)).Get("/me", authHandler.Me)
	})

	// --- カタログ: 読み取りは認証不要 ---
	r.Get("/api/books", bookHandler.List)
	r.Get("/api/books/{id}", bookHandler.Get)
	r.Get("/api/authors", authorHandler.List)
	r.Get("/api/authors/{id}", authorHandler.Get)

	// --- カタログ: 変更系は認証＋有効アカウント＋CSRFが必要 ---
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated(loginPath))
		r.Use(middleware.RequireActive(loginPath))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

		r.Post("/api/books", bookHandler.Create)
		r.Put("/api/books/{id}", bookHandler.Update)
		r.Delete("/api/books/{id}", bookHandler.Delete)

		r.Post("/api/authors", authorHandler.Create)
		r.Put("/api/authors/{id}", authorHandler.Update)
		r.Delete("/api/authors/{id}", authorHandler.Delete)
	})

	// CSRFトークン取得（SPAのダブルサブミット用）
	r.Get("/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

	// ヘルスチェック（DB死活確認込み）
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := deps.DB.PingContext(req.Context()); err != nil {
			slog.Error("health check failed", slog.String("error", err.Error()))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Prometheusスクレイプ
	r.Handle("/metrics", metrics.Handler(deps.Gatherer))

	return r
}
