package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/model"
)

// healthCheckTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthChecker はDB疎通確認のためのインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	TokenParser       middleware.AccessTokenParser
	RateLimiter       *middleware.RateLimiter
	Metrics           middleware.RequestMetrics
	CORSAllowedOrigin string
	// TrustProxyHeaders が真の場合のみRealIPでRemoteAddrを書き換える。
	TrustProxyHeaders bool

	// 運用
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	Validator Validator

	AuthService AuthServiceInterface
	UserService UserServiceInterface
	BookService BookServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → RealIP(TrustProxyHeaders時のみ) → Logging → Metrics → SecurityHeaders → CORS
//	  /api/v1/auth/*  : RateLimit(Auth, IP単位)
//	  /api/v1/users/* : JWT → RateLimit(General) → ロール/所有者ガード
//	  /api/v1/books/* : JWT → RateLimit(General) → ロールガード
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.Metrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, model.NewRouteNotFoundError(r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, model.NewMethodNotSupportedError(r.Method, r.URL.Path))
	})

	authHandler := NewAuthHandler(deps.AuthService, deps.Validator)
	userHandler := NewUserHandler(deps.UserService, deps.Validator)
	bookHandler := NewBookHandler(deps.BookService, deps.Validator)

	// --- 認証不要のルート ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.RateLimiter.AuthMiddleware())
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/register", authHandler.Register)
		})

		// --- 認証が必要なルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewJWTMiddleware(deps.TokenParser))
			r.Use(deps.RateLimiter.GeneralMiddleware())

			r.Route("/users", func(r chi.Router) {
				selfOrAdmin := middleware.RequireSelfOrRoles("id", model.RoleAdmin)
				adminOnly := middleware.RequireRoles(model.RoleAdmin)

				r.With(adminOnly).Get("/get-all", userHandler.GetAll)
				r.With(adminOnly).Post("/create", userHandler.Create)
				r.With(selfOrAdmin).Put("/update/{id}", userHandler.Update)
				r.With(selfOrAdmin).Get("/{id}", userHandler.GetByID)
				r.With(selfOrAdmin).Delete("/{id}", userHandler.Delete)
			})

			r.Route("/books", func(r chi.Router) {
				reader := middleware.RequireRoles(model.RoleUser, model.RoleAdmin)
				adminOnly := middleware.RequireRoles(model.RoleAdmin)

				r.With(reader).Get("/get-all", bookHandler.GetAll)
				r.With(reader).Get("/isbn/{isbn}", bookHandler.GetByISBN)
				r.With(reader).Get("/{id}", bookHandler.GetByID)
				r.With(adminOnly).Post("/create", bookHandler.Create)
				r.With(adminOnly).Put("/update/{id}", bookHandler.Update)
				r.With(adminOnly).Delete("/{id}", bookHandler.Delete)
			})
		})
	})

	return r
}

// healthHandler はDB疎通を確認し、結果をJSONで返すハンドラーを生成する。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
