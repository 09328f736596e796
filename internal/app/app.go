package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/bookstorage/internal/auth"
	"github.com/hitoshi/bookstorage/internal/book"
	"github.com/hitoshi/bookstorage/internal/config"
	"github.com/hitoshi/bookstorage/internal/database"
	"github.com/hitoshi/bookstorage/internal/handler"
	"github.com/hitoshi/bookstorage/internal/logger"
	"github.com/hitoshi/bookstorage/internal/metrics"
	"github.com/hitoshi/bookstorage/internal/middleware"
	"github.com/hitoshi/bookstorage/internal/notify"
	"github.com/hitoshi/bookstorage/internal/repository"
	"github.com/hitoshi/bookstorage/internal/security"
	"github.com/hitoshi/bookstorage/internal/user"
	"github.com/hitoshi/bookstorage/internal/validation"
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成する
	logger.SetupDefaultWithLevel(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := database.OpenWithPool(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(db, "bookstorage"),
	)
	collector := metrics.NewCollector(registry)

	// 3. 削除通知ディスパッチャ
	publisher, cleanup, err := buildPublisher(cfg, security.NewSSRFGuard(), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to configure notifications: %w", err)
	}
	defer cleanup()

	dispatcher := notify.NewDispatcher(publisher, notify.DispatcherConfig{
		QueueSize:   cfg.NotifyQueueSize,
		Workers:     cfg.NotifyWorkers,
		MaxAttempts: cfg.NotifyMaxAttempts,
	}, collector, slog.Default())
	dispatcher.Start()

	slog.Info("book deletion notifications enabled", slog.String("publisher", publisher.Name()))

	// 4. 依存関係のワイヤリング
	rateLimiter := middleware.NewRateLimiter(
		middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitAuth),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(buildRouterDeps(cfg, db, dispatcher, collector, registry, rateLimiter))

	// 5. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		return fmt.Errorf("server listen error: %w", err)
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// リクエスト処理の完了後にキューに残った通知を送り切る
	if err := dispatcher.Stop(ctx); err != nil {
		slog.Warn("notification queue not fully drained", slog.String("error", err.Error()))
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// buildRouterDeps はリポジトリからハンドラーまでのサービス層を組み立てる。
func buildRouterDeps(
	cfg *config.Config,
	db *sql.DB,
	notifier book.DeleteNotifier,
	collector *metrics.Collector,
	gatherer prometheus.Gatherer,
	rateLimiter *middleware.RateLimiter,
) *handler.RouterDeps {
	userRepo := repository.NewPostgresUserRepo(db)
	bookRepo := repository.NewPostgresBookRepo(db)

	hasher := security.NewPasswordHasher(cfg.BcryptCost)
	userService := user.NewService(userRepo, hasher)
	bookService := book.NewService(bookRepo, notifier, security.NewTextSanitizer())

	tokens := auth.NewTokenProvider(auth.TokenProviderConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.JWTAccessTTL,
		RefreshTTL: cfg.JWTRefreshTTL,
	}, userRepo)
	authService := auth.NewService(
		auth.NewAuthenticator(userRepo, hasher),
		tokens,
		userService,
		collector,
	)

	return &handler.RouterDeps{
		Logger:            slog.Default(),
		TokenParser:       tokens,
		RateLimiter:       rateLimiter,
		Metrics:           collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		HealthChecker:     db,
		MetricsHandler:    metrics.Handler(gatherer),
		Validator:         validation.New(),
		AuthService:       authService,
		UserService:       userService,
		BookService:       bookService,
	}
}

// webhookURLValidator はWebhook送信先URLを検証し、安全なクライアントを生成する。
type webhookURLValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration) *http.Client
}

// buildPublisher は設定に応じて通知の配信先を組み立てる。
// REDIS_URLとNOTIFY_WEBHOOK_URLの両方が設定されていれば両方へ、
// どちらも無ければログへ出力する。返されるcleanupで接続を解放する。
func buildPublisher(cfg *config.Config, guard webhookURLValidator, log *slog.Logger) (notify.Publisher, func(), error) {
	var publishers notify.Fanout
	cleanup := func() {}

	if cfg.RedisURL != "" {
		client, err := notify.NewRedisClient(cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { _ = client.Close() }

		pub := notify.NewRedisPublisher(client, cfg.NotifyStream, notify.DefaultStreamMaxLen)
		ctx, cancel := context.WithTimeout(context.Background(), cfg.NotifyTimeout)
		defer cancel()
		if err := pub.Ping(ctx); err != nil {
			// 起動は継続し、配信時の再試行に任せる
			log.Warn("redis not reachable at startup",
				slog.String("redis", redactURL(cfg.RedisURL)),
				slog.String("error", err.Error()),
			)
		}
		publishers = append(publishers, pub)
	}

	if cfg.NotifyWebhookURL != "" {
		if err := guard.ValidateURL(cfg.NotifyWebhookURL); err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("invalid NOTIFY_WEBHOOK_URL: %w", err)
		}
		publishers = append(publishers, notify.NewWebhookPublisher(
			guard.NewSafeClient(cfg.NotifyTimeout), cfg.NotifyWebhookURL,
		))
	}

	switch len(publishers) {
	case 0:
		return notify.NewLogPublisher(log), cleanup, nil
	case 1:
		return publishers[0], cleanup, nil
	default:
		return publishers, cleanup, nil
	}
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", redactURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// redactURL は接続URLの認証情報をマスクする。
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
