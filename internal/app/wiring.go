package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/railgallery/internal/auth"
	"github.com/hitoshi/railgallery/internal/config"
	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/handler"
	"github.com/hitoshi/railgallery/internal/metrics"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/repository"
	"github.com/hitoshi/railgallery/internal/security"
	"github.com/hitoshi/railgallery/internal/storage"
	"github.com/hitoshi/railgallery/internal/upload"
)

// components はプロセス起動時に1度だけ構築する依存関係の集合。
type components struct {
	store    *database.Store
	images   storage.Store
	registry *prometheus.Registry
	metrics  *metrics.Collector

	sessions *repository.SQLSessionRepo
	auth     *auth.Service
	gallery  *gallery.Service
	uploads  *upload.Service
}

// openStore はDATABASE_URLからストアを構築する。
// URLが空の場合はストア未構成のStoreを返し、読み取りは空の結果に縮退する。
// 起動時に接続できなくてもエラーにはせず、各操作がSTORE_UNAVAILABLEを返す。
func openStore(ctx context.Context, cfg *config.Config) (*database.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("DATABASE_URL is not set; running without a store")
		return database.NewStore(nil, "", cfg.StoreTimeout), nil
	}

	db, dialect, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	store := database.NewStore(db, dialect, cfg.StoreTimeout)

	if err := store.PingContext(ctx); err != nil {
		slog.Warn("database is not reachable at startup",
			slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
			slog.String("error", err.Error()),
		)
		return store, nil
	}

	// SQLiteは単一ファイルで別プロセスのmigrateを挟まないため起動時に適用する
	if dialect == database.DialectSQLite {
		if err := database.Migrate(db, dialect); err != nil {
			store.Close()
			return nil, err
		}
	}

	slog.Info("database connection established", slog.String("dialect", string(dialect)))
	return store, nil
}

// buildComponents はストア・画像ストレージ・メトリクス・サービスを組み立てる。
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	images, err := storage.Open(ctx, cfg.ImageStorage)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open image storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	sessions := repository.NewSQLSessionRepo(store)
	oauthProvider := auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	})
	authService := auth.NewService(
		oauthProvider,
		repository.NewSQLAccountRepo(store),
		sessions,
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge, OwnerOpenID: cfg.OwnerOpenID},
	)

	uploads := upload.NewService(images, cfg.UploadMaxSize, collector, slog.Default())
	if cfg.RemoteImportEnabled {
		uploads.EnableRemoteImport(security.NewSSRFGuard(), cfg.RemoteImportTimeout)
	}

	galleryService := gallery.NewService(gallery.SQLRepositories(store), gallery.ServiceConfig{
		Metrics: collector,
		Logger:  slog.Default(),
	})

	return &components{
		store:    store,
		images:   images,
		registry: registry,
		metrics:  collector,
		sessions: sessions,
		auth:     authService,
		gallery:  galleryService,
		uploads:  uploads,
	}, nil
}

// Close はストアの接続を閉じる。
func (c *components) Close() error {
	return c.store.Close()
}

// newRouter はコンポーネントからHTTPルーターを構築する。
func newRouter(cfg *config.Config, c *components, rl *middleware.RateLimiter) http.Handler {
	deps := &handler.RouterDeps{
		AccountResolver:   c.auth,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		RateLimiter: rl,
		Logger:      slog.Default(),
		Metrics:     c.metrics,

		HealthChecker:  c.store,
		MetricsHandler: metrics.Handler(c.registry),

		AuthService: c.auth,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		Catalog:   c.gallery,
		Photos:    c.gallery,
		Uploader:  c.uploads,
		Discarder: c.uploads,
	}

	// ファイルシステムドライバの画像はAPIサーバー自身が配信する
	if fs, ok := c.images.(*storage.FilesystemStore); ok {
		deps.ImageFiles = http.FileServer(http.Dir(fs.Root()))
		deps.ImagePath = imagePath(cfg.ImageStorage.PublicBaseURL)
	}

	return handler.NewRouter(deps)
}

// imagePath は公開ベースURLのパス部分を返す。取り出せない場合は既定のパスを使う。
func imagePath(publicBaseURL string) string {
	u, err := url.Parse(publicBaseURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return config.DefaultImagePath
	}
	return "/" + trimSlashes(u.Path)
}

func trimSlashes(s string) string {
	for len(s) > 0 && s[0] == '/' {
		s = s[1:]
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
