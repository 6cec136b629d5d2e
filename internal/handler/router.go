package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/railgallery/internal/metrics"
	"github.com/hitoshi/railgallery/internal/middleware"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	AccountResolver   middleware.AccountResolver
	CORSAllowedOrigin string
	CSRFConfig        middleware.CSRFConfig
	RateLimiter       *middleware.RateLimiter
	Logger            *slog.Logger
	Metrics           metrics.MetricsCollector

	// 運用エンドポイント
	HealthChecker  HealthChecker
	MetricsHandler http.Handler // nilなら /metrics を公開しない
	ImageFiles     http.Handler // nilなら /images/* を公開しない（ファイルシステム以外のストレージ）
	ImagePath      string       // ImageFilesを公開するパス接頭辞

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// ギャラリー
	Catalog  CatalogService
	Photos   PhotoService
	Uploader Uploader
	// Discarderがnilでなければ写真削除時にアップロード済み画像も削除する
	Discarder ImageDiscarder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Actor → Logging → RateLimit(General) → CSRF
//
// 認証ルート（/auth/*）と運用エンドポイントはレート制限とCSRF検証の外に配置する。
// 匿名のリクエストもAPIまで到達し、拒否はサービス層のアクセス制御が行う。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(deps.Metrics))
	r.Use(middleware.NewSecurityHeadersMiddleware(deps.ImagePath))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewActorMiddleware(deps.AccountResolver))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	catalog := NewCatalogHandler(deps.Catalog)
	photos := NewPhotoHandler(deps.Photos, deps.Discarder)
	uploads := NewUploadHandler(deps.Uploader)

	// --- 運用エンドポイント ---
	r.Method(http.MethodGet, "/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
	if deps.ImageFiles != nil && deps.ImagePath != "" {
		r.Method(http.MethodGet, deps.ImagePath+"/*", http.StripPrefix(deps.ImagePath, deps.ImageFiles))
	}

	// --- 認証ルート（OAuthフロー） ---
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// --- API ---
	r.Route("/api", func(r chi.Router) {
		r.Get("/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig).ServeHTTP)

		r.Group(func(r chi.Router) {
			if deps.RateLimiter != nil {
				r.Use(deps.RateLimiter.GeneralMiddleware())
			}
			r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

			r.Route("/companies", func(r chi.Router) {
				r.Get("/", catalog.ListCompanies)
				r.Post("/", catalog.CreateCompany)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", catalog.GetCompany)
					r.Patch("/", catalog.UpdateCompany)
					r.Delete("/", catalog.DeleteCompany)
					r.Get("/train-types", catalog.ListTrainTypes)
				})
			})

			r.Route("/train-types", func(r chi.Router) {
				r.Post("/", catalog.CreateTrainType)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", catalog.GetTrainType)
					r.Patch("/", catalog.UpdateTrainType)
					r.Delete("/", catalog.DeleteTrainType)
					r.Get("/formations", catalog.ListFormations)
				})
			})

			r.Route("/formations", func(r chi.Router) {
				r.Post("/", catalog.CreateFormation)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", catalog.GetFormation)
					r.Patch("/", catalog.UpdateFormation)
					r.Delete("/", catalog.DeleteFormation)
					r.Get("/hierarchy", catalog.FormationHierarchy)
					r.Get("/photos", photos.ListPhotos)
				})
			})

			r.Route("/photos", func(r chi.Router) {
				r.Post("/", photos.CreatePhoto)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", photos.GetPhoto)
					r.Patch("/", photos.UpdatePhoto)
					r.Delete("/", photos.DeletePhoto)
					r.Get("/hierarchy", photos.PhotoHierarchy)
				})
			})

			r.Get("/me/photos", photos.ListMyPhotos)

			// POST /api/uploads, /api/uploads/remote（アップロード専用レート制限を追加）
			r.Group(func(r chi.Router) {
				if deps.RateLimiter != nil {
					r.Use(deps.RateLimiter.UploadMiddleware())
				}
				r.Post("/uploads", uploads.Upload)
				r.Post("/uploads/remote", uploads.Import)
			})
		})
	})

	return r
}
