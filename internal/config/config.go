// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/railgallery/internal/storage"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	// DatabaseURLが空の場合、ストア未構成として起動し読み取りは空の結果に縮退する
	DatabaseURL  string
	StoreTimeout time.Duration

	// OAuth
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// OwnerOpenID と一致するアカウントはサインイン時に管理者になる
	OwnerOpenID string

	// Session
	SessionMaxAge          int
	SessionCleanupInterval time.Duration

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral int
	RateLimitUpload  int

	// Upload / Image storage
	UploadMaxSize int64
	ImageStorage  storage.Config

	// URLからの画像取り込み（POST /api/uploads/remote）。外部への通信が必要なため既定は無効
	RemoteImportEnabled bool
	RemoteImportTimeout time.Duration

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string
	required := func(key string) string {
		v := os.Getenv(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg.GoogleClientID = required("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = required("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = required("GOOGLE_REDIRECT_URL")
	cfg.BaseURL = required("BASE_URL")

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.StoreTimeout = getEnvDuration("STORE_TIMEOUT", 5*time.Second)
	cfg.OwnerOpenID = getEnvString("OWNER_OPEN_ID", "")
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitUpload = getEnvInt("RATE_LIMIT_UPLOAD", 20)
	cfg.UploadMaxSize = getEnvInt64("UPLOAD_MAX_SIZE", 10<<20)
	cfg.RemoteImportEnabled = getEnvBool("REMOTE_IMPORT_ENABLED", false)
	cfg.RemoteImportTimeout = getEnvDuration("REMOTE_IMPORT_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	cfg.ImageStorage = storage.Config{
		Driver:        storage.Driver(getEnvString("IMAGE_STORAGE_DRIVER", string(storage.DriverFilesystem))),
		FSRoot:        getEnvString("IMAGE_FS_ROOT", "./imagedata"),
		PublicBaseURL: getEnvString("IMAGE_PUBLIC_BASE_URL", strings.TrimRight(cfg.BaseURL, "/")+DefaultImagePath),
		S3: storage.S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("S3_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
	}

	switch cfg.ImageStorage.Driver {
	case storage.DriverFilesystem, storage.DriverS3, storage.DriverMemory:
	default:
		return nil, fmt.Errorf("IMAGE_STORAGE_DRIVER must be one of fs, s3, memory: %q", cfg.ImageStorage.Driver)
	}
	if cfg.ImageStorage.Driver == storage.DriverS3 && cfg.ImageStorage.S3.Bucket == "" {
		return nil, fmt.Errorf("S3_BUCKET is required when IMAGE_STORAGE_DRIVER=s3")
	}

	return cfg, nil
}

// DefaultImagePath はファイルシステムドライバの画像を配信するパス。
const DefaultImagePath = "/images"

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
