package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/railgallery/internal/config"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/storage"
)

func setTestEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CLIENT_ID", "test-client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "test-client-secret")
	t.Setenv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/google/callback")
	t.Setenv("BASE_URL", "http://localhost:8080")
}

func testConfig(t *testing.T, databaseURL string) *config.Config {
	t.Helper()
	return &config.Config{
		DatabaseURL:        databaseURL,
		StoreTimeout:       5 * time.Second,
		GoogleClientID:     "test-client-id",
		GoogleClientSecret: "test-client-secret",
		GoogleRedirectURL:  "http://localhost:8080/auth/google/callback",
		SessionMaxAge:      3600,
		RateLimitGeneral:   600,
		RateLimitUpload:    60,
		UploadMaxSize:      1 << 20,
		ImageStorage: storage.Config{
			Driver:        storage.DriverMemory,
			PublicBaseURL: "http://localhost:8080/images",
		},
		ServerPort:        "8080",
		BaseURL:           "http://localhost:8080",
		CORSAllowedOrigin: "http://localhost:3000",
	}
}

func sqliteURL(t *testing.T) string {
	t.Helper()
	return "sqlite://" + filepath.Join(t.TempDir(), "railgallery.db")
}

func serveRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	c, err := buildComponents(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildComponents returned error: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	rl := middleware.NewRateLimiter(middleware.PerMinuteRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitUpload))
	t.Cleanup(rl.Stop)

	return newRouter(cfg, c, rl)
}

func getHealthStore(t *testing.T, router http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/health status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode health body: %v", err)
	}
	return body["store"]
}

func TestNewRouter_WithSQLiteStore(t *testing.T) {
	router := serveRouter(t, testConfig(t, sqliteURL(t)))

	if got := getHealthStore(t, router); got != "ok" {
		t.Errorf("store = %q, want ok", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/companies status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %s, want []", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output should include the Go runtime collector")
	}
}

func TestNewRouter_WithoutStore(t *testing.T) {
	router := serveRouter(t, testConfig(t, ""))

	if got := getHealthStore(t, router); got != "unconfigured" {
		t.Errorf("store = %q, want unconfigured", got)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/companies status = %d, want 200 (degraded read)", rec.Code)
	}
}

func TestNewRouter_FilesystemImagesAreServed(t *testing.T) {
	cfg := testConfig(t, sqliteURL(t))
	root := t.TempDir()
	cfg.ImageStorage = storage.Config{
		Driver:        storage.DriverFilesystem,
		FSRoot:        root,
		PublicBaseURL: "http://localhost:8080/media/",
	}
	if err := os.MkdirAll(filepath.Join(root, "photos", "1"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "photos", "1", "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	router := serveRouter(t, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/photos/1/a.txt", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hello" {
		t.Errorf("body = %q, want hello", rec.Body.String())
	}
}

func TestBuildComponents_InvalidDatabaseURL(t *testing.T) {
	if _, err := buildComponents(context.Background(), testConfig(t, "mysql://localhost/db")); err == nil {
		t.Fatal("expected error for unsupported database URL")
	}
}

func TestRunMigrate(t *testing.T) {
	if err := runMigrate(testConfig(t, sqliteURL(t))); err != nil {
		t.Fatalf("runMigrate returned error: %v", err)
	}
	if err := runMigrate(testConfig(t, "")); err == nil {
		t.Fatal("runMigrate without DATABASE_URL should fail")
	}
}

func TestRunSeed(t *testing.T) {
	dbURL := sqliteURL(t)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	data := "companies:\n  - name: Tokyu\n    nameJa: 東急電鉄\n    trainTypes:\n      - name: 5000系\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runSeed(context.Background(), testConfig(t, dbURL), path); err != nil {
		t.Fatalf("runSeed returned error: %v", err)
	}

	router := serveRouter(t, testConfig(t, dbURL))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies", nil))
	if !strings.Contains(rec.Body.String(), "東急電鉄") {
		t.Errorf("seeded company not listed: %s", rec.Body.String())
	}

	if err := runSeed(context.Background(), testConfig(t, ""), path); err == nil {
		t.Error("runSeed without DATABASE_URL should fail")
	}
	if err := runSeed(context.Background(), testConfig(t, dbURL), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("runSeed with a missing file should fail")
	}
}

func TestRun_WithMissingEnv_ReturnsError(t *testing.T) {
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_REDIRECT_URL", "")
	t.Setenv("BASE_URL", "")

	var buf bytes.Buffer
	if err := Run(&buf, []string{"serve"}); err == nil {
		t.Fatal("Run with missing env should return error")
	}
}

func TestRun_SeedWithoutFile_ReturnsError(t *testing.T) {
	setTestEnv(t)

	var buf bytes.Buffer
	err := Run(&buf, []string{"seed"})
	if err == nil || !strings.Contains(err.Error(), "usage") {
		t.Fatalf("err = %v, want usage error", err)
	}
}

func TestRun_MigrateWithSQLite(t *testing.T) {
	setTestEnv(t)
	t.Setenv("DATABASE_URL", sqliteURL(t))

	var buf bytes.Buffer
	if err := Run(&buf, []string{"migrate"}); err != nil {
		t.Fatalf("Run(migrate) returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "database migrations completed successfully") {
		t.Errorf("log output missing completion message: %s", buf.String())
	}
}

func TestRunHealthcheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("url.Parse: %v", err)
	}
	_, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}

	if err := runHealthcheck(port); err != nil {
		t.Fatalf("runHealthcheck returned error: %v", err)
	}
}

func TestRunHealthcheck_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	_, port, _ := net.SplitHostPort(u.Host)

	if err := runHealthcheck(port); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestMaskDatabaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"postgres://user:secret@db:5432/railgallery", "postgres://user:xxxxx@db:5432/railgallery"},
		{"sqlite:///var/lib/railgallery/data.db", "sqlite:///var/lib/railgallery/data.db"},
		{"://bad", "***"},
	}
	for _, tt := range tests {
		if got := maskDatabaseURL(tt.in); got != tt.want {
			t.Errorf("maskDatabaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestImagePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"http://localhost:8080/images", "/images"},
		{"http://localhost:8080/media/", "/media"},
		{"https://cdn.example.com", config.DefaultImagePath},
		{"/static/photos", "/static/photos"},
	}
	for _, tt := range tests {
		if got := imagePath(tt.in); got != tt.want {
			t.Errorf("imagePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildComponents_RemoteImport(t *testing.T) {
	cfg := testConfig(t, "")
	c, err := buildComponents(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildComponents returned error: %v", err)
	}
	if c.uploads.RemoteImportEnabled() {
		t.Error("remote import should be disabled unless configured")
	}

	cfg.RemoteImportEnabled = true
	cfg.RemoteImportTimeout = time.Second
	c, err = buildComponents(context.Background(), cfg)
	if err != nil {
		t.Fatalf("buildComponents returned error: %v", err)
	}
	if !c.uploads.RemoteImportEnabled() {
		t.Error("remote import should be enabled")
	}
}
