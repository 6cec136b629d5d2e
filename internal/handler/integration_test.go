package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/hitoshi/railgallery/internal/auth"
	"github.com/hitoshi/railgallery/internal/database/dbtest"
	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/repository"
	"github.com/hitoshi/railgallery/internal/storage"
	"github.com/hitoshi/railgallery/internal/upload"
)

const testCSRFToken = "integration-csrf-token"

// pngHeader はhttp.DetectContentTypeがimage/pngと判定する最小のバイト列。
var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// galleryEnv は実サービスをSQLiteストアで組み立てた統合テスト環境。
type galleryEnv struct {
	router http.Handler
	images *storage.MemoryStore
}

func newGalleryEnv(t *testing.T) *galleryEnv {
	t.Helper()
	store := dbtest.NewSQLiteStore(t)
	ctx := context.Background()

	accounts := repository.NewSQLAccountRepo(store)
	sessions := map[string]*model.Account{}
	for session, in := range map[string]model.AccountUpsert{
		"admin-session": {OpenID: "google-admin", Name: "管理者", Role: model.RoleAdmin},
		"alice-session": {OpenID: "google-alice", Name: "Alice"},
		"bob-session":   {OpenID: "google-bob", Name: "Bob"},
	} {
		a, err := accounts.Upsert(ctx, in)
		if err != nil {
			t.Fatalf("Upsert(%s) returned error: %v", in.OpenID, err)
		}
		sessions[session] = a
	}

	authSvc := &mockAuthService{
		getCurrentAccountFn: func(ctx context.Context, sessionID string) (*model.Account, error) {
			if a, ok := sessions[sessionID]; ok {
				return a, nil
			}
			return nil, auth.ErrSessionNotFound
		},
	}

	svc := gallery.NewService(gallery.SQLRepositories(store), gallery.ServiceConfig{})
	images := storage.NewMemory("https://img.example.com")
	uploads := upload.NewService(images, 1<<20, nil, nil)

	router := NewRouter(&RouterDeps{
		AccountResolver:   authSvc,
		CORSAllowedOrigin: "http://localhost:3000",
		HealthChecker:     store,
		AuthService:       authSvc,
		AuthConfig:        AuthHandlerConfig{BaseURL: "http://localhost:3000"},
		Catalog:           svc,
		Photos:            svc,
		Uploader:          uploads,
		Discarder:         uploads,
	})
	return &galleryEnv{router: router, images: images}
}

// do はセッションとCSRFトークンを付けてリクエストを送る。
func (e *galleryEnv) do(t *testing.T, method, path, session string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(req, session)
}

func (e *galleryEnv) send(req *http.Request, session string) *httptest.ResponseRecorder {
	if session != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: session})
	}
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	req.Header.Set("X-CSRF-Token", testCSRFToken)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// create は作成系エンドポイントを呼び出し、作成されたIDを返す。
func (e *galleryEnv) create(t *testing.T, path, session string, body any) int64 {
	t.Helper()
	w := e.do(t, http.MethodPost, path, session, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("POST %s status = %d, want %d, body = %s", path, w.Code, http.StatusCreated, w.Body.String())
	}
	var resp idResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode id response: %v", err)
	}
	return resp.ID
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}

func TestIntegration_CatalogAndPhotoFlow(t *testing.T) {
	env := newGalleryEnv(t)

	// 管理者がカタログを構築する
	companyID := env.create(t, "/api/companies", "admin-session", map[string]any{
		"name": "JR East", "nameJa": "JR東日本",
	})
	trainTypeID := env.create(t, "/api/train-types", "admin-session", map[string]any{
		"companyId": companyID, "name": "E235系",
	})
	formationID := env.create(t, "/api/formations", "admin-session", map[string]any{
		"trainTypeId": trainTypeID, "name": "トウ01",
	})

	// 一般ユーザーはカタログを変更できない
	w := env.do(t, http.MethodPost, "/api/companies", "alice-session", map[string]any{"name": "X", "nameJa": "X"})
	expectStatus(t, w, http.StatusForbidden)

	// 匿名でも閲覧できる
	w = env.do(t, http.MethodGet, "/api/companies", "", nil)
	expectStatus(t, w, http.StatusOK)
	var companies []companyResponse
	json.NewDecoder(w.Body).Decode(&companies)
	if len(companies) != 1 || companies[0].NameJa != "JR東日本" {
		t.Fatalf("companies = %+v", companies)
	}

	// アップロードして写真を投稿する
	up := env.upload(t, "alice-session", pngHeader)
	if !strings.HasPrefix(up.ImageKey, "photos/") || !strings.HasSuffix(up.ImageKey, ".png") {
		t.Fatalf("imageKey = %q", up.ImageKey)
	}
	photoID := env.create(t, "/api/photos", "alice-session", map[string]any{
		"formationId":  formationID,
		"imageUrl":     up.ImageURL,
		"imageKey":     up.ImageKey,
		"thumbnailUrl": up.ThumbnailURL,
		"title":        "朝の通勤 & 回送",
		"shootDate":    "2024-05-01",
	})

	w = env.do(t, http.MethodGet, "/api/photos/"+itoa(photoID), "", nil)
	expectStatus(t, w, http.StatusOK)
	var photo photoResponse
	json.NewDecoder(w.Body).Decode(&photo)
	if photo.Title == nil || *photo.Title != "朝の通勤 & 回送" {
		t.Errorf("title should be stored as sent, got %v", photo.Title)
	}

	// マークアップを含むタイトルは保存せず400
	w = env.do(t, http.MethodPatch, "/api/photos/"+itoa(photoID), "alice-session", map[string]any{"title": "<b>朝</b>"})
	expectStatus(t, w, http.StatusBadRequest)

	// 他人の写真は管理者でも編集できない
	w = env.do(t, http.MethodPatch, "/api/photos/"+itoa(photoID), "bob-session", map[string]any{"title": "x"})
	expectStatus(t, w, http.StatusForbidden)
	w = env.do(t, http.MethodPatch, "/api/photos/"+itoa(photoID), "admin-session", map[string]any{"title": "x"})
	expectStatus(t, w, http.StatusForbidden)
	w = env.do(t, http.MethodPatch, "/api/photos/"+itoa(photoID), "alice-session", map[string]any{"location": "品川"})
	expectStatus(t, w, http.StatusOK)

	// 写真から会社までの階層
	w = env.do(t, http.MethodGet, "/api/photos/"+itoa(photoID)+"/hierarchy", "", nil)
	expectStatus(t, w, http.StatusOK)
	var h hierarchyResponse
	json.NewDecoder(w.Body).Decode(&h)
	if h.Photo == nil || h.Formation.ID != formationID || h.TrainType.ID != trainTypeID || h.Company.ID != companyID {
		t.Errorf("hierarchy = %+v", h)
	}

	// 自分の写真一覧
	w = env.do(t, http.MethodGet, "/api/me/photos", "alice-session", nil)
	expectStatus(t, w, http.StatusOK)
	var mine []photoResponse
	json.NewDecoder(w.Body).Decode(&mine)
	if len(mine) != 1 {
		t.Errorf("my photos = %d, want 1", len(mine))
	}
	w = env.do(t, http.MethodGet, "/api/me/photos", "", nil)
	expectStatus(t, w, http.StatusUnauthorized)

	// 子要素がある会社は削除できない
	w = env.do(t, http.MethodDelete, "/api/companies/"+itoa(companyID), "admin-session", nil)
	expectStatus(t, w, http.StatusConflict)

	// 写真を削除するとアップロード画像も削除される
	if env.images.Len() != 1 {
		t.Fatalf("stored images = %d, want 1", env.images.Len())
	}
	w = env.do(t, http.MethodDelete, "/api/photos/"+itoa(photoID), "alice-session", nil)
	expectStatus(t, w, http.StatusOK)
	if env.images.Len() != 0 {
		t.Errorf("stored images after delete = %d, want 0", env.images.Len())
	}

	w = env.do(t, http.MethodGet, "/api/photos/"+itoa(photoID), "", nil)
	expectStatus(t, w, http.StatusNotFound)
}

func TestIntegration_AnonymousWritesRejected(t *testing.T) {
	env := newGalleryEnv(t)

	tests := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, "/api/companies", map[string]any{"name": "X", "nameJa": "X"}},
		{http.MethodPatch, "/api/companies/1", map[string]any{"name": "Y"}},
		{http.MethodDelete, "/api/formations/1", nil},
		{http.MethodPost, "/api/photos", map[string]any{"formationId": 1, "imageUrl": "https://x/a.jpg", "imageKey": "a.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(t, tt.method, tt.path, "", tt.body)
			expectStatus(t, w, http.StatusUnauthorized)
			if code := decodeError(t, w); code != model.ErrCodeUnauthenticated {
				t.Errorf("code = %q, want %q", code, model.ErrCodeUnauthenticated)
			}
		})
	}
}

func TestIntegration_WritesRequireCSRF(t *testing.T) {
	env := newGalleryEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/api/companies", strings.NewReader(`{"name":"X","nameJa":"X"}`))
	req.AddCookie(&http.Cookie{Name: "session_id", Value: "admin-session"})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	expectStatus(t, w, http.StatusForbidden)
}

func TestIntegration_HealthAndUnknownRoute(t *testing.T) {
	env := newGalleryEnv(t)

	w := env.do(t, http.MethodGet, "/health", "", nil)
	expectStatus(t, w, http.StatusOK)
	var health healthResponse
	json.NewDecoder(w.Body).Decode(&health)
	if health.Store != "ok" {
		t.Errorf("store = %q, want ok", health.Store)
	}

	w = env.do(t, http.MethodGet, "/api/unknown", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

// upload は画像をmultipartでアップロードし、結果を返す。
func (e *galleryEnv) upload(t *testing.T, session string, content []byte) uploadResponse {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "photo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := e.send(req, session)
	expectStatus(t, w, http.StatusCreated)

	var resp uploadResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode upload response: %v", err)
	}
	return resp
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
