package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/railgallery/internal/model"
)

// newTestRouter はサーバーと同じ順序でミドルウェアを組んだchi.Routerを返す。
func newTestRouter(t *testing.T, logs *bytes.Buffer) http.Handler {
	t.Helper()

	resolver := sessionsOf(map[string]*model.Account{
		"router-session": {ID: 11, Role: model.RoleUser},
	})
	csrfConfig := CSRFConfig{}
	rl := NewRateLimiter(DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	r := chi.NewRouter()
	r.Use(NewRecoveryMiddleware(nil))
	r.Use(NewSecurityHeadersMiddleware(""))
	r.Use(NewActorMiddleware(resolver))
	r.Use(NewLoggingMiddleware(slog.New(slog.NewJSONHandler(logs, nil)), nil))

	r.Get("/api/csrf-token", NewCSRFTokenHandler(csrfConfig).ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(rl.GeneralMiddleware())
		r.Use(NewCSRFMiddleware(csrfConfig))

		whoami := func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]int64{"accountId": ActorFromContext(r.Context()).AccountID})
		}
		r.Get("/api/whoami", whoami)
		r.Post("/api/action", whoami)
		r.Get("/api/panic", func(http.ResponseWriter, *http.Request) { panic("boom") })
	})
	return r
}

func TestRouterIntegration_MiddlewareChain(t *testing.T) {
	var logs bytes.Buffer
	r := newTestRouter(t, &logs)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}
	accountOf := func(t *testing.T, w *httptest.ResponseRecorder) int64 {
		t.Helper()
		var body map[string]int64
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		return body["accountId"]
	}

	t.Run("anonymous GET passes", func(t *testing.T) {
		w := serve(httptest.NewRequest(http.MethodGet, "/api/whoami", nil))
		if w.Code != http.StatusOK || accountOf(t, w) != 0 {
			t.Errorf("status = %d", w.Code)
		}
		if w.Header().Get("X-Content-Type-Options") != "nosniff" {
			t.Error("security headers missing")
		}
	})

	t.Run("session GET resolves account", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "router-session"})
		w := serve(req)
		if got := accountOf(t, w); got != 11 {
			t.Errorf("accountId = %d, want 11", got)
		}
	})

	t.Run("POST with csrf token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/action", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "router-session"})
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: "tok"})
		req.Header.Set(csrfHeaderName, "tok")
		w := serve(req)
		if w.Code != http.StatusOK || accountOf(t, w) != 11 {
			t.Errorf("status = %d", w.Code)
		}
	})

	t.Run("POST without csrf token is forbidden", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/action", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "router-session"})
		w := serve(req)
		if w.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", w.Code)
		}
		var body ErrorResponseBody
		json.NewDecoder(w.Body).Decode(&body)
		if body.Code != model.ErrCodeForbidden {
			t.Errorf("code = %q", body.Code)
		}
	})

	t.Run("panic becomes 500", func(t *testing.T) {
		w := serve(httptest.NewRequest(http.MethodGet, "/api/panic", nil))
		if w.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", w.Code)
		}
	})

	t.Run("csrf token endpoint", func(t *testing.T) {
		w := serve(httptest.NewRequest(http.MethodGet, "/api/csrf-token", nil))
		var body struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil || body.Token == "" {
			t.Errorf("token = %q, err = %v", body.Token, err)
		}
	})

	if !bytes.Contains(logs.Bytes(), []byte(`"account_id":11`)) {
		t.Errorf("request log should contain account_id: %s", logs.String())
	}
}
