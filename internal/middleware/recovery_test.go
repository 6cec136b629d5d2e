package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRecoveryMiddleware_PanicBecomesInternalError(t *testing.T) {
	counter := &statusCounter{}
	handler := NewRecoveryMiddleware(counter)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/companies", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if len(counter.statuses) != 1 || counter.statuses[0] != http.StatusInternalServerError {
		t.Errorf("recorded statuses = %v, want [500]", counter.statuses)
	}
}

func TestRecoveryMiddleware_NoPanic(t *testing.T) {
	counter := &statusCounter{}
	handler := NewRecoveryMiddleware(counter)(okHandler())

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if len(counter.statuses) != 0 {
		t.Errorf("recorded statuses = %v, want none", counter.statuses)
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	handler := NewSecurityHeadersMiddleware("/images")(okHandler())

	tests := []struct {
		path     string
		wantCORP string
	}{
		{"/api/companies", "same-site"},
		{"/images/photos/1/a.png", "cross-origin"},
		{"/imagesx/a.png", "same-site"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))

		if got := w.Header().Get("Cross-Origin-Resource-Policy"); got != tt.wantCORP {
			t.Errorf("%s: Cross-Origin-Resource-Policy = %q, want %q", tt.path, got, tt.wantCORP)
		}
		if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
			t.Errorf("%s: X-Content-Type-Options = %q", tt.path, got)
		}
		if got := w.Header().Get("Content-Security-Policy"); got == "" {
			t.Errorf("%s: Content-Security-Policy missing", tt.path)
		}
	}
}
