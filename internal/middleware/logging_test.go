package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/railgallery/internal/metrics"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

type statusCounter struct {
	metrics.Nop
	statuses []int
}

func (s *statusCounter) RecordHTTPStatus(code int) { s.statuses = append(s.statuses, code) }

// serveLogged はLoggingMiddlewareを通してリクエストを処理し、JSONログ1行を返す。
func serveLogged(t *testing.T, collector metrics.MetricsCollector, req *http.Request, h http.HandlerFunc) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	w := httptest.NewRecorder()
	NewLoggingMiddleware(logger, collector)(h).ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse JSON log: %v\nraw: %s", err, buf.String())
	}
	return entry, w
}

func TestLoggingMiddleware_LogsRequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/companies", nil)
	entry, w := serveLogged(t, nil, req, func(w http.ResponseWriter, r *http.Request) {
		if RequestIDFromContext(r.Context()) == "" {
			t.Error("request id should be in context")
		}
		w.WriteHeader(http.StatusOK)
	})

	if entry["msg"] != "http_request" || entry["method"] != "GET" || entry["path"] != "/api/companies" {
		t.Errorf("entry = %v", entry)
	}
	if status, _ := entry["status"].(float64); status != 200 {
		t.Errorf("status = %v, want 200", entry["status"])
	}
	if d, ok := entry["duration_ms"].(float64); !ok || d < 0 {
		t.Errorf("duration_ms = %v", entry["duration_ms"])
	}
	id, _ := entry["request_id"].(string)
	if id == "" || w.Header().Get(RequestIDHeader) != id {
		t.Errorf("request_id = %q, header = %q", id, w.Header().Get(RequestIDHeader))
	}
	if _, ok := entry["account_id"]; ok {
		t.Error("anonymous request should not log account_id")
	}
}

func TestLoggingMiddleware_KeepsIncomingRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-abc")

	entry, w := serveLogged(t, nil, req, func(w http.ResponseWriter, r *http.Request) {})

	if entry["request_id"] != "req-abc" || w.Header().Get(RequestIDHeader) != "req-abc" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}

func TestLoggingMiddleware_IncludesAccountID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/photos", nil)
	req = req.WithContext(ContextWithActor(req.Context(), policy.Actor{AccountID: 42, Role: model.RoleUser}))

	entry, _ := serveLogged(t, nil, req, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})

	if id, _ := entry["account_id"].(float64); id != 42 {
		t.Errorf("account_id = %v, want 42", entry["account_id"])
	}
}

func TestLoggingMiddleware_LevelAndMetricsByStatus(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel string
	}{
		{"write body only", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok")) }, 200, "INFO"},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) }, 403, "WARN"},
		{"store unavailable", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) }, 503, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := &statusCounter{}
			req := httptest.NewRequest(http.MethodGet, "/api/test", nil)

			entry, _ := serveLogged(t, collector, req, tt.handler)

			if status, _ := entry["status"].(float64); int(status) != tt.wantCode {
				t.Errorf("status = %v, want %d", entry["status"], tt.wantCode)
			}
			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %s", entry["level"], tt.wantLevel)
			}
			if len(collector.statuses) != 1 || collector.statuses[0] != tt.wantCode {
				t.Errorf("recorded statuses = %v", collector.statuses)
			}
		})
	}
}
