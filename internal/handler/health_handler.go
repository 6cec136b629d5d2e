package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はストアの疎通確認を行う。database.Storeが実装する。
type HealthChecker interface {
	Available() bool
	PingContext(ctx context.Context) error
}

type healthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store"`
}

// NewHealthHandler はヘルスチェックエンドポイントのハンドラーを返す。
// ストアに到達できなくても読み取りは縮退動作で応答できるため、常に200を返し、
// ストアの状態は store フィールドで示す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		store := "ok"
		switch {
		case checker == nil || !checker.Available():
			store = "unconfigured"
		default:
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.WarnContext(r.Context(), "store ping failed", slog.String("error", err.Error()))
				store = "unavailable"
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Store: store})
	})
}
