package middleware

import (
	"net/http"
	"strings"
)

// NewSecurityHeadersMiddleware はセキュリティ関連のレスポンスヘッダーを付与するミドルウェアを返す。
// APIの応答はJSONのみのためCSPで全リソースの読み込みを禁止する。
// imagePath配下の画像は別オリジンのフロントエンドから<img>で埋め込めるようにする。
func NewSecurityHeadersMiddleware(imagePath string) func(next http.Handler) http.Handler {
	imagePrefix := ""
	if imagePath != "" {
		imagePrefix = strings.TrimRight(imagePath, "/") + "/"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			if imagePrefix != "" && strings.HasPrefix(r.URL.Path, imagePrefix) {
				h.Set("Cross-Origin-Resource-Policy", "cross-origin")
			} else {
				h.Set("Cross-Origin-Resource-Policy", "same-site")
			}
			next.ServeHTTP(w, r)
		})
	}
}
