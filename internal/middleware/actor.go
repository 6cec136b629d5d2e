// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/railgallery/internal/auth"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

// SessionCookieName はセッションIDを保持するCookieの名前。
const SessionCookieName = "session_id"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	actorContextKey     = contextKey("actor")
	requestIDContextKey = contextKey("request_id")
)

// AccountResolver はセッションIDから現在のアカウントを解決する。
// auth.Serviceが実装する。
type AccountResolver interface {
	GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error)
}

// NewActorMiddleware はセッションCookieから呼び出し元を解決し、コンテキストに注入する。
// Cookieがない・無効・期限切れの場合やストアに到達できない場合は匿名として扱い、
// リクエストを拒否しない。拒否はAPI操作側のアクセス制御で行う。
func NewActorMiddleware(resolver AccountResolver) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := policy.Anonymous()

			if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
				account, err := resolver.GetCurrentAccount(r.Context(), cookie.Value)
				switch {
				case err == nil:
					actor = policy.ActorFromAccount(account)
				case errors.Is(err, auth.ErrSessionNotFound):
				default:
					slog.WarnContext(r.Context(), "failed to resolve session, continuing as anonymous",
						slog.String("error", err.Error()),
					)
				}
			}

			next.ServeHTTP(w, r.WithContext(ContextWithActor(r.Context(), actor)))
		})
	}
}

// ActorFromContext はリクエストコンテキストから呼び出し元を取得する。
// ActorMiddlewareを通過していない場合は匿名を返す。
func ActorFromContext(ctx context.Context) policy.Actor {
	actor, ok := ctx.Value(actorContextKey).(policy.Actor)
	if !ok {
		return policy.Anonymous()
	}
	return actor
}

// ContextWithActor はコンテキストに呼び出し元を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithActor(ctx context.Context, actor policy.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey, actor)
}

// RequestIDFromContext はリクエストIDを取得する。
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey).(string)
	return id
}
