package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/railgallery/internal/auth"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/repository"
)

const oauthStateCookie = "oauth_state"

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	GetLoginURL(state string) string
	HandleCallback(ctx context.Context, code string) (*model.Session, *model.Account, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	BaseURL       string
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はOAuth認証関連のHTTPハンドラー。
type AuthHandler struct {
	service AuthServiceInterface
	config  AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service: service,
		config:  config,
	}
}

// Login はGoogle OAuthフローを開始する。
// GET /auth/google/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to generate oauth state", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	// stateをCookieに保存（CSRF対策）
	h.setCookie(w, oauthStateCookie, state, 600, false)

	http.Redirect(w, r, h.service.GetLoginURL(state), http.StatusTemporaryRedirect)
}

// Callback はOAuthコールバックを処理し、セッションCookieを発行してフロントエンドに戻す。
// GET /auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || state == "" || stateCookie.Value != state {
		slog.WarnContext(r.Context(), "oauth state mismatch")
		middleware.WriteAPIError(w, model.NewValidationError("state", "不正なstateです"))
		return
	}
	h.setCookie(w, oauthStateCookie, "", -1, false)

	code := r.URL.Query().Get("code")
	if code == "" {
		middleware.WriteAPIError(w, model.NewValidationError("code", "認可コードがありません"))
		return
	}

	session, _, err := h.service.HandleCallback(r.Context(), code)
	if err != nil {
		slog.ErrorContext(r.Context(), "oauth callback failed", slog.String("error", err.Error()))
		if errors.Is(err, repository.ErrStoreUnavailable) {
			middleware.WriteAPIError(w, model.NewStoreUnavailableError())
			return
		}
		middleware.WriteErrorResponse(w, http.StatusBadGateway, &model.APIError{
			Code:     model.ErrCodeUnauthenticated,
			Message:  "外部サービスでの認証に失敗しました。",
			Category: "auth",
			Action:   "もう一度ログインしてください。",
		})
		return
	}

	h.setCookie(w, middleware.SessionCookieName, session.ID, h.config.SessionMaxAge, true)

	http.Redirect(w, r, h.config.BaseURL, http.StatusTemporaryRedirect)
}

// Logout はセッションを破棄し、セッションCookieをクリアする。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.service.Logout(r.Context(), cookie.Value); err != nil {
			// 失敗してもCookieはクリアする
			slog.ErrorContext(r.Context(), "failed to logout", slog.String("error", err.Error()))
		}
	}

	h.setCookie(w, middleware.SessionCookieName, "", -1, true)
	writeSuccess(w)
}

// Me は現在のアカウント情報を返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	account, err := h.service.GetCurrentAccount(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, auth.ErrSessionNotFound) {
			slog.ErrorContext(r.Context(), "failed to get current account", slog.String("error", err.Error()))
		}
		middleware.WriteAPIError(w, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, toAccountResponse(account))
}

// setCookie はHTTP OnlyのCookieを設定する。maxAgeが負の場合は削除になる。
func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, maxAge int, withDomain bool) {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if withDomain {
		c.Domain = h.config.CookieDomain
	}
	http.SetCookie(w, c)
}

// generateState はCSRF対策用のランダムなstate値を生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
