// Package auth はOAuthによるサインイン、アカウント登録、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/repository"
)

// ErrSessionNotFound はセッションが存在しないか期限切れであることを示す。
var ErrSessionNotFound = errors.New("session not found or expired")

// ExternalIdentity は外部IdPから取得した利用者の情報。
type ExternalIdentity struct {
	OpenID      string
	Name        string
	Email       string
	LoginMethod string
}

// IdentityProvider は外部IdPのインターフェース。
type IdentityProvider interface {
	// GetLoginURL は認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードを外部IDに交換する。
	ExchangeCode(ctx context.Context, code string) (*ExternalIdentity, error)
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int    // セッション有効期間（秒）
	OwnerOpenID   string // このopenIdでサインインしたアカウントは管理者になる
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	idp         IdentityProvider
	accountRepo repository.AccountRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	now         func() time.Time
}

// NewService はServiceを生成する。
func NewService(
	idp IdentityProvider,
	accountRepo repository.AccountRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		idp:         idp,
		accountRepo: accountRepo,
		sessionRepo: sessionRepo,
		config:      config,
		now:         time.Now,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.idp.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、アカウントを登録・更新してセッションを発行する。
// ロールは新規作成時のみ決定し、既存アカウントのロールは変更しない。
// ただしOWNER_OPEN_IDに一致するアカウントは常に管理者になる。
func (s *Service) HandleCallback(ctx context.Context, code string) (*model.Session, *model.Account, error) {
	ident, err := s.idp.ExchangeCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	upsert := model.AccountUpsert{
		OpenID:       ident.OpenID,
		Name:         ident.Name,
		Email:        ident.Email,
		LoginMethod:  ident.LoginMethod,
		LastSignedIn: s.now(),
	}
	if s.config.OwnerOpenID != "" && ident.OpenID == s.config.OwnerOpenID {
		upsert.Role = model.RoleAdmin
	}

	account, err := s.accountRepo.Upsert(ctx, upsert)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	session, err := s.createSession(ctx, account.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.InfoContext(ctx, "account signed in",
		slog.Int64("account_id", account.ID),
		slog.String("login_method", account.LoginMethod),
		slog.String("role", string(account.Role)),
	)
	return session, account, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.InfoContext(ctx, "account logged out")
	return nil
}

// GetCurrentAccount はセッションから現在のアカウントを取得する。
// セッションが無効な場合はErrSessionNotFoundを返す。
func (s *Service) GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}

	account, err := s.accountRepo.FindByID(ctx, session.AccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	if account == nil {
		return nil, ErrSessionNotFound
	}
	return account, nil
}

// EnsureAccount はopenIdのアカウントを作成または更新する。
// サインインを経由しない処理（シードの投入など）で操作者のアカウントを用意するために使う。
func (s *Service) EnsureAccount(ctx context.Context, openID, name string, role model.Role) (*model.Account, error) {
	if openID == "" {
		return nil, model.NewValidationError("openId", "必須です")
	}
	account, err := s.accountRepo.Upsert(ctx, model.AccountUpsert{
		OpenID:       openID,
		Name:         name,
		LoginMethod:  "local",
		Role:         role,
		LastSignedIn: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure account %s: %w", openID, err)
	}
	return account, nil
}

func (s *Service) createSession(ctx context.Context, accountID int64) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		AccountID: accountID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
