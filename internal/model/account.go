package model

import "time"

// Role はアカウントの権限区分を表す。
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// IsValid はロールが既知の値かどうかを返す。
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Account はサインイン済みの利用者を表す。
// OpenIDは外部IdPが発行する識別子で、一意性が保証される。
type Account struct {
	ID           int64
	OpenID       string
	Name         string
	Email        string
	LoginMethod  string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastSignedIn time.Time
}

// AccountUpsert はサインイン時のアカウント登録・更新内容。
// 空文字のフィールドは既存値を上書きしない。
// Roleが空の場合、新規作成時はRoleUser、更新時は既存値を維持する。
type AccountUpsert struct {
	OpenID       string
	Name         string
	Email        string
	LoginMethod  string
	Role         Role
	LastSignedIn time.Time
}

// Session はアカウントのログインセッションを表す。
type Session struct {
	ID        string
	AccountID int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
