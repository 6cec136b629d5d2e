package repository

import (
	"context"
	"time"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

// SQLSessionRepo はdatabase/sqlを使用したセッションリポジトリ。
type SQLSessionRepo struct {
	sqlRepo
	now func() time.Time
}

// NewSQLSessionRepo はSQLSessionRepoを生成する。
func NewSQLSessionRepo(store *database.Store) *SQLSessionRepo {
	return &SQLSessionRepo{sqlRepo: sqlRepo{store: store}, now: time.Now}
}

// Create はセッションを作成する。
func (r *SQLSessionRepo) Create(ctx context.Context, session *model.Session) error {
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}
	_, err := r.exec(ctx, "create session",
		`INSERT INTO sessions (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.AccountID, storeTime(session.ExpiresAt), storeTime(createdAt),
	)
	return err
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
func (r *SQLSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	found, err := r.queryRow(ctx, "find session",
		`SELECT id, account_id, expires_at, created_at
		 FROM sessions
		 WHERE id = ? AND expires_at > ?`,
		[]any{id, storeTime(r.now())},
		&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt,
	)
	if err != nil || !found {
		return nil, err
	}
	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *SQLSessionRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.exec(ctx, "delete session", `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// DeleteExpired はnow時点で期限切れのセッションを削除する。
// 冪等: 削除対象がない場合でも0件として成功する。
func (r *SQLSessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.exec(ctx, "delete expired sessions",
		`DELETE FROM sessions WHERE expires_at <= ?`, storeTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// compile-time interface check
var _ SessionRepository = (*SQLSessionRepo)(nil)
