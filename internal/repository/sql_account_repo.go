package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

const accountColumns = `id, open_id, name, email, login_method, role, created_at, updated_at, last_signed_in`

// SQLAccountRepo はdatabase/sqlを使用したアカウントリポジトリ。
type SQLAccountRepo struct {
	sqlRepo
}

// NewSQLAccountRepo はSQLAccountRepoを生成する。
func NewSQLAccountRepo(store *database.Store) *SQLAccountRepo {
	return &SQLAccountRepo{sqlRepo{store: store}}
}

// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
func (r *SQLAccountRepo) FindByID(ctx context.Context, id int64) (*model.Account, error) {
	return r.findOne(ctx, "find account",
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// FindByOpenID はOpenIDでアカウントを検索する。見つからない場合はnilを返す。
func (r *SQLAccountRepo) FindByOpenID(ctx context.Context, openID string) (*model.Account, error) {
	return r.findOne(ctx, "find account by open_id",
		`SELECT `+accountColumns+` FROM accounts WHERE open_id = ?`, openID)
}

// Upsert はOpenIDをキーにアカウントを作成または更新する。
// 空のフィールドは既存値を維持し、last_signed_inは常に更新する。
// Roleが空の場合、新規作成時はuser、更新時は既存値のままとなる。
func (r *SQLAccountRepo) Upsert(ctx context.Context, in model.AccountUpsert) (*model.Account, error) {
	lastSignedIn := in.LastSignedIn
	if lastSignedIn.IsZero() {
		lastSignedIn = time.Now()
	}
	role := nullString(string(in.Role))

	var id int64
	_, err := r.queryRow(ctx, "upsert account",
		`INSERT INTO accounts (open_id, name, email, login_method, role, last_signed_in)
		 VALUES (?, ?, ?, ?, COALESCE(?, 'user'), ?)
		 ON CONFLICT (open_id) DO UPDATE SET
		   name = COALESCE(excluded.name, accounts.name),
		   email = COALESCE(excluded.email, accounts.email),
		   login_method = COALESCE(excluded.login_method, accounts.login_method),
		   role = COALESCE(?, accounts.role),
		   last_signed_in = excluded.last_signed_in,
		   updated_at = CURRENT_TIMESTAMP
		 RETURNING id`,
		[]any{
			in.OpenID, nullString(in.Name), nullString(in.Email), nullString(in.LoginMethod),
			role, storeTime(lastSignedIn), role,
		},
		&id,
	)
	if err != nil {
		return nil, err
	}

	account, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("failed to upsert account: account %d vanished after upsert", id)
	}
	return account, nil
}

func (r *SQLAccountRepo) findOne(ctx context.Context, op, query string, arg any) (*model.Account, error) {
	var (
		a                        model.Account
		name, email, loginMethod sql.NullString
		role                     string
	)
	found, err := r.queryRow(ctx, op, query, []any{arg},
		&a.ID, &a.OpenID, &name, &email, &loginMethod, &role,
		&a.CreatedAt, &a.UpdatedAt, &a.LastSignedIn,
	)
	if err != nil || !found {
		return nil, err
	}

	a.Name = name.String
	a.Email = email.String
	a.LoginMethod = loginMethod.String
	a.Role = model.Role(role)
	return &a, nil
}

// compile-time interface check
var _ AccountRepository = (*SQLAccountRepo)(nil)
