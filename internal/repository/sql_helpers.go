package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hitoshi/railgallery/internal/database"
)

// sqlRepo は各SQLリポジトリが共有するストアアクセスの土台。
// すべてのアクセスにストアのタイムアウトを適用し、エラーを分類してから返す。
type sqlRepo struct {
	store *database.Store
}

func (r sqlRepo) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	db, err := r.store.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	ctx, cancel := r.store.WithTimeout(ctx)
	defer cancel()

	res, err := db.ExecContext(ctx, r.store.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, database.Classify(err))
	}
	return res, nil
}

// queryRow は1行を取得してdestにScanする。行が存在しない場合はfalseを返す。
func (r sqlRepo) queryRow(ctx context.Context, op, query string, args []any, dest ...any) (bool, error) {
	db, err := r.store.DB()
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, err)
	}

	ctx, cancel := r.store.WithTimeout(ctx)
	defer cancel()

	err = db.QueryRowContext(ctx, r.store.Rebind(query), args...).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", op, database.Classify(err))
	}
	return true, nil
}

// query は複数行を取得し、1行ごとにscanを呼び出す。
func (r sqlRepo) query(ctx context.Context, op, query string, args []any, scan func(*sql.Rows) error) error {
	db, err := r.store.DB()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	ctx, cancel := r.store.WithTimeout(ctx)
	defer cancel()

	rows, err := db.QueryContext(ctx, r.store.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, database.Classify(err))
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan %s: %w", op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to %s: %w", op, database.Classify(err))
	}
	return nil
}

// updateSet は部分更新のSET句を組み立てる。
type updateSet struct {
	clauses []string
	args    []any
}

func (u *updateSet) add(column string, value any) {
	u.clauses = append(u.clauses, column+" = ?")
	u.args = append(u.args, value)
}

// build はupdated_atの自動更新を含むUPDATE文と引数を返す。
func (u *updateSet) build(table string, id int64) (string, []any) {
	clauses := append(u.clauses, "updated_at = CURRENT_TIMESTAMP")
	query := "UPDATE " + table + " SET " + strings.Join(clauses, ", ") + " WHERE id = ?"
	return query, append(u.args, id)
}

// nullString は空文字列をNULLとして扱う。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullableString はポインタがnilの場合NULLとして扱う。
func nullableString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullableTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: storeTime(*p), Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// storeTime はストアに書き込む時刻を秒精度のUTCに正規化する。
func storeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}
