package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

var (
	// ErrStoreUnavailable はデータストアに到達できないことを示す。
	// レコード不在（nil返却）や制約違反とは区別される。
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrConstraintViolation は外部キー・一意制約などへの違反を示す。
	ErrConstraintViolation = errors.New("constraint violation")
)

// DefaultTimeout はストアアクセスごとのデフォルトタイムアウト。
const DefaultTimeout = 5 * time.Second

// SQLiteの基本リザルトコード
const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteCantOpen   = 14
	sqliteConstraint = 19
)

// Store はプロセス起動時に1度だけ構築され、各リポジトリに注入されるストアハンドル。
// dbがnilの場合はストア未構成として扱い、全アクセスがErrStoreUnavailableになる。
type Store struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

// NewStore はStoreを生成する。timeoutが0以下の場合はDefaultTimeoutを使用する。
func NewStore(db *sql.DB, dialect Dialect, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{db: db, dialect: dialect, timeout: timeout}
}

// DB は利用可能なコネクションプールを返す。
func (s *Store) DB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	return s.db, nil
}

// Available はストアが構成済みかどうかを返す。
func (s *Store) Available() bool {
	return s != nil && s.db != nil
}

// Dialect は接続先のダイアレクトを返す。
func (s *Store) Dialect() Dialect {
	if s == nil {
		return ""
	}
	return s.dialect
}

// Rebind はクエリのプレースホルダをこのストアのダイアレクトに合わせて変換する。
func (s *Store) Rebind(query string) string {
	return Rebind(s.Dialect(), query)
}

// WithTimeout はストアアクセス用のタイムアウト付きコンテキストを返す。
func (s *Store) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := DefaultTimeout
	if s != nil && s.timeout > 0 {
		timeout = s.timeout
	}
	return context.WithTimeout(ctx, timeout)
}

// PingContext は接続確認を行う。ヘルスチェックから利用される。
func (s *Store) PingContext(ctx context.Context) error {
	db, err := s.DB()
	if err != nil {
		return err
	}
	ctx, cancel := s.WithTimeout(ctx)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return Classify(err)
	}
	return nil
}

// Close はコネクションプールを閉じる。未構成の場合は何もしない。
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Classify はドライバ固有のエラーをErrStoreUnavailable / ErrConstraintViolationに分類する。
// 分類対象外のエラーはそのまま返す。元のエラーはラップされたまま保持される。
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStoreUnavailable) || errors.Is(err, ErrConstraintViolation) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "23":
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case "08", "53", "57":
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return err
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqliteConstraint:
			return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
		case sqliteBusy, sqliteLocked, sqliteCantOpen:
			return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	// database/sql の errDBClosed は非公開のためメッセージで判定する
	if strings.Contains(err.Error(), "database is closed") {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}

	return err
}
