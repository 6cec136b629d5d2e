package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/lib/pq"
)

func isConstraint(err error) bool { return errors.Is(err, ErrConstraintViolation) }
func isUnavailable(err error) bool { return errors.Is(err, ErrStoreUnavailable) }

func TestStore_NilDBIsUnavailable(t *testing.T) {
	store := NewStore(nil, "", 0)

	if store.Available() {
		t.Error("dbがnilのStoreは Available() = false であるべき")
	}
	if _, err := store.DB(); !isUnavailable(err) {
		t.Errorf("DB() error = %v, want ErrStoreUnavailable", err)
	}
	if err := store.PingContext(context.Background()); !isUnavailable(err) {
		t.Errorf("PingContext() error = %v, want ErrStoreUnavailable", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("未構成StoreのClose()はnilを返すべき: %v", err)
	}
}

func TestStore_NilReceiver(t *testing.T) {
	var store *Store

	if _, err := store.DB(); !isUnavailable(err) {
		t.Errorf("nil StoreのDB() error = %v, want ErrStoreUnavailable", err)
	}
	if store.Dialect() != "" {
		t.Errorf("nil StoreのDialect() = %q, want empty", store.Dialect())
	}
}

func TestStore_DefaultTimeout(t *testing.T) {
	store := NewStore(nil, DialectSQLite, 0)

	ctx, cancel := store.WithTimeout(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	if !ok {
		t.Fatal("WithTimeout はデッドラインを設定すべき")
	}
	remaining := time.Until(deadline)
	if remaining <= 0 || remaining > DefaultTimeout {
		t.Errorf("残り時間 = %v, want (0, %v]", remaining, DefaultTimeout)
	}
}

func TestStore_Rebind(t *testing.T) {
	store := NewStore(nil, DialectPostgres, time.Second)
	if got := store.Rebind("SELECT ? , ?"); got != "SELECT $1 , $2" {
		t.Errorf("Rebind = %q", got)
	}
}

func TestStore_ClosedDBIsUnavailable(t *testing.T) {
	db, _ := openSQLite(t)
	store := NewStore(db, DialectSQLite, time.Second)
	db.Close()

	err := store.PingContext(context.Background())
	if !isUnavailable(err) {
		t.Errorf("クローズ済みDBへのPingは ErrStoreUnavailable であるべき: %v", err)
	}
}

type fakeNetError struct{}

func (fakeNetError) Error() string { return "dial tcp: connection refused" }
func (fakeNetError) Timeout() bool { return false }
func (fakeNetError) Temporary() bool { return false }

var _ net.Error = fakeNetError{}

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantConstraint  bool
		wantUnavailable bool
	}{
		{name: "nil", err: nil},
		{name: "no rows", err: sql.ErrNoRows},
		{name: "pq foreign key", err: &pq.Error{Code: "23503"}, wantConstraint: true},
		{name: "pq unique", err: &pq.Error{Code: "23505"}, wantConstraint: true},
		{name: "pq connection failure", err: &pq.Error{Code: "08006"}, wantUnavailable: true},
		{name: "pq admin shutdown", err: &pq.Error{Code: "57P01"}, wantUnavailable: true},
		{name: "pq syntax error", err: &pq.Error{Code: "42601"}},
		{name: "bad conn", err: driver.ErrBadConn, wantUnavailable: true},
		{name: "conn done", err: sql.ErrConnDone, wantUnavailable: true},
		{name: "deadline", err: context.DeadlineExceeded, wantUnavailable: true},
		{name: "wrapped deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), wantUnavailable: true},
		{name: "net error", err: fakeNetError{}, wantUnavailable: true},
		{name: "closed", err: errors.New("sql: database is closed"), wantUnavailable: true},
		{name: "already classified", err: fmt.Errorf("repo: %w", ErrConstraintViolation), wantConstraint: true},
		{name: "other", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v, want nil", got)
				}
				return
			}
			if isConstraint(got) != tt.wantConstraint {
				t.Errorf("constraint = %v, want %v (err=%v)", isConstraint(got), tt.wantConstraint, got)
			}
			if isUnavailable(got) != tt.wantUnavailable {
				t.Errorf("unavailable = %v, want %v (err=%v)", isUnavailable(got), tt.wantUnavailable, got)
			}
			if !errors.Is(got, tt.err) {
				t.Errorf("元のエラーがラップされていない: %v", got)
			}
		})
	}
}
