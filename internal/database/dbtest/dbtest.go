// Package dbtest はテスト用のマイグレーション済みストアを提供する。
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/hitoshi/railgallery/internal/database"
)

// NewSQLiteStore はテンポラリディレクトリ上のSQLiteファイルにマイグレーションを適用した
// Storeを返す。テスト終了時に接続は自動的に閉じられる。
func NewSQLiteStore(t testing.TB) *database.Store {
	t.Helper()

	url := "sqlite://" + filepath.Join(t.TempDir(), "railgallery_test.db")
	db, dialect, err := database.Open(url)
	if err != nil {
		t.Fatalf("テスト用DBのオープンに失敗: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := database.Migrate(db, dialect); err != nil {
		t.Fatalf("テスト用DBのマイグレーションに失敗: %v", err)
	}

	return database.NewStore(db, dialect, 5*time.Second)
}

// ClosedStore は接続済みだが既にクローズされたStoreを返す。
// ストア到達不能時の振る舞いを検証するために使用する。
func ClosedStore(t testing.TB) *database.Store {
	t.Helper()

	store := NewSQLiteStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("テスト用DBのクローズに失敗: %v", err)
	}
	return store
}
