// Package database はデータベース接続、エラー分類、マイグレーション管理を提供する。
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// NewMigrator はダイアレクトに対応する埋め込みマイグレーションでmigrateインスタンスを生成する。
// 返されたインスタンスのClose()はdbも閉じる点に注意すること。
func NewMigrator(db *sql.DB, dialect Dialect) (*migrate.Migrate, source.Driver, error) {
	src, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var driver migratedb.Driver
	switch dialect {
	case DialectPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported dialect: %q", dialect)
	}
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(dialect), driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return m, src, nil
}

// Migrate は既存のコネクションプールに対してすべてのマイグレーションを適用する。
// dbは呼び出し元が引き続き使用できる。すでに最新の場合はエラーなしで返る。
func Migrate(db *sql.DB, dialect Dialect) error {
	m, src, err := NewMigrator(db, dialect)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// RunMigrations は接続URLから専用の接続を開き、すべてのマイグレーションを適用する。
func RunMigrations(databaseURL string) error {
	db, dialect, err := Open(databaseURL)
	if err != nil {
		return err
	}

	m, _, err := NewMigrator(db, dialect)
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
