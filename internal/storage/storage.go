// Package storage は投稿画像のバイト列を保存するオブジェクトストレージを提供する。
//
// ドライバはファイルシステム（既定）、S3互換ストレージ、メモリの3種類で、
// IMAGE_STORAGE_DRIVER で選択する。キーは "photos/{accountId}/{uuid}.jpg" のような
// スラッシュ区切りの相対パスで、ドライバ間で共通に使う。
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Driver はストレージの実装種別。
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// ErrInvalidKey はキーが不正な場合のエラー。
var ErrInvalidKey = errors.New("invalid object key")

// PutOptions は保存時のオプション。
type PutOptions struct {
	ContentType string
	Size        int64 // 不明な場合は0以下
}

// Object は保存されたオブジェクトの情報。
type Object struct {
	Key         string
	Size        int64
	ContentType string
	URL         string
}

// Store は画像オブジェクトの保存先。
type Store interface {
	// Put はオブジェクトを保存する。同じキーが既に存在する場合は上書きする。
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error)
	// Delete はオブジェクトを削除する。存在しない場合も成功扱い。
	Delete(ctx context.Context, key string) error
	// URL はオブジェクトの公開URLを返す。
	URL(key string) string
	Driver() Driver
}

// Config はストレージの構成。
type Config struct {
	Driver        Driver
	FSRoot        string
	PublicBaseURL string
	S3            S3Config
}

// Open は構成に応じたStoreを生成する。
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot, cfg.PublicBaseURL)
	case DriverS3:
		s3cfg := cfg.S3
		if s3cfg.PublicBaseURL == "" {
			s3cfg.PublicBaseURL = cfg.PublicBaseURL
		}
		return NewS3(ctx, s3cfg)
	case DriverMemory:
		return NewMemory(cfg.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unknown image storage driver %q", cfg.Driver)
	}
}

// CleanKey はキーを正規化し、ルート外を指すキーを拒否する。
func CleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	clean := path.Clean(key)
	if clean == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return clean, nil
}

// joinURL は公開ベースURLとキーを連結する。
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
