package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultPublicBaseURL はファイルシステム・メモリドライバの既定の公開パス。
// ファイルシステムドライバの場合、HTTPサーバーがこのパスでファイルを配信する。
const DefaultPublicBaseURL = "/images"

// FilesystemStore はローカルディスク上に画像を保存するStore。
type FilesystemStore struct {
	root    string
	baseURL string
}

// NewFilesystem はrootをルートとするFilesystemStoreを生成する。ディレクトリがなければ作成する。
func NewFilesystem(root, publicBaseURL string) (*FilesystemStore, error) {
	if root == "" {
		root = "./imagedata"
	}
	if publicBaseURL == "" {
		publicBaseURL = DefaultPublicBaseURL
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image root %s: %w", root, err)
	}
	return &FilesystemStore{root: root, baseURL: publicBaseURL}, nil
}

// Root は保存先ディレクトリを返す。
func (s *FilesystemStore) Root() string { return s.root }

func (s *FilesystemStore) Driver() Driver { return DriverFilesystem }

func (s *FilesystemStore) URL(key string) string { return joinURL(s.baseURL, key) }

// Put は一時ファイルに書き込んでからリネームで配置する。
func (s *FilesystemStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Object, error) {
	key, err := CleanKey(key)
	if err != nil {
		return Object{}, err
	}
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Object{}, fmt.Errorf("failed to create directory for %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	size, err := io.Copy(tmp, r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Object{}, fmt.Errorf("failed to place %s: %w", key, err)
	}

	return Object{Key: key, Size: size, ContentType: opts.ContentType, URL: s.URL(key)}, nil
}

func (s *FilesystemStore) Delete(_ context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

var _ Store = (*FilesystemStore)(nil)
