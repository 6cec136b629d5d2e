// Package upload は投稿画像のアップロードを扱う。
//
// 受け取った画像をストレージに保存し、写真登録（photos.create）に渡す
// imageUrl / imageKey / thumbnailUrl を返す。
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/railgallery/internal/metrics"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
	"github.com/hitoshi/railgallery/internal/security"
	"github.com/hitoshi/railgallery/internal/storage"
)

// DefaultMaxSize はアップロードサイズ上限の既定値（10MiB）。
const DefaultMaxSize int64 = 10 << 20

// 許可する画像形式と拡張子
var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// KeyPrefix はアカウントがアップロードした画像のキー接頭辞を返す。
func KeyPrefix(accountID int64) string {
	return fmt.Sprintf("photos/%d/", accountID)
}

// Result はアップロード結果。
type Result struct {
	ImageURL     string
	ImageKey     string
	ThumbnailURL string
	ContentType  string
	Size         int64
}

// Service は画像アップロードのサービス層。
type Service struct {
	store   storage.Store
	policy  policy.Table
	maxSize int64
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	newID   func() string

	// remoteがnilの場合はURLからの取り込みを受け付けない
	remote *remoteImport
}

type remoteImport struct {
	guard  security.RemoteFetchGuard
	client *http.Client
}

// NewService はServiceを生成する。maxSizeが0以下の場合はDefaultMaxSizeを使う。
func NewService(store storage.Store, maxSize int64, collector metrics.MetricsCollector, logger *slog.Logger) *Service {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if collector == nil {
		collector = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:   store,
		policy:  policy.DefaultTable,
		maxSize: maxSize,
		metrics: collector,
		logger:  logger,
		newID:   uuid.NewString,
	}
}

// MaxSize はアップロードサイズ上限を返す。
func (s *Service) MaxSize() int64 {
	return s.maxSize
}

// EnableRemoteImport はURLからの画像取り込みを有効にする。
// 取得にはguardが生成するクライアントを使い、timeoutは1回の取得全体に適用される。
func (s *Service) EnableRemoteImport(guard security.RemoteFetchGuard, timeout time.Duration) {
	s.remote = &remoteImport{guard: guard, client: guard.NewClient(timeout)}
}

// RemoteImportEnabled はURLからの取り込みが有効かどうかを返す。
func (s *Service) RemoteImportEnabled() bool {
	return s.remote != nil
}

// Upload は画像を検証して保存する。
// 形式はContent-Typeヘッダーではなく先頭バイトから判定する。
func (s *Service) Upload(ctx context.Context, actor policy.Actor, r io.Reader) (*Result, error) {
	const op = policy.UploadsCreate

	data, err := s.read(r)
	if err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		return nil, model.NewValidationError("file", "読み込みに失敗しました")
	}
	contentType, ext, err := s.validate("file", data)
	if err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		return nil, err
	}

	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	return s.save(ctx, actor, data, contentType, ext)
}

// Import はURLの画像を取得して保存する。
// URLの検査とアクセス制御を取得より先に行い、匿名の呼び出しで外部へ接続しない。
func (s *Service) Import(ctx context.Context, actor policy.Actor, rawURL string) (*Result, error) {
	const op = policy.UploadsCreate

	if s.remote == nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		return nil, model.NewValidationError("url", "URLからの取り込みは無効です")
	}
	if err := s.remote.guard.ValidateURL(rawURL); err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		s.logger.WarnContext(ctx, "取り込みURLを拒否しました", slog.String("error", err.Error()))
		return nil, model.NewValidationError("url", "取り込めないURLです")
	}
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	data, err := s.fetch(ctx, rawURL)
	if err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		s.logger.WarnContext(ctx, "画像の取得に失敗しました",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		return nil, model.NewValidationError("url", "画像を取得できませんでした")
	}
	contentType, ext, err := s.validate("url", data)
	if err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
		return nil, err
	}
	return s.save(ctx, actor, data, contentType, ext)
}

func (s *Service) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := s.remote.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > s.maxSize {
		return nil, fmt.Errorf("content length %d exceeds %d", resp.ContentLength, s.maxSize)
	}
	return s.read(resp.Body)
}

// read は上限+1バイトまで読み込む。上限超過はvalidateで検出する。
func (s *Service) read(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, s.maxSize+1))
}

func (s *Service) authorize(actor policy.Actor) error {
	const op = policy.UploadsCreate
	if err := s.policy.Authorize(actor, op, nil); err != nil {
		s.metrics.RecordAccessDenied(string(op))
		s.metrics.RecordOperation(string(op), metrics.OutcomeDenied)
		return err
	}
	return nil
}

func (s *Service) save(ctx context.Context, actor policy.Actor, data []byte, contentType, ext string) (*Result, error) {
	const op = policy.UploadsCreate

	key := KeyPrefix(actor.AccountID) + s.newID() + ext
	obj, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutOptions{
		ContentType: contentType,
		Size:        int64(len(data)),
	})
	if err != nil {
		s.metrics.RecordOperation(string(op), metrics.OutcomeError)
		s.logger.ErrorContext(ctx, "画像の保存に失敗しました",
			slog.String("key", key),
			slog.String("driver", string(s.store.Driver())),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to store image: %w", err)
	}

	s.metrics.RecordOperation(string(op), metrics.OutcomeOK)
	s.metrics.RecordUploadBytes(int64(len(data)))
	s.logger.InfoContext(ctx, "画像を保存しました",
		slog.String("key", obj.Key),
		slog.Int64("account_id", actor.AccountID),
		slog.Int("size", len(data)),
	)

	// サムネイル生成は行わないため元画像のURLを使う
	return &Result{
		ImageURL:     obj.URL,
		ImageKey:     obj.Key,
		ThumbnailURL: obj.URL,
		ContentType:  contentType,
		Size:         int64(len(data)),
	}, nil
}

// Discard はアップロード済みの画像を削除する。写真登録に失敗した場合の後始末に使う。
func (s *Service) Discard(ctx context.Context, key string) error {
	if err := s.store.Delete(ctx, key); err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return model.NewValidationError("imageKey", "不正なキーです")
		}
		return fmt.Errorf("failed to discard image: %w", err)
	}
	return nil
}

func (s *Service) validate(field string, data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", model.NewValidationError(field, "空のファイルです")
	}
	if int64(len(data)) > s.maxSize {
		return "", "", model.NewValidationError(field, fmt.Sprintf("%dバイトを超えています", s.maxSize))
	}
	contentType = http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", "", model.NewValidationError(field, "対応していない画像形式です: "+contentType)
	}
	return contentType, ext, nil
}
