package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
	"github.com/hitoshi/railgallery/internal/upload"
)

// uploadFieldName はmultipartで画像を受け取るフィールド名。
const uploadFieldName = "file"

// multipartOverhead はmultipartの境界やヘッダーに許容する余剰バイト数。
const multipartOverhead = 64 << 10

// Uploader はアップロードハンドラーが必要とするサービスインターフェース。
// upload.Serviceが実装する。
type Uploader interface {
	Upload(ctx context.Context, actor policy.Actor, r io.Reader) (*upload.Result, error)
	Import(ctx context.Context, actor policy.Actor, rawURL string) (*upload.Result, error)
	MaxSize() int64
}

type importRequest struct {
	URL string `json:"url"`
}

// UploadHandler は画像アップロードのHTTPハンドラー。
type UploadHandler struct {
	uploader Uploader
}

// NewUploadHandler はUploadHandlerを生成する。
func NewUploadHandler(uploader Uploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}

// Upload はmultipartの file フィールドで受け取った画像を保存し、
// photos.create に渡す imageUrl・imageKey・thumbnailUrl を返す。
// POST /api/uploads
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxSize()+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		handleServiceError(w, r, model.NewValidationError(uploadFieldName, "multipart/form-dataで送信してください"))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			handleServiceError(w, r, model.NewValidationError(uploadFieldName, "ファイルが指定されていません"))
			return
		}
		if err != nil {
			handleServiceError(w, r, uploadReadError(err))
			return
		}
		if part.FormName() != uploadFieldName {
			part.Close()
			continue
		}

		res, err := h.uploader.Upload(r.Context(), middleware.ActorFromContext(r.Context()), part)
		part.Close()
		if err != nil {
			handleServiceError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, toUploadResponse(res))
		return
	}
}

// Import はJSONの url で指定された画像を取得して保存する。応答はUploadと同じ形式。
// POST /api/uploads/remote
func (h *UploadHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.uploader.Import(r.Context(), middleware.ActorFromContext(r.Context()), req.URL)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUploadResponse(res))
}

func toUploadResponse(res *upload.Result) uploadResponse {
	return uploadResponse{
		ImageURL:     res.ImageURL,
		ImageKey:     res.ImageKey,
		ThumbnailURL: res.ThumbnailURL,
		ContentType:  res.ContentType,
		Size:         res.Size,
	}
}

func uploadReadError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return model.NewValidationError(uploadFieldName, "ファイルサイズが上限を超えています")
	}
	return model.NewValidationError(uploadFieldName, "リクエストの読み込みに失敗しました")
}
