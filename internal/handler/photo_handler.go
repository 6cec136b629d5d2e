package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
	"github.com/hitoshi/railgallery/internal/upload"
)

// PhotoService は写真ハンドラーが必要とするサービスインターフェース。
// gallery.Serviceが実装する。
type PhotoService interface {
	ListPhotos(ctx context.Context, actor policy.Actor, formationID int64) ([]*model.Photo, error)
	ListMyPhotos(ctx context.Context, actor policy.Actor) ([]*model.Photo, error)
	GetPhoto(ctx context.Context, actor policy.Actor, id int64) (*model.Photo, error)
	CreatePhoto(ctx context.Context, actor policy.Actor, in gallery.CreatePhotoInput) (int64, error)
	UpdatePhoto(ctx context.Context, actor policy.Actor, in gallery.UpdatePhotoInput) error
	DeletePhoto(ctx context.Context, actor policy.Actor, id int64) error
	PhotoHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error)
	ImageKeyInUse(ctx context.Context, key string) (bool, error)
}

// ImageDiscarder はアップロード済み画像の削除を行う。upload.Serviceが実装する。
type ImageDiscarder interface {
	Discard(ctx context.Context, key string) error
}

// PhotoHandler は写真のHTTPハンドラー。
type PhotoHandler struct {
	service   PhotoService
	discarder ImageDiscarder
}

// NewPhotoHandler はPhotoHandlerを生成する。
// discarderがnilの場合、写真削除時に画像オブジェクトは削除しない。
func NewPhotoHandler(service PhotoService, discarder ImageDiscarder) *PhotoHandler {
	return &PhotoHandler{service: service, discarder: discarder}
}

type createPhotoRequest struct {
	FormationID  int64   `json:"formationId"`
	ImageURL     string  `json:"imageUrl"`
	ImageKey     string  `json:"imageKey"`
	ThumbnailURL *string `json:"thumbnailUrl"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	ShootDate    *string `json:"shootDate"`
	Location     *string `json:"location"`
}

type updatePhotoRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ShootDate   *string `json:"shootDate"`
	Location    *string `json:"location"`
}

// parseShootDate はRFC3339の日時または YYYY-MM-DD 形式の日付を受け付ける。
func parseShootDate(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.DateOnly} {
		if t, err := time.Parse(layout, *v); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, model.NewValidationError("shootDate", "RFC3339またはYYYY-MM-DD形式で指定してください")
}

// ListPhotos は編成に属する写真を投稿の古い順で返す。
// GET /api/formations/{id}/photos
func (h *PhotoHandler) ListPhotos(w http.ResponseWriter, r *http.Request) {
	formationID, ok := pathID(w, r)
	if !ok {
		return
	}
	photos, err := h.service.ListPhotos(r.Context(), middleware.ActorFromContext(r.Context()), formationID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(photos, toPhotoResponse))
}

// ListMyPhotos は呼び出し元が投稿した写真を投稿の古い順で返す。
// GET /api/me/photos
func (h *PhotoHandler) ListMyPhotos(w http.ResponseWriter, r *http.Request) {
	photos, err := h.service.ListMyPhotos(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(photos, toPhotoResponse))
}

// GetPhoto は写真を取得する。
// GET /api/photos/{id}
func (h *PhotoHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	photo, err := h.service.GetPhoto(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if photo == nil {
		handleServiceError(w, r, model.NewNotFoundError("写真", id))
		return
	}
	writeJSON(w, http.StatusOK, toPhotoResponse(photo))
}

// CreatePhoto は写真を投稿する。投稿者は常に呼び出し元になる。
// POST /api/photos
func (h *PhotoHandler) CreatePhoto(w http.ResponseWriter, r *http.Request) {
	var req createPhotoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	shootDate, err := parseShootDate(req.ShootDate)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	id, err := h.service.CreatePhoto(r.Context(), middleware.ActorFromContext(r.Context()), gallery.CreatePhotoInput{
		FormationID:  req.FormationID,
		ImageURL:     req.ImageURL,
		ImageKey:     req.ImageKey,
		ThumbnailURL: req.ThumbnailURL,
		Title:        req.Title,
		Description:  req.Description,
		ShootDate:    shootDate,
		Location:     req.Location,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdatePhoto は写真のメタデータを部分更新する。投稿者本人のみ実行できる。
// PATCH /api/photos/{id}
func (h *PhotoHandler) UpdatePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updatePhotoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	shootDate, err := parseShootDate(req.ShootDate)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	err = h.service.UpdatePhoto(r.Context(), middleware.ActorFromContext(r.Context()), gallery.UpdatePhotoInput{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		ShootDate:   shootDate,
		Location:    req.Location,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DeletePhoto は写真を削除する。投稿者本人のみ実行できる。
// 呼び出し元がアップロードした画像で、他の写真から参照されていなければ
// 画像オブジェクトもベストエフォートで削除する。
// DELETE /api/photos/{id}
func (h *PhotoHandler) DeletePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	actor := middleware.ActorFromContext(r.Context())

	var imageKey string
	if h.discarder != nil && id > 0 {
		if photo, err := h.service.GetPhoto(r.Context(), actor, id); err == nil && photo != nil {
			imageKey = photo.ImageKey
		}
	}

	if err := h.service.DeletePhoto(r.Context(), actor, id); err != nil {
		handleServiceError(w, r, err)
		return
	}

	if imageKey != "" && strings.HasPrefix(imageKey, upload.KeyPrefix(actor.AccountID)) {
		h.discardUnused(r, id, imageKey)
	}
	writeSuccess(w)
}

func (h *PhotoHandler) discardUnused(r *http.Request, photoID int64, imageKey string) {
	inUse, err := h.service.ImageKeyInUse(r.Context(), imageKey)
	if err != nil || inUse {
		attrs := []any{slog.Int64("photo_id", photoID), slog.String("key", imageKey)}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		slog.InfoContext(r.Context(), "photo image kept", attrs...)
		return
	}
	if err := h.discarder.Discard(r.Context(), imageKey); err != nil {
		slog.WarnContext(r.Context(), "failed to discard photo image",
			slog.Int64("photo_id", photoID),
			slog.String("key", imageKey),
			slog.String("error", err.Error()),
		)
	}
}

// PhotoHierarchy は写真の所属編成から鉄道会社までの祖先チェーンを返す。
// GET /api/photos/{id}/hierarchy
func (h *PhotoHandler) PhotoHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.PhotoHierarchy(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	body := toHierarchyResponse(res)
	if body == nil {
		handleServiceError(w, r, model.NewNotFoundError("写真", id))
		return
	}
	writeJSON(w, http.StatusOK, body)
}
