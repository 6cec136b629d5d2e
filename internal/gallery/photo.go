package gallery

import (
	"context"

	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

// ListPhotos は指定編成の写真を投稿順に返す。
func (s *Service) ListPhotos(ctx context.Context, actor policy.Actor, formationID int64) ([]*model.Photo, error) {
	const op = policy.PhotosListByFormation
	if err := s.begin(ctx, actor, op, idInput{field: "formationId", id: formationID}); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByFormation(ctx, formationID)
	if err != nil {
		return []*model.Photo{}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return photos, nil
}

// ListMyPhotos は呼び出し元が投稿した写真を返す。
func (s *Service) ListMyPhotos(ctx context.Context, actor policy.Actor) ([]*model.Photo, error) {
	const op = policy.PhotosListByUser
	if err := s.begin(ctx, actor, op, nil); err != nil {
		return nil, err
	}

	photos, err := s.photos.ListByAccount(ctx, actor.AccountID)
	if err != nil {
		return []*model.Photo{}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return photos, nil
}

// GetPhoto は写真を取得する。存在しない場合はnilを返す。
func (s *Service) GetPhoto(ctx context.Context, actor policy.Actor, id int64) (*model.Photo, error) {
	const op = policy.PhotosGetByID
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	photo, err := s.photos.FindByID(ctx, id)
	if err != nil {
		return nil, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return photo, nil
}

// CreatePhoto は写真を登録する。投稿者は常に呼び出し元のアカウントになる。
func (s *Service) CreatePhoto(ctx context.Context, actor policy.Actor, in CreatePhotoInput) (int64, error) {
	const op = policy.PhotosCreate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return 0, err
	}

	id, err := s.photos.Create(ctx, &model.Photo{
		FormationID:  in.FormationID,
		UserID:       actor.AccountID,
		ImageURL:     in.ImageURL,
		ImageKey:     in.ImageKey,
		ThumbnailURL: in.ThumbnailURL,
		Title:        in.Title,
		Description:  in.Description,
		ShootDate:    in.ShootDate,
		Location:     in.Location,
	})
	if err != nil {
		return 0, s.writeFailed(ctx, op, err, reasonParentMissing)
	}
	s.succeeded(op)
	return id, nil
}

// UpdatePhoto は写真のメタデータを更新する。投稿者本人のみ。
func (s *Service) UpdatePhoto(ctx context.Context, actor policy.Actor, in UpdatePhotoInput) error {
	const op = policy.PhotosUpdate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, actor, op, in.ID); err != nil {
		return err
	}

	patch := model.PhotoPatch{
		Title:       in.Title,
		Description: in.Description,
		ShootDate:   in.ShootDate,
		Location:    in.Location,
	}
	if err := s.photos.Update(ctx, in.ID, patch); err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return nil
}

// DeletePhoto は写真を削除する。投稿者本人のみ。
func (s *Service) DeletePhoto(ctx context.Context, actor policy.Actor, id int64) error {
	const op = policy.PhotosDelete
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return err
	}
	if err := s.authorizeOwner(ctx, actor, op, id); err != nil {
		return err
	}

	if err := s.photos.Delete(ctx, id); err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return nil
}

// ImageKeyInUse は画像キーを参照する写真が残っているかを返す。
// 写真削除後に画像オブジェクトを破棄してよいかの判定に使う。
func (s *Service) ImageKeyInUse(ctx context.Context, key string) (bool, error) {
	n, err := s.photos.CountByImageKey(ctx, key)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// authorizeOwner は写真の投稿者を読み出して所有者判定を行う。
// 写真が存在しない場合は所有者を確定できないためFORBIDDENとする。
func (s *Service) authorizeOwner(ctx context.Context, actor policy.Actor, op policy.Operation, photoID int64) error {
	photo, err := s.photos.FindByID(ctx, photoID)
	if err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	if photo == nil {
		return s.authorize(ctx, actor, op, &policy.Resource{})
	}
	return s.authorize(ctx, actor, op, &policy.Resource{OwnerID: photo.UserID})
}

// PhotoHierarchy は写真とその祖先チェーンを返す。
func (s *Service) PhotoHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error) {
	const op = policy.PhotosHierarchy
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	res, err := s.resolver.ResolvePhoto(ctx, id)
	if err != nil {
		return &hierarchy.Result{Status: hierarchy.StatusNotFound}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return res, nil
}
