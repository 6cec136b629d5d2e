package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

const photoColumns = `id, formation_id, user_id, image_url, image_key, thumbnail_url,
	title, description, shoot_date, location, created_at, updated_at`

// SQLPhotoRepo はdatabase/sqlを使用した写真リポジトリ。
type SQLPhotoRepo struct {
	sqlRepo
}

// NewSQLPhotoRepo はSQLPhotoRepoを生成する。
func NewSQLPhotoRepo(store *database.Store) *SQLPhotoRepo {
	return &SQLPhotoRepo{sqlRepo{store: store}}
}

// ListByFormation は指定編成の写真を作成順（同時刻はID順）で返す。
func (r *SQLPhotoRepo) ListByFormation(ctx context.Context, formationID int64) ([]*model.Photo, error) {
	return r.list(ctx, "list photos by formation",
		`SELECT `+photoColumns+` FROM photos WHERE formation_id = ? ORDER BY created_at, id`,
		formationID)
}

// ListByAccount は指定アカウントが投稿した写真を作成順で返す。
func (r *SQLPhotoRepo) ListByAccount(ctx context.Context, accountID int64) ([]*model.Photo, error) {
	return r.list(ctx, "list photos by account",
		`SELECT `+photoColumns+` FROM photos WHERE user_id = ? ORDER BY created_at, id`,
		accountID)
}

// FindByID は指定IDの写真を取得する。見つからない場合はnilを返す。
func (r *SQLPhotoRepo) FindByID(ctx context.Context, id int64) (*model.Photo, error) {
	var row photoRow
	found, err := r.queryRow(ctx, "find photo",
		`SELECT `+photoColumns+` FROM photos WHERE id = ?`, []any{id},
		row.dest()...,
	)
	if err != nil || !found {
		return nil, err
	}
	return row.photo(), nil
}

// Create は写真を作成し、採番されたIDを返す。
// 存在しない編成・アカウントを参照した場合はErrConstraintViolationになる。
func (r *SQLPhotoRepo) Create(ctx context.Context, photo *model.Photo) (int64, error) {
	var id int64
	_, err := r.queryRow(ctx, "create photo",
		`INSERT INTO photos
		   (formation_id, user_id, image_url, image_key, thumbnail_url, title, description, shoot_date, location)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		[]any{
			photo.FormationID, photo.UserID, photo.ImageURL, photo.ImageKey,
			nullableString(photo.ThumbnailURL), nullableString(photo.Title),
			nullableString(photo.Description), nullableTime(photo.ShootDate),
			nullableString(photo.Location),
		},
		&id,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update は写真のメタデータを部分更新する。投稿者と画像は変更しない。
func (r *SQLPhotoRepo) Update(ctx context.Context, id int64, patch model.PhotoPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var set updateSet
	if patch.Title != nil {
		set.add("title", *patch.Title)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}
	if patch.ShootDate != nil {
		set.add("shoot_date", storeTime(*patch.ShootDate))
	}
	if patch.Location != nil {
		set.add("location", *patch.Location)
	}

	query, args := set.build("photos", id)
	_, err := r.exec(ctx, "update photo", query, args...)
	return err
}

// Delete は指定IDの写真を削除する。存在しない場合も成功扱い。
func (r *SQLPhotoRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, "delete photo", `DELETE FROM photos WHERE id = ?`, id)
	return err
}

// CountByImageKey は指定画像キーを参照する写真の件数を返す。
func (r *SQLPhotoRepo) CountByImageKey(ctx context.Context, key string) (int, error) {
	var n int
	if _, err := r.queryRow(ctx, "count photos by image key",
		`SELECT COUNT(*) FROM photos WHERE image_key = ?`, []any{key}, &n,
	); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *SQLPhotoRepo) list(ctx context.Context, op, query string, arg int64) ([]*model.Photo, error) {
	photos := []*model.Photo{}
	err := r.query(ctx, op, query, []any{arg}, func(rows *sql.Rows) error {
		var row photoRow
		if err := rows.Scan(row.dest()...); err != nil {
			return err
		}
		photos = append(photos, row.photo())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return photos, nil
}

// photoRow はphotosテーブルの1行分のScan先。
type photoRow struct {
	p                                       model.Photo
	thumbnail, title, description, location sql.NullString
	shootDate                               sql.NullTime
}

func (row *photoRow) dest() []any {
	return []any{
		&row.p.ID, &row.p.FormationID, &row.p.UserID, &row.p.ImageURL, &row.p.ImageKey,
		&row.thumbnail, &row.title, &row.description, &row.shootDate, &row.location,
		&row.p.CreatedAt, &row.p.UpdatedAt,
	}
}

func (row *photoRow) photo() *model.Photo {
	p := row.p
	p.ThumbnailURL = stringPtr(row.thumbnail)
	p.Title = stringPtr(row.title)
	p.Description = stringPtr(row.description)
	p.ShootDate = timePtr(row.shootDate)
	p.Location = stringPtr(row.location)
	return &p
}

// compile-time interface check
var _ PhotoRepository = (*SQLPhotoRepo)(nil)
