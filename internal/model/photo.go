package model

import "time"

// Photo は編成に紐づく投稿写真を表す。
// UserIDは投稿者で、作成後は変更されない。
type Photo struct {
	ID           int64
	FormationID  int64
	UserID       int64
	ImageURL     string
	ImageKey     string
	ThumbnailURL *string
	Title        *string
	Description  *string
	ShootDate    *time.Time
	Location     *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PhotoPatch は写真メタデータの部分更新内容。
// 画像・所属編成・投稿者は更新対象外。
type PhotoPatch struct {
	Title       *string
	Description *string
	ShootDate   *time.Time
	Location    *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p PhotoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.ShootDate == nil && p.Location == nil
}

// Hierarchy は編成から鉄道会社までの祖先チェーン。
type Hierarchy struct {
	Formation *Formation
	TrainType *TrainType
	Company   *Company
}
