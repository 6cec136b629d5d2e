package model

import "time"

// 文字列フィールドの最大長
const (
	MaxNameLength        = 255
	MaxOpenIDLength      = 64
	MaxEmailLength       = 320
	MaxLoginMethodLength = 64
	MaxImageKeyLength    = 512
	MaxTitleLength       = 255
	MaxLocationLength    = 255
)

// Company は鉄道会社を表す。
type Company struct {
	ID          int64
	Name        string
	NameJa      string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CompanyPatch は鉄道会社の部分更新内容。nilのフィールドは変更しない。
type CompanyPatch struct {
	Name        *string
	NameJa      *string
	Description *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p CompanyPatch) IsEmpty() bool {
	return p.Name == nil && p.NameJa == nil && p.Description == nil
}

// TrainType は鉄道会社に属する車両形式を表す。
type TrainType struct {
	ID          int64
	CompanyID   int64
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TrainTypePatch は車両形式の部分更新内容。
type TrainTypePatch struct {
	Name        *string
	Description *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p TrainTypePatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}

// Formation は車両形式に属する編成を表す。
type Formation struct {
	ID          int64
	TrainTypeID int64
	Name        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FormationPatch は編成の部分更新内容。
type FormationPatch struct {
	Name        *string
	Description *string
}

// IsEmpty は更新対象のフィールドが1つもないかどうかを返す。
func (p FormationPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil
}
