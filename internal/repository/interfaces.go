// Package repository はデータ永続化のインターフェースとSQL実装を提供する。
//
// 共通の契約:
//   - FindByID は見つからない場合 nil, nil を返す（エラーではない）。
//   - Update / Delete は対象が存在しない場合も成功扱い（no-op）とする。
//   - ストア到達不能は ErrStoreUnavailable、参照整合性・一意制約違反は
//     ErrConstraintViolation をラップしたエラーとして返す。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

var (
	// ErrStoreUnavailable はストアに到達できないことを示す。
	ErrStoreUnavailable = database.ErrStoreUnavailable
	// ErrConstraintViolation は制約違反を示す。
	ErrConstraintViolation = database.ErrConstraintViolation
)

// AccountRepository はアカウントの永続化インターフェース。
type AccountRepository interface {
	// FindByID は指定IDのアカウントを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Account, error)
	// FindByOpenID はOpenIDでアカウントを検索する。見つからない場合はnilを返す。
	FindByOpenID(ctx context.Context, openID string) (*model.Account, error)
	// Upsert はOpenIDをキーにアカウントを作成または更新し、更新後のアカウントを返す。
	Upsert(ctx context.Context, in model.AccountUpsert) (*model.Account, error)
}

// SessionRepository はセッションの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired はnow時点で期限切れのセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// CompanyRepository は鉄道会社の永続化インターフェース。
type CompanyRepository interface {
	// List は全鉄道会社を名前の昇順で返す。
	List(ctx context.Context) ([]*model.Company, error)
	FindByID(ctx context.Context, id int64) (*model.Company, error)
	// Create は鉄道会社を作成し、採番されたIDを返す。
	Create(ctx context.Context, company *model.Company) (int64, error)
	Update(ctx context.Context, id int64, patch model.CompanyPatch) error
	Delete(ctx context.Context, id int64) error
}

// TrainTypeRepository は車両形式の永続化インターフェース。
type TrainTypeRepository interface {
	// ListByCompany は指定会社の車両形式を名前の昇順で返す。
	ListByCompany(ctx context.Context, companyID int64) ([]*model.TrainType, error)
	FindByID(ctx context.Context, id int64) (*model.TrainType, error)
	// Create は車両形式を作成する。存在しないcompanyIDはErrConstraintViolationになる。
	Create(ctx context.Context, trainType *model.TrainType) (int64, error)
	Update(ctx context.Context, id int64, patch model.TrainTypePatch) error
	Delete(ctx context.Context, id int64) error
}

// FormationRepository は編成の永続化インターフェース。
type FormationRepository interface {
	// ListByTrainType は指定車両形式の編成を名前の昇順で返す。
	ListByTrainType(ctx context.Context, trainTypeID int64) ([]*model.Formation, error)
	FindByID(ctx context.Context, id int64) (*model.Formation, error)
	Create(ctx context.Context, formation *model.Formation) (int64, error)
	Update(ctx context.Context, id int64, patch model.FormationPatch) error
	Delete(ctx context.Context, id int64) error
}

// PhotoRepository は写真の永続化インターフェース。
type PhotoRepository interface {
	// ListByFormation は指定編成の写真を作成順で返す。
	ListByFormation(ctx context.Context, formationID int64) ([]*model.Photo, error)
	// ListByAccount は指定アカウントが投稿した写真を作成順で返す。
	ListByAccount(ctx context.Context, accountID int64) ([]*model.Photo, error)
	FindByID(ctx context.Context, id int64) (*model.Photo, error)
	Create(ctx context.Context, photo *model.Photo) (int64, error)
	Update(ctx context.Context, id int64, patch model.PhotoPatch) error
	Delete(ctx context.Context, id int64) error
	// CountByImageKey は指定画像キーを参照する写真の件数を返す。
	CountByImageKey(ctx context.Context, key string) (int, error)
}
