// Package hierarchy は編成・写真から鉄道会社までの祖先チェーンを復元する。
package hierarchy

import (
	"context"
	"fmt"

	"github.com/hitoshi/railgallery/internal/model"
)

// Status は解決結果の状態。
type Status string

const (
	// StatusComplete は編成・車両形式・会社がすべて揃っていることを示す。
	StatusComplete Status = "complete"
	// StatusNotFound は起点（編成または写真）が存在しないことを示す。
	StatusNotFound Status = "not_found"
	// StatusIncomplete は途中の親が欠落していることを示す。
	StatusIncomplete Status = "incomplete"
)

// Result は祖先チェーンの解決結果。
// StatusIncompleteの場合、欠落したレベル以降はnilになる。
type Result struct {
	Status    Status
	Photo     *model.Photo
	Hierarchy model.Hierarchy
}

// Complete は全レベルが解決できたかどうかを返す。
func (r *Result) Complete() bool {
	return r.Status == StatusComplete
}

// 必要なリポジトリの最小インターフェース
type (
	FormationFinder interface {
		FindByID(ctx context.Context, id int64) (*model.Formation, error)
	}
	TrainTypeFinder interface {
		FindByID(ctx context.Context, id int64) (*model.TrainType, error)
	}
	CompanyFinder interface {
		FindByID(ctx context.Context, id int64) (*model.Company, error)
	}
	PhotoFinder interface {
		FindByID(ctx context.Context, id int64) (*model.Photo, error)
	}
)

// Resolver は祖先チェーンをリポジトリから読み出して組み立てる。キャッシュは持たない。
type Resolver struct {
	formations FormationFinder
	trainTypes TrainTypeFinder
	companies  CompanyFinder
	photos     PhotoFinder
}

// NewResolver はResolverを生成する。
func NewResolver(formations FormationFinder, trainTypes TrainTypeFinder, companies CompanyFinder, photos PhotoFinder) *Resolver {
	return &Resolver{
		formations: formations,
		trainTypes: trainTypes,
		companies:  companies,
		photos:     photos,
	}
}

// ResolveFormation は編成 → 車両形式 → 会社を順に解決する。
// 親が欠落している場合は不完全なチェーンを完全なものとして返さない。
func (r *Resolver) ResolveFormation(ctx context.Context, formationID int64) (*Result, error) {
	formation, err := r.formations.FindByID(ctx, formationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve formation %d: %w", formationID, err)
	}
	if formation == nil {
		return &Result{Status: StatusNotFound}, nil
	}
	return r.resolveFrom(ctx, formation)
}

// ResolvePhoto は写真の所属編成から祖先チェーンを解決する。
func (r *Resolver) ResolvePhoto(ctx context.Context, photoID int64) (*Result, error) {
	photo, err := r.photos.FindByID(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve photo %d: %w", photoID, err)
	}
	if photo == nil {
		return &Result{Status: StatusNotFound}, nil
	}

	formation, err := r.formations.FindByID(ctx, photo.FormationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve formation %d: %w", photo.FormationID, err)
	}
	if formation == nil {
		return &Result{Status: StatusIncomplete, Photo: photo}, nil
	}

	res, err := r.resolveFrom(ctx, formation)
	if err != nil {
		return nil, err
	}
	res.Photo = photo
	return res, nil
}

func (r *Resolver) resolveFrom(ctx context.Context, formation *model.Formation) (*Result, error) {
	res := &Result{Status: StatusIncomplete, Hierarchy: model.Hierarchy{Formation: formation}}

	trainType, err := r.trainTypes.FindByID(ctx, formation.TrainTypeID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve train type %d: %w", formation.TrainTypeID, err)
	}
	if trainType == nil {
		return res, nil
	}
	res.Hierarchy.TrainType = trainType

	company, err := r.companies.FindByID(ctx, trainType.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company %d: %w", trainType.CompanyID, err)
	}
	if company == nil {
		return res, nil
	}
	res.Hierarchy.Company = company
	res.Status = StatusComplete
	return res, nil
}
