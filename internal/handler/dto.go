package handler

import (
	"time"

	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/model"
)

type companyResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	NameJa      string    `json:"nameJa"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type trainTypeResponse struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"companyId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type formationResponse struct {
	ID          int64     `json:"id"`
	TrainTypeID int64     `json:"trainTypeId"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type photoResponse struct {
	ID           int64      `json:"id"`
	FormationID  int64      `json:"formationId"`
	UserID       int64      `json:"userId"`
	ImageURL     string     `json:"imageUrl"`
	ImageKey     string     `json:"imageKey"`
	ThumbnailURL *string    `json:"thumbnailUrl"`
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	ShootDate    *time.Time `json:"shootDate"`
	Location     *string    `json:"location"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// hierarchyResponse は祖先チェーンのレスポンス。photoは写真起点の場合のみ含む。
type hierarchyResponse struct {
	Photo     *photoResponse     `json:"photo,omitempty"`
	Formation *formationResponse `json:"formation"`
	TrainType *trainTypeResponse `json:"trainType"`
	Company   *companyResponse   `json:"company"`
}

type accountResponse struct {
	ID          int64  `json:"id"`
	OpenID      string `json:"openId"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	LoginMethod string `json:"loginMethod"`
	Role        string `json:"role"`
}

type uploadResponse struct {
	ImageURL     string `json:"imageUrl"`
	ImageKey     string `json:"imageKey"`
	ThumbnailURL string `json:"thumbnailUrl"`
	ContentType  string `json:"contentType"`
	Size         int64  `json:"size"`
}

func toCompanyResponse(c *model.Company) *companyResponse {
	return &companyResponse{
		ID:          c.ID,
		Name:        c.Name,
		NameJa:      c.NameJa,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func toTrainTypeResponse(t *model.TrainType) *trainTypeResponse {
	return &trainTypeResponse{
		ID:          t.ID,
		CompanyID:   t.CompanyID,
		Name:        t.Name,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func toFormationResponse(f *model.Formation) *formationResponse {
	return &formationResponse{
		ID:          f.ID,
		TrainTypeID: f.TrainTypeID,
		Name:        f.Name,
		Description: f.Description,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

func toPhotoResponse(p *model.Photo) *photoResponse {
	return &photoResponse{
		ID:           p.ID,
		FormationID:  p.FormationID,
		UserID:       p.UserID,
		ImageURL:     p.ImageURL,
		ImageKey:     p.ImageKey,
		ThumbnailURL: p.ThumbnailURL,
		Title:        p.Title,
		Description:  p.Description,
		ShootDate:    p.ShootDate,
		Location:     p.Location,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// toHierarchyResponse は完全に解決できたチェーンだけを変換する。それ以外はnilを返す。
func toHierarchyResponse(res *hierarchy.Result) *hierarchyResponse {
	if res == nil || !res.Complete() {
		return nil
	}
	out := &hierarchyResponse{
		Formation: toFormationResponse(res.Hierarchy.Formation),
		TrainType: toTrainTypeResponse(res.Hierarchy.TrainType),
		Company:   toCompanyResponse(res.Hierarchy.Company),
	}
	if res.Photo != nil {
		out.Photo = toPhotoResponse(res.Photo)
	}
	return out
}

func toAccountResponse(a *model.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		OpenID:      a.OpenID,
		Name:        a.Name,
		Email:       a.Email,
		LoginMethod: a.LoginMethod,
		Role:        string(a.Role),
	}
}

// mapSlice は一覧の各要素を変換する。入力が空でも空配列（null以外）を返す。
func mapSlice[T any, R any](items []T, fn func(T) R) []R {
	out := make([]R, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
