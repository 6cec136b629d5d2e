package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

// CatalogService は会社・車両形式・編成のハンドラーが必要とするサービスインターフェース。
// gallery.Serviceが実装する。
type CatalogService interface {
	ListCompanies(ctx context.Context, actor policy.Actor) ([]*model.Company, error)
	GetCompany(ctx context.Context, actor policy.Actor, id int64) (*model.Company, error)
	CreateCompany(ctx context.Context, actor policy.Actor, in gallery.CreateCompanyInput) (int64, error)
	UpdateCompany(ctx context.Context, actor policy.Actor, in gallery.UpdateCompanyInput) error
	DeleteCompany(ctx context.Context, actor policy.Actor, id int64) error

	ListTrainTypes(ctx context.Context, actor policy.Actor, companyID int64) ([]*model.TrainType, error)
	GetTrainType(ctx context.Context, actor policy.Actor, id int64) (*model.TrainType, error)
	CreateTrainType(ctx context.Context, actor policy.Actor, in gallery.CreateTrainTypeInput) (int64, error)
	UpdateTrainType(ctx context.Context, actor policy.Actor, in gallery.UpdateTrainTypeInput) error
	DeleteTrainType(ctx context.Context, actor policy.Actor, id int64) error

	ListFormations(ctx context.Context, actor policy.Actor, trainTypeID int64) ([]*model.Formation, error)
	GetFormation(ctx context.Context, actor policy.Actor, id int64) (*model.Formation, error)
	CreateFormation(ctx context.Context, actor policy.Actor, in gallery.CreateFormationInput) (int64, error)
	UpdateFormation(ctx context.Context, actor policy.Actor, in gallery.UpdateFormationInput) error
	DeleteFormation(ctx context.Context, actor policy.Actor, id int64) error
	FormationHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error)
}

// CatalogHandler は会社・車両形式・編成のHTTPハンドラー。
type CatalogHandler struct {
	service CatalogService
}

// NewCatalogHandler はCatalogHandlerを生成する。
func NewCatalogHandler(service CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

type createCompanyRequest struct {
	Name        string  `json:"name"`
	NameJa      string  `json:"nameJa"`
	Description *string `json:"description"`
}

type updateCompanyRequest struct {
	Name        *string `json:"name"`
	NameJa      *string `json:"nameJa"`
	Description *string `json:"description"`
}

type createTrainTypeRequest struct {
	CompanyID   int64   `json:"companyId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

type createFormationRequest struct {
	TrainTypeID int64   `json:"trainTypeId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// updateNamedRequest は車両形式・編成の更新リクエストのボディ。
type updateNamedRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// --- 鉄道会社 ---

// ListCompanies は鉄道会社の一覧を名前順で返す。
// GET /api/companies
func (h *CatalogHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context(), middleware.ActorFromContext(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(companies, toCompanyResponse))
}

// GetCompany は鉄道会社を取得する。
// GET /api/companies/{id}
func (h *CatalogHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	company, err := h.service.GetCompany(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if company == nil {
		handleServiceError(w, r, model.NewNotFoundError("鉄道会社", id))
		return
	}
	writeJSON(w, http.StatusOK, toCompanyResponse(company))
}

// CreateCompany は鉄道会社を登録する。
// POST /api/companies
func (h *CatalogHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.service.CreateCompany(r.Context(), middleware.ActorFromContext(r.Context()), gallery.CreateCompanyInput{
		Name:        req.Name,
		NameJa:      req.NameJa,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateCompany は鉄道会社を部分更新する。
// PATCH /api/companies/{id}
func (h *CatalogHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateCompanyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.service.UpdateCompany(r.Context(), middleware.ActorFromContext(r.Context()), gallery.UpdateCompanyInput{
		ID:          id,
		Name:        req.Name,
		NameJa:      req.NameJa,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DeleteCompany は鉄道会社を削除する。
// DELETE /api/companies/{id}
func (h *CatalogHandler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteCompany(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// --- 車両形式 ---

// ListTrainTypes は鉄道会社に属する車両形式の一覧を返す。
// GET /api/companies/{id}/train-types
func (h *CatalogHandler) ListTrainTypes(w http.ResponseWriter, r *http.Request) {
	companyID, ok := pathID(w, r)
	if !ok {
		return
	}
	trainTypes, err := h.service.ListTrainTypes(r.Context(), middleware.ActorFromContext(r.Context()), companyID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(trainTypes, toTrainTypeResponse))
}

// GetTrainType は車両形式を取得する。
// GET /api/train-types/{id}
func (h *CatalogHandler) GetTrainType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	trainType, err := h.service.GetTrainType(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if trainType == nil {
		handleServiceError(w, r, model.NewNotFoundError("車両形式", id))
		return
	}
	writeJSON(w, http.StatusOK, toTrainTypeResponse(trainType))
}

// CreateTrainType は車両形式を登録する。
// POST /api/train-types
func (h *CatalogHandler) CreateTrainType(w http.ResponseWriter, r *http.Request) {
	var req createTrainTypeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.service.CreateTrainType(r.Context(), middleware.ActorFromContext(r.Context()), gallery.CreateTrainTypeInput{
		CompanyID:   req.CompanyID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateTrainType は車両形式を部分更新する。
// PATCH /api/train-types/{id}
func (h *CatalogHandler) UpdateTrainType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateNamedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.service.UpdateTrainType(r.Context(), middleware.ActorFromContext(r.Context()), gallery.UpdateTrainTypeInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DeleteTrainType は車両形式を削除する。
// DELETE /api/train-types/{id}
func (h *CatalogHandler) DeleteTrainType(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTrainType(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// --- 編成 ---

// ListFormations は車両形式に属する編成の一覧を返す。
// GET /api/train-types/{id}/formations
func (h *CatalogHandler) ListFormations(w http.ResponseWriter, r *http.Request) {
	trainTypeID, ok := pathID(w, r)
	if !ok {
		return
	}
	formations, err := h.service.ListFormations(r.Context(), middleware.ActorFromContext(r.Context()), trainTypeID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(formations, toFormationResponse))
}

// GetFormation は編成を取得する。
// GET /api/formations/{id}
func (h *CatalogHandler) GetFormation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	formation, err := h.service.GetFormation(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	if formation == nil {
		handleServiceError(w, r, model.NewNotFoundError("編成", id))
		return
	}
	writeJSON(w, http.StatusOK, toFormationResponse(formation))
}

// CreateFormation は編成を登録する。
// POST /api/formations
func (h *CatalogHandler) CreateFormation(w http.ResponseWriter, r *http.Request) {
	var req createFormationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.service.CreateFormation(r.Context(), middleware.ActorFromContext(r.Context()), gallery.CreateFormationInput{
		TrainTypeID: req.TrainTypeID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// UpdateFormation は編成を部分更新する。
// PATCH /api/formations/{id}
func (h *CatalogHandler) UpdateFormation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateNamedRequest
	if !decodeBody(w, r, &req) {
		return
	}
	err := h.service.UpdateFormation(r.Context(), middleware.ActorFromContext(r.Context()), gallery.UpdateFormationInput{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// DeleteFormation は編成を削除する。
// DELETE /api/formations/{id}
func (h *CatalogHandler) DeleteFormation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteFormation(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeSuccess(w)
}

// FormationHierarchy は編成から鉄道会社までの祖先チェーンを返す。
// チェーンが途中で途切れている場合は存在しないものとして404を返す。
// GET /api/formations/{id}/hierarchy
func (h *CatalogHandler) FormationHierarchy(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	res, err := h.service.FormationHierarchy(r.Context(), middleware.ActorFromContext(r.Context()), id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	body := toHierarchyResponse(res)
	if body == nil {
		handleServiceError(w, r, model.NewNotFoundError("編成", id))
		return
	}
	writeJSON(w, http.StatusOK, body)
}
