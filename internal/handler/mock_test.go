package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/middleware"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
	"github.com/hitoshi/railgallery/internal/upload"
)

// --- モック定義 ---

type mockCatalogService struct {
	listCompaniesFn      func(ctx context.Context, actor policy.Actor) ([]*model.Company, error)
	getCompanyFn         func(ctx context.Context, actor policy.Actor, id int64) (*model.Company, error)
	createCompanyFn      func(ctx context.Context, actor policy.Actor, in gallery.CreateCompanyInput) (int64, error)
	updateCompanyFn      func(ctx context.Context, actor policy.Actor, in gallery.UpdateCompanyInput) error
	deleteCompanyFn      func(ctx context.Context, actor policy.Actor, id int64) error
	listTrainTypesFn     func(ctx context.Context, actor policy.Actor, companyID int64) ([]*model.TrainType, error)
	getTrainTypeFn       func(ctx context.Context, actor policy.Actor, id int64) (*model.TrainType, error)
	createTrainTypeFn    func(ctx context.Context, actor policy.Actor, in gallery.CreateTrainTypeInput) (int64, error)
	updateTrainTypeFn    func(ctx context.Context, actor policy.Actor, in gallery.UpdateTrainTypeInput) error
	deleteTrainTypeFn    func(ctx context.Context, actor policy.Actor, id int64) error
	listFormationsFn     func(ctx context.Context, actor policy.Actor, trainTypeID int64) ([]*model.Formation, error)
	getFormationFn       func(ctx context.Context, actor policy.Actor, id int64) (*model.Formation, error)
	createFormationFn    func(ctx context.Context, actor policy.Actor, in gallery.CreateFormationInput) (int64, error)
	updateFormationFn    func(ctx context.Context, actor policy.Actor, in gallery.UpdateFormationInput) error
	deleteFormationFn    func(ctx context.Context, actor policy.Actor, id int64) error
	formationHierarchyFn func(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error)
}

func (m *mockCatalogService) ListCompanies(ctx context.Context, actor policy.Actor) ([]*model.Company, error) {
	if m.listCompaniesFn != nil {
		return m.listCompaniesFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockCatalogService) GetCompany(ctx context.Context, actor policy.Actor, id int64) (*model.Company, error) {
	if m.getCompanyFn != nil {
		return m.getCompanyFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockCatalogService) CreateCompany(ctx context.Context, actor policy.Actor, in gallery.CreateCompanyInput) (int64, error) {
	if m.createCompanyFn != nil {
		return m.createCompanyFn(ctx, actor, in)
	}
	return 0, nil
}

func (m *mockCatalogService) UpdateCompany(ctx context.Context, actor policy.Actor, in gallery.UpdateCompanyInput) error {
	if m.updateCompanyFn != nil {
		return m.updateCompanyFn(ctx, actor, in)
	}
	return nil
}

func (m *mockCatalogService) DeleteCompany(ctx context.Context, actor policy.Actor, id int64) error {
	if m.deleteCompanyFn != nil {
		return m.deleteCompanyFn(ctx, actor, id)
	}
	return nil
}

func (m *mockCatalogService) ListTrainTypes(ctx context.Context, actor policy.Actor, companyID int64) ([]*model.TrainType, error) {
	if m.listTrainTypesFn != nil {
		return m.listTrainTypesFn(ctx, actor, companyID)
	}
	return nil, nil
}

func (m *mockCatalogService) GetTrainType(ctx context.Context, actor policy.Actor, id int64) (*model.TrainType, error) {
	if m.getTrainTypeFn != nil {
		return m.getTrainTypeFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockCatalogService) CreateTrainType(ctx context.Context, actor policy.Actor, in gallery.CreateTrainTypeInput) (int64, error) {
	if m.createTrainTypeFn != nil {
		return m.createTrainTypeFn(ctx, actor, in)
	}
	return 0, nil
}

func (m *mockCatalogService) UpdateTrainType(ctx context.Context, actor policy.Actor, in gallery.UpdateTrainTypeInput) error {
	if m.updateTrainTypeFn != nil {
		return m.updateTrainTypeFn(ctx, actor, in)
	}
	return nil
}

func (m *mockCatalogService) DeleteTrainType(ctx context.Context, actor policy.Actor, id int64) error {
	if m.deleteTrainTypeFn != nil {
		return m.deleteTrainTypeFn(ctx, actor, id)
	}
	return nil
}

func (m *mockCatalogService) ListFormations(ctx context.Context, actor policy.Actor, trainTypeID int64) ([]*model.Formation, error) {
	if m.listFormationsFn != nil {
		return m.listFormationsFn(ctx, actor, trainTypeID)
	}
	return nil, nil
}

func (m *mockCatalogService) GetFormation(ctx context.Context, actor policy.Actor, id int64) (*model.Formation, error) {
	if m.getFormationFn != nil {
		return m.getFormationFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockCatalogService) CreateFormation(ctx context.Context, actor policy.Actor, in gallery.CreateFormationInput) (int64, error) {
	if m.createFormationFn != nil {
		return m.createFormationFn(ctx, actor, in)
	}
	return 0, nil
}

func (m *mockCatalogService) UpdateFormation(ctx context.Context, actor policy.Actor, in gallery.UpdateFormationInput) error {
	if m.updateFormationFn != nil {
		return m.updateFormationFn(ctx, actor, in)
	}
	return nil
}

func (m *mockCatalogService) DeleteFormation(ctx context.Context, actor policy.Actor, id int64) error {
	if m.deleteFormationFn != nil {
		return m.deleteFormationFn(ctx, actor, id)
	}
	return nil
}

func (m *mockCatalogService) FormationHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error) {
	if m.formationHierarchyFn != nil {
		return m.formationHierarchyFn(ctx, actor, id)
	}
	return nil, nil
}

type mockPhotoService struct {
	listPhotosFn     func(ctx context.Context, actor policy.Actor, formationID int64) ([]*model.Photo, error)
	listMyPhotosFn   func(ctx context.Context, actor policy.Actor) ([]*model.Photo, error)
	getPhotoFn       func(ctx context.Context, actor policy.Actor, id int64) (*model.Photo, error)
	createPhotoFn    func(ctx context.Context, actor policy.Actor, in gallery.CreatePhotoInput) (int64, error)
	updatePhotoFn    func(ctx context.Context, actor policy.Actor, in gallery.UpdatePhotoInput) error
	deletePhotoFn    func(ctx context.Context, actor policy.Actor, id int64) error
	photoHierarchyFn func(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error)
	imageKeyInUseFn  func(ctx context.Context, key string) (bool, error)
}

func (m *mockPhotoService) ListPhotos(ctx context.Context, actor policy.Actor, formationID int64) ([]*model.Photo, error) {
	if m.listPhotosFn != nil {
		return m.listPhotosFn(ctx, actor, formationID)
	}
	return nil, nil
}

func (m *mockPhotoService) ListMyPhotos(ctx context.Context, actor policy.Actor) ([]*model.Photo, error) {
	if m.listMyPhotosFn != nil {
		return m.listMyPhotosFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockPhotoService) GetPhoto(ctx context.Context, actor policy.Actor, id int64) (*model.Photo, error) {
	if m.getPhotoFn != nil {
		return m.getPhotoFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockPhotoService) CreatePhoto(ctx context.Context, actor policy.Actor, in gallery.CreatePhotoInput) (int64, error) {
	if m.createPhotoFn != nil {
		return m.createPhotoFn(ctx, actor, in)
	}
	return 0, nil
}

func (m *mockPhotoService) UpdatePhoto(ctx context.Context, actor policy.Actor, in gallery.UpdatePhotoInput) error {
	if m.updatePhotoFn != nil {
		return m.updatePhotoFn(ctx, actor, in)
	}
	return nil
}

func (m *mockPhotoService) DeletePhoto(ctx context.Context, actor policy.Actor, id int64) error {
	if m.deletePhotoFn != nil {
		return m.deletePhotoFn(ctx, actor, id)
	}
	return nil
}

func (m *mockPhotoService) PhotoHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error) {
	if m.photoHierarchyFn != nil {
		return m.photoHierarchyFn(ctx, actor, id)
	}
	return nil, nil
}

func (m *mockPhotoService) ImageKeyInUse(ctx context.Context, key string) (bool, error) {
	if m.imageKeyInUseFn != nil {
		return m.imageKeyInUseFn(ctx, key)
	}
	return false, nil
}

type mockDiscarder struct {
	keys []string
	err  error
}

func (m *mockDiscarder) Discard(_ context.Context, key string) error {
	m.keys = append(m.keys, key)
	return m.err
}

type mockUploader struct {
	maxSize  int64
	uploadFn func(ctx context.Context, actor policy.Actor, r io.Reader) (*upload.Result, error)
	importFn func(ctx context.Context, actor policy.Actor, rawURL string) (*upload.Result, error)
}

func (m *mockUploader) Import(ctx context.Context, actor policy.Actor, rawURL string) (*upload.Result, error) {
	if m.importFn != nil {
		return m.importFn(ctx, actor, rawURL)
	}
	return nil, nil
}

func (m *mockUploader) Upload(ctx context.Context, actor policy.Actor, r io.Reader) (*upload.Result, error) {
	if m.uploadFn != nil {
		return m.uploadFn(ctx, actor, r)
	}
	return nil, nil
}

func (m *mockUploader) MaxSize() int64 {
	if m.maxSize > 0 {
		return m.maxSize
	}
	return upload.DefaultMaxSize
}

type mockAuthService struct {
	getLoginURLFn       func(state string) string
	handleCallbackFn    func(ctx context.Context, code string) (*model.Session, *model.Account, error)
	logoutFn            func(ctx context.Context, sessionID string) error
	getCurrentAccountFn func(ctx context.Context, sessionID string) (*model.Account, error)
}

func (m *mockAuthService) GetLoginURL(state string) string {
	if m.getLoginURLFn != nil {
		return m.getLoginURLFn(state)
	}
	return ""
}

func (m *mockAuthService) HandleCallback(ctx context.Context, code string) (*model.Session, *model.Account, error) {
	if m.handleCallbackFn != nil {
		return m.handleCallbackFn(ctx, code)
	}
	return nil, nil, nil
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) GetCurrentAccount(ctx context.Context, sessionID string) (*model.Account, error) {
	if m.getCurrentAccountFn != nil {
		return m.getCurrentAccountFn(ctx, sessionID)
	}
	return nil, nil
}

// --- テストヘルパー ---

var (
	adminActor = policy.Actor{AccountID: 1, Role: model.RoleAdmin}
	userActor  = policy.Actor{AccountID: 2, Role: model.RoleUser}
)

// newRequest はパスパラメータ {id} と呼び出し元をコンテキストに設定したリクエストを生成する。
// idが空文字の場合はパスパラメータを設定しない。
func newRequest(method, target, id string, actor policy.Actor, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	ctx := middleware.ContextWithActor(req.Context(), actor)
	if id != "" {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", id)
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

// decodeError はエラーレスポンスのcodeを取り出す。
func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return body.Code
}

func strPtr(s string) *string { return &s }
