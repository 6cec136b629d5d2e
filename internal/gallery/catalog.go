package gallery

import (
	"context"

	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

// ListCompanies は全鉄道会社を名前順に返す。
func (s *Service) ListCompanies(ctx context.Context, actor policy.Actor) ([]*model.Company, error) {
	const op = policy.CompaniesList
	if err := s.begin(ctx, actor, op, nil); err != nil {
		return nil, err
	}

	companies, err := s.companies.List(ctx)
	if err != nil {
		return []*model.Company{}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return companies, nil
}

// GetCompany は鉄道会社を取得する。存在しない場合はnilを返す。
func (s *Service) GetCompany(ctx context.Context, actor policy.Actor, id int64) (*model.Company, error) {
	const op = policy.CompaniesGetByID
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	company, err := s.companies.FindByID(ctx, id)
	if err != nil {
		return nil, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return company, nil
}

// CreateCompany は鉄道会社を作成し、採番されたIDを返す。管理者のみ。
func (s *Service) CreateCompany(ctx context.Context, actor policy.Actor, in CreateCompanyInput) (int64, error) {
	const op = policy.CompaniesCreate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return 0, err
	}

	id, err := s.companies.Create(ctx, &model.Company{
		Name:        in.Name,
		NameJa:      in.NameJa,
		Description: in.Description,
	})
	if err != nil {
		return 0, s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return id, nil
}

// UpdateCompany は鉄道会社を部分更新する。存在しないIDは成功扱い。
func (s *Service) UpdateCompany(ctx context.Context, actor policy.Actor, in UpdateCompanyInput) error {
	const op = policy.CompaniesUpdate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return err
	}

	if err := s.companies.Update(ctx, in.ID, in.patch()); err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return nil
}

// DeleteCompany は鉄道会社を削除する。車両形式が残っている場合はCONSTRAINT_VIOLATION。
func (s *Service) DeleteCompany(ctx context.Context, actor policy.Actor, id int64) error {
	const op = policy.CompaniesDelete
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return err
	}

	if err := s.companies.Delete(ctx, id); err != nil {
		return s.writeFailed(ctx, op, err, reasonHasChildren)
	}
	s.succeeded(op)
	return nil
}

// ListTrainTypes は指定会社の車両形式を名前順に返す。
func (s *Service) ListTrainTypes(ctx context.Context, actor policy.Actor, companyID int64) ([]*model.TrainType, error) {
	const op = policy.TrainTypesListByCompany
	if err := s.begin(ctx, actor, op, idInput{field: "companyId", id: companyID}); err != nil {
		return nil, err
	}

	trainTypes, err := s.trainTypes.ListByCompany(ctx, companyID)
	if err != nil {
		return []*model.TrainType{}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return trainTypes, nil
}

// GetTrainType は車両形式を取得する。存在しない場合はnilを返す。
func (s *Service) GetTrainType(ctx context.Context, actor policy.Actor, id int64) (*model.TrainType, error) {
	const op = policy.TrainTypesGetByID
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	trainType, err := s.trainTypes.FindByID(ctx, id)
	if err != nil {
		return nil, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return trainType, nil
}

// CreateTrainType は車両形式を作成する。存在しない会社IDはCONSTRAINT_VIOLATION。
func (s *Service) CreateTrainType(ctx context.Context, actor policy.Actor, in CreateTrainTypeInput) (int64, error) {
	const op = policy.TrainTypesCreate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return 0, err
	}

	id, err := s.trainTypes.Create(ctx, &model.TrainType{
		CompanyID:   in.CompanyID,
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		return 0, s.writeFailed(ctx, op, err, reasonParentMissing)
	}
	s.succeeded(op)
	return id, nil
}

// UpdateTrainType は車両形式を部分更新する。
func (s *Service) UpdateTrainType(ctx context.Context, actor policy.Actor, in UpdateTrainTypeInput) error {
	const op = policy.TrainTypesUpdate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return err
	}

	patch := model.TrainTypePatch{Name: in.Name, Description: in.Description}
	if err := s.trainTypes.Update(ctx, in.ID, patch); err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return nil
}

// DeleteTrainType は車両形式を削除する。
func (s *Service) DeleteTrainType(ctx context.Context, actor policy.Actor, id int64) error {
	const op = policy.TrainTypesDelete
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return err
	}

	if err := s.trainTypes.Delete(ctx, id); err != nil {
		return s.writeFailed(ctx, op, err, reasonHasChildren)
	}
	s.succeeded(op)
	return nil
}

// ListFormations は指定車両形式の編成を名前順に返す。
func (s *Service) ListFormations(ctx context.Context, actor policy.Actor, trainTypeID int64) ([]*model.Formation, error) {
	const op = policy.FormationsListByTrainType
	if err := s.begin(ctx, actor, op, idInput{field: "trainTypeId", id: trainTypeID}); err != nil {
		return nil, err
	}

	formations, err := s.formations.ListByTrainType(ctx, trainTypeID)
	if err != nil {
		return []*model.Formation{}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return formations, nil
}

// GetFormation は編成を取得する。存在しない場合はnilを返す。
func (s *Service) GetFormation(ctx context.Context, actor policy.Actor, id int64) (*model.Formation, error) {
	const op = policy.FormationsGetByID
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	formation, err := s.formations.FindByID(ctx, id)
	if err != nil {
		return nil, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return formation, nil
}

// CreateFormation は編成を作成する。
func (s *Service) CreateFormation(ctx context.Context, actor policy.Actor, in CreateFormationInput) (int64, error) {
	const op = policy.FormationsCreate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return 0, err
	}

	id, err := s.formations.Create(ctx, &model.Formation{
		TrainTypeID: in.TrainTypeID,
		Name:        in.Name,
		Description: in.Description,
	})
	if err != nil {
		return 0, s.writeFailed(ctx, op, err, reasonParentMissing)
	}
	s.succeeded(op)
	return id, nil
}

// UpdateFormation は編成を部分更新する。
func (s *Service) UpdateFormation(ctx context.Context, actor policy.Actor, in UpdateFormationInput) error {
	const op = policy.FormationsUpdate
	if err := s.begin(ctx, actor, op, &in); err != nil {
		return err
	}

	patch := model.FormationPatch{Name: in.Name, Description: in.Description}
	if err := s.formations.Update(ctx, in.ID, patch); err != nil {
		return s.writeFailed(ctx, op, err, reasonConflict)
	}
	s.succeeded(op)
	return nil
}

// DeleteFormation は編成を削除する。写真が残っている場合はCONSTRAINT_VIOLATION。
func (s *Service) DeleteFormation(ctx context.Context, actor policy.Actor, id int64) error {
	const op = policy.FormationsDelete
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return err
	}

	if err := s.formations.Delete(ctx, id); err != nil {
		return s.writeFailed(ctx, op, err, reasonHasChildren)
	}
	s.succeeded(op)
	return nil
}

// FormationHierarchy は編成から鉄道会社までの祖先チェーンを返す。
// ストア到達不能時は not_found として扱う。
func (s *Service) FormationHierarchy(ctx context.Context, actor policy.Actor, id int64) (*hierarchy.Result, error) {
	const op = policy.FormationsHierarchy
	if err := s.begin(ctx, actor, op, idInput{field: "id", id: id}); err != nil {
		return nil, err
	}

	res, err := s.resolver.ResolveFormation(ctx, id)
	if err != nil {
		return &hierarchy.Result{Status: hierarchy.StatusNotFound}, s.readFailed(ctx, op, err)
	}
	s.succeeded(op)
	return res, nil
}
