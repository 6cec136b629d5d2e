package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

const trainTypeColumns = `id, company_id, name, description, created_at, updated_at`

// SQLTrainTypeRepo はdatabase/sqlを使用した車両形式リポジトリ。
type SQLTrainTypeRepo struct {
	sqlRepo
}

// NewSQLTrainTypeRepo はSQLTrainTypeRepoを生成する。
func NewSQLTrainTypeRepo(store *database.Store) *SQLTrainTypeRepo {
	return &SQLTrainTypeRepo{sqlRepo{store: store}}
}

// ListByCompany は指定会社の車両形式を名前の昇順で返す。
func (r *SQLTrainTypeRepo) ListByCompany(ctx context.Context, companyID int64) ([]*model.TrainType, error) {
	trainTypes := []*model.TrainType{}
	err := r.query(ctx, "list train types",
		`SELECT `+trainTypeColumns+` FROM train_types WHERE company_id = ? ORDER BY name, id`,
		[]any{companyID},
		func(rows *sql.Rows) error {
			var (
				tt   model.TrainType
				desc sql.NullString
			)
			if err := rows.Scan(&tt.ID, &tt.CompanyID, &tt.Name, &desc, &tt.CreatedAt, &tt.UpdatedAt); err != nil {
				return err
			}
			tt.Description = stringPtr(desc)
			trainTypes = append(trainTypes, &tt)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return trainTypes, nil
}

// FindByID は指定IDの車両形式を取得する。見つからない場合はnilを返す。
func (r *SQLTrainTypeRepo) FindByID(ctx context.Context, id int64) (*model.TrainType, error) {
	var (
		tt   model.TrainType
		desc sql.NullString
	)
	found, err := r.queryRow(ctx, "find train type",
		`SELECT `+trainTypeColumns+` FROM train_types WHERE id = ?`, []any{id},
		&tt.ID, &tt.CompanyID, &tt.Name, &desc, &tt.CreatedAt, &tt.UpdatedAt,
	)
	if err != nil || !found {
		return nil, err
	}
	tt.Description = stringPtr(desc)
	return &tt, nil
}

// Create は車両形式を作成し、採番されたIDを返す。
func (r *SQLTrainTypeRepo) Create(ctx context.Context, trainType *model.TrainType) (int64, error) {
	var id int64
	_, err := r.queryRow(ctx, "create train type",
		`INSERT INTO train_types (company_id, name, description) VALUES (?, ?, ?) RETURNING id`,
		[]any{trainType.CompanyID, trainType.Name, nullableString(trainType.Description)},
		&id,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update は指定されたフィールドのみを更新する。所属会社は変更できない。
func (r *SQLTrainTypeRepo) Update(ctx context.Context, id int64, patch model.TrainTypePatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var set updateSet
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}

	query, args := set.build("train_types", id)
	_, err := r.exec(ctx, "update train type", query, args...)
	return err
}

// Delete は指定IDの車両形式を削除する。存在しない場合も成功扱い。
func (r *SQLTrainTypeRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, "delete train type", `DELETE FROM train_types WHERE id = ?`, id)
	return err
}

// compile-time interface check
var _ TrainTypeRepository = (*SQLTrainTypeRepo)(nil)
