package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

const formationColumns = `id, train_type_id, name, description, created_at, updated_at`

// SQLFormationRepo はdatabase/sqlを使用した編成リポジトリ。
type SQLFormationRepo struct {
	sqlRepo
}

// NewSQLFormationRepo はSQLFormationRepoを生成する。
func NewSQLFormationRepo(store *database.Store) *SQLFormationRepo {
	return &SQLFormationRepo{sqlRepo{store: store}}
}

// ListByTrainType は指定車両形式の編成を名前の昇順で返す。
func (r *SQLFormationRepo) ListByTrainType(ctx context.Context, trainTypeID int64) ([]*model.Formation, error) {
	formations := []*model.Formation{}
	err := r.query(ctx, "list formations",
		`SELECT `+formationColumns+` FROM formations WHERE train_type_id = ? ORDER BY name, id`,
		[]any{trainTypeID},
		func(rows *sql.Rows) error {
			var (
				f    model.Formation
				desc sql.NullString
			)
			if err := rows.Scan(&f.ID, &f.TrainTypeID, &f.Name, &desc, &f.CreatedAt, &f.UpdatedAt); err != nil {
				return err
			}
			f.Description = stringPtr(desc)
			formations = append(formations, &f)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return formations, nil
}

// FindByID は指定IDの編成を取得する。見つからない場合はnilを返す。
func (r *SQLFormationRepo) FindByID(ctx context.Context, id int64) (*model.Formation, error) {
	var (
		f    model.Formation
		desc sql.NullString
	)
	found, err := r.queryRow(ctx, "find formation",
		`SELECT `+formationColumns+` FROM formations WHERE id = ?`, []any{id},
		&f.ID, &f.TrainTypeID, &f.Name, &desc, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil || !found {
		return nil, err
	}
	f.Description = stringPtr(desc)
	return &f, nil
}

// Create は編成を作成し、採番されたIDを返す。
func (r *SQLFormationRepo) Create(ctx context.Context, formation *model.Formation) (int64, error) {
	var id int64
	_, err := r.queryRow(ctx, "create formation",
		`INSERT INTO formations (train_type_id, name, description) VALUES (?, ?, ?) RETURNING id`,
		[]any{formation.TrainTypeID, formation.Name, nullableString(formation.Description)},
		&id,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update は指定されたフィールドのみを更新する。
func (r *SQLFormationRepo) Update(ctx context.Context, id int64, patch model.FormationPatch) error {
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

	query, args := set.build("formations", id)
	_, err := r.exec(ctx, "update formation", query, args...)
	return err
}

// Delete は指定IDの編成を削除する。存在しない場合も成功扱い。
func (r *SQLFormationRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, "delete formation", `DELETE FROM formations WHERE id = ?`, id)
	return err
}

// compile-time interface check
var _ FormationRepository = (*SQLFormationRepo)(nil)
