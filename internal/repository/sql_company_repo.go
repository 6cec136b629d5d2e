package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/model"
)

const companyColumns = `id, name, name_ja, description, created_at, updated_at`

// SQLCompanyRepo はdatabase/sqlを使用した鉄道会社リポジトリ。
type SQLCompanyRepo struct {
	sqlRepo
}

// NewSQLCompanyRepo はSQLCompanyRepoを生成する。
func NewSQLCompanyRepo(store *database.Store) *SQLCompanyRepo {
	return &SQLCompanyRepo{sqlRepo{store: store}}
}

// List は全鉄道会社を名前の昇順（同名はID順）で返す。
func (r *SQLCompanyRepo) List(ctx context.Context) ([]*model.Company, error) {
	companies := []*model.Company{}
	err := r.query(ctx, "list companies",
		`SELECT `+companyColumns+` FROM companies ORDER BY name, id`, nil,
		func(rows *sql.Rows) error {
			c, err := scanCompany(rows)
			if err != nil {
				return err
			}
			companies = append(companies, c)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return companies, nil
}

// FindByID は指定IDの鉄道会社を取得する。見つからない場合はnilを返す。
func (r *SQLCompanyRepo) FindByID(ctx context.Context, id int64) (*model.Company, error) {
	var (
		c    model.Company
		desc sql.NullString
	)
	found, err := r.queryRow(ctx, "find company",
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, []any{id},
		&c.ID, &c.Name, &c.NameJa, &desc, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil || !found {
		return nil, err
	}
	c.Description = stringPtr(desc)
	return &c, nil
}

// Create は鉄道会社を作成し、採番されたIDを返す。
func (r *SQLCompanyRepo) Create(ctx context.Context, company *model.Company) (int64, error) {
	var id int64
	_, err := r.queryRow(ctx, "create company",
		`INSERT INTO companies (name, name_ja, description) VALUES (?, ?, ?) RETURNING id`,
		[]any{company.Name, company.NameJa, nullableString(company.Description)},
		&id,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update は指定されたフィールドのみを更新する。
// 対象が存在しない場合や更新内容が空の場合は何もせず成功する。
func (r *SQLCompanyRepo) Update(ctx context.Context, id int64, patch model.CompanyPatch) error {
	if patch.IsEmpty() {
		return nil
	}

	var set updateSet
	if patch.Name != nil {
		set.add("name", *patch.Name)
	}
	if patch.NameJa != nil {
		set.add("name_ja", *patch.NameJa)
	}
	if patch.Description != nil {
		set.add("description", *patch.Description)
	}

	query, args := set.build("companies", id)
	_, err := r.exec(ctx, "update company", query, args...)
	return err
}

// Delete は指定IDの鉄道会社を削除する。存在しない場合も成功扱い。
// 車両形式が残っている場合はErrConstraintViolationになる。
func (r *SQLCompanyRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.exec(ctx, "delete company", `DELETE FROM companies WHERE id = ?`, id)
	return err
}

func scanCompany(rows *sql.Rows) (*model.Company, error) {
	var (
		c    model.Company
		desc sql.NullString
	)
	if err := rows.Scan(&c.ID, &c.Name, &c.NameJa, &desc, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = stringPtr(desc)
	return &c, nil
}

// compile-time interface check
var _ CompanyRepository = (*SQLCompanyRepo)(nil)
