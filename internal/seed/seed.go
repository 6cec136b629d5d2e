// Package seed はYAMLで記述した鉄道会社・車両形式・編成の分類を投入する。
//
// 投入は通常のAPI操作（gallery.Service）を管理者として呼び出して行うため、
// 入力検証とアクセス制御はAPI経由の登録と同じになる。同じ親の下に同名の要素が
// 既にあれば再利用するので、同じファイルを繰り返し投入できる。
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/railgallery/internal/gallery"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
)

// DefaultOwnerOpenID はファイルにownerが指定されていない場合の投入者。
const DefaultOwnerOpenID = "seed"

// File はシードファイルの構造。
type File struct {
	Owner     *OwnerYAML    `yaml:"owner,omitempty"`
	Companies []CompanyYAML `yaml:"companies"`
}

// OwnerYAML は投入を実行する管理者アカウント。
type OwnerYAML struct {
	OpenID string `yaml:"openId"`
	Name   string `yaml:"name,omitempty"`
}

// CompanyYAML は鉄道会社とその車両形式。
type CompanyYAML struct {
	Name        string          `yaml:"name"`
	NameJa      string          `yaml:"nameJa"`
	Description *string         `yaml:"description,omitempty"`
	TrainTypes  []TrainTypeYAML `yaml:"trainTypes,omitempty"`
}

// TrainTypeYAML は車両形式とその編成。
type TrainTypeYAML struct {
	Name        string          `yaml:"name"`
	Description *string         `yaml:"description,omitempty"`
	Formations  []FormationYAML `yaml:"formations,omitempty"`
}

// FormationYAML は編成。
type FormationYAML struct {
	Name        string  `yaml:"name"`
	Description *string `yaml:"description,omitempty"`
}

// LoadFile はシードファイルを読み込む。
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse はYAMLをFileに変換する。未知のキーはエラーにする。
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed YAML: %w", err)
	}
	return &f, nil
}

// Catalog はシード投入に必要なカタログ操作。gallery.Serviceが実装する。
type Catalog interface {
	ListCompanies(ctx context.Context, actor policy.Actor) ([]*model.Company, error)
	CreateCompany(ctx context.Context, actor policy.Actor, in gallery.CreateCompanyInput) (int64, error)
	ListTrainTypes(ctx context.Context, actor policy.Actor, companyID int64) ([]*model.TrainType, error)
	CreateTrainType(ctx context.Context, actor policy.Actor, in gallery.CreateTrainTypeInput) (int64, error)
	ListFormations(ctx context.Context, actor policy.Actor, trainTypeID int64) ([]*model.Formation, error)
	CreateFormation(ctx context.Context, actor policy.Actor, in gallery.CreateFormationInput) (int64, error)
}

// AccountEnsurer は投入者アカウントを用意する。auth.Serviceが実装する。
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, openID, name string, role model.Role) (*model.Account, error)
}

// Counts は階層ごとの作成・再利用件数。
type Counts struct {
	Created int
	Reused  int
}

// Summary は投入結果。
type Summary struct {
	Companies  Counts
	TrainTypes Counts
	Formations Counts
}

// Seeder はシードファイルをカタログに反映する。
type Seeder struct {
	catalog  Catalog
	accounts AccountEnsurer
	logger   *slog.Logger
}

// NewSeeder はSeederを生成する。
func NewSeeder(catalog Catalog, accounts AccountEnsurer, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{catalog: catalog, accounts: accounts, logger: logger}
}

// Apply はファイルの内容を投入する。途中で失敗した場合、それまでに作成した要素は残る。
func (s *Seeder) Apply(ctx context.Context, f *File) (*Summary, error) {
	openID, name := DefaultOwnerOpenID, "Seed"
	if f.Owner != nil && f.Owner.OpenID != "" {
		openID = f.Owner.OpenID
		if f.Owner.Name != "" {
			name = f.Owner.Name
		}
	}
	account, err := s.accounts.EnsureAccount(ctx, openID, name, model.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure seed owner: %w", err)
	}
	actor := policy.ActorFromAccount(account)

	sum := &Summary{}
	companies, err := s.catalog.ListCompanies(ctx, actor)
	if err != nil {
		return sum, err
	}
	companyIDs := nameIndex(companies, func(v *model.Company) (string, int64) { return v.Name, v.ID })

	for _, c := range f.Companies {
		companyID, created, err := findOrCreate(companyIDs, c.Name,
			func() (int64, error) {
				return s.catalog.CreateCompany(ctx, actor, gallery.CreateCompanyInput{
					Name: c.Name, NameJa: c.NameJa, Description: c.Description,
				})
			})
		if err != nil {
			return sum, fmt.Errorf("company %q: %w", c.Name, err)
		}
		sum.Companies.count(created)

		if err := s.applyTrainTypes(ctx, actor, companyID, c.TrainTypes, sum); err != nil {
			return sum, fmt.Errorf("company %q: %w", c.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "シードを投入しました",
		slog.Int("companies_created", sum.Companies.Created),
		slog.Int("train_types_created", sum.TrainTypes.Created),
		slog.Int("formations_created", sum.Formations.Created),
		slog.Int("reused", sum.Companies.Reused+sum.TrainTypes.Reused+sum.Formations.Reused),
	)
	return sum, nil
}

func (s *Seeder) applyTrainTypes(ctx context.Context, actor policy.Actor, companyID int64, items []TrainTypeYAML, sum *Summary) error {
	if len(items) == 0 {
		return nil
	}
	existing, err := s.catalog.ListTrainTypes(ctx, actor, companyID)
	if err != nil {
		return err
	}
	index := nameIndex(existing, func(v *model.TrainType) (string, int64) { return v.Name, v.ID })
	for _, tt := range items {
		trainTypeID, created, err := findOrCreate(index, tt.Name,
			func() (int64, error) {
				return s.catalog.CreateTrainType(ctx, actor, gallery.CreateTrainTypeInput{
					CompanyID: companyID, Name: tt.Name, Description: tt.Description,
				})
			})
		if err != nil {
			return fmt.Errorf("train type %q: %w", tt.Name, err)
		}
		sum.TrainTypes.count(created)

		if err := s.applyFormations(ctx, actor, trainTypeID, tt.Formations, sum); err != nil {
			return fmt.Errorf("train type %q: %w", tt.Name, err)
		}
	}
	return nil
}

func (s *Seeder) applyFormations(ctx context.Context, actor policy.Actor, trainTypeID int64, items []FormationYAML, sum *Summary) error {
	if len(items) == 0 {
		return nil
	}
	existing, err := s.catalog.ListFormations(ctx, actor, trainTypeID)
	if err != nil {
		return err
	}
	index := nameIndex(existing, func(v *model.Formation) (string, int64) { return v.Name, v.ID })
	for _, fm := range items {
		_, created, err := findOrCreate(index, fm.Name,
			func() (int64, error) {
				return s.catalog.CreateFormation(ctx, actor, gallery.CreateFormationInput{
					TrainTypeID: trainTypeID, Name: fm.Name, Description: fm.Description,
				})
			})
		if err != nil {
			return fmt.Errorf("formation %q: %w", fm.Name, err)
		}
		sum.Formations.count(created)
	}
	return nil
}

// findOrCreate は同名の既存要素があればそのIDを返し、なければcreateを呼んで索引に加える。
func findOrCreate(index map[string]int64, name string, create func() (int64, error)) (int64, bool, error) {
	if id, ok := index[strings.TrimSpace(name)]; ok {
		return id, false, nil
	}
	id, err := create()
	if err != nil {
		return 0, false, err
	}
	index[strings.TrimSpace(name)] = id
	return id, true, nil
}

// nameIndex は要素の名前からIDへの索引を作る。
func nameIndex[T any](items []T, key func(T) (string, int64)) map[string]int64 {
	index := make(map[string]int64, len(items))
	for _, v := range items {
		n, id := key(v)
		index[n] = id
	}
	return index
}

func (c *Counts) count(created bool) {
	if created {
		c.Created++
	} else {
		c.Reused++
	}
}
