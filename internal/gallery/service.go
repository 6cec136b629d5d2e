// Package gallery はギャラリーのAPI操作（会社・車両形式・編成・写真）を提供する。
//
// すべての操作は 入力検証 → アクセス制御 → リポジトリ の順に処理する。
// 読み取り操作はストア到達不能時に空の結果へ縮退し、
// 変更操作は STORE_UNAVAILABLE を明示的に返す。
package gallery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/railgallery/internal/database"
	"github.com/hitoshi/railgallery/internal/hierarchy"
	"github.com/hitoshi/railgallery/internal/metrics"
	"github.com/hitoshi/railgallery/internal/model"
	"github.com/hitoshi/railgallery/internal/policy"
	"github.com/hitoshi/railgallery/internal/repository"
	"github.com/hitoshi/railgallery/internal/security"
)

// Repositories はServiceが利用するリポジトリ群。
type Repositories struct {
	Companies  repository.CompanyRepository
	TrainTypes repository.TrainTypeRepository
	Formations repository.FormationRepository
	Photos     repository.PhotoRepository
}

// SQLRepositories はストア上のSQLリポジトリ群を生成する。
func SQLRepositories(store *database.Store) Repositories {
	return Repositories{
		Companies:  repository.NewSQLCompanyRepo(store),
		TrainTypes: repository.NewSQLTrainTypeRepo(store),
		Formations: repository.NewSQLFormationRepo(store),
		Photos:     repository.NewSQLPhotoRepo(store),
	}
}

// ServiceConfig はServiceの任意の依存。nilのフィールドには既定値を使う。
type ServiceConfig struct {
	Policy    policy.Table
	Sanitizer security.TextSanitizer
	Metrics   metrics.MetricsCollector
	Logger    *slog.Logger
}

// Service はギャラリーのAPI操作を提供するサービス層。
type Service struct {
	companies  repository.CompanyRepository
	trainTypes repository.TrainTypeRepository
	formations repository.FormationRepository
	photos     repository.PhotoRepository

	resolver  *hierarchy.Resolver
	policy    policy.Table
	sanitizer security.TextSanitizer
	metrics   metrics.MetricsCollector
	logger    *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repos Repositories, cfg ServiceConfig) *Service {
	s := &Service{
		companies:  repos.Companies,
		trainTypes: repos.TrainTypes,
		formations: repos.Formations,
		photos:     repos.Photos,
		policy:     cfg.Policy,
		sanitizer:  cfg.Sanitizer,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
	}
	if s.policy == nil {
		s.policy = policy.DefaultTable
	}
	if s.sanitizer == nil {
		s.sanitizer = security.NewTextSanitizer()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.resolver = hierarchy.NewResolver(repos.Formations, repos.TrainTypes, repos.Companies, repos.Photos)
	return s
}

// input は正規化と検証を持つ操作入力。
type input interface {
	normalize(san security.TextSanitizer) error
	Validate() error
}

// begin は入力の正規化・検証とアクセス制御を順に行う。
// 不正な入力は呼び出し元に関係なく同じVALIDATION_ERRORになる。
func (s *Service) begin(ctx context.Context, actor policy.Actor, op policy.Operation, in input) error {
	if in != nil {
		err := in.normalize(s.sanitizer)
		if err == nil {
			err = in.Validate()
		}
		if err != nil {
			s.metrics.RecordOperation(string(op), metrics.OutcomeInvalid)
			return err
		}
	}
	return s.authorize(ctx, actor, op, nil)
}

func (s *Service) authorize(ctx context.Context, actor policy.Actor, op policy.Operation, res *policy.Resource) error {
	err := s.policy.Authorize(actor, op, res)
	if err == nil {
		return nil
	}

	s.metrics.RecordAccessDenied(string(op))
	s.metrics.RecordOperation(string(op), metrics.OutcomeDenied)

	code := ""
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
	}
	s.logger.InfoContext(ctx, "操作を拒否しました",
		slog.String("operation", string(op)),
		slog.Int64("account_id", actor.AccountID),
		slog.String("code", code),
	)
	return err
}

// readFailed は読み取り操作のエラーを処理する。
// ストア到達不能の場合はnilを返し、呼び出し元は空の結果を返す。
func (s *Service) readFailed(ctx context.Context, op policy.Operation, err error) error {
	if errors.Is(err, repository.ErrStoreUnavailable) {
		s.metrics.RecordStoreUnavailable(string(op))
		s.metrics.RecordOperation(string(op), metrics.OutcomeStoreUnavailable)
		s.logger.WarnContext(ctx, "ストアに到達できないため空の結果を返します",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		return nil
	}

	s.metrics.RecordOperation(string(op), metrics.OutcomeError)
	s.logger.ErrorContext(ctx, "読み取り操作に失敗しました",
		slog.String("operation", string(op)),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

// writeFailed は変更操作のエラーをAPIエラーに変換する。
func (s *Service) writeFailed(ctx context.Context, op policy.Operation, err error, constraintReason string) error {
	switch {
	case errors.Is(err, repository.ErrStoreUnavailable):
		s.metrics.RecordStoreUnavailable(string(op))
		s.metrics.RecordOperation(string(op), metrics.OutcomeStoreUnavailable)
		s.logger.WarnContext(ctx, "ストアに到達できないため変更操作を中止しました",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		return model.NewStoreUnavailableError()
	case errors.Is(err, repository.ErrConstraintViolation):
		s.metrics.RecordOperation(string(op), metrics.OutcomeConstraint)
		s.logger.InfoContext(ctx, "制約違反により変更操作を拒否しました",
			slog.String("operation", string(op)),
			slog.String("error", err.Error()),
		)
		return model.NewConstraintViolationError(constraintReason)
	}

	s.metrics.RecordOperation(string(op), metrics.OutcomeError)
	s.logger.ErrorContext(ctx, "変更操作に失敗しました",
		slog.String("operation", string(op)),
		slog.String("error", err.Error()),
	)
	return fmt.Errorf("%s: %w", op, err)
}

func (s *Service) succeeded(op policy.Operation) {
	s.metrics.RecordOperation(string(op), metrics.OutcomeOK)
}

// 制約違反の理由
const (
	reasonParentMissing = "親データが存在しません"
	reasonHasChildren   = "子データが残っているため削除できません"
	reasonConflict      = "既存データと競合しました"
)
