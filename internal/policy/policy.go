// Package policy はAPI操作ごとのアクセス制御を1つの宣言的なテーブルで管理する。
//
// 判定結果は許可（nil）、未認証（UNAUTHENTICATED）、権限不足（FORBIDDEN）のいずれかで、
// 拒否は常に明示的なエラーとして返る。テーブルに存在しない操作は拒否する。
package policy

import (
	"github.com/hitoshi/railgallery/internal/model"
)

// Operation はAPI操作名を表す。"<resource>.<action>" 形式。
type Operation string

const (
	CompaniesList    Operation = "companies.list"
	CompaniesGetByID Operation = "companies.getById"
	CompaniesCreate  Operation = "companies.create"
	CompaniesUpdate  Operation = "companies.update"
	CompaniesDelete  Operation = "companies.delete"

	TrainTypesListByCompany Operation = "trainTypes.listByCompany"
	TrainTypesGetByID       Operation = "trainTypes.getById"
	TrainTypesCreate        Operation = "trainTypes.create"
	TrainTypesUpdate        Operation = "trainTypes.update"
	TrainTypesDelete        Operation = "trainTypes.delete"

	FormationsListByTrainType Operation = "formations.listByTrainType"
	FormationsGetByID         Operation = "formations.getById"
	FormationsCreate          Operation = "formations.create"
	FormationsUpdate          Operation = "formations.update"
	FormationsDelete          Operation = "formations.delete"
	FormationsHierarchy       Operation = "formations.hierarchy"

	PhotosListByFormation Operation = "photos.listByFormation"
	PhotosGetByID         Operation = "photos.getById"
	PhotosCreate          Operation = "photos.create"
	PhotosUpdate          Operation = "photos.update"
	PhotosDelete          Operation = "photos.delete"
	PhotosListByUser      Operation = "photos.listByUser"
	PhotosHierarchy       Operation = "photos.hierarchy"

	UploadsCreate Operation = "uploads.create"
)

// Rule は操作に要求される呼び出し元の条件。
type Rule int

const (
	// RuleDeny は常に拒否する。ゼロ値。
	RuleDeny Rule = iota
	// RulePublic は匿名を含む全員に許可する。
	RulePublic
	// RuleAuthenticated はサインイン済みの呼び出し元に許可する。
	RuleAuthenticated
	// RuleAdmin は管理者ロールの呼び出し元に許可する。
	RuleAdmin
	// RuleOwner はリソースの所有者本人に許可する。管理者でも所有者でなければ拒否する。
	RuleOwner
)

func (r Rule) String() string {
	switch r {
	case RulePublic:
		return "public"
	case RuleAuthenticated:
		return "authenticated"
	case RuleAdmin:
		return "admin"
	case RuleOwner:
		return "owner"
	default:
		return "deny"
	}
}

// Table は操作からルールへの対応表。
type Table map[Operation]Rule

// DefaultTable はギャラリーのアクセス制御表。
var DefaultTable = Table{
	CompaniesList:    RulePublic,
	CompaniesGetByID: RulePublic,
	CompaniesCreate:  RuleAdmin,
	CompaniesUpdate:  RuleAdmin,
	CompaniesDelete:  RuleAdmin,

	TrainTypesListByCompany: RulePublic,
	TrainTypesGetByID:       RulePublic,
	TrainTypesCreate:        RuleAdmin,
	TrainTypesUpdate:        RuleAdmin,
	TrainTypesDelete:        RuleAdmin,

	FormationsListByTrainType: RulePublic,
	FormationsGetByID:         RulePublic,
	FormationsCreate:          RuleAdmin,
	FormationsUpdate:          RuleAdmin,
	FormationsDelete:          RuleAdmin,
	FormationsHierarchy:       RulePublic,

	PhotosListByFormation: RulePublic,
	PhotosGetByID:         RulePublic,
	PhotosCreate:          RuleAuthenticated,
	PhotosUpdate:          RuleOwner,
	PhotosDelete:          RuleOwner,
	PhotosListByUser:      RuleAuthenticated,
	PhotosHierarchy:       RulePublic,

	UploadsCreate: RuleAuthenticated,
}

// Actor は操作の呼び出し元。AccountIDが0の場合は匿名。
type Actor struct {
	AccountID int64
	Role      model.Role
}

// Anonymous は匿名の呼び出し元を返す。
func Anonymous() Actor {
	return Actor{}
}

// ActorFromAccount はアカウントから呼び出し元を生成する。
func ActorFromAccount(a *model.Account) Actor {
	if a == nil {
		return Anonymous()
	}
	return Actor{AccountID: a.ID, Role: a.Role}
}

// IsAuthenticated はサインイン済みかどうかを返す。
func (a Actor) IsAuthenticated() bool {
	return a.AccountID != 0
}

// IsAdmin は管理者かどうかを返す。
func (a Actor) IsAdmin() bool {
	return a.IsAuthenticated() && a.Role == model.RoleAdmin
}

// Resource は所有者判定に使う対象リソースの情報。
type Resource struct {
	OwnerID int64
}

// Rule は操作に対応するルールを返す。未登録の操作はRuleDeny。
func (t Table) Rule(op Operation) Rule {
	return t[op]
}

// Authorize は呼び出し元がopを実行できるかを判定する。
//
// RuleOwnerの操作でresがnilの場合は、ロールレベルの事前判定として
// サインイン済みかどうかのみを検査する。所有者の確定後に改めて呼び出すこと。
func (t Table) Authorize(actor Actor, op Operation, res *Resource) error {
	rule := t.Rule(op)

	switch rule {
	case RulePublic:
		return nil
	case RuleDeny:
		return model.NewForbiddenError(string(op))
	}

	if !actor.IsAuthenticated() {
		return model.NewUnauthenticatedError()
	}

	switch rule {
	case RuleAuthenticated:
		return nil
	case RuleAdmin:
		if actor.IsAdmin() {
			return nil
		}
	case RuleOwner:
		if res == nil || res.OwnerID == actor.AccountID {
			return nil
		}
	}
	return model.NewForbiddenError(string(op))
}

// Authorize はDefaultTableで判定する。
func Authorize(actor Actor, op Operation, res *Resource) error {
	return DefaultTable.Authorize(actor, op, res)
}
