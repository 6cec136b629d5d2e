// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, catalog, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeStoreUnavailable    = "STORE_UNAVAILABLE"
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// NewNotFoundError は指定リソースが存在しない場合のエラーを生成する。
func NewNotFoundError(resource string, id int64) *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %d", resource, id),
		Category: "catalog",
		Action:   "IDを確認してください。",
	}
}

// NewUnauthenticatedError は未ログインの呼び出し元を拒否する場合のエラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足で操作を拒否する場合のエラーを生成する。
func NewForbiddenError(operation string) *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  fmt.Sprintf("この操作を実行する権限がありません: %s", operation),
		Category: "auth",
		Action:   "管理者または投稿者本人のアカウントで操作してください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
func NewValidationError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力値が不正です: %s (%s)", field, reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewStoreUnavailableError はデータストアに到達できない場合のエラーを生成する。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "データベースに接続できません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewConstraintViolationError は参照整合性や一意制約に違反した場合のエラーを生成する。
func NewConstraintViolationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeConstraintViolation,
		Message:  fmt.Sprintf("データの整合性制約に違反しました: %s", reason),
		Category: "catalog",
		Action:   "親データの存在や、削除対象に子データが残っていないかを確認してください。",
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
