// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, auth, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidEmail  = "INVALID_EMAIL"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInvalidParam  = "INVALID_PARAMETER"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// NewInvalidEmailError はメールアドレス不正エラーを生成する。
// メッセージは既存フロントエンドが表示する文言と一致させている。
func NewInvalidEmailError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidEmail,
		Message:  "Valid email address is required",
		Category: "validation",
		Action:   "Enter an email address such as name@example.com.",
	}
}

// NewUnauthorizedError は認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "Authentication required",
		Category: "auth",
		Action:   "Send the dashboard token as a Bearer token.",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeNotFound,
		Message:  "Not found",
		Category: "system",
		Action:   "Check the request path.",
	}
}

// NewInvalidParameterError はクエリパラメータ不正エラーを生成する。
func NewInvalidParameterError(name string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidParam,
		Message:  fmt.Sprintf("Invalid parameter: %s", name),
		Category: "validation",
		Action:   "Use a non-negative integer.",
	}
}

// NewInternalError は内部エラーを生成する。詳細はログにのみ記録する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternalError,
		Message:  "Internal server error",
		Category: "system",
		Action:   "Please try again later.",
	}
}
