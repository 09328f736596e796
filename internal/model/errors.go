// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はAPIErrorの種別を表す。
// HTTPステータスへの変換は middleware.StatusForKind が一元的に行う。
type ErrorKind int

const (
	// KindInternal は分類できない内部エラー。
	KindInternal ErrorKind = iota
	// KindNotFound は指定IDなどのリソースが存在しないエラー。
	KindNotFound
	// KindDuplicate は一意キー（ユーザー名、ISBN）の重複エラー。
	KindDuplicate
	// KindRouteNotFound はルーティング上存在しないパスへのアクセス。
	KindRouteNotFound
	// KindAccessDenied はロールまたは所有者チェックによる拒否。
	KindAccessDenied
	// KindBadRequest は不正な引数・状態。
	KindBadRequest
	// KindValidationFailed はリクエストボディのフィールド検証エラー。
	KindValidationFailed
	// KindConstraintViolation はパスパラメータ等の制約違反。
	KindConstraintViolation
	// KindIntegrityConflict はDBの一意制約違反。
	KindIntegrityConflict
	// KindAuthFailed はトークン検証失敗・未認証。
	KindAuthFailed
	// KindBadCredentials はユーザー名またはパスワードの不一致。
	KindBadCredentials
	// KindMethodNotSupported は未サポートのHTTPメソッド。
	KindMethodNotSupported
)

// AllErrorKinds は定義済みの全ErrorKindを返す。
func AllErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindInternal,
		KindNotFound,
		KindDuplicate,
		KindRouteNotFound,
		KindAccessDenied,
		KindBadRequest,
		KindValidationFailed,
		KindConstraintViolation,
		KindIntegrityConflict,
		KindAuthFailed,
		KindBadCredentials,
		KindMethodNotSupported,
	}
}

// String はログ出力用の種別名を返す。
func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindDuplicate:
		return "duplicate"
	case KindRouteNotFound:
		return "route_not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindBadRequest:
		return "bad_request"
	case KindValidationFailed:
		return "validation_failed"
	case KindConstraintViolation:
		return "constraint_violation"
	case KindIntegrityConflict:
		return "integrity_conflict"
	case KindAuthFailed:
		return "auth_failed"
	case KindBadCredentials:
		return "bad_credentials"
	case KindMethodNotSupported:
		return "method_not_supported"
	default:
		return "internal"
	}
}

// APIError はサービス層からHTTP層へ伝播する型付きエラー。
// Messageはクライアントに返してよい文言のみを含める。
// Errは原因エラーでありログにのみ出力する。
type APIError struct {
	Kind    ErrorKind
	Message string
	Fields  map[string]string // フィールド名 -> 検証メッセージ
	Err     error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// KindOf はエラーチェーンからAPIErrorの種別を取り出す。
// APIErrorを含まない場合はKindInternalを返す。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError(id int64) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("User with id %d not found", id),
	}
}

// NewUsernameNotFoundError はユーザー名によるユーザー未検出エラーを生成する。
func NewUsernameNotFoundError(username string) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("User with username %s not found", username),
	}
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *APIError {
	return &APIError{
		Kind:    KindDuplicate,
		Message: fmt.Sprintf("User with username %s already exists", username),
	}
}

// NewBookNotFoundError は書籍未検出エラーを生成する。
func NewBookNotFoundError(id int64) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Book with id %d not found", id),
	}
}

// NewBookISBNNotFoundError はISBNによる書籍未検出エラーを生成する。
func NewBookISBNNotFoundError(isbn string) *APIError {
	return &APIError{
		Kind:    KindNotFound,
		Message: fmt.Sprintf("Book with isbn %s not found", isbn),
	}
}

// NewDuplicateISBNError はISBN重複エラーを生成する。
func NewDuplicateISBNError(isbn string) *APIError {
	return &APIError{
		Kind:    KindDuplicate,
		Message: fmt.Sprintf("Book with isbn %s already exists", isbn),
	}
}

// NewRouteNotFoundError はルート未検出エラーを生成する。
func NewRouteNotFoundError(path string) *APIError {
	return &APIError{
		Kind:    KindRouteNotFound,
		Message: fmt.Sprintf("no route for %s", path),
	}
}

// NewAccessDeniedError はアクセス拒否エラーを生成する。
func NewAccessDeniedError(reason string) *APIError {
	return &APIError{
		Kind:    KindAccessDenied,
		Message: reason,
	}
}

// NewBadRequestError は不正リクエストエラーを生成する。
func NewBadRequestError(message string) *APIError {
	return &APIError{
		Kind:    KindBadRequest,
		Message: message,
	}
}

// NewValidationError はボディのフィールド検証エラーを生成する。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindValidationFailed,
		Message: "Validation failed.",
		Fields:  fields,
	}
}

// NewConstraintViolationError はパラメータ制約違反エラーを生成する。
// fieldsのキーは "<操作名>.<パラメータ名>" 形式のパス。
func NewConstraintViolationError(fields map[string]string) *APIError {
	return &APIError{
		Kind:    KindConstraintViolation,
		Message: "Validation failed.",
		Fields:  fields,
	}
}

// NewIntegrityConflictError はDB一意制約違反エラーを生成する。
func NewIntegrityConflictError(err error) *APIError {
	return &APIError{
		Kind:    KindIntegrityConflict,
		Message: "data integrity violation",
		Err:     err,
	}
}

// NewAuthFailedError はトークン検証失敗エラーを生成する。
func NewAuthFailedError(reason string, err error) *APIError {
	return &APIError{
		Kind:    KindAuthFailed,
		Message: reason,
		Err:     err,
	}
}

// NewBadCredentialsError は認証情報不一致エラーを生成する。
func NewBadCredentialsError(username string) *APIError {
	return &APIError{
		Kind:    KindBadCredentials,
		Message: fmt.Sprintf("bad credentials for %q", username),
	}
}

// NewMethodNotSupportedError は未サポートメソッドエラーを生成する。
func NewMethodNotSupportedError(method, path string) *APIError {
	return &APIError{
		Kind:    KindMethodNotSupported,
		Message: fmt.Sprintf("request method %s not supported for %s", method, path),
	}
}
