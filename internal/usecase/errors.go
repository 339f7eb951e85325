package usecase

import (
	"errors"
	"fmt"
)

// ErrorKind はusecaseが返す失敗の種類。
// HTTPステータスへの変換はhandlerだけが行う。
type ErrorKind string

const (
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindForbidden         ErrorKind = "forbidden"
	KindNotFound          ErrorKind = "not_found"
	KindValidation        ErrorKind = "validation_error"
	KindInvalidAmount     ErrorKind = "invalid_amount"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindInvalidFilter     ErrorKind = "invalid_filter"
	KindDuplicateRequest  ErrorKind = "duplicate_request"
	// username/emailの重複など
	KindConflict ErrorKind = "conflict"
	// 永続化層の一時的な失敗（リトライ可）
	KindUnavailable ErrorKind = "unavailable"
)

type Error struct {
	Kind    ErrorKind
	Message string
	// フィールドごとの入力エラー（KindValidationのみ）
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(kind ErrorKind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// NewValidationError はフィールドごとの入力エラーをまとめる
func NewValidationError(fields map[string]string) error {
	return &Error{Kind: KindValidation, Message: "invalid input", Fields: fields}
}

func AsError(err error) (*Error, bool) {
	var ue *Error
	ok := errors.As(err, &ue)
	return ue, ok
}

// KindOf はusecaseのエラーでなければ空文字を返す
func KindOf(err error) ErrorKind {
	if ue, ok := AsError(err); ok {
		return ue.Kind
	}
	return ""
}
