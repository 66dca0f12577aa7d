package usecase

import (
	"errors"
	"fmt"
	"net/http"
)

// HTTPError はハンドラがそのままレスポンスにするエラー
type HTTPError struct {
	Status  int
	Message string
	// 入力エラーのときだけ。フィールド名→メッセージ
	Fields map[string]string
	// ログ用の元エラー（レスポンスには出さない）
	Cause error
}

func (e *HTTPError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Cause)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// 元エラーを残したまま包む（errors.Isで辿れる）
func WrapHTTPError(status int, message string, cause error) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Cause:   cause,
	}
}

// 400 + フィールドごとのメッセージ
func NewValidationError(fields map[string]string) error {
	return &HTTPError{
		Status:  http.StatusBadRequest,
		Message: "validation error",
		Fields:  fields,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}
