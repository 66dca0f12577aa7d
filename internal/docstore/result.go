package docstore

import (
	"errors"
	"fmt"
)

var (
	// ドキュメントが存在しない
	ErrNotFound = errors.New("document not found")

	// 同じIDのドキュメントが既にある
	ErrAlreadyExists = errors.New("document already exists")
)

// Result はストア呼び出しの共通エンベロープ。
// 呼び出し側は Success（または Err()）で必ず分岐する。
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	DocID   string `json:"docId,omitempty"`
	Error   string `json:"error,omitempty"`

	err error
}

func OK[T any](data T, docID string) Result[T] {
	return Result[T]{Success: true, Data: data, DocID: docID}
}

func Fail[T any](err error) Result[T] {
	if err == nil {
		err = errors.New("unknown store error")
	}
	return Result[T]{Success: false, Error: err.Error(), err: err}
}

// Err は失敗をGoのエラーに戻す。errors.Is(err, ErrNotFound) で判定できる。
func (r Result[T]) Err() error {
	if r.Success {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return errors.New(r.Error)
}

// 型を変えて失敗だけ引き継ぐ
func Forward[T, U any](r Result[U]) Result[T] {
	return Result[T]{Success: false, Error: r.Error, err: r.Err()}
}

func notFound(collection, id string) error {
	return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
}
