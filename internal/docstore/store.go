package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// コレクション名
const (
	CollectionUsers     = "users"
	CollectionShops     = "shops"
	CollectionOrders    = "orders"
	CollectionAuditLogs = "audit_logs"
)

// Document はIDとJSON本体の組。
type Document struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data"`
}

// Filter はトップレベルの文字列フィールドの一致条件。
type Filter struct {
	Field string
	Value string
}

func Where(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

// Store はドキュメントDBへの窓口。
// どの実装も失敗を Result で返し、panicやnilで黙って終わらない。
type Store interface {
	Get(ctx context.Context, collection, id string) Result[Document]
	List(ctx context.Context, collection string, filters ...Filter) Result[[]Document]
	FindOne(ctx context.Context, collection, field, value string) Result[Document]
	Create(ctx context.Context, collection, id string, data any) Result[Document]
	Update(ctx context.Context, collection, id string, data any) Result[Document]
}

// idが空ならUUIDを振る
func EnsureID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func Encode(v any) (json.RawMessage, error) {
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return b, nil
}

func Decode[T any](doc Document) (T, error) {
	var v T
	if err := json.Unmarshal(doc.Data, &v); err != nil {
		return v, fmt.Errorf("decode document %s: %w", doc.ID, err)
	}
	return v, nil
}

// 1件を型付きで取り出す
func DecodeResult[T any](r Result[Document]) Result[T] {
	if !r.Success {
		return Forward[T](r)
	}
	v, err := Decode[T](r.Data)
	if err != nil {
		return Fail[T](err)
	}
	return OK(v, r.DocID)
}

// 一覧を型付きで取り出す
func DecodeList[T any](r Result[[]Document]) Result[[]T] {
	if !r.Success {
		return Forward[[]T](r)
	}
	out := make([]T, 0, len(r.Data))
	for _, d := range r.Data {
		v, err := Decode[T](d)
		if err != nil {
			return Fail[[]T](err)
		}
		out = append(out, v)
	}
	return OK(out, "")
}
