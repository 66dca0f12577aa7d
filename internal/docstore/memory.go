package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore はプロセス内のStore実装（開発用・テスト用）。
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]map[string]json.RawMessage
	order map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  map[string]map[string]json.RawMessage{},
		order: map[string][]string{},
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) Result[Document] {
	if err := ctx.Err(); err != nil {
		return Fail[Document](err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.docs[collection][id]
	if !ok {
		return Fail[Document](notFound(collection, id))
	}
	return OK(Document{ID: id, Data: clone(data)}, id)
}

func (s *MemoryStore) List(ctx context.Context, collection string, filters ...Filter) Result[[]Document] {
	if err := ctx.Err(); err != nil {
		return Fail[[]Document](err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []Document{}
	for _, id := range s.order[collection] {
		data := s.docs[collection][id]
		ok, err := matches(data, filters)
		if err != nil {
			return Fail[[]Document](err)
		}
		if ok {
			out = append(out, Document{ID: id, Data: clone(data)})
		}
	}
	return OK(out, "")
}

func (s *MemoryStore) FindOne(ctx context.Context, collection, field, value string) Result[Document] {
	r := s.List(ctx, collection, Where(field, value))
	if !r.Success {
		return Forward[Document](r)
	}
	if len(r.Data) == 0 {
		return Fail[Document](notFound(collection, field+"="+value))
	}
	return OK(r.Data[0], r.Data[0].ID)
}

func (s *MemoryStore) Create(ctx context.Context, collection, id string, data any) Result[Document] {
	if err := ctx.Err(); err != nil {
		return Fail[Document](err)
	}
	raw, err := Encode(data)
	if err != nil {
		return Fail[Document](err)
	}
	id = EnsureID(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.docs[collection] == nil {
		s.docs[collection] = map[string]json.RawMessage{}
	}
	if _, exists := s.docs[collection][id]; exists {
		return Fail[Document](fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id))
	}
	s.docs[collection][id] = clone(raw)
	s.order[collection] = append(s.order[collection], id)
	return OK(Document{ID: id, Data: clone(raw)}, id)
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, data any) Result[Document] {
	if err := ctx.Err(); err != nil {
		return Fail[Document](err)
	}
	raw, err := Encode(data)
	if err != nil {
		return Fail[Document](err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[collection][id]; !exists {
		return Fail[Document](notFound(collection, id))
	}
	s.docs[collection][id] = clone(raw)
	return OK(Document{ID: id, Data: clone(raw)}, id)
}

func matches(data json.RawMessage, filters []Filter) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	for _, f := range filters {
		v, ok := fields[f.Field]
		if !ok || fmt.Sprint(v) != f.Value {
			return false, nil
		}
	}
	return true, nil
}

func clone(b json.RawMessage) json.RawMessage {
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}
