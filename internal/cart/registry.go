package cart

import "sync"

// Registry はサインイン中のユーザーごとにHolderを持つ
type Registry struct {
	mu      sync.Mutex
	holders map[string]*Holder
}

func NewRegistry() *Registry {
	return &Registry{holders: map[string]*Holder{}}
}

// For はなければ作る
func (r *Registry) For(userID string) *Holder {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.holders[userID]
	if !ok {
		h = NewHolder()
		r.holders[userID] = h
	}
	return h
}

// Drop はログアウト時に呼ぶ。購読者にはEndedの空カートが届き、購読は外れる。
func (r *Registry) Drop(userID string) {
	r.mu.Lock()
	h, ok := r.holders[userID]
	delete(r.holders, userID)
	r.mu.Unlock()

	if ok {
		h.End()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.holders)
}
