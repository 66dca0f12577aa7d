// Package session はログイン中ユーザーの認証状態とカートの生存期間を管理する。
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jedmamosto/tupv-project-sub000/internal/cache"
	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// プロフィール（ロール）を引けなかった。呼び出し側は未ログインとして扱いつつエラーを返す。
var ErrProfileLookup = errors.New("profile lookup failed")

type Manager struct {
	users repository.UserRepository
	cache cache.ProfileCache
	carts *cart.Registry
	log   *logger.Logger

	mu      sync.Mutex
	nextSub int
	subs    map[string]map[int]func(navigation.State)
}

func NewManager(users repository.UserRepository, c cache.ProfileCache, carts *cart.Registry, log *logger.Logger) *Manager {
	if c == nil {
		c = cache.NopProfileCache{}
	}
	return &Manager{
		users: users,
		cache: c,
		carts: carts,
		log:   log,
		subs:  map[string]map[int]func(navigation.State){},
	}
}

// Resolve はuserIDのプロフィールを読み、ガード判定用の状態を返す。
// 取得に失敗したら未ログイン状態と ErrProfileLookup を返す。
func (m *Manager) Resolve(ctx context.Context, userID string) (navigation.State, *cache.Profile, error) {
	if userID == "" {
		return navigation.State{}, nil, nil
	}

	p, err := m.cache.Get(ctx, userID)
	if err == nil {
		return stateOf(p), p, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		m.log.Warn("profile_cache_get_failed", "", "profile cache unavailable, reading store",
			slog.String("user_id", userID), slog.String("err", err.Error()))
	}

	u, err := m.users.FindByID(ctx, userID)
	if err != nil {
		return navigation.State{}, nil, fmt.Errorf("%w: user %s: %v", ErrProfileLookup, userID, err)
	}

	profile := cache.ProfileFromUser(u)
	if err := m.cache.Set(ctx, profile); err != nil {
		m.log.Warn("profile_cache_set_failed", "", "failed to cache profile",
			slog.String("user_id", userID), slog.String("err", err.Error()))
	}
	return stateOf(&profile), &profile, nil
}

// Start はログイン時に呼ぶ。プロフィールを温めてカートを用意する。
func (m *Manager) Start(ctx context.Context, u *model.User) {
	profile := cache.ProfileFromUser(u)
	if err := m.cache.Set(ctx, profile); err != nil {
		m.log.Warn("profile_cache_set_failed", "", "failed to cache profile",
			slog.String("user_id", u.ID), slog.String("err", err.Error()))
	}
	if u.Role == model.RoleCustomer {
		m.carts.For(u.ID)
	}
	m.publish(u.ID, stateOf(&profile))
}

// End はログアウト時に呼ぶ。カートとキャッシュを破棄する。
func (m *Manager) End(ctx context.Context, userID string) {
	if err := m.cache.Delete(ctx, userID); err != nil {
		m.log.Warn("profile_cache_delete_failed", "", "failed to evict profile",
			slog.String("user_id", userID), slog.String("err", err.Error()))
	}
	m.carts.Drop(userID)
	m.publish(userID, navigation.State{})
}

// Subscribe はuserIDの認証状態の変化を受け取る
func (m *Manager) Subscribe(userID string, fn func(navigation.State)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	if m.subs[userID] == nil {
		m.subs[userID] = map[int]func(navigation.State){}
	}
	m.subs[userID][id] = fn
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[userID], id)
			if len(m.subs[userID]) == 0 {
				delete(m.subs, userID)
			}
			m.mu.Unlock()
		})
	}
}

func (m *Manager) Carts() *cart.Registry {
	return m.carts
}

func (m *Manager) publish(userID string, st navigation.State) {
	m.mu.Lock()
	fns := make([]func(navigation.State), 0, len(m.subs[userID]))
	for _, fn := range m.subs[userID] {
		fns = append(fns, fn)
	}
	m.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func stateOf(p *cache.Profile) navigation.State {
	return navigation.State{User: &navigation.Principal{UserID: p.UserID, Role: p.Role}}
}
