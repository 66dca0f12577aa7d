package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

// Profile はガード判定に必要なユーザー情報だけを持つ（秘密鍵やハッシュは入れない）
type Profile struct {
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	DisplayName  string     `json:"display_name"`
	Role         model.Role `json:"role"`
	StudentID    string     `json:"student_id,omitempty"`
	TokenVersion int        `json:"token_version"`
}

func ProfileFromUser(u *model.User) Profile {
	return Profile{
		UserID:       u.ID,
		Email:        u.Email,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		StudentID:    u.StudentID,
		TokenVersion: u.TokenVersion,
	}
}

type ProfileCache interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Set(ctx context.Context, p Profile) error
	Delete(ctx context.Context, userID string) error
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	return &RedisProfileCache{
		client:  client,
		baseTTL: ttl,
	}
}

type RedisProfileCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisProfileCache) Get(ctx context.Context, userID string) (*Profile, error) {
	data, err := r.client.Get(ctx, cacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile failed: %w", err)
	}
	return &p, nil
}

func (r *RedisProfileCache) Set(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile failed: %w", err)
	}

	// 一斉失効を避けるため最大1分ずらす
	jitter := time.Duration(rand.Intn(60)) * time.Second
	if err := r.client.Set(ctx, cacheKey(p.UserID), data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisProfileCache) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(userID string) string {
	return fmt.Sprintf("profile:%s", userID)
}

// NopProfileCache は常にミスする。REDIS_ADDR未設定時に使う。
type NopProfileCache struct{}

func (NopProfileCache) Get(context.Context, string) (*Profile, error) { return nil, ErrCacheMiss }
func (NopProfileCache) Set(context.Context, Profile) error { return nil }
func (NopProfileCache) Delete(context.Context, string) error { return nil }

var (
	_ ProfileCache = (*RedisProfileCache)(nil)
	_ ProfileCache = NopProfileCache{}
)
