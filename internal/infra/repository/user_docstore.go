package repository

import (
	"context"
	"strings"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	domainrepo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

type userDocRepository struct {
	store docstore.Store
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserRepository(store docstore.Store) domainrepo.UserRepository {
	return &userDocRepository{store: store}
}

// Create はユーザーを新規作成（IDが空なら採番）
func (r *userDocRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = docstore.EnsureID(user.ID)
	user.Email = strings.ToLower(user.Email)
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	res := r.store.Create(ctx, docstore.CollectionUsers, user.ID, user)
	return translate(res.Err())
}

// IDでユーザーを1件取得
func (r *userDocRepository) FindByID(ctx context.Context, userID string) (*model.User, error) {
	res := docstore.DecodeResult[model.User](r.store.Get(ctx, docstore.CollectionUsers, userID))
	if err := res.Err(); err != nil {
		return nil, translate(err)
	}
	u := res.Data
	return &u, nil
}

// emailでユーザーを1件取得
func (r *userDocRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	res := docstore.DecodeResult[model.User](
		r.store.FindOne(ctx, docstore.CollectionUsers, "email", strings.ToLower(email)),
	)
	if err := res.Err(); err != nil {
		return nil, translate(err)
	}
	u := res.Data
	return &u, nil
}

// ユーザーを更新。
func (r *userDocRepository) Update(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now()
	res := r.store.Update(ctx, docstore.CollectionUsers, user.ID, user)
	return translate(res.Err())
}

// token_versionを+1 します。
func (r *userDocRepository) IncrementTokenVersion(ctx context.Context, userID string) error {
	u, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	u.TokenVersion++
	return r.Update(ctx, u)
}
