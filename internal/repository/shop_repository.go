package repository

import (
	"context"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
)

// 店舗（メニュー込み）の永続化だけを約束。
type ShopRepository interface {
	List(ctx context.Context) ([]model.Shop, error)
	FindByID(ctx context.Context, shopID string) (model.Shop, error)
	// vendorは1店舗だけ持つ
	FindByOwner(ctx context.Context, ownerID string) (model.Shop, error)

	Create(ctx context.Context, shop model.Shop) (model.Shop, error)
	Update(ctx context.Context, shop model.Shop) error
}
