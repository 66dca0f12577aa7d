package repository

import (
	"context"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
)

// 店舗側の一覧条件。Statusが空なら全件。
type ShopOrderFilter struct {
	ShopID string
	Status model.OrderStatus
}

type OrderRepository interface {
	Create(ctx context.Context, order model.Order) error
	FindByID(ctx context.Context, orderID string) (model.Order, error)
	// 新しい順
	ListByUser(ctx context.Context, userID string) ([]model.Order, error)
	ListByShop(ctx context.Context, f ShopOrderFilter) ([]model.Order, error)

	// 遷移表に反する更新は model.ErrIllegalTransition で拒否する
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error)
}
