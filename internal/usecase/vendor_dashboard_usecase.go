package usecase

import (
	"context"
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/shopspring/decimal"
)

const recentOrdersLimit = 5

type DashboardOutput struct {
	ShopID       string                    `json:"shop_id"`
	ShopName     string                    `json:"shop_name"`
	TotalOrders  int                       `json:"total_orders"`
	Counts       map[model.OrderStatus]int `json:"counts"`
	Revenue      decimal.Decimal           `json:"revenue"`
	MenuItems    int                       `json:"menu_items"`
	Available    int                       `json:"available_items"`
	RecentOrders []VendorOrderOutput       `json:"recent_orders"`
}

// Dashboard はステータス別件数と完了済み注文の売上
func (u *VendorOrderUsecase) Dashboard(ctx context.Context, vendorID string) (DashboardOutput, error) {
	shop, err := u.shopOf(ctx, vendorID)
	if err != nil {
		return DashboardOutput{}, err
	}

	orders, err := u.orders.ListByShop(ctx, repo.ShopOrderFilter{ShopID: shop.ID})
	if err != nil {
		return DashboardOutput{}, WrapHTTPError(http.StatusInternalServerError, "failed to load orders", err)
	}

	out := DashboardOutput{
		ShopID:      shop.ID,
		ShopName:    shop.Name,
		TotalOrders: len(orders),
		Counts: map[model.OrderStatus]int{
			model.OrderStatusPending:    0,
			model.OrderStatusProcessing: 0,
			model.OrderStatusCompleted:  0,
			model.OrderStatusCancelled:  0,
		},
		Revenue:      decimal.Zero,
		MenuItems:    len(shop.MenuItems),
		Available:    len(shop.AvailableItems()),
		RecentOrders: []VendorOrderOutput{},
	}

	for i, o := range orders {
		out.Counts[o.Status]++
		if o.Status == model.OrderStatusCompleted {
			out.Revenue = out.Revenue.Add(o.Total)
		}
		// ListByShopは新しい順
		if i < recentOrdersLimit {
			out.RecentOrders = append(out.RecentOrders, toVendorOrderOutput(o))
		}
	}
	return out, nil
}
