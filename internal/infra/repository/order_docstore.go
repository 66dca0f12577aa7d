package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	domainrepo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

type orderDocRepository struct {
	store docstore.Store

	// 読んで・検査して・書くを同じプロセス内で直列にする
	mu sync.Mutex
}

func NewOrderRepository(store docstore.Store) domainrepo.OrderRepository {
	return &orderDocRepository{store: store}
}

func (r *orderDocRepository) Create(ctx context.Context, order model.Order) error {
	res := r.store.Create(ctx, docstore.CollectionOrders, order.ID, order)
	return translate(res.Err())
}

func (r *orderDocRepository) FindByID(ctx context.Context, orderID string) (model.Order, error) {
	res := docstore.DecodeResult[model.Order](r.store.Get(ctx, docstore.CollectionOrders, orderID))
	if err := res.Err(); err != nil {
		return model.Order{}, translate(err)
	}
	return res.Data, nil
}

func (r *orderDocRepository) ListByUser(ctx context.Context, userID string) ([]model.Order, error) {
	return r.list(ctx, docstore.Where("user_id", userID))
}

func (r *orderDocRepository) ListByShop(ctx context.Context, f domainrepo.ShopOrderFilter) ([]model.Order, error) {
	filters := []docstore.Filter{docstore.Where("shop_id", f.ShopID)}
	if f.Status != "" {
		filters = append(filters, docstore.Where("status", string(f.Status)))
	}
	return r.list(ctx, filters...)
}

// UpdateStatus は遷移表を確認してから書き込む
func (r *orderDocRepository) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) (model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, err := r.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if err := model.CheckTransition(o.Status, status); err != nil {
		return model.Order{}, err
	}

	o.Status = status
	o.UpdatedAt = time.Now()
	res := r.store.Update(ctx, docstore.CollectionOrders, o.ID, o)
	if err := res.Err(); err != nil {
		return model.Order{}, translate(err)
	}
	return o, nil
}

//新しい順
func (r *orderDocRepository) list(ctx context.Context, filters ...docstore.Filter) ([]model.Order, error) {
	res := docstore.DecodeList[model.Order](r.store.List(ctx, docstore.CollectionOrders, filters...))
	if err := res.Err(); err != nil {
		return nil, translate(err)
	}
	orders := res.Data
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
	return orders, nil
}
