package repository

import (
	"context"
	"sort"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/docstore"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	domainrepo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

type shopDocRepository struct {
	store docstore.Store
}

func NewShopRepository(store docstore.Store) domainrepo.ShopRepository {
	return &shopDocRepository{store: store}
}

// 名前順
func (r *shopDocRepository) List(ctx context.Context) ([]model.Shop, error) {
	res := docstore.DecodeList[model.Shop](r.store.List(ctx, docstore.CollectionShops))
	if err := res.Err(); err != nil {
		return nil, translate(err)
	}
	shops := res.Data
	sort.SliceStable(shops, func(i, j int) bool { return shops[i].Name < shops[j].Name })
	return shops, nil
}

func (r *shopDocRepository) FindByID(ctx context.Context, shopID string) (model.Shop, error) {
	res := docstore.DecodeResult[model.Shop](r.store.Get(ctx, docstore.CollectionShops, shopID))
	if err := res.Err(); err != nil {
		return model.Shop{}, translate(err)
	}
	return res.Data, nil
}

func (r *shopDocRepository) FindByOwner(ctx context.Context, ownerID string) (model.Shop, error) {
	res := docstore.DecodeResult[model.Shop](
		r.store.FindOne(ctx, docstore.CollectionShops, "owner_id", ownerID),
	)
	if err := res.Err(); err != nil {
		return model.Shop{}, translate(err)
	}
	return res.Data, nil
}

func (r *shopDocRepository) Create(ctx context.Context, shop model.Shop) (model.Shop, error) {
	shop.ID = docstore.EnsureID(shop.ID)
	now := time.Now()
	shop.CreatedAt = now
	shop.UpdatedAt = now
	if shop.MenuItems == nil {
		shop.MenuItems = []model.MenuItem{}
	}

	res := r.store.Create(ctx, docstore.CollectionShops, shop.ID, shop)
	if err := res.Err(); err != nil {
		return model.Shop{}, translate(err)
	}
	return shop, nil
}

func (r *shopDocRepository) Update(ctx context.Context, shop model.Shop) error {
	shop.UpdatedAt = time.Now()
	res := r.store.Update(ctx, docstore.CollectionShops, shop.ID, shop)
	return translate(res.Err())
}
