package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// 一覧用（メニュー本体は返さない）
type ShopSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	CoverImage string   `json:"cover_image"`
	Categories []string `json:"categories"`
	ItemCount  int      `json:"item_count"`
}

type ShopDetail struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	CoverImage string           `json:"cover_image"`
	Categories []string         `json:"categories"`
	MenuItems  []model.MenuItem `json:"menu_items"`
}

// ShopUsecase はcustomer向けの店舗・メニュー閲覧
type ShopUsecase struct {
	shops repository.ShopRepository
}

func NewShopUsecase(shops repository.ShopRepository) *ShopUsecase {
	return &ShopUsecase{shops: shops}
}

func (u *ShopUsecase) ListShops(ctx context.Context) ([]ShopSummary, error) {
	shops, err := u.shops.List(ctx)
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "failed to load shops", err)
	}

	out := make([]ShopSummary, 0, len(shops))
	for _, s := range shops {
		out = append(out, ShopSummary{
			ID:         s.ID,
			Name:       s.Name,
			CoverImage: s.CoverImage,
			Categories: nonNilStrings(s.Categories),
			ItemCount:  len(s.AvailableItems()),
		})
	}
	return out, nil
}

// GetShop は公開中のメニューだけを返す
func (u *ShopUsecase) GetShop(ctx context.Context, shopID string) (ShopDetail, error) {
	shopID = strings.TrimSpace(shopID)
	if shopID == "" {
		return ShopDetail{}, NewHTTPError(http.StatusBadRequest, "invalid shop id")
	}

	s, err := u.shops.FindByID(ctx, shopID)
	if errors.Is(err, repository.ErrNotFound) {
		return ShopDetail{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return ShopDetail{}, WrapHTTPError(http.StatusInternalServerError, "failed to load menu", err)
	}

	return ShopDetail{
		ID:         s.ID,
		Name:       s.Name,
		CoverImage: s.CoverImage,
		Categories: nonNilStrings(s.Categories),
		MenuItems:  s.AvailableItems(),
	}, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
