package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// CartUsecase は /cart の業務ロジック。カートはメモリ上のHolderで、保存はしない。
type CartUsecase struct {
	shops repository.ShopRepository
	carts *cart.Registry
}

func NewCartUsecase(shops repository.ShopRepository, carts *cart.Registry) *CartUsecase {
	return &CartUsecase{shops: shops, carts: carts}
}

type AddCartItemRequest struct {
	ShopID     string `json:"shop_id"`
	MenuItemID string `json:"menu_item_id"`
}

type UpdateCartItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (u *CartUsecase) GetCart(_ context.Context, userID string) (cart.Snapshot, error) {
	if userID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.carts.For(userID).Snapshot(), nil
}

// AddItem は店舗の最新メニューから価格を取ってカートに入れる
func (u *CartUsecase) AddItem(ctx context.Context, userID string, in AddCartItemRequest) (cart.Snapshot, error) {
	if userID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	shopID := strings.TrimSpace(in.ShopID)
	itemID := strings.TrimSpace(in.MenuItemID)
	if shopID == "" || itemID == "" {
		fields := map[string]string{}
		if shopID == "" {
			fields["shop_id"] = "shop id is required"
		}
		if itemID == "" {
			fields["menu_item_id"] = "menu item id is required"
		}
		return cart.Snapshot{}, NewValidationError(fields)
	}

	shop, err := u.shops.FindByID(ctx, shopID)
	if errors.Is(err, repository.ErrNotFound) {
		return cart.Snapshot{}, NewHTTPError(http.StatusNotFound, "shop not found")
	}
	if err != nil {
		return cart.Snapshot{}, WrapHTTPError(http.StatusInternalServerError, "failed to load menu", err)
	}

	item, ok := shop.FindMenuItem(itemID)
	if !ok {
		return cart.Snapshot{}, NewHTTPError(http.StatusNotFound, "menu item not found")
	}
	if !item.Available {
		return cart.Snapshot{}, NewHTTPError(http.StatusConflict, "menu item is not available")
	}

	h := u.carts.For(userID)
	if err := h.AddToCart(shop.ID, item); err != nil {
		if errors.Is(err, cart.ErrShopMismatch) {
			return cart.Snapshot{}, WrapHTTPError(http.StatusConflict, "cart holds items from another shop", err)
		}
		return cart.Snapshot{}, WrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}
	return h.Snapshot(), nil
}

// UpdateQuantity は0以下なら削除
func (u *CartUsecase) UpdateQuantity(_ context.Context, userID, itemID string, in UpdateCartItemRequest) (cart.Snapshot, error) {
	if userID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(itemID) == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	if in.Quantity == nil {
		return cart.Snapshot{}, NewValidationError(map[string]string{"quantity": "quantity is required"})
	}

	h := u.carts.For(userID)
	h.UpdateQuantity(itemID, *in.Quantity)
	return h.Snapshot(), nil
}

func (u *CartUsecase) RemoveItem(_ context.Context, userID, itemID string) (cart.Snapshot, error) {
	if userID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	h := u.carts.For(userID)
	h.RemoveFromCart(itemID)
	return h.Snapshot(), nil
}

func (u *CartUsecase) Clear(_ context.Context, userID string) (cart.Snapshot, error) {
	if userID == "" {
		return cart.Snapshot{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	h := u.carts.For(userID)
	h.ClearCart()
	return h.Snapshot(), nil
}

// Subscribe はカートの変化を受け取る（SSE用）。最初に現在の中身を1回渡す。
func (u *CartUsecase) Subscribe(userID string, fn func(cart.Snapshot)) (unsubscribe func(), err error) {
	if userID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	return u.carts.For(userID).Watch(fn), nil
}
