package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// usecaseがValidatorInterfaceに依存する約束
type InventoryValidator interface {
	ValidateMenuItem(req *MenuItemRequest) error
	ValidateShopProfile(req *ShopProfileRequest) error
}

type MenuItemRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Image string          `json:"image"`
	// 未指定なら作成時はtrue、更新時は現状維持
	Available    *bool               `json:"available"`
	Category     string              `json:"category"`
	OptionGroups []model.OptionGroup `json:"option_groups"`
}

type ShopProfileRequest struct {
	Name       string   `json:"name"`
	CoverImage string   `json:"cover_image"`
	Categories []string `json:"categories"`
	// nilなら変更しない。空文字ならオンライン決済を止める。
	PaymentSecretKey *string `json:"payment_secret_key"`
}

type AvailabilityRequest struct {
	Available *bool `json:"available"`
}

// 店舗側に返す店舗。秘密鍵そのものは返さない。
type VendorShopOutput struct {
	model.Shop
	AcceptsOnlinePayment bool `json:"accepts_online_payment"`
}

// InventoryUsecase はvendorのメニュー・店舗プロフィール管理
type InventoryUsecase struct {
	shops     repo.ShopRepository
	users     repo.UserRepository
	auditRepo repo.AuditLogRepository
	validator InventoryValidator
	log       *logger.Logger
	now       func() time.Time

	// 店舗ドキュメントの読み書きを直列にする
	mu sync.Mutex
}

func NewInventoryUsecase(
	shops repo.ShopRepository,
	users repo.UserRepository,
	auditRepo repo.AuditLogRepository,
	validator InventoryValidator,
	log *logger.Logger,
) *InventoryUsecase {
	return &InventoryUsecase{
		shops:     shops,
		users:     users,
		auditRepo: auditRepo,
		validator: validator,
		log:       log,
		now:       time.Now,
	}
}

// GetShop は非公開のものも含めた全メニュー
func (u *InventoryUsecase) GetShop(ctx context.Context, vendorID string) (VendorShopOutput, error) {
	shop, err := vendorShop(ctx, u.shops, vendorID)
	if err != nil {
		return VendorShopOutput{}, err
	}
	owner, err := u.owner(ctx, vendorID)
	if err != nil {
		return VendorShopOutput{}, err
	}
	return VendorShopOutput{Shop: shop, AcceptsOnlinePayment: owner.PaymentSecretKey != ""}, nil
}

func (u *InventoryUsecase) CreateItem(ctx context.Context, vendorID string, in MenuItemRequest) (model.MenuItem, error) {
	if err := u.validator.ValidateMenuItem(&in); err != nil {
		return model.MenuItem{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	shop, err := vendorShop(ctx, u.shops, vendorID)
	if err != nil {
		return model.MenuItem{}, err
	}

	item := model.MenuItem{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Price:        in.Price,
		Image:        in.Image,
		Available:    true,
		Category:     in.Category,
		OptionGroups: in.OptionGroups,
	}
	if in.Available != nil {
		item.Available = *in.Available
	}

	shop.MenuItems = append(shop.MenuItems, item)
	if err := u.saveShop(ctx, shop); err != nil {
		return model.MenuItem{}, err
	}

	u.audit(ctx, vendorID, model.AuditActionUpdateMenu, shop.ID, nil, item)
	return item, nil
}

func (u *InventoryUsecase) UpdateItem(ctx context.Context, vendorID, itemID string, in MenuItemRequest) (model.MenuItem, error) {
	if err := u.validator.ValidateMenuItem(&in); err != nil {
		return model.MenuItem{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	shop, idx, err := u.findItem(ctx, vendorID, itemID)
	if err != nil {
		return model.MenuItem{}, err
	}

	before := shop.MenuItems[idx]
	after := model.MenuItem{
		ID:           before.ID,
		Name:         in.Name,
		Price:        in.Price,
		Image:        in.Image,
		Available:    before.Available,
		Category:     in.Category,
		OptionGroups: in.OptionGroups,
	}
	if in.Available != nil {
		after.Available = *in.Available
	}

	shop.MenuItems[idx] = after
	if err := u.saveShop(ctx, shop); err != nil {
		return model.MenuItem{}, err
	}

	u.audit(ctx, vendorID, model.AuditActionUpdateMenu, shop.ID, before, after)
	return after, nil
}

// SetAvailability は公開・非公開の切り替え
func (u *InventoryUsecase) SetAvailability(ctx context.Context, vendorID, itemID string, in AvailabilityRequest) (model.MenuItem, error) {
	if in.Available == nil {
		return model.MenuItem{}, NewValidationError(map[string]string{"available": "available is required"})
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	shop, idx, err := u.findItem(ctx, vendorID, itemID)
	if err != nil {
		return model.MenuItem{}, err
	}

	before := shop.MenuItems[idx]
	if before.Available == *in.Available {
		return before, nil
	}
	shop.MenuItems[idx].Available = *in.Available
	if err := u.saveShop(ctx, shop); err != nil {
		return model.MenuItem{}, err
	}

	u.audit(ctx, vendorID, model.AuditActionUpdateMenu, shop.ID, before, shop.MenuItems[idx])
	return shop.MenuItems[idx], nil
}

func (u *InventoryUsecase) RemoveItem(ctx context.Context, vendorID, itemID string) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	shop, idx, err := u.findItem(ctx, vendorID, itemID)
	if err != nil {
		return err
	}

	removed := shop.MenuItems[idx]
	shop.MenuItems = append(shop.MenuItems[:idx], shop.MenuItems[idx+1:]...)
	if err := u.saveShop(ctx, shop); err != nil {
		return err
	}

	u.audit(ctx, vendorID, model.AuditActionUpdateMenu, shop.ID, removed, nil)
	return nil
}

// UpdateProfile は店舗名・カバー画像・カテゴリと決済キーを更新する
func (u *InventoryUsecase) UpdateProfile(ctx context.Context, vendorID string, in ShopProfileRequest) (VendorShopOutput, error) {
	if err := u.validator.ValidateShopProfile(&in); err != nil {
		return VendorShopOutput{}, err
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	shop, err := vendorShop(ctx, u.shops, vendorID)
	if err != nil {
		return VendorShopOutput{}, err
	}
	owner, err := u.owner(ctx, vendorID)
	if err != nil {
		return VendorShopOutput{}, err
	}

	type profile struct {
		Name       string   `json:"name"`
		CoverImage string   `json:"cover_image"`
		Categories []string `json:"categories"`
		KeyChanged bool     `json:"payment_key_changed"`
	}
	before := profile{Name: shop.Name, CoverImage: shop.CoverImage, Categories: shop.Categories}

	shop.Name = in.Name
	shop.CoverImage = in.CoverImage
	shop.Categories = in.Categories
	if err := u.saveShop(ctx, shop); err != nil {
		return VendorShopOutput{}, err
	}

	keyChanged := false
	if in.PaymentSecretKey != nil {
		key := strings.TrimSpace(*in.PaymentSecretKey)
		if key != owner.PaymentSecretKey {
			owner.PaymentSecretKey = key
			if err := u.users.Update(ctx, owner); err != nil {
				return VendorShopOutput{}, WrapHTTPError(http.StatusInternalServerError, "failed to save payment key", err)
			}
			keyChanged = true
		}
	}

	u.audit(ctx, vendorID, model.AuditActionUpdateShopProfile, shop.ID, before, profile{
		Name:       shop.Name,
		CoverImage: shop.CoverImage,
		Categories: shop.Categories,
		KeyChanged: keyChanged,
	})

	return VendorShopOutput{Shop: shop, AcceptsOnlinePayment: owner.PaymentSecretKey != ""}, nil
}

func (u *InventoryUsecase) findItem(ctx context.Context, vendorID, itemID string) (model.Shop, int, error) {
	if strings.TrimSpace(itemID) == "" {
		return model.Shop{}, 0, NewHTTPError(http.StatusBadRequest, "invalid item id")
	}
	shop, err := vendorShop(ctx, u.shops, vendorID)
	if err != nil {
		return model.Shop{}, 0, err
	}
	for i, it := range shop.MenuItems {
		if it.ID == itemID {
			return shop, i, nil
		}
	}
	return model.Shop{}, 0, NewHTTPError(http.StatusNotFound, "menu item not found")
}

func (u *InventoryUsecase) saveShop(ctx context.Context, shop model.Shop) error {
	if err := u.shops.Update(ctx, shop); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "shop not found")
		}
		return WrapHTTPError(http.StatusInternalServerError, "failed to save menu", err)
	}
	return nil
}

func (u *InventoryUsecase) owner(ctx context.Context, vendorID string) (*model.User, error) {
	owner, err := u.users.FindByID(ctx, vendorID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	return owner, nil
}

// 監査ログは書き込み後なので失敗してもログだけ
func (u *InventoryUsecase) audit(ctx context.Context, actorID string, action model.AuditAction, shopID string, before, after any) {
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceShop,
		ResourceID:   shopID,
		BeforeJSON:   auditJSON(before),
		AfterJSON:    auditJSON(after),
		CreatedAt:    u.now(),
	}); err != nil {
		u.log.Error(string(action), "", "failed to write audit log", err, slog.String("shop_id", shopID))
	}
}

func auditJSON(v any) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
