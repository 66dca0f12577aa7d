package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/events"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	repo "github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// VendorOrderUsecase は店舗側の注文管理
type VendorOrderUsecase struct {
	shops     repo.ShopRepository
	orders    repo.OrderRepository
	auditRepo repo.AuditLogRepository
	publisher events.Publisher
	log       *logger.Logger
	now       func() time.Time
}

func NewVendorOrderUsecase(
	shops repo.ShopRepository,
	orders repo.OrderRepository,
	auditRepo repo.AuditLogRepository,
	publisher events.Publisher,
	log *logger.Logger,
) *VendorOrderUsecase {
	return &VendorOrderUsecase{
		shops:     shops,
		orders:    orders,
		auditRepo: auditRepo,
		publisher: publisher,
		log:       log,
		now:       time.Now,
	}
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status"`
}

// 店舗画面に出すボタン
type OrderAction struct {
	Label  string            `json:"label"`
	Status model.OrderStatus `json:"status"`
}

type VendorOrderOutput struct {
	model.Order
	Actions []OrderAction `json:"actions"`
}

var actionLabels = map[model.OrderStatus]string{
	model.OrderStatusProcessing: "Start preparing",
	model.OrderStatusCompleted:  "Mark as completed",
	model.OrderStatusCancelled:  "Cancel order",
}

// AllowedActions は現在のステータスから押せる操作。終端なら空。
func AllowedActions(status model.OrderStatus) []OrderAction {
	next := status.NextStatuses()
	out := make([]OrderAction, 0, len(next))
	for _, s := range next {
		out = append(out, OrderAction{Label: actionLabels[s], Status: s})
	}
	return out
}

func toVendorOrderOutput(o model.Order) VendorOrderOutput {
	return VendorOrderOutput{Order: o, Actions: AllowedActions(o.Status)}
}

// 注文一覧（statusが空なら全件）
func (u *VendorOrderUsecase) ListOrders(ctx context.Context, vendorID string, status string) ([]VendorOrderOutput, error) {
	st := model.OrderStatus(strings.TrimSpace(status))
	if st != "" && !st.Valid() {
		return nil, NewHTTPError(http.StatusBadRequest, "invalid status")
	}

	shop, err := u.shopOf(ctx, vendorID)
	if err != nil {
		return nil, err
	}

	orders, err := u.orders.ListByShop(ctx, repo.ShopOrderFilter{ShopID: shop.ID, Status: st})
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "failed to load orders", err)
	}

	outs := make([]VendorOrderOutput, 0, len(orders))
	for _, o := range orders {
		outs = append(outs, toVendorOrderOutput(o))
	}
	return outs, nil
}

// ステータス更新。遷移表に反するものは409。成功したら更新後の注文を返す。
func (u *VendorOrderUsecase) UpdateStatus(ctx context.Context, vendorID, orderID string, in UpdateOrderStatusRequest) (VendorOrderOutput, error) {
	if strings.TrimSpace(orderID) == "" {
		return VendorOrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}
	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.Valid() {
		return VendorOrderOutput{}, NewValidationError(map[string]string{"status": "invalid status"})
	}

	shop, err := u.shopOf(ctx, vendorID)
	if err != nil {
		return VendorOrderOutput{}, err
	}

	// 注文取得（他店舗の注文は404）
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return VendorOrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return VendorOrderOutput{}, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if o.ShopID != shop.ID {
		return VendorOrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}

	updated, err := u.orders.UpdateStatus(ctx, orderID, newStatus)
	switch {
	case errors.Is(err, model.ErrIllegalTransition):
		return VendorOrderOutput{}, WrapHTTPError(http.StatusConflict, "cannot change order from "+string(o.Status)+" to "+string(newStatus), err)
	case errors.Is(err, repo.ErrNotFound):
		return VendorOrderOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	case err != nil:
		return VendorOrderOutput{}, WrapHTTPError(http.StatusInternalServerError, "failed to update order", err)
	}

	// 監査ログ（UPDATE_ORDER_STATUS）。書き込み済みなので失敗してもエラーにはしない
	if err := u.auditRepo.Create(ctx, model.AuditLog{
		ActorUserID:  vendorID,
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   `{"status":"` + string(o.Status) + `"}`,
		AfterJSON:    `{"status":"` + string(updated.Status) + `"}`,
		CreatedAt:    u.now(),
	}); err != nil {
		u.log.Error("update_order_status", "", "failed to write audit log", err, slog.String("order_id", orderID))
	}

	if err := u.publisher.PublishOrderEvent(ctx, events.RoutingKeyStatusChanged, events.OrderEvent{
		OrderID:    updated.ID,
		ShopID:     updated.ShopID,
		UserID:     updated.UserID,
		OldStatus:  o.Status,
		NewStatus:  updated.Status,
		ChangedBy:  vendorID,
		OccurredAt: updated.UpdatedAt,
	}); err != nil {
		u.log.Warn("publish_order_event", "", "failed to publish order event",
			slog.String("order_id", orderID), slog.String("err", err.Error()))
	}

	u.log.Info("update_order_status", "", "order status changed",
		slog.String("order_id", orderID),
		slog.String("from", string(o.Status)),
		slog.String("to", string(updated.Status)))

	return toVendorOrderOutput(updated), nil
}

// OrderHistory は注文のステータス変更履歴（監査ログ）
func (u *VendorOrderUsecase) OrderHistory(ctx context.Context, vendorID, orderID string) ([]model.AuditLog, error) {
	shop, err := u.shopOf(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && o.ShopID != shop.ID) {
		return nil, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	logs, err := u.auditRepo.List(ctx, repo.AuditLogFilter{
		Action:       model.AuditActionUpdateOrderStatus,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
	})
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if logs == nil {
		logs = []model.AuditLog{}
	}
	return logs, nil
}

// vendorの店舗。取れなければ空のままにせずエラーを返す
func (u *VendorOrderUsecase) shopOf(ctx context.Context, vendorID string) (model.Shop, error) {
	return vendorShop(ctx, u.shops, vendorID)
}

func vendorShop(ctx context.Context, shops repo.ShopRepository, vendorID string) (model.Shop, error) {
	if vendorID == "" {
		return model.Shop{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	shop, err := shops.FindByOwner(ctx, vendorID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Shop{}, NewHTTPError(http.StatusNotFound, "shop not found")
	}
	if err != nil {
		return model.Shop{}, WrapHTTPError(http.StatusInternalServerError, "failed to load shop", err)
	}
	return shop, nil
}
