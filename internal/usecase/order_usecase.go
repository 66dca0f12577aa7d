package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/checkout"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/events"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	"github.com/jedmamosto/tupv-project-sub000/internal/payment"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"
)

// OrderUsecase はcustomer側の注文（チェックアウト・履歴・決済状況）
type OrderUsecase struct {
	users      repository.UserRepository
	shops      repository.ShopRepository
	orders     repository.OrderRepository
	carts      *cart.Registry
	gateway    payment.Gateway
	publisher  events.Publisher
	log        *logger.Logger
	appBaseURL string

	newID func() string
	now   func() time.Time
}

func NewOrderUsecase(
	users repository.UserRepository,
	shops repository.ShopRepository,
	orders repository.OrderRepository,
	carts *cart.Registry,
	gateway payment.Gateway,
	publisher events.Publisher,
	log *logger.Logger,
	appBaseURL string,
) *OrderUsecase {
	return &OrderUsecase{
		users:      users,
		shops:      shops,
		orders:     orders,
		carts:      carts,
		gateway:    gateway,
		publisher:  publisher,
		log:        log,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		newID:      checkout.NewOrderID,
		now:        time.Now,
	}
}

type CheckoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

type CheckoutResponse struct {
	Order model.Order `json:"order"`
	// onlineのときだけ。ゲートウェイのホスト型決済ページ
	CheckoutURL string `json:"checkout_url,omitempty"`
}

type PaymentStatusOutput struct {
	OrderID       string `json:"order_id"`
	SessionID     string `json:"session_id"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CheckoutURL   string `json:"checkout_url"`
}

// Checkout はカートから注文を作る。
// onlineはゲートウェイでセッションを作れたときだけ注文を書く。
// 同じカートのチェックアウトは同時に1つだけ。成功したら注文した分だけカートから引く。
func (u *OrderUsecase) Checkout(ctx context.Context, userID string, in CheckoutRequest) (CheckoutResponse, error) {
	if userID == "" {
		return CheckoutResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	customer, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return CheckoutResponse{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return CheckoutResponse{}, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	holder := u.carts.For(userID)
	snap, done, err := holder.BeginCheckout()
	if errors.Is(err, cart.ErrCheckoutInProgress) {
		return CheckoutResponse{}, NewHTTPError(http.StatusConflict, err.Error())
	}
	if err != nil {
		return CheckoutResponse{}, WrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}
	defer done()

	orderID := u.newID()
	order, err := checkout.Assemble(orderID, checkout.Input{
		Snapshot:      snap,
		PaymentMethod: model.PaymentMethod(strings.TrimSpace(in.PaymentMethod)),
		Customer: checkout.Customer{
			UserID: customer.ID,
			Name:   customer.DisplayName,
			Email:  customer.Email,
		},
		Now: u.now(),
	})
	if err != nil {
		return CheckoutResponse{}, checkoutInputError(err)
	}

	var checkoutURL string
	if order.PaymentMethod == model.PaymentMethodOnline {
		sess, err := u.openCheckoutSession(ctx, order, customer, snap)
		if err != nil {
			return CheckoutResponse{}, err
		}
		order.PaymentRefID = sess.ID
		checkoutURL = sess.CheckoutURL
	}

	if err := u.orders.Create(ctx, order); err != nil {
		return CheckoutResponse{}, WrapHTTPError(http.StatusInternalServerError, "failed to place order", err)
	}

	holder.RemoveSnapshot(snap)

	u.log.Info("checkout", "", "order placed",
		slog.String("order_id", order.ID),
		slog.String("shop_id", order.ShopID),
		slog.String("payment_method", string(order.PaymentMethod)),
		slog.String("total", order.Total.StringFixed(2)))

	u.publish(ctx, events.RoutingKeyOrderPlaced, events.OrderEvent{
		OrderID:    order.ID,
		ShopID:     order.ShopID,
		UserID:     order.UserID,
		NewStatus:  order.Status,
		ChangedBy:  userID,
		OccurredAt: order.CreatedAt,
	})

	return CheckoutResponse{Order: order, CheckoutURL: checkoutURL}, nil
}

func (u *OrderUsecase) openCheckoutSession(ctx context.Context, order model.Order, customer *model.User, snap cart.Snapshot) (payment.CheckoutSession, error) {
	shop, err := u.shops.FindByID(ctx, order.ShopID)
	if errors.Is(err, repository.ErrNotFound) {
		return payment.CheckoutSession{}, NewHTTPError(http.StatusNotFound, "shop not found")
	}
	if err != nil {
		return payment.CheckoutSession{}, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}

	key, err := u.secretKeyOf(ctx, shop)
	if err != nil {
		return payment.CheckoutSession{}, err
	}

	sess, err := u.gateway.CreateCheckoutSession(ctx, key, payment.CheckoutRequest{
		Billing: payment.Billing{
			Name:  customer.DisplayName,
			Email: customer.Email,
		},
		LineItems:          checkout.GatewayLineItems(snap.Items),
		PaymentMethodTypes: payment.DefaultPaymentMethodTypes,
		SuccessURL:         u.appBaseURL + navigation.RouteOrderDetails.Path(order.ID),
		CancelURL:          u.appBaseURL + navigation.RouteCheckout.Info().Path,
		ReferenceNumber:    order.ID,
		Description:        "Order from " + shop.Name,
		ShowLineItems:      true,
		SendEmailReceipt:   true,
	})
	if err != nil {
		u.log.Error("checkout", "", "failed to create checkout session", err,
			slog.String("order_id", order.ID), slog.String("shop_id", shop.ID))
		return payment.CheckoutSession{}, WrapHTTPError(http.StatusBadGateway, "payment gateway error", err)
	}
	return sess, nil
}

// ListMyOrders は新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	orders, err := u.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, WrapHTTPError(http.StatusInternalServerError, "failed to load orders", err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

// GetMyOrder は他人の注文なら404（存在を漏らさない）
func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID, orderID string) (model.Order, error) {
	if userID == "" {
		return model.Order{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if strings.TrimSpace(orderID) == "" {
		return model.Order{}, NewHTTPError(http.StatusBadRequest, "invalid order id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Order{}, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if o.UserID != userID {
		return model.Order{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	return o, nil
}

// PaymentStatus はゲートウェイのチェックアウトセッションを引き直す（online注文のみ）
func (u *OrderUsecase) PaymentStatus(ctx context.Context, userID, orderID string) (PaymentStatusOutput, error) {
	o, err := u.GetMyOrder(ctx, userID, orderID)
	if err != nil {
		return PaymentStatusOutput{}, err
	}
	if o.PaymentMethod != model.PaymentMethodOnline || o.PaymentRefID == "" {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusBadRequest, "order is not paid online")
	}

	shop, err := u.shops.FindByID(ctx, o.ShopID)
	if errors.Is(err, repository.ErrNotFound) {
		return PaymentStatusOutput{}, NewHTTPError(http.StatusNotFound, "shop not found")
	}
	if err != nil {
		return PaymentStatusOutput{}, WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	key, err := u.secretKeyOf(ctx, shop)
	if err != nil {
		return PaymentStatusOutput{}, err
	}

	sess, err := u.gateway.GetCheckoutSession(ctx, key, o.PaymentRefID)
	if err != nil {
		return PaymentStatusOutput{}, WrapHTTPError(http.StatusBadGateway, "payment gateway error", err)
	}

	return PaymentStatusOutput{
		OrderID:       o.ID,
		SessionID:     sess.ID,
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		CheckoutURL:   sess.CheckoutURL,
	}, nil
}

// 店舗オーナーの決済シークレットキー
func (u *OrderUsecase) secretKeyOf(ctx context.Context, shop model.Shop) (string, error) {
	owner, err := u.users.FindByID(ctx, shop.OwnerID)
	if err != nil {
		return "", WrapHTTPError(http.StatusInternalServerError, "db error", err)
	}
	if owner.PaymentSecretKey == "" {
		return "", NewHTTPError(http.StatusConflict, "shop does not accept online payments")
	}
	return owner.PaymentSecretKey, nil
}

func (u *OrderUsecase) publish(ctx context.Context, routingKey string, ev events.OrderEvent) {
	if err := u.publisher.PublishOrderEvent(ctx, routingKey, ev); err != nil {
		u.log.Warn("publish_order_event", "", "failed to publish order event",
			slog.String("order_id", ev.OrderID), slog.String("err", err.Error()))
	}
}

func checkoutInputError(err error) error {
	switch {
	case errors.Is(err, checkout.ErrNoPaymentMethod):
		return NewValidationError(map[string]string{"payment_method": err.Error()})
	case errors.Is(err, checkout.ErrEmptyCart):
		return NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrBadQuantity):
		return WrapHTTPError(http.StatusBadRequest, "invalid cart", err)
	default:
		return WrapHTTPError(http.StatusInternalServerError, "internal error", err)
	}
}
