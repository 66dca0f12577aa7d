// Package checkout はカートのスナップショットから注文を組み立てる。
package checkout

import (
	"errors"
	"fmt"
	"time"

	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoPaymentMethod = errors.New("select a payment method")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrBadQuantity     = errors.New("line item quantity must be positive")
)

const Currency = "PHP"

type Customer struct {
	UserID string
	Name   string
	Email  string
}

type Input struct {
	Snapshot      cart.Snapshot
	PaymentMethod model.PaymentMethod
	Customer      Customer
	// online決済のときだけ入る
	PaymentRefID string
	Now          time.Time
}

// NewOrderID は ORD- + UUID
func NewOrderID() string {
	return "ORD-" + uuid.NewString()
}

// Assemble は小計と合計をここで計算し直す（カート側の合計は使わない）
func Assemble(orderID string, in Input) (model.Order, error) {
	if !in.PaymentMethod.Valid() {
		return model.Order{}, ErrNoPaymentMethod
	}
	if len(in.Snapshot.Items) == 0 {
		return model.Order{}, ErrEmptyCart
	}

	items := make([]model.OrderItem, 0, len(in.Snapshot.Items))
	total := decimal.Zero
	for _, li := range in.Snapshot.Items {
		if li.Quantity <= 0 {
			return model.Order{}, fmt.Errorf("%w: %s", ErrBadQuantity, li.MenuItemID)
		}
		subtotal := li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
		items = append(items, model.OrderItem{
			MenuItemID: li.MenuItemID,
			Name:       li.Name,
			Price:      li.Price,
			Quantity:   li.Quantity,
			Subtotal:   subtotal,
		})
		total = total.Add(subtotal)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}

	o := model.Order{
		ID:            orderID,
		UserID:        in.Customer.UserID,
		ShopID:        in.Snapshot.ShopID,
		CustomerName:  in.Customer.Name,
		Items:         items,
		Total:         total,
		Status:        model.OrderStatusPending,
		PaymentMethod: in.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if in.PaymentMethod == model.PaymentMethodOnline {
		o.PaymentRefID = in.PaymentRefID
	}
	return o, nil
}

// GatewayLineItems は注文明細をゲートウェイの明細（センタボ）にする
func GatewayLineItems(items []cart.LineItem) []payment.LineItem {
	out := make([]payment.LineItem, 0, len(items))
	for _, li := range items {
		out = append(out, payment.LineItem{
			Name:     li.Name,
			Amount:   li.Price.Shift(2).Round(0).IntPart(),
			Currency: Currency,
			Quantity: li.Quantity,
		})
	}
	return out
}
