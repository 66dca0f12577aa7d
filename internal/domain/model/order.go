package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCounter PaymentMethod = "counter"
	PaymentMethodOnline  PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCounter || m == PaymentMethodOnline
}

// 許可されていないステータス遷移
var ErrIllegalTransition = errors.New("illegal order status transition")

// 遷移表。completed / cancelled は終端。
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) Terminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// 現在のステータスから進める先
func (s OrderStatus) NextStatuses() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, n := range orderTransitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// fromからtoへ進めてよいか確認する
func CheckTransition(from, to OrderStatus) error {
	if !to.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrIllegalTransition, to)
	}
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// 注文明細。価格は注文時点のスナップショット。
type OrderItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	ShopID        string          `json:"shop_id"`
	CustomerName  string          `json:"customer_name"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	PaymentRefID  string          `json:"payment_ref_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// totalと各subtotalの整合性
func (o Order) Consistent() bool {
	sum := decimal.Zero
	for _, it := range o.Items {
		if !it.Subtotal.Equal(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))) {
			return false
		}
		sum = sum.Add(it.Subtotal)
	}
	return sum.Equal(o.Total)
}
