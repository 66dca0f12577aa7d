// Package cart はセッション単位のカート状態を保持する。永続化はしない。
package cart

import (
	"errors"
	"sync"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	// 別の店舗の商品を混ぜようとした
	ErrShopMismatch = errors.New("cart holds items from another shop")
	// 同じカートでチェックアウトが進行中
	ErrCheckoutInProgress = errors.New("checkout already in progress")
)

// LineItem はメニューのスナップショットと数量
type LineItem struct {
	MenuItemID string          `json:"menu_item_id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image,omitempty"`
	Quantity   int             `json:"quantity"`
}

func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Snapshot は購読者とAPIに渡すカートのコピー
type Snapshot struct {
	ShopID string          `json:"shop_id,omitempty"`
	Items  []LineItem      `json:"items"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`

	// ログアウトでカートが破棄された。これ以降の通知は無い。
	Ended bool `json:"ended,omitempty"`
}

type Holder struct {
	// スナップショット取得から配信までを直列にする。muより先に取る。
	notifyMu sync.Mutex

	mu          sync.Mutex
	shopID      string
	items       []LineItem
	checkingOut bool
	ended       bool

	nextSub int
	subs    map[int]func(Snapshot)
}

func NewHolder() *Holder {
	return &Holder{subs: map[int]func(Snapshot){}}
}

// AddToCart は同じidなら数量+1、なければ数量1で末尾に追加する
func (h *Holder) AddToCart(shopID string, item model.MenuItem) error {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if len(h.items) > 0 && h.shopID != shopID {
		h.mu.Unlock()
		return ErrShopMismatch
	}
	h.shopID = shopID

	found := false
	for i := range h.items {
		if h.items[i].MenuItemID == item.ID {
			h.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		h.items = append(h.items, LineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Image:      item.Image,
			Quantity:   1,
		})
	}
	snap, subs := h.snapshotLocked()
	h.mu.Unlock()

	notify(subs, snap)
	return nil
}

// UpdateQuantity は0未満を0に丸め、0なら行を消す
func (h *Holder) UpdateQuantity(itemID string, quantity int) {
	if quantity < 0 {
		quantity = 0
	}

	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	idx := h.indexLocked(itemID)
	if idx < 0 {
		h.mu.Unlock()
		return
	}
	if quantity == 0 {
		h.removeAtLocked(idx)
	} else {
		h.items[idx].Quantity = quantity
	}
	snap, subs := h.snapshotLocked()
	h.mu.Unlock()

	notify(subs, snap)
}

func (h *Holder) RemoveFromCart(itemID string) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	idx := h.indexLocked(itemID)
	if idx < 0 {
		h.mu.Unlock()
		return
	}
	h.removeAtLocked(idx)
	snap, subs := h.snapshotLocked()
	h.mu.Unlock()

	notify(subs, snap)
}

func (h *Holder) ClearCart() {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	h.items = nil
	h.shopID = ""
	snap, subs := h.snapshotLocked()
	h.mu.Unlock()

	notify(subs, snap)
}

// CartTotal は毎回計算し直す
func (h *Holder) CartTotal() decimal.Decimal {
	h.mu.Lock()
	defer h.mu.Unlock()
	return totalOf(h.items)
}

func (h *Holder) Snapshot() Snapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	snap, _ := h.snapshotLocked()
	return snap
}

// BeginCheckout は注文に使うスナップショットを返し、カートをチェックアウト中にする。
// doneは注文の成否に関わらず必ず呼ぶ。
func (h *Holder) BeginCheckout() (snap Snapshot, done func(), err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.checkingOut {
		return Snapshot{}, nil, ErrCheckoutInProgress
	}
	h.checkingOut = true
	snap, _ = h.snapshotLocked()

	var once sync.Once
	return snap, func() {
		once.Do(func() {
			h.mu.Lock()
			h.checkingOut = false
			h.mu.Unlock()
		})
	}, nil
}

// RemoveSnapshot は注文済みの数量だけ引く。チェックアウト中に足された分は残る。
func (h *Holder) RemoveSnapshot(ordered Snapshot) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	changed := false
	for _, li := range ordered.Items {
		idx := h.indexLocked(li.MenuItemID)
		if idx < 0 {
			continue
		}
		changed = true
		if h.items[idx].Quantity <= li.Quantity {
			h.removeAtLocked(idx)
		} else {
			h.items[idx].Quantity -= li.Quantity
		}
	}
	if !changed {
		h.mu.Unlock()
		return
	}
	snap, subs := h.snapshotLocked()
	h.mu.Unlock()

	notify(subs, snap)
}

// End はカートを破棄し、購読者にEndedのスナップショットを送って全員外す
func (h *Holder) End() {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	if h.ended {
		h.mu.Unlock()
		return
	}
	h.items = nil
	h.shopID = ""
	h.ended = true
	snap, subs := h.snapshotLocked()
	h.subs = map[int]func(Snapshot){}
	h.mu.Unlock()

	notify(subs, snap)
}

// Subscribe は変更のたびにfnを変更順に同期的に呼ぶ。戻り値で購読解除。
// fnはHolderを読んでよいが、変更してはいけない。
func (h *Holder) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	return h.unsubscriber(id)
}

// Watch はSubscribeと同じだが、最初に現在の中身を1回渡す。
// 終了済みのHolderならEndedを渡して購読しない。
func (h *Holder) Watch(fn func(Snapshot)) (unsubscribe func()) {
	h.notifyMu.Lock()
	defer h.notifyMu.Unlock()

	h.mu.Lock()
	snap, _ := h.snapshotLocked()
	if h.ended {
		h.mu.Unlock()
		fn(snap)
		return func() {}
	}
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.mu.Unlock()

	fn(snap)
	return h.unsubscriber(id)
}

func (h *Holder) unsubscriber(id int) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

func (h *Holder) subscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Holder) indexLocked(itemID string) int {
	for i := range h.items {
		if h.items[i].MenuItemID == itemID {
			return i
		}
	}
	return -1
}

func (h *Holder) removeAtLocked(idx int) {
	h.items = append(h.items[:idx], h.items[idx+1:]...)
	if len(h.items) == 0 {
		h.shopID = ""
	}
}

func (h *Holder) snapshotLocked() (Snapshot, []func(Snapshot)) {
	items := make([]LineItem, len(h.items))
	copy(items, h.items)

	count := 0
	for _, it := range items {
		count += it.Quantity
	}

	subs := make([]func(Snapshot), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}

	return Snapshot{
		ShopID: h.shopID,
		Items:  items,
		Total:  totalOf(items),
		Count:  count,
		Ended:  h.ended,
	}, subs
}

func totalOf(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// muの外、notifyMuの中で呼ぶ
func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}
