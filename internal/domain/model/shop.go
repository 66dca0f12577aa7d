package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 店舗。メニューは店舗ドキュメントに埋め込む。
type Shop struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	CoverImage string     `json:"cover_image"`
	Categories []string   `json:"categories,omitempty"`
	MenuItems  []MenuItem `json:"menu_items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type MenuItem struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image"`
	Available    bool            `json:"available"`
	Category     string          `json:"category,omitempty"`
	OptionGroups []OptionGroup   `json:"option_groups,omitempty"`
}

type OptionGroup struct {
	Name     string   `json:"name"`
	Required bool     `json:"required"`
	Choices  []Choice `json:"choices"`
}

type Choice struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// idでメニューを探す
func (s Shop) FindMenuItem(itemID string) (MenuItem, bool) {
	for _, it := range s.MenuItems {
		if it.ID == itemID {
			return it, true
		}
	}
	return MenuItem{}, false
}

// 公開中のメニューだけ
func (s Shop) AvailableItems() []MenuItem {
	out := make([]MenuItem, 0, len(s.MenuItems))
	for _, it := range s.MenuItems {
		if it.Available {
			out = append(out, it)
		}
	}
	return out
}

// IsCentavoAmount は小数第2位までの金額か（ゲートウェイはセンタボ単位）
func IsCentavoAmount(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
