package validator

import (
	"fmt"
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	playground "github.com/go-playground/validator/v10"
)

type menuItemForm struct {
	Name     string `json:"name" validate:"required,max=120"`
	Image    string `json:"image" validate:"omitempty,max=2048"`
	Category string `json:"category" validate:"omitempty,max=60"`
}

type shopProfileForm struct {
	Name             string   `json:"name" validate:"required,max=80"`
	CoverImage       string   `json:"cover_image" validate:"omitempty,max=2048"`
	Categories       []string `json:"categories" validate:"omitempty,max=20,dive,required,max=60"`
	PaymentSecretKey string   `json:"payment_secret_key" validate:"omitempty,startswith=sk_"`
}

type inventoryValidator struct {
	v *playground.Validate
}

func NewInventoryValidator() usecase.InventoryValidator {
	return &inventoryValidator{v: newEngine()}
}

// メニュー項目の入力を検証（価格は0以上で小数第2位まで、オプションは名前必須）
func (iv *inventoryValidator) ValidateMenuItem(req *usecase.MenuItemRequest) error {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	fields := fieldErrors(iv.v.Struct(menuItemForm{
		Name:     req.Name,
		Image:    req.Image,
		Category: req.Category,
	}))

	switch {
	case req.Price.IsNegative():
		fields = put(fields, "price", "price must not be negative")
	case !model.IsCentavoAmount(req.Price):
		fields = put(fields, "price", "price must have at most 2 decimals")
	}

	for gi, g := range req.OptionGroups {
		if strings.TrimSpace(g.Name) == "" {
			fields = put(fields, fmt.Sprintf("option_groups[%d].name", gi), "option group name is required")
		}
		if len(g.Choices) == 0 {
			fields = put(fields, fmt.Sprintf("option_groups[%d].choices", gi), "option group needs at least one choice")
		}
		for ci, c := range g.Choices {
			if strings.TrimSpace(c.Name) == "" {
				fields = put(fields, fmt.Sprintf("option_groups[%d].choices[%d].name", gi, ci), "choice name is required")
			}
			key := fmt.Sprintf("option_groups[%d].choices[%d].price_delta", gi, ci)
			switch {
			case c.PriceDelta.IsNegative():
				fields = put(fields, key, "price delta must not be negative")
			case !model.IsCentavoAmount(c.PriceDelta):
				fields = put(fields, key, "price delta must have at most 2 decimals")
			}
		}
	}

	if len(fields) > 0 {
		return usecase.NewValidationError(fields)
	}
	return nil
}

func (iv *inventoryValidator) ValidateShopProfile(req *usecase.ShopProfileRequest) error {
	req.Name = strings.TrimSpace(req.Name)

	form := shopProfileForm{
		Name:       req.Name,
		CoverImage: req.CoverImage,
		Categories: req.Categories,
	}
	if req.PaymentSecretKey != nil {
		form.PaymentSecretKey = strings.TrimSpace(*req.PaymentSecretKey)
	}

	if fields := fieldErrors(iv.v.Struct(form)); len(fields) > 0 {
		return usecase.NewValidationError(fields)
	}
	return nil
}
