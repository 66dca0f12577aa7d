// Package seed は店舗・メニュー・ユーザーの初期データをYAMLから投入する。
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

type Catalog struct {
	Vendors   []Vendor   `yaml:"vendors"`
	Customers []Customer `yaml:"customers"`
}

type Vendor struct {
	Email            string `yaml:"email"`
	Password         string `yaml:"password"`
	DisplayName      string `yaml:"display_name"`
	PaymentSecretKey string `yaml:"payment_secret_key"`
	Shop             Shop   `yaml:"shop"`
}

type Customer struct {
	Email       string `yaml:"email"`
	Password    string `yaml:"password"`
	DisplayName string `yaml:"display_name"`
	StudentID   string `yaml:"student_id"`
}

type Shop struct {
	Name       string     `yaml:"name"`
	CoverImage string     `yaml:"cover_image"`
	Categories []string   `yaml:"categories"`
	MenuItems  []MenuItem `yaml:"menu_items"`
}

type MenuItem struct {
	ID           string        `yaml:"id"`
	Name         string        `yaml:"name"`
	Price        string        `yaml:"price"`
	Image        string        `yaml:"image"`
	Available    *bool         `yaml:"available"`
	Category     string        `yaml:"category"`
	OptionGroups []OptionGroup `yaml:"option_groups"`
}

type OptionGroup struct {
	Name     string   `yaml:"name"`
	Required bool     `yaml:"required"`
	Choices  []Choice `yaml:"choices"`
}

type Choice struct {
	Name       string `yaml:"name"`
	PriceDelta string `yaml:"price_delta"`
}

func Load(path string) (Catalog, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(b)
}

func Parse(b []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse seed yaml: %w", err)
	}
	return c, nil
}

// ToModel はYAMLのメニューをドメインのメニューに変換する（価格は文字列→decimal）
func (m MenuItem) ToModel() (model.MenuItem, error) {
	price, err := decimal.NewFromString(m.Price)
	if err != nil {
		return model.MenuItem{}, fmt.Errorf("menu item %q: bad price %q: %w", m.Name, m.Price, err)
	}
	if price.IsNegative() {
		return model.MenuItem{}, fmt.Errorf("menu item %q: negative price", m.Name)
	}
	if !model.IsCentavoAmount(price) {
		return model.MenuItem{}, fmt.Errorf("menu item %q: price %q has more than 2 decimals", m.Name, m.Price)
	}

	id := m.ID
	if id == "" {
		id = uuid.NewString()
	}
	available := true
	if m.Available != nil {
		available = *m.Available
	}

	groups := make([]model.OptionGroup, 0, len(m.OptionGroups))
	for _, g := range m.OptionGroups {
		choices := make([]model.Choice, 0, len(g.Choices))
		for _, c := range g.Choices {
			delta := decimal.Zero
			if c.PriceDelta != "" {
				delta, err = decimal.NewFromString(c.PriceDelta)
				if err != nil {
					return model.MenuItem{}, fmt.Errorf("choice %q: bad price delta: %w", c.Name, err)
				}
				if !model.IsCentavoAmount(delta) {
					return model.MenuItem{}, fmt.Errorf("choice %q: price delta %q has more than 2 decimals", c.Name, c.PriceDelta)
				}
			}
			choices = append(choices, model.Choice{Name: c.Name, PriceDelta: delta})
		}
		groups = append(groups, model.OptionGroup{Name: g.Name, Required: g.Required, Choices: choices})
	}

	return model.MenuItem{
		ID:           id,
		Name:         m.Name,
		Price:        price,
		Image:        m.Image,
		Available:    available,
		Category:     m.Category,
		OptionGroups: groups,
	}, nil
}

type Result struct {
	UsersCreated int
	UsersSkipped int
	ShopsCreated int
}

// Apply は既にあるemailを飛ばしながら投入する
func Apply(ctx context.Context, c Catalog, users repository.UserRepository, shops repository.ShopRepository) (Result, error) {
	var res Result

	for _, v := range c.Vendors {
		u, created, err := ensureUser(ctx, users, v.Email, v.Password, &model.User{
			Email:            v.Email,
			DisplayName:      v.DisplayName,
			Role:             model.RoleVendor,
			PaymentSecretKey: v.PaymentSecretKey,
		})
		if err != nil {
			return res, err
		}
		if !created {
			res.UsersSkipped++
			continue
		}
		res.UsersCreated++

		items := make([]model.MenuItem, 0, len(v.Shop.MenuItems))
		for _, mi := range v.Shop.MenuItems {
			item, err := mi.ToModel()
			if err != nil {
				return res, err
			}
			items = append(items, item)
		}

		if _, err := shops.Create(ctx, model.Shop{
			OwnerID:    u.ID,
			Name:       v.Shop.Name,
			CoverImage: v.Shop.CoverImage,
			Categories: v.Shop.Categories,
			MenuItems:  items,
		}); err != nil {
			return res, fmt.Errorf("create shop %q: %w", v.Shop.Name, err)
		}
		res.ShopsCreated++
	}

	for _, cu := range c.Customers {
		_, created, err := ensureUser(ctx, users, cu.Email, cu.Password, &model.User{
			Email:       cu.Email,
			DisplayName: cu.DisplayName,
			Role:        model.RoleCustomer,
			StudentID:   strings.ToUpper(cu.StudentID),
		})
		if err != nil {
			return res, err
		}
		if created {
			res.UsersCreated++
		} else {
			res.UsersSkipped++
		}
	}
	return res, nil
}

func ensureUser(ctx context.Context, users repository.UserRepository, email, password string, u *model.User) (*model.User, bool, error) {
	existing, err := users.FindByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("find user %s: %w", email, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	if err := users.Create(ctx, u); err != nil {
		return nil, false, fmt.Errorf("create user %s: %w", email, err)
	}
	return u, true, nil
}
