package server

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/handler"

	"github.com/labstack/echo/v4"
)

// Handlers はルートを持つハンドラ一式
type Handlers struct {
	Auth       *handler.AuthHandler
	Navigation *handler.NavigationHandler
	Shop       *handler.ShopHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	Vendor     *handler.VendorHandler
}

func RegisterRoutes(e *echo.Echo, g handler.Guard, h Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Auth.RegisterRoutes(e, g)
	h.Navigation.RegisterRoutes(e, g)
	h.Shop.RegisterRoutes(e, g)
	h.Cart.RegisterRoutes(e, g)
	h.Order.RegisterRoutes(e, g)
	h.Vendor.RegisterRoutes(e, g)
}
