package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /shops（customer向けの店舗一覧・メニュー）
type ShopHandler struct {
	uc *usecase.ShopUsecase
}

// DI
func NewShopHandler(uc *usecase.ShopUsecase) *ShopHandler {
	return &ShopHandler{uc: uc}
}

func (h *ShopHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	shops := g.Group(e, "/shops", model.RoleCustomer)
	shops.GET("", h.list)
	shops.GET("/:id", h.detail)
}

func (h *ShopHandler) list(c echo.Context) error {
	out, err := h.uc.ListShops(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ShopHandler) detail(c echo.Context) error {
	out, err := h.uc.GetShop(c.Request().Context(), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
