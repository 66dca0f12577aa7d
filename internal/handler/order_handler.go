package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /checkout, /orders（customer）
type OrderHandler struct {
	uc *usecase.OrderUsecase
}

// DI
func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	co := g.Group(e, "/checkout", model.RoleCustomer)
	co.POST("", h.checkout)

	orders := g.Group(e, "/orders", model.RoleCustomer)
	orders.GET("", h.list)
	orders.GET("/:id", h.detail)
	orders.GET("/:id/payment", h.payment)
}

// カートから注文を作る。onlineならcheckout_urlも返す。
func (h *OrderHandler) checkout(c echo.Context) error {
	var req usecase.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.uc.Checkout(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *OrderHandler) list(c echo.Context) error {
	out, err := h.uc.ListMyOrders(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) detail(c echo.Context) error {
	out, err := h.uc.GetMyOrder(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *OrderHandler) payment(c echo.Context) error {
	out, err := h.uc.PaymentStatus(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
