package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /vendor 配下（ダッシュボード・在庫・注文管理）
type VendorHandler struct {
	orders    *usecase.VendorOrderUsecase
	inventory *usecase.InventoryUsecase
}

// DI
func NewVendorHandler(orders *usecase.VendorOrderUsecase, inventory *usecase.InventoryUsecase) *VendorHandler {
	return &VendorHandler{orders: orders, inventory: inventory}
}

func (h *VendorHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	v := g.Group(e, "/vendor", model.RoleVendor)

	v.GET("/dashboard", h.dashboard)

	v.GET("/shop", h.getShop)
	v.PUT("/shop", h.updateShop)
	v.POST("/shop/items", h.createItem)
	v.PUT("/shop/items/:id", h.updateItem)
	v.PATCH("/shop/items/:id/availability", h.setAvailability)
	v.DELETE("/shop/items/:id", h.deleteItem)

	v.GET("/orders", h.listOrders)
	v.PUT("/orders/:id/status", h.updateOrderStatus)
	v.GET("/orders/:id/history", h.orderHistory)
}

func (h *VendorHandler) dashboard(c echo.Context) error {
	out, err := h.orders.Dashboard(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) getShop(c echo.Context) error {
	out, err := h.inventory.GetShop(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) updateShop(c echo.Context) error {
	var req usecase.ShopProfileRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.inventory.UpdateProfile(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) createItem(c echo.Context) error {
	var req usecase.MenuItemRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.inventory.CreateItem(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *VendorHandler) updateItem(c echo.Context) error {
	var req usecase.MenuItemRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.inventory.UpdateItem(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) setAvailability(c echo.Context) error {
	var req usecase.AvailabilityRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.inventory.SetAvailability(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) deleteItem(c echo.Context) error {
	if err := h.inventory.RemoveItem(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ?status=pending など。空なら全件。
func (h *VendorHandler) listOrders(c echo.Context) error {
	out, err := h.orders.ListOrders(c.Request().Context(), middleware.UserID(c), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) updateOrderStatus(c echo.Context) error {
	var req usecase.UpdateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.orders.UpdateStatus(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *VendorHandler) orderHistory(c echo.Context) error {
	out, err := h.orders.OrderHistory(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
