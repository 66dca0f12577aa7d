package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/cart"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cartのHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// /cart, /cart/items, /cart/events を登録
func (h *CartHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	grp := g.Group(e, "/cart", model.RoleCustomer)

	grp.GET("", h.getCart)
	grp.DELETE("", h.clear)
	grp.POST("/items", h.addItem)
	grp.PATCH("/items/:id", h.patchItem)
	grp.DELETE("/items/:id", h.deleteItem)
	grp.GET("/events", h.events)
}

func (h *CartHandler) getCart(c echo.Context) error {
	out, err := h.uc.GetCart(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context) error {
	var req usecase.AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.uc.AddItem(c.Request().Context(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// quantityが0以下なら行を消す
func (h *CartHandler) patchItem(c echo.Context) error {
	var req usecase.UpdateCartItemRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.uc.UpdateQuantity(c.Request().Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) deleteItem(c echo.Context) error {
	out, err := h.uc.RemoveItem(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) clear(c echo.Context) error {
	out, err := h.uc.Clear(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// events はカートの変化をServer-Sent Eventsで流す。最初に現在のカートを1回送る。
// ログアウトするとended付きのカートを送って終わる。
func (h *CartHandler) events(c echo.Context) error {
	updates, push := latestOnly[cart.Snapshot]()

	unsubscribe, err := h.uc.Subscribe(middleware.UserID(c), push)
	if err != nil {
		return writeError(c, err)
	}
	defer unsubscribe()

	return streamSSE(c, "cart", updates, func(s cart.Snapshot) bool { return s.Ended })
}
