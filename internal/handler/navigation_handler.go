package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"

	"github.com/labstack/echo/v4"
)

// 画面遷移のガード判定とタブバー
type NavigationHandler struct{}

func NewNavigationHandler() *NavigationHandler {
	return &NavigationHandler{}
}

type DecideResponse struct {
	Status   navigation.Status   `json:"status"`
	Segment  navigation.Group    `json:"segment"`
	Decision navigation.Decision `json:"decision"`
}

type TabsResponse struct {
	Status navigation.Status      `json:"status"`
	Tabs   []navigation.RouteInfo `json:"tabs"`
}

func (h *NavigationHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	e.GET("/navigation/decide", h.decide, g.Optional()...)
	e.GET("/navigation/tabs", h.tabs, g.Optional()...)
	e.GET("/navigation/routes", h.routes)
}

func (h *NavigationHandler) decide(c echo.Context) error {
	group, ok := navigation.ParseGroup(c.QueryParam("segment"))
	if !ok {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid segment"})
	}

	st := middleware.NavState(c)
	return c.JSON(http.StatusOK, DecideResponse{
		Status:   st.Status(),
		Segment:  group,
		Decision: navigation.Decide(st, group),
	})
}

func (h *NavigationHandler) tabs(c echo.Context) error {
	st := middleware.NavState(c)

	var role model.Role
	if st.User != nil {
		role = st.User.Role
	}
	return c.JSON(http.StatusOK, TabsResponse{Status: st.Status(), Tabs: navigation.Tabs(role)})
}

func (h *NavigationHandler) routes(c echo.Context) error {
	return c.JSON(http.StatusOK, navigation.AllRoutes())
}
