package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

// AuthStateEvent は /auth/events で流す認証状態
type AuthStateEvent struct {
	Status navigation.Status     `json:"status"`
	User   *navigation.Principal `json:"user"`
}

func authStateEvent(st navigation.State) AuthStateEvent {
	return AuthStateEvent{Status: st.Status(), User: st.User}
}

// /auth のHTTP
type AuthHandler struct {
	uc *usecase.AuthUsecase
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase) *AuthHandler {
	return &AuthHandler{uc: uc}
}

func (h *AuthHandler) RegisterRoutes(e *echo.Echo, g Guard) {
	e.POST("/auth/signup", h.signup)
	e.POST("/auth/login", h.login)
	e.POST("/auth/logout", h.logout, g.Signed()...)
	e.GET("/auth/me", h.me, g.Signed()...)
	e.GET("/auth/events", h.events, g.Signed()...)
}

func (h *AuthHandler) signup(c echo.Context) error {
	var req usecase.SignupRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.uc.Signup(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.LoginRequest
	if err := c.Bind(&req); err != nil {
		return bindError(c)
	}

	out, err := h.uc.Login(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// token_versionを進めて、発行済みのJWTを全部無効にする
func (h *AuthHandler) logout(c echo.Context) error {
	if err := h.uc.Logout(c.Request().Context(), middleware.UserID(c)); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "logged out"})
}

func (h *AuthHandler) me(c echo.Context) error {
	out, err := h.uc.Me(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// events は認証状態をServer-Sent Eventsで流す。最初に今の状態を送り、ログアウトで終わる。
func (h *AuthHandler) events(c echo.Context) error {
	updates, push := latestOnly[AuthStateEvent]()
	push(authStateEvent(middleware.NavState(c)))

	unsubscribe, err := h.uc.WatchState(middleware.UserID(c), func(st navigation.State) {
		push(authStateEvent(st))
	})
	if err != nil {
		return writeError(c, err)
	}
	defer unsubscribe()

	return streamSSE(c, "auth", updates, func(ev AuthStateEvent) bool {
		return ev.Status == navigation.StatusAnonymous
	})
}
