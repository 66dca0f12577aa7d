package handler

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/config"
	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/middleware"
	"github.com/jedmamosto/tupv-project-sub000/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		return c.JSON(he.Status, ErrorResponse{Error: he.Message, Fields: he.Fields})
	}

	//500
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

// Guard はロールグループに掛けるミドルウェア一式
type Guard struct {
	Cfg      config.Config
	Profiles middleware.ProfileResolver
	Log      *logger.Logger
}

// Group はprefix配下を JWT → token_version → ロール の順で守る
func (g Guard) Group(e *echo.Echo, prefix string, roles ...model.Role) *echo.Group {
	grp := e.Group(prefix)
	grp.Use(middleware.AuthJWT(g.Cfg))
	grp.Use(middleware.TokenVersionGuard(g.Profiles, g.Log))
	if len(roles) > 0 {
		grp.Use(middleware.RoleGuard(roles...))
	}
	return grp
}

// Signed はロールを問わずログイン必須
func (g Guard) Signed() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.AuthJWT(g.Cfg),
		middleware.TokenVersionGuard(g.Profiles, g.Log),
	}
}

// Optional はヘッダがあるときだけ検証する
func (g Guard) Optional() []echo.MiddlewareFunc {
	guard := middleware.TokenVersionGuard(g.Profiles, g.Log)
	return []echo.MiddlewareFunc{
		middleware.OptionalAuthJWT(g.Cfg),
		func(next echo.HandlerFunc) echo.HandlerFunc {
			guarded := guard(next)
			return func(c echo.Context) error {
				if middleware.UserID(c) == "" {
					return next(c)
				}
				return guarded(c)
			}
		},
	}
}

func bindError(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body"})
}
