package middleware

import (
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleが許可されたものか確認します。

func RoleGuard(allowed ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rawRole := c.Get(CtxUserRoleKey)
			role, ok := rawRole.(string)
			if !ok || role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			for _, r := range allowed {
				if model.Role(role) == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorJSON(forbiddenMessage(allowed)))
		}
	}
}

func forbiddenMessage(allowed []model.Role) string {
	if len(allowed) == 1 {
		return string(allowed[0]) + " only"
	}
	return "forbidden"
}
