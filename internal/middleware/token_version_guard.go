package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jedmamosto/tupv-project-sub000/internal/cache"
	"github.com/jedmamosto/tupv-project-sub000/internal/logger"
	"github.com/jedmamosto/tupv-project-sub000/internal/navigation"

	"github.com/labstack/echo/v4"
)

const CtxNavStateKey = "nav_state" // navigation.State

// プロフィールを引く（session.Manager）
type ProfileResolver interface {
	Resolve(ctx context.Context, userID string) (navigation.State, *cache.Profile, error)
}

// JWTのtvと保存済みのtoken_versionが一致するか確認。
// ロールもここで保存済みの値に置き換える。
func TokenVersionGuard(profiles ProfileResolver, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID := UserID(c)
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			tv, ok := c.Get(CtxTokenVersionKey).(int)
			if !ok || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			// プロフィールを引けなければ未ログイン扱い（ログに残す）
			state, profile, err := profiles.Resolve(c.Request().Context(), userID)
			if err != nil || profile == nil {
				if err != nil {
					log.Error("token_version_guard", requestID(c), "profile lookup failed", err,
						slog.String("user_id", userID))
				}
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//token_version が一致しなければ強制ログアウト扱い（401）
			if profile.TokenVersion != tv {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserRoleKey, string(profile.Role))
			c.Set(CtxNavStateKey, state)
			return next(c)
		}
	}
}

// NavState はガード判定用の状態（未ログインならUserがnil）
func NavState(c echo.Context) navigation.State {
	st, _ := c.Get(CtxNavStateKey).(navigation.State)
	return st
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
