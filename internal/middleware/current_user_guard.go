package middleware

import (
	"errors"
	"net/http"

	"sweetshop/internal/repository"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTの主体がDBにまだ存在するか確認し、is_adminをDBの値で上書きする。
// 匿名はそのまま通す。
func CurrentUserGuard(userRepo repository.UserRepository, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if !p.IsAuthenticated() {
				return next(c)
			}

			//DBから最新のuserを取得する
			user, err := userRepo.FindByID(c.Request().Context(), p.ID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return c.JSON(http.StatusUnauthorized, errorJSON("User not found"))
				}
				log.Error("load current user", zap.String("user_id", p.ID), zap.Error(err))
				return c.JSON(http.StatusServiceUnavailable, errorJSON("Service temporarily unavailable, please retry."))
			}

			//管理者権限の剥奪をすぐに反映する
			c.Set(CtxPrincipalKey, user.Principal())
			return next(c)
		}
	}
}
