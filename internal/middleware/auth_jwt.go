package middleware

import (
	"errors"
	"net/http"
	"strings"

	"sweetshop/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// model.Principal を入れるキー
const CtxPrincipalKey = "principal"

const msgInvalidToken = "Given token not valid for any token type"

// bearerAuth用のJWT検証ミドルウェア。
// Authorizationヘッダが無ければ匿名として通す（拒否はpolicyが決める）。
func AuthJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				c.Set(CtxPrincipalKey, model.Anonymous())
				return next(c)
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgInvalidToken))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgInvalidToken))
			}

			//JWTをパースして検証する
			token, err := jwt.Parse(rawToken, func(t *jwt.Token) (interface{}, error) {
				if t.Method != jwt.SigningMethodHS256 {
					return nil, errors.New("unexpected signing method")
				}
				return []byte(secret), nil
			})
			if err != nil || token == nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgInvalidToken))
			}

			//claimsを取り出す
			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgInvalidToken))
			}

			sub, ok := claims["sub"].(string)
			if !ok || sub == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON(msgInvalidToken))
			}
			isAdmin, _ := claims["is_admin"].(bool)

			//contextへ保存
			c.Set(CtxPrincipalKey, model.Principal{ID: sub, IsAdmin: isAdmin})
			return next(c)
		}
	}
}

// PrincipalFrom はAuthJWTが入れた主体を返す。無ければ匿名。
func PrincipalFrom(c echo.Context) model.Principal {
	p, ok := c.Get(CtxPrincipalKey).(model.Principal)
	if !ok {
		return model.Anonymous()
	}
	return p
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
