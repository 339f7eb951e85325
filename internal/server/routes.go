package server

import (
	"net/http"

	"sweetshop/internal/middleware"

	"github.com/labstack/echo/v4"
)

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
	})

	// 登録/ログインはトークン不要
	s.deps.AuthHandler.RegisterRoutes(s.echo.Group("/api/auth"))

	api := s.echo.Group("/api",
		middleware.AuthJWT(s.cfg.JWTSecret),
		middleware.CurrentUserGuard(s.deps.Users, s.log),
	)
	s.deps.SweetHandler.RegisterRoutes(api)
}
