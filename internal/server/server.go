package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sweetshop/internal/config"
	"sweetshop/internal/handler"
	"sweetshop/internal/middleware"
	"sweetshop/internal/repository"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// サーバーが使う部品
type Deps struct {
	SweetHandler *handler.SweetHandler
	AuthHandler  *handler.AuthHandler
	Users        repository.UserRepository
}

type Server struct {
	cfg  config.Config
	log  *zap.Logger
	deps Deps
	echo *echo.Echo
}

func New(cfg config.Config, log *zap.Logger, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// /api/sweets/ と /api/sweets を同じに扱う
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit("1M"))

	s := &Server{cfg: cfg, log: log, deps: deps, echo: e}
	s.registerRoutes()
	return s
}

// テストからhttptestで叩くため
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start はctxがキャンセルされるまで動き、その後graceful shutdownする
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server started", zap.String("addr", s.cfg.Addr()))
		if err := s.echo.Start(s.cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.echo.Shutdown(shutdownCtx)
}
