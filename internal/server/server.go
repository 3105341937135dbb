// Package server is the HTTP surface of the SSE transport.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/tariffnews/config"
	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	"github.com/mohammad-safakhou/tariffnews/mcp"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
}

// New mounts the MCP SSE handler under /mcp next to health and metrics
// endpoints. With a JWT secret configured /mcp requires a bearer token.
func New(cfg config.ServerConfig, sse http.Handler, gatherer prometheus.Gatherer, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = errorHandler(logger)
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURIPath: true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("http request",
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	secured := cfg.JWTSecret != ""
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/info", func(c echo.Context) error {
		return c.JSON(http.StatusOK, Info{
			Name:    mcp.ServerName,
			Version: version,
			Tool:    mcp.ToolName,
			SSE:     mcp.SSEBasePath + "/sse",
			Auth:    secured,
		})
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	g := e.Group(mcp.SSEBasePath)
	if secured {
		g.Use(runtime.EchoAuthMiddleware([]byte(cfg.JWTSecret)))
	}
	g.Any("/*", echo.WrapHandler(sse))

	return &Server{echo: e, logger: logger}
}

func (s *Server) Handler() http.Handler { return s.echo }

// Run serves on addr until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http listening", zap.String("addr", addr), zap.String("sse", mcp.SSEBasePath+"/sse"))
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		// open SSE streams keep Shutdown waiting
		s.logger.Warn("graceful shutdown timed out, closing", zap.Error(err))
		return s.echo.Close()
	}
	return nil
}

func errorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Info("http error",
			zap.Int("status", code),
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.String("remote", c.RealIP()),
			zap.Error(err))
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
}
