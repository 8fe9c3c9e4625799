package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	"github.com/Ramsey-B/clover/pkg/routes/matchrun"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the match run API, health probes and metrics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		a, stop, err := startApp(ctx)
		if err != nil {
			return err
		}
		defer stop()

		if serveMigrate {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
		}

		p, err := a.Pipeline()
		if err != nil {
			return err
		}

		e := newServer()

		checker := health.NewChecker(cfg.Version)
		a.RegisterHealthChecks(checker)
		checker.RegisterRoutes(e)

		matchrun.NewHandler(logger, p, a.RunLock(), cfg.MatchRunTimeout).RegisterRoutes(e)

		e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

		errCh, err := listen(ctx, e, checker, fmt.Sprintf(":%d", cfg.Port))
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
		case err := <-errCh:
			if err != nil {
				logger.WithContext(ctx).WithError(err).Error("HTTP server stopped")
				return err
			}
		}

		checker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout())
		defer cancel()

		logger.WithContext(shutdownCtx).Info("Shutting down HTTP server")
		return e.Shutdown(shutdownCtx)
	},
}

// listen binds addr and only then marks the service ready. The returned
// channel yields the error that stopped the server, if any, and is closed when it stops.
func listen(ctx context.Context, e *echo.Echo, checker *health.Checker, addr string) (<-chan error, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("addr", addr).Error("Failed to bind HTTP listener")
		return nil, err
	}
	// echo serves on e.Listener when it is set
	e.Listener = ln

	errCh := make(chan error, 1)
	go func() {
		logger.WithContext(ctx).WithField("addr", ln.Addr().String()).Info("Starting HTTP server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	checker.SetReady(true)
	return errCh, nil
}

func newServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.ReadHeaderTimeout = time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	e.HTTPErrorHandler = middleware.Error(logger)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowOrigins}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))

	return e
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply database migrations before serving")
}
