package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backupmon/pkg/log"
	"backupmon/pkg/models"
	"backupmon/pkg/store"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	shutdownTimeout = 10 * time.Second
	authRealm       = "backupmon"
)

var (
	// ErrMissingPassword is returned when the API would be served without a password.
	ErrMissingPassword = errors.New("server password must be set")
)

// MonitorServer serves the backup monitor API.
type MonitorServer struct {
	catalog      store.Catalog
	username     string
	password     string
	logTailLines int
	echo         *echo.Echo
	registry     *prometheus.Registry
	metrics      *requestMetrics
	now          func() time.Time
}

// NewMonitorServer creates a server reading from catalog. Every /api route
// requires HTTP Basic credentials matching username and password.
func NewMonitorServer(catalog store.Catalog, username, password string, logTailLines int) (*MonitorServer, error) {
	if password == "" {
		return nil, ErrMissingPassword
	}

	registry := prometheus.NewRegistry()
	mon := &MonitorServer{
		catalog:      catalog,
		username:     username,
		password:     password,
		logTailLines: logTailLines,
		echo:         echo.New(),
		registry:     registry,
		metrics:      newRequestMetrics(registry),
		now:          time.Now,
	}
	mon.setupRoutes()
	return mon, nil
}

// Registry returns the registry exposed on /metrics.
func (mon *MonitorServer) Registry() *prometheus.Registry {
	return mon.registry
}

// ServeHTTP implements http.Handler.
func (mon *MonitorServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	mon.echo.ServeHTTP(w, r)
}

// Start serves on addr until SIGINT or SIGTERM, then shuts down gracefully.
func (mon *MonitorServer) Start(addr string) error {
	go func() {
		log.Info().Str("addr", addr).Msg("Starting backup monitor")

		if err := mon.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server startup failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return mon.Shutdown()
}

// Shutdown stops the server, waiting up to shutdownTimeout for open requests.
func (mon *MonitorServer) Shutdown() error {
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := mon.echo.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}

	log.Info().Msg("Server gracefully stopped")
	return nil
}

func (mon *MonitorServer) setupRoutes() {
	mon.echo.HideBanner = true
	mon.echo.HidePort = true
	mon.echo.HTTPErrorHandler = mon.handleError

	mon.echo.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "${time_rfc3339} ${status} ${method} ${uri} (${latency_human})\n",
	}))
	mon.echo.Use(middleware.Recover())
	mon.echo.Use(mon.metrics.middleware)

	mon.echo.GET("/metrics", metricsHandler(mon.registry))

	api := mon.echo.Group("/api", middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Validator: mon.validateCredentials,
		Realm:     authRealm,
	}))
	api.GET("/health", mon.getHealth)
	api.GET("/backups", mon.listBackups)
	api.GET("/logs", mon.getLogs)
}

func (mon *MonitorServer) validateCredentials(username, password string, _ echo.Context) (bool, error) {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(mon.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(mon.password)) == 1
	if !(userOK && passOK) {
		log.Warn().Str("username", username).Msg("Rejected API credentials")
	}
	return userOK && passOK, nil
}

// handleError renders errors returned by handlers and middleware as
// {"detail": ...}.
func (mon *MonitorServer) handleError(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	detail := http.StatusText(code)
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		detail = http.StatusText(code)
		if msg, ok := httpErr.Message.(string); ok && msg != "" {
			detail = msg
		}
	} else {
		log.Error().Err(err).Str("path", ctx.Path()).Msg("Unhandled handler error")
	}

	if ctx.Request().Method == http.MethodHead {
		err = ctx.NoContent(code)
	} else {
		err = ctx.JSON(code, models.ErrorResponse{Detail: detail})
	}
	if err != nil {
		log.Warn().Err(err).Msg("Failed to write error response")
	}
}
