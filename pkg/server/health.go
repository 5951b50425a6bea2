package server

import (
	"errors"
	"net/http"

	"backupmon/pkg/log"
	"backupmon/pkg/models"
	"backupmon/pkg/store"

	"github.com/labstack/echo/v4"
)

const (
	statusHealthy = "healthy"

	// Naive local ISO-8601, the format the dashboard has always received.
	isoLocalLayout = "2006-01-02T15:04:05.999999"
)

// getHealth handles GET /api/health.
func (mon *MonitorServer) getHealth(ctx echo.Context) error {
	if err := mon.catalog.Available(); err != nil {
		var notFoundErr store.DirNotFoundError
		if errors.As(err, &notFoundErr) {
			log.Warn().Str("path", notFoundErr.Path).Msg("Backup directory missing")
			return ctx.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: "Backup directory not found"})
		}
		log.Error().Err(err).Msg("Health check failed")
		return ctx.JSON(http.StatusServiceUnavailable, models.ErrorResponse{Detail: err.Error()})
	}

	return ctx.JSON(http.StatusOK, models.HealthStatus{
		Status:    statusHealthy,
		Timestamp: mon.now().Format(isoLocalLayout),
	})
}
