package server

import (
	"net/http"

	"backupmon/pkg/log"
	"backupmon/pkg/models"

	"github.com/labstack/echo/v4"
)

type logsResponse struct {
	Logs []string `json:"logs"`
}

// getLogs handles GET /api/logs.
func (mon *MonitorServer) getLogs(ctx echo.Context) error {
	lines, err := mon.catalog.TailLogs(mon.logTailLines)
	if err != nil {
		log.Error().Err(err).Msg("Failed to read backup logs")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
	}
	if lines == nil {
		lines = []string{}
	}

	return ctx.JSON(http.StatusOK, logsResponse{Logs: lines})
}
