package server

import (
	"net/http"
	"strconv"

	"backupmon/pkg/log"
	"backupmon/pkg/models"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
)

// listBackups handles GET /api/backups?page=&page_size=.
func (mon *MonitorServer) listBackups(ctx echo.Context) error {
	page, err := intQueryParam(ctx, "page", 1, 1, 0)
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: err.Error()})
	}
	pageSize, err := intQueryParam(ctx, "page_size", models.DefaultPageSize, 1, models.MaxPageSize)
	if err != nil {
		return ctx.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{Detail: err.Error()})
	}

	backups, err := mon.catalog.ListBackups()
	if err != nil {
		log.Error().Err(err).Msg("Failed to list backups")
		return ctx.JSON(http.StatusInternalServerError, models.ErrorResponse{Detail: err.Error()})
	}

	total := len(backups)
	start := min((page-1)*pageSize, total)
	end := min(start+pageSize, total)

	items := make([]models.BackupRecord, 0, end-start)
	var pageBytes uint64
	for _, backup := range backups[start:end] {
		items = append(items, models.BackupRecord{
			Name:      backup.Name,
			Size:      backup.Size,
			CreatedAt: backup.ModifiedAt.In(mon.now().Location()).Format(isoLocalLayout),
		})
		pageBytes += uint64(backup.Size) // #nosec G115 - file sizes are non-negative
	}

	log.Debug().
		Int("page", page).
		Int("page_size", pageSize).
		Int("total", total).
		Str("page_bytes", humanize.IBytes(pageBytes)).
		Msg("Listed backups")

	return ctx.JSON(http.StatusOK, models.BackupPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: models.TotalPages(total, pageSize),
	})
}

type paramError struct {
	name   string
	reason string
}

func (e *paramError) Error() string {
	return "invalid query parameter " + e.name + ": " + e.reason
}

// intQueryParam reads an integer query parameter, falling back to def when it
// is absent. A zero upper bound means unbounded.
func intQueryParam(ctx echo.Context, name string, def, lower, upper int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &paramError{name: name, reason: "not an integer"}
	}
	if value < lower {
		return 0, &paramError{name: name, reason: "must be >= " + strconv.Itoa(lower)}
	}
	if upper > 0 && value > upper {
		return 0, &paramError{name: name, reason: "must be <= " + strconv.Itoa(upper)}
	}
	return value, nil
}
