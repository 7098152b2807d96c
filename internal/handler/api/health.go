package api

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	domrepo "MacroPull/internal/domain/repository"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
)

// HealthHandler serves the liveness check of the ops server.
type HealthHandler struct {
	logger    *xlogger.Logger
	archive   domrepo.SeriesArchive
	providers []string
	timeout   time.Duration
}

func NewHealthHandler(logger *xlogger.Logger, archive domrepo.SeriesArchive, providers []string) *HealthHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &HealthHandler{logger: logger, archive: archive, providers: providers, timeout: 2 * time.Second}
}

func (h *HealthHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
}

type healthStatus struct {
	Status    string   `json:"status"`
	Providers []string `json:"providers"`
	Archive   string   `json:"archive"`
}

func (h *HealthHandler) Health(c echo.Context) error {
	res := healthStatus{Status: "ok", Providers: h.providers, Archive: "ok"}

	if h.archive != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		defer cancel()
		if err := h.archive.Health(ctx); err != nil {
			h.logger.Warn("archive health check failed", xlogger.Error(err))
			res.Status = "degraded"
			res.Archive = err.Error()
			return xhttp.UnavailableResponse(c, res)
		}
	}
	return xhttp.SuccessResponse(c, res)
}
