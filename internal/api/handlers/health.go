package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/health"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const serviceName = "clinical-trials-sorter"

// HealthReporter is satisfied by *health.HealthChecker.
type HealthReporter interface {
	CheckAll(ctx context.Context) health.OverallHealth
	CheckCached(ctx context.Context) (*health.OverallHealth, error)
}

type HealthHandler struct {
	checker HealthReporter
	logger  *logrus.Logger
}

func NewHealthHandler(checker HealthReporter, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{
		checker: checker,
		logger:  logger,
	}
}

// HandleHealth is a liveness summary with one status per dependency.
func (h *HealthHandler) HandleHealth(c *gin.Context) {
	overall := h.current(c.Request.Context())

	services := make(map[string]string, len(overall.Services))
	for _, service := range overall.Services {
		services[service.Name] = service.Status
	}

	status := http.StatusOK
	if overall.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, models.HealthResponse{
		Status:    overall.Status,
		Service:   serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Services:  services,
	})
}

// HandleDetailedHealth runs every probe now and reports timings and errors.
func (h *HealthHandler) HandleDetailedHealth(c *gin.Context) {
	overall := h.checker.CheckAll(c.Request.Context())

	status := http.StatusOK
	if overall.Status != health.StatusHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, overall)
}

func (h *HealthHandler) current(ctx context.Context) health.OverallHealth {
	cached, err := h.checker.CheckCached(ctx)
	if err == nil && cached != nil && len(cached.Services) > 0 {
		return *cached
	}
	if err != nil {
		h.logger.WithError(err).Debug("No cached health, checking live")
	}
	return h.checker.CheckAll(ctx)
}
