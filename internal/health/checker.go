package health

import (
	"context"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Probe checks one dependency.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// HealthCache is satisfied by *database.Cache.
type HealthCache interface {
	CacheSystemHealth(ctx context.Context, health []models.SystemHealth, expiration time.Duration) error
	GetCachedSystemHealth(ctx context.Context) ([]models.SystemHealth, error)
}

// HealthChecker manages health checks for all services
type HealthChecker struct {
	probes     []Probe
	cache      HealthCache
	healthRepo models.SystemHealthRepository
	timeout    time.Duration
	logger     *logrus.Logger
	startedAt  time.Time
}

// NewHealthChecker builds a checker; cache and healthRepo may be nil.
func NewHealthChecker(probes []Probe, cache HealthCache, healthRepo models.SystemHealthRepository, logger *logrus.Logger) *HealthChecker {
	return &HealthChecker{
		probes:     probes,
		cache:      cache,
		healthRepo: healthRepo,
		timeout:    10 * time.Second,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// ServiceHealth represents the health status of a service
type ServiceHealth struct {
	Name         string `json:"name"`
	Status       string `json:"status"`
	ResponseTime int    `json:"response_time_ms"`
	Error        string `json:"error,omitempty"`
	LastChecked  string `json:"last_checked"`
}

// OverallHealth represents the overall system health
type OverallHealth struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
	Uptime   string          `json:"uptime"`
}

func (h *HealthChecker) check(ctx context.Context, probe Probe) ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("service", probe.Name).Error("Health check failed")
	}

	if h.healthRepo != nil {
		if err := h.healthRepo.UpdateServiceHealth(probe.Name, status, responseTime, errorMsg); err != nil {
			h.logger.WithError(err).Warn("Failed to record service health")
		}
	}

	return ServiceHealth{
		Name:         probe.Name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().Format(time.RFC3339),
	}
}

// CheckAll performs health checks on all services
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	services := make([]ServiceHealth, 0, len(h.probes))
	overallStatus := StatusHealthy

	for _, probe := range h.probes {
		service := h.check(ctx, probe)
		if service.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		}
		services = append(services, service)
	}

	return OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}
}

// CheckCached reports the last stored results without probing. Redis is read
// first and the database rows written by each check serve as the fallback.
// With neither configured it checks live.
func (h *HealthChecker) CheckCached(ctx context.Context) (*OverallHealth, error) {
	if h.cache == nil && h.healthRepo == nil {
		health := h.CheckAll(ctx)
		return &health, nil
	}

	var (
		stored []models.SystemHealth
		err    error
	)
	if h.cache != nil {
		stored, err = h.cache.GetCachedSystemHealth(ctx)
	}
	if (h.cache == nil || err != nil) && h.healthRepo != nil {
		stored, err = h.healthRepo.GetAll()
	}
	if err != nil {
		return nil, err
	}

	services := make([]ServiceHealth, len(stored))
	overallStatus := StatusHealthy

	for i, health := range stored {
		services[i] = ServiceHealth{
			Name:         health.ServiceName,
			Status:       health.Status,
			ResponseTime: health.ResponseTimeMs,
			Error:        health.ErrorMessage,
			LastChecked:  health.CheckedAt.Format(time.RFC3339),
		}
		if health.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
		}
	}

	return &OverallHealth{
		Status:   overallStatus,
		Services: services,
		Uptime:   h.getUptime(),
	}, nil
}

func (h *HealthChecker) getUptime() string {
	return time.Since(h.startedAt).Round(time.Second).String()
}

// PeriodicHealthCheck runs health checks periodically
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.refresh(ctx, interval)
		}
	}
}

func (h *HealthChecker) refresh(ctx context.Context, interval time.Duration) {
	health := h.CheckAll(ctx)

	if h.cache != nil {
		healthModels := make([]models.SystemHealth, len(health.Services))
		for i, service := range health.Services {
			checkedAt, _ := time.Parse(time.RFC3339, service.LastChecked)
			healthModels[i] = models.SystemHealth{
				ServiceName:    service.Name,
				Status:         service.Status,
				ResponseTimeMs: service.ResponseTime,
				ErrorMessage:   service.Error,
				CheckedAt:      checkedAt,
			}
		}

		cacheCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := h.cache.CacheSystemHealth(cacheCtx, healthModels, 2*interval); err != nil {
			h.logger.WithError(err).Error("Failed to cache health status")
		}
		cancel()
	}

	h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
}
