package http

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	service         string
	paymentsEnabled bool
	checks          []HealthCheck
	logger          *zap.Logger
}

func NewHealthHandler(service string, paymentsEnabled bool, logger *zap.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		service:         service,
		paymentsEnabled: paymentsEnabled,
		checks:          checks,
		logger:          logger,
	}
}

// Health handles GET /health. It answers 503 when a dependency is down.
// Disabled payments are reported but keep the service healthy.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			h.logger.Warn("Health check failed", zap.String("dependency", check.Name), zap.Error(err))
			deps[check.Name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		deps[check.Name] = "up"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}

	return c.JSON(status, echo.Map{
		"status":       state,
		"service":      h.service,
		"payments":     h.paymentsEnabled,
		"dependencies": deps,
	})
}
