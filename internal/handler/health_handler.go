package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/prometheus"
)

// HealthCheck reports process liveness; it answers healthy unconditionally.
func HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
}

// ReadinessCheck reports whether the service can serve traffic: the
// database must answer a ping.
func ReadinessCheck(c echo.Context) error {
	if err := database.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"status": "unavailable",
			"error":  "database unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
}

// MetricsHandler exposes the Prometheus metrics endpoint.
func MetricsHandler(c echo.Context) error {
	handler := prometheus.GetPrometheusHandler()
	handler.ServeHTTP(c.Response(), c.Request())
	return nil
}
