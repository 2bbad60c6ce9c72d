package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
)

// RequireTenant creates a middleware that denies requests whose tenant
// context does not satisfy the declared requirement. Must run after Auth.
func RequireTenant(req tenant.Requirement) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tc, ok := TenantFromEcho(c)
			if !ok {
				log.Warn("Missing tenant context", zap.String("required", string(req)))
				prometheus.TenantContextMissingCounter.Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}

			if !tenant.Satisfies(req, tc) {
				log.Warn("Tenant type requirement not met",
					zap.String("required", string(req)),
					zap.Bool("is_admin", tc.IsAdmin),
					zap.Bool("is_agency_user", tc.IsAgencyUser),
					zap.Bool("is_client_user", tc.IsClientUser))
				prometheus.AccessDeniedCounter.WithLabelValues(string(req)).Inc()
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}

			return next(c)
		}
	}
}
