package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/jwtutil"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
)

// Context keys set by the auth middleware.
const (
	ContextKeyUserID        = "user_id"
	ContextKeyEmail         = "email"
	ContextKeyRole          = "role"
	ContextKeyTenantContext = "tenant_context"
)

// Auth creates a middleware that validates the bearer token and rebuilds
// the tenant context from its claims. Handlers read the context once via
// TenantFromEcho and pass it explicitly into every store call.
func Auth(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				log.Warn("Missing authorization header")
				prometheus.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				log.Warn("Invalid authorization header format")
				prometheus.RecordAuthError("invalid_auth_format")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
			}

			claims, err := jwtUtil.ValidateToken(parts[1])
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				prometheus.RecordAuthError("invalid_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
			}

			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyEmail, claims.Email)
			c.Set(ContextKeyRole, claims.Role)
			c.Set(ContextKeyTenantContext, claims.Tenant)

			// Stamp identity and tenant coordinates onto the request
			// logger so handler logging inherits them.
			fields := append(logger.TenantFields(claims.Tenant.AgencyID, claims.Tenant.ClientID),
				zap.Uint("user_id", claims.UserID),
				zap.String("role", claims.Role))
			logger.StampEcho(c, fields...)

			log.Debug("Request authenticated",
				zap.Uint("user_id", claims.UserID),
				zap.String("email", claims.Email),
				zap.String("role", claims.Role))

			return next(c)
		}
	}
}

// TenantFromEcho returns the tenant context resolved by the auth
// middleware. The second return value is false for unauthenticated
// requests.
func TenantFromEcho(c echo.Context) (tenant.Context, bool) {
	tc, ok := c.Get(ContextKeyTenantContext).(tenant.Context)
	return tc, ok
}

// UserIDFromEcho returns the authenticated user's id.
func UserIDFromEcho(c echo.Context) (uint, bool) {
	id, ok := c.Get(ContextKeyUserID).(uint)
	return id, ok
}
