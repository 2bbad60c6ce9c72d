package logger

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// loggerKey is the echo context slot shared by the request logging
// middleware and the auth middleware.
const loggerKey = "logger"

// FromEcho returns the request-scoped logger installed by the logging
// middleware, falling back to the process logger.
func FromEcho(c echo.Context) *zap.Logger {
	l, ok := c.Get(loggerKey).(*zap.Logger)
	if !ok {
		return GetLogger()
	}
	return l
}

// StampEcho replaces the request logger with a child carrying extra fields
// so every later log line for the request inherits them. The auth
// middleware stamps the caller's identity and tenant coordinates here.
func StampEcho(c echo.Context, fields ...zap.Field) {
	c.Set(loggerKey, FromEcho(c).With(fields...))
}

// TenantFields renders optional agency/client coordinates as zap fields,
// skipping whichever side the caller's tenant context leaves unset.
func TenantFields(agencyID, clientID *uint) []zap.Field {
	fields := make([]zap.Field, 0, 2)
	if agencyID != nil {
		fields = append(fields, zap.Uint("agency_id", *agencyID))
	}
	if clientID != nil {
		fields = append(fields, zap.Uint("client_id", *clientID))
	}
	return fields
}
