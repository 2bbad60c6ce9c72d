package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/chat"
	"github.com/upzento/upzento-crm-sub000/internal/integration"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/payment"
	"github.com/upzento/upzento-crm-sub000/internal/store"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/internal/webhook"
	"github.com/upzento/upzento-crm-sub000/pkg/config"
	"github.com/upzento/upzento-crm-sub000/pkg/jwtutil"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
)

// Package-level collaborators wired once at startup.
var (
	jwtUtil        *jwtutil.JWTUtil
	dispatcher     *webhook.Dispatcher
	chatHub        *chat.Hub
	integrations   *integration.Registry
	credCipher     *integration.Cipher
	paymentGateway payment.Gateway
	refreshTTL     time.Duration
)

// Init wires the handler package's collaborators from configuration.
func Init(cfg *config.Config, hub *chat.Hub) error {
	jwtUtil = jwtutil.NewJWTUtil(&jwtutil.JWTConfig{
		SigningKey:      cfg.JWT.SigningKey,
		ExpirationHours: cfg.JWT.ExpirationHours,
	})
	refreshTTL = time.Duration(cfg.JWT.RefreshExpirationHrs) * time.Hour
	dispatcher = webhook.NewDispatcher(cfg.Webhook.Timeout, logger.GetLogger())
	chatHub = hub
	integrations = integration.NewRegistry()
	paymentGateway = payment.NewTestGateway()

	if cfg.Crypto.CredentialKey != "" {
		cipher, err := integration.NewCipher(cfg.Crypto.CredentialKey)
		if err != nil {
			return err
		}
		credCipher = cipher
	}
	return nil
}

// JWTUtil exposes the configured token utility for the auth middleware.
func JWTUtil() *jwtutil.JWTUtil {
	return jwtUtil
}

// Validator adapts go-playground/validator to Echo's Validator interface.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds the request validator registered on the Echo instance.
func NewValidator() *Validator {
	return &Validator{validate: validator.New()}
}

// Validate implements echo.Validator.
func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// clientIDFromContext returns the tenant's client id resolved by the auth
// middleware. Handlers behind RequireTenant(tenant.RequireClient) can rely
// on it being present; the guard here is defense against misrouted wiring.
func clientIDFromContext(c echo.Context) (uint, bool) {
	tc, ok := middleware.TenantFromEcho(c)
	if !ok || tc.ClientID == nil {
		prometheus.TenantContextMissingCounter.Inc()
		return 0, false
	}
	return *tc.ClientID, true
}

// tenantFromContext returns the full tenant context.
func tenantFromContext(c echo.Context) (tenant.Context, bool) {
	return middleware.TenantFromEcho(c)
}

// scopedError maps a scoped-store error onto the error contract: a miss is
// always NOT_FOUND so cross-tenant existence is never confirmed.
func scopedError(c echo.Context, err error, resource string) error {
	if store.IsNotFound(err) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": resource + " not found"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
