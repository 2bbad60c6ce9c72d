package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Register creates a new user account. Role and tenant affiliation are
// assigned later through user management; self-registered accounts start
// unaffiliated.
func Register(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RegisterCounter.Inc()

	var req struct {
		Email     string `json:"email" validate:"required,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse registration request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("incomplete_registration")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	// Check if user already exists
	defer prometheus.TrackDBOperation("query")(time.Now())
	var existingUser model.User
	result := database.GetDB().Where("email = ?", req.Email).First(&existingUser)
	if result.Error == nil {
		log.Warn("User already exists", zap.String("email", req.Email))
		prometheus.RecordAuthError("email_already_exists")
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		prometheus.RecordAuthError("password_hash_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	user := model.User{
		Email:     req.Email,
		Password:  string(hashedPassword),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      string(tenant.RoleClientUser),
		Active:    true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		prometheus.RecordAuthError("user_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "registration failed"})
	}

	log.Info("User registered", zap.String("email", user.Email))
	return c.JSON(http.StatusCreated, echo.Map{
		"message": "User registered successfully",
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
		},
	})
}

// Login verifies the credentials, resolves the tenant context for the
// user's role and affiliations, and issues an access/refresh token pair.
// The resolved context rides in the access token so later requests never
// re-derive it.
func Login(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.LoginCounter.Inc()

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse login request", zap.Error(err))
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var user model.User
	result := database.GetDB().Where("email = ? AND active = ?", req.Email, true).First(&user)
	if result.Error != nil {
		log.Warn("User not found", zap.String("email", req.Email))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		log.Warn("Invalid password", zap.String("email", req.Email))
		prometheus.RecordAuthError("invalid_password")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	tc := tenant.Resolve(database.GetDB(), tenant.Role(user.Role), user.AgencyID, user.ClientID)

	accessToken, refreshToken, err := issueTokenPair(&user, tc)
	if err != nil {
		log.Error("Failed to issue tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	prometheus.ActiveTokensGauge.Inc()
	log.Info("User logged in",
		zap.String("email", user.Email),
		zap.String("role", user.Role),
		zap.Bool("is_admin", tc.IsAdmin))

	return c.JSON(http.StatusOK, echo.Map{
		"token":         accessToken,
		"refresh_token": refreshToken,
		"user": map[string]interface{}{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
		"tenant": tc,
	})
}

// Refresh rotates a refresh token: the presented token is validated
// against its stored row, revoked, and a fresh token pair is issued with
// a newly resolved tenant context.
func Refresh(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RefreshCounter.Inc()

	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := c.Bind(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		prometheus.RecordAuthError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var stored model.RefreshToken
	result := database.GetDB().Where("token = ?", req.RefreshToken).First(&stored)
	if result.Error != nil || !stored.IsValid() {
		log.Warn("Invalid refresh token presented")
		prometheus.RecordAuthError("invalid_refresh_token")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	var user model.User
	if result := database.GetDB().Where("id = ? AND active = ?", stored.UserID, true).First(&user); result.Error != nil {
		log.Warn("Refresh token for unknown or inactive user", zap.Uint("user_id", stored.UserID))
		prometheus.RecordAuthError("user_not_found")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
	}

	// Revoke the used token before issuing the replacement.
	if err := database.GetDB().Model(&stored).Update("revoked", true).Error; err != nil {
		log.Error("Failed to revoke refresh token", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	tc := tenant.Resolve(database.GetDB(), tenant.Role(user.Role), user.AgencyID, user.ClientID)

	accessToken, refreshToken, err := issueTokenPair(&user, tc)
	if err != nil {
		log.Error("Failed to issue tokens", zap.Error(err))
		prometheus.RecordAuthError("token_generation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	log.Info("Token refreshed", zap.Uint("user_id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{
		"token":         accessToken,
		"refresh_token": refreshToken,
		"tenant":        tc,
	})
}

// issueTokenPair creates the signed access token and persists a new
// refresh token row.
func issueTokenPair(user *model.User, tc tenant.Context) (string, string, error) {
	accessToken, err := jwtUtil.GenerateToken(user.Email, user.ID, user.Role, tc)
	if err != nil {
		return "", "", err
	}

	refresh := model.RefreshToken{
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(refreshTTL),
	}
	if err := database.GetDB().Create(&refresh).Error; err != nil {
		return "", "", err
	}

	return accessToken, refresh.Token, nil
}
