package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
	"github.com/upzento/upzento-crm-sub000/pkg/logger"
	"github.com/upzento/upzento-crm-sub000/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateUserRequest defines the structure for administrative user creation
type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role" validate:"required"`
	AgencyID  *uint  `json:"agency_id"`
	ClientID  *uint  `json:"client_id"`
}

// CreateUser provisions an account with a role and tenant affiliation. The
// caller may only attach the new user to tenants within their own scope:
// platform admins may target anything, agency admins their own agency and
// the clients it owns, client admins only their own client.
func CreateUser(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("users", "create")

	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if !validRole(req.Role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role"})
	}

	tc, ok := tenantFromContext(c)
	if !ok {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if !roleAssignable(tc, tenant.Role(req.Role)) {
		log.Warn("Role assignment outside caller tier",
			zap.String("requested_role", req.Role))
		prometheus.AccessDeniedCounter.WithLabelValues("role-tier").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}
	if err := verifyAffiliation(database.GetDB(), tc, req.AgencyID, req.ClientID); err != nil {
		prometheus.AccessDeniedCounter.WithLabelValues("affiliation").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	var count int64
	database.GetDB().Model(&model.User{}).Where("email = ?", req.Email).Count(&count)
	if count > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already registered"})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error("Failed to hash password", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	user := model.User{
		Email:     req.Email,
		Password:  string(hashed),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		AgencyID:  req.AgencyID,
		ClientID:  req.ClientID,
		Active:    true,
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if result := database.GetDB().Create(&user); result.Error != nil {
		log.Error("Failed to create user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create user"})
	}

	log.Info("User created",
		zap.Uint("id", user.ID),
		zap.String("email", user.Email),
		zap.String("role", user.Role))
	return c.JSON(http.StatusCreated, user)
}

// ListUsers lists the accounts visible to the caller: platform admins see
// everyone, agency admins see their agency's users plus users of its
// clients, client admins see their client's users.
func ListUsers(c echo.Context) error {
	prometheus.RecordOperation("users", "list")

	tc, ok := tenantFromContext(c)
	if !ok {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	db := database.GetDB()
	query := db.Model(&model.User{})
	switch {
	case tc.IsAdmin:
		// unrestricted
	case tc.IsAgencyAdmin && tc.AgencyID != nil:
		query = query.Where(
			"agency_id = ? OR client_id IN (?)",
			*tc.AgencyID,
			db.Table("clients").Select("id").Where("agency_id = ? AND deleted_at IS NULL", *tc.AgencyID),
		)
	case tc.IsClientAdmin && tc.ClientID != nil:
		query = query.Where("client_id = ?", *tc.ClientID)
	default:
		prometheus.AccessDeniedCounter.WithLabelValues("user-admin").Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var users []model.User
	if result := query.Order("created_at desc").Find(&users); result.Error != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve users"})
	}
	return c.JSON(http.StatusOK, users)
}

// DeactivateUser disables an account within the caller's scope.
func DeactivateUser(c echo.Context) error {
	log := logger.FromEcho(c)
	prometheus.RecordOperation("users", "deactivate")

	tc, ok := tenantFromContext(c)
	if !ok {
		prometheus.TenantContextMissingCounter.Inc()
		return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
	}

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user ID"})
	}

	var user model.User
	if result := database.GetDB().First(&user, uint(id)); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err := verifyAffiliation(database.GetDB(), tc, user.AgencyID, user.ClientID); err != nil {
		// Out-of-scope accounts are reported as missing.
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	if result := database.GetDB().Model(&user).Update("active", false); result.Error != nil {
		log.Error("Failed to deactivate user", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to deactivate user"})
	}

	log.Info("User deactivated", zap.Uint("id", user.ID))
	return c.JSON(http.StatusOK, echo.Map{"message": "user deactivated"})
}

func validRole(role string) bool {
	switch tenant.Role(role) {
	case tenant.RoleSuperAdmin, tenant.RoleAdmin,
		tenant.RoleAgencyOwner, tenant.RoleAgencyAdmin, tenant.RoleAgencyUser,
		tenant.RoleClientAdmin, tenant.RoleClientUser:
		return true
	}
	return false
}

// roleAssignable reports whether the caller's tier may grant the requested
// role. Platform admins grant anything; agency admins grant agency and
// client roles except AGENCY_OWNER; client admins grant client roles only.
func roleAssignable(tc tenant.Context, role tenant.Role) bool {
	if tc.IsAdmin {
		return true
	}
	if tc.IsAgencyAdmin {
		switch role {
		case tenant.RoleAgencyAdmin, tenant.RoleAgencyUser,
			tenant.RoleClientAdmin, tenant.RoleClientUser:
			return true
		}
		return false
	}
	if tc.IsClientAdmin {
		switch role {
		case tenant.RoleClientAdmin, tenant.RoleClientUser:
			return true
		}
		return false
	}
	return false
}

// verifyAffiliation checks the caller may attach a user to the requested
// agency/client. Agency admins may target their own agency or clients owned
// by it; client admins only their own client.
func verifyAffiliation(db *gorm.DB, tc tenant.Context, agencyID, clientID *uint) error {
	if tc.IsAdmin {
		return nil
	}
	if tc.IsAgencyAdmin && tc.AgencyID != nil {
		if agencyID != nil && *agencyID != *tc.AgencyID {
			return echo.ErrForbidden
		}
		if clientID != nil {
			var count int64
			db.Table("clients").
				Where("id = ? AND agency_id = ? AND deleted_at IS NULL", *clientID, *tc.AgencyID).
				Count(&count)
			if count == 0 {
				return echo.ErrForbidden
			}
		}
		if agencyID == nil && clientID == nil {
			return echo.ErrForbidden
		}
		return nil
	}
	if tc.IsClientAdmin && tc.ClientID != nil {
		if agencyID != nil {
			return echo.ErrForbidden
		}
		if clientID == nil || *clientID != *tc.ClientID {
			return echo.ErrForbidden
		}
		return nil
	}
	return echo.ErrForbidden
}
