package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/middleware"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
)

// tenantRequest builds an authenticated echo context carrying an arbitrary
// tenant context, for handlers that branch on the caller's tier.
func tenantRequest(e *echo.Echo, method, target, body string, tc tenant.Context) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.ContextKeyUserID, uint(1))
	c.Set(middleware.ContextKeyTenantContext, tc)
	return c, rec
}

func TestCreateUserClientAdminCannotGrantPlatformRole(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	clientID := uint(1)
	tc := tenant.Context{ClientID: &clientID, IsClientUser: true, IsClientAdmin: true}

	c, rec := tenantRequest(e, http.MethodPost, "/api/users",
		`{"email":"evil@x.com","password":"longenough","role":"ADMIN","client_id":1}`, tc)
	require.NoError(t, CreateUser(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var count int64
	db.Model(&model.User{}).Where("email = ?", "evil@x.com").Count(&count)
	assert.EqualValues(t, 0, count)
}

func TestCreateUserAgencyAdminCannotGrantOwnerOrAdmin(t *testing.T) {
	e := setupTest(t)

	agencyID := uint(3)
	tc := tenant.Context{AgencyID: &agencyID, IsAgencyUser: true, IsAgencyAdmin: true}

	for _, role := range []string{"SUPER_ADMIN", "ADMIN", "AGENCY_OWNER"} {
		c, rec := tenantRequest(e, http.MethodPost, "/api/users",
			`{"email":"up@x.com","password":"longenough","role":"`+role+`","agency_id":3}`, tc)
		require.NoError(t, CreateUser(c))
		assert.Equal(t, http.StatusForbidden, rec.Code, role)
	}
}

func TestCreateUserClientAdminGrantsClientRole(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	clientID := uint(1)
	tc := tenant.Context{ClientID: &clientID, IsClientUser: true, IsClientAdmin: true}

	c, rec := tenantRequest(e, http.MethodPost, "/api/users",
		`{"email":"staff@x.com","password":"longenough","role":"CLIENT_USER","client_id":1}`, tc)
	require.NoError(t, CreateUser(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user model.User
	require.NoError(t, db.Where("email = ?", "staff@x.com").First(&user).Error)
	assert.Equal(t, "CLIENT_USER", user.Role)
	require.NotNil(t, user.ClientID)
	assert.EqualValues(t, 1, *user.ClientID)
}

func TestCreateUserAgencyAdminGrantsClientRoleForOwnedClient(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	agency := model.Agency{Name: "Acme", OwnerID: 1}
	require.NoError(t, db.Create(&agency).Error)
	client := model.Client{Name: "Shop", AgencyID: &agency.ID}
	require.NoError(t, db.Create(&client).Error)
	otherAgency := agency.ID + 100
	foreign := model.Client{Name: "Other", AgencyID: &otherAgency}
	require.NoError(t, db.Create(&foreign).Error)

	tc := tenant.Context{AgencyID: &agency.ID, IsAgencyUser: true, IsAgencyAdmin: true}

	c, rec := tenantRequest(e, http.MethodPost, "/api/users",
		`{"email":"ca@x.com","password":"longenough","role":"CLIENT_ADMIN","client_id":`+strconv.Itoa(int(client.ID))+`}`, tc)
	require.NoError(t, CreateUser(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	// A client owned by a different agency stays out of reach.
	c, rec = tenantRequest(e, http.MethodPost, "/api/users",
		`{"email":"ca2@x.com","password":"longenough","role":"CLIENT_ADMIN","client_id":`+strconv.Itoa(int(foreign.ID))+`}`, tc)
	require.NoError(t, CreateUser(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
