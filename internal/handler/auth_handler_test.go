package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upzento/upzento-crm-sub000/internal/model"
	"github.com/upzento/upzento-crm-sub000/internal/tenant"
	"github.com/upzento/upzento-crm-sub000/pkg/database"
)

func anonRequest(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegisterThenLoginIssuesTokenPair(t *testing.T) {
	e := setupTest(t)

	c, rec := anonRequest(e, http.MethodPost, "/auth/register",
		`{"email":"new@x.com","password":"longenough","first_name":"N"}`)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c2, rec2 := anonRequest(e, http.MethodPost, "/auth/login",
		`{"email":"new@x.com","password":"longenough"}`)
	require.NoError(t, Login(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &out))
	assert.NotEmpty(t, out["token"])
	assert.NotEmpty(t, out["refresh_token"])

	claims, err := jwtUtil.ValidateToken(out["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", claims.Email)
	// A self-registered account has no tenant affiliation yet.
	assert.True(t, claims.Tenant.IsEmpty())
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	e := setupTest(t)

	c, rec := anonRequest(e, http.MethodPost, "/auth/register",
		`{"email":"u@x.com","password":"longenough"}`)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c2, rec2 := anonRequest(e, http.MethodPost, "/auth/login",
		`{"email":"u@x.com","password":"wrongwrong"}`)
	require.NoError(t, Login(c2))
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestLoginEmbedsResolvedTenantContext(t *testing.T) {
	e := setupTest(t)
	db := database.GetDB()

	agencyID := uint(7)
	client := model.Client{Name: "Acme", AgencyID: &agencyID, Active: true}
	require.NoError(t, db.Create(&client).Error)

	c, rec := anonRequest(e, http.MethodPost, "/auth/register",
		`{"email":"ops@acme.com","password":"longenough"}`)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, db.Model(&model.User{}).
		Where("email = ?", "ops@acme.com").
		Updates(map[string]interface{}{
			"role":      string(tenant.RoleClientAdmin),
			"client_id": client.ID,
		}).Error)

	c2, rec2 := anonRequest(e, http.MethodPost, "/auth/login",
		`{"email":"ops@acme.com","password":"longenough"}`)
	require.NoError(t, Login(c2))
	require.Equal(t, http.StatusOK, rec2.Code)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &out))
	claims, err := jwtUtil.ValidateToken(out["token"].(string))
	require.NoError(t, err)

	require.NotNil(t, claims.Tenant.ClientID)
	assert.Equal(t, client.ID, *claims.Tenant.ClientID)
	require.NotNil(t, claims.Tenant.AgencyID)
	assert.Equal(t, agencyID, *claims.Tenant.AgencyID)
	assert.True(t, claims.Tenant.IsClientAdmin)
}

func TestRefreshRotatesToken(t *testing.T) {
	e := setupTest(t)

	c, rec := anonRequest(e, http.MethodPost, "/auth/register",
		`{"email":"r@x.com","password":"longenough"}`)
	require.NoError(t, Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c2, rec2 := anonRequest(e, http.MethodPost, "/auth/login",
		`{"email":"r@x.com","password":"longenough"}`)
	require.NoError(t, Login(c2))
	var login map[string]interface{}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &login))
	oldRefresh := login["refresh_token"].(string)

	c3, rec3 := anonRequest(e, http.MethodPost, "/auth/refresh",
		`{"refresh_token":"`+oldRefresh+`"}`)
	require.NoError(t, Refresh(c3))
	require.Equal(t, http.StatusOK, rec3.Code)

	var refreshed map[string]interface{}
	require.NoError(t, json.Unmarshal(rec3.Body.Bytes(), &refreshed))
	assert.NotEqual(t, oldRefresh, refreshed["refresh_token"])

	// The used token is revoked; replaying it is rejected.
	c4, rec4 := anonRequest(e, http.MethodPost, "/auth/refresh",
		`{"refresh_token":"`+oldRefresh+`"}`)
	require.NoError(t, Refresh(c4))
	assert.Equal(t, http.StatusUnauthorized, rec4.Code)
}
