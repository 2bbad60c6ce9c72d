package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type clientRow struct {
	ID       uint `gorm:"primaryKey"`
	AgencyID *uint
	DeletedAt gorm.DeletedAt
}

func (clientRow) TableName() string { return "clients" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&clientRow{}))
	return db
}

func uintPtr(v uint) *uint { return &v }

func TestResolveAdminRoles(t *testing.T) {
	db := newTestDB(t)

	for _, role := range []Role{RoleAdmin, RoleSuperAdmin} {
		ctx := Resolve(db, role, nil, nil)
		assert.True(t, ctx.IsAdmin, "role %s", role)
		assert.Nil(t, ctx.AgencyID)
		assert.Nil(t, ctx.ClientID)
		assert.False(t, ctx.IsEmpty())
	}
}

func TestResolveAgencyRoles(t *testing.T) {
	db := newTestDB(t)

	tests := []struct {
		name      string
		role      Role
		agencyID  *uint
		wantEmpty bool
		wantAdmin bool
	}{
		{"agency admin", RoleAgencyAdmin, uintPtr(7), false, true},
		{"agency owner", RoleAgencyOwner, uintPtr(7), false, true},
		{"agency user", RoleAgencyUser, uintPtr(7), false, false},
		{"agency admin without agency", RoleAgencyAdmin, nil, true, false},
		{"agency user without agency", RoleAgencyUser, nil, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := Resolve(db, tt.role, tt.agencyID, nil)
			if tt.wantEmpty {
				assert.True(t, ctx.IsEmpty())
				return
			}
			require.NotNil(t, ctx.AgencyID)
			assert.Equal(t, uint(7), *ctx.AgencyID)
			assert.True(t, ctx.IsAgencyUser)
			assert.Equal(t, tt.wantAdmin, ctx.IsAgencyAdmin)
			assert.Nil(t, ctx.ClientID)
		})
	}
}

func TestResolveClientAdminIncludesOwningAgency(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&clientRow{ID: 42, AgencyID: uintPtr(9)}).Error)

	ctx := Resolve(db, RoleClientAdmin, nil, uintPtr(42))

	require.NotNil(t, ctx.ClientID)
	assert.Equal(t, uint(42), *ctx.ClientID)
	require.NotNil(t, ctx.AgencyID)
	assert.Equal(t, uint(9), *ctx.AgencyID)
	assert.True(t, ctx.IsClientAdmin)
	assert.True(t, ctx.IsClientUser)
	assert.False(t, ctx.IsAgencyUser)
}

func TestResolveClientUserWithoutAgency(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Create(&clientRow{ID: 5}).Error)

	ctx := Resolve(db, RoleClientUser, nil, uintPtr(5))

	require.NotNil(t, ctx.ClientID)
	assert.Nil(t, ctx.AgencyID)
	assert.True(t, ctx.IsClientUser)
	assert.False(t, ctx.IsClientAdmin)
}

func TestResolveClientRoleMissingForeignKey(t *testing.T) {
	db := newTestDB(t)

	ctx := Resolve(db, RoleClientAdmin, nil, nil)
	assert.True(t, ctx.IsEmpty())
}

func TestResolveClientRoleUnknownClient(t *testing.T) {
	db := newTestDB(t)

	ctx := Resolve(db, RoleClientUser, nil, uintPtr(404))
	assert.True(t, ctx.IsEmpty())
}

func TestResolveUnknownRole(t *testing.T) {
	db := newTestDB(t)

	ctx := Resolve(db, Role("MYSTERY"), uintPtr(1), uintPtr(2))
	assert.True(t, ctx.IsEmpty())
}

func TestSatisfiesFlatChecks(t *testing.T) {
	adminCtx := Context{IsAdmin: true}
	agencyAdminCtx := Context{AgencyID: uintPtr(3), IsAgencyUser: true, IsAgencyAdmin: true}
	agencyUserCtx := Context{AgencyID: uintPtr(3), IsAgencyUser: true}
	clientAdminCtx := Context{ClientID: uintPtr(8), AgencyID: uintPtr(3), IsClientUser: true, IsClientAdmin: true}
	clientUserCtx := Context{ClientID: uintPtr(8), IsClientUser: true}
	emptyCtx := Context{}

	tests := []struct {
		name string
		req  Requirement
		ctx  Context
		want bool
	}{
		{"no requirement allows anyone", RequireNone, emptyCtx, true},
		{"admin satisfies admin", RequireAdmin, adminCtx, true},
		{"agency admin does not satisfy admin", RequireAdmin, agencyAdminCtx, false},
		{"agency user satisfies agency", RequireAgency, agencyUserCtx, true},
		{"agency admin satisfies agency", RequireAgency, agencyAdminCtx, true},
		{"admin does not satisfy agency", RequireAgency, adminCtx, false},
		{"agency admin satisfies agency-admin", RequireAgencyAdmin, agencyAdminCtx, true},
		{"agency user does not satisfy agency-admin", RequireAgencyAdmin, agencyUserCtx, false},
		{"client user satisfies client", RequireClient, clientUserCtx, true},
		{"client admin satisfies client", RequireClient, clientAdminCtx, true},
		{"agency admin does not satisfy client", RequireClient, agencyAdminCtx, false},
		{"admin does not satisfy client", RequireClient, adminCtx, false},
		{"client admin satisfies client-admin", RequireClientAdmin, clientAdminCtx, true},
		{"client user does not satisfy client-admin", RequireClientAdmin, clientUserCtx, false},
		{"empty context fails client", RequireClient, emptyCtx, false},
		{"empty context fails admin", RequireAdmin, emptyCtx, false},
		{"unknown requirement denied", Requirement("owner"), adminCtx, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Satisfies(tt.req, tt.ctx))
		})
	}
}
