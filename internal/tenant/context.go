package tenant

import (
	"gorm.io/gorm"
)

// Role is the platform-level role assigned to a user account.
type Role string

const (
	RoleSuperAdmin  Role = "SUPER_ADMIN"
	RoleAdmin       Role = "ADMIN"
	RoleAgencyOwner Role = "AGENCY_OWNER"
	RoleAgencyAdmin Role = "AGENCY_ADMIN"
	RoleAgencyUser  Role = "AGENCY_USER"
	RoleClientAdmin Role = "CLIENT_ADMIN"
	RoleClientUser  Role = "CLIENT_USER"
)

// Context is the access scope derived from a user's role and affiliations.
// It is computed once at login, embedded in the issued token, and rebuilt
// from the token claims on every request. It is never persisted.
type Context struct {
	IsAdmin       bool  `json:"is_admin,omitempty"`
	AgencyID      *uint `json:"agency_id,omitempty"`
	IsAgencyAdmin bool  `json:"is_agency_admin,omitempty"`
	IsAgencyUser  bool  `json:"is_agency_user,omitempty"`
	ClientID      *uint `json:"client_id,omitempty"`
	IsClientAdmin bool  `json:"is_client_admin,omitempty"`
	IsClientUser  bool  `json:"is_client_user,omitempty"`
}

// IsEmpty reports whether no scope was resolved. An empty context fails
// every named requirement.
func (c Context) IsEmpty() bool {
	return !c.IsAdmin && c.AgencyID == nil && c.ClientID == nil
}

// Requirement is the tenant type a route declares it needs.
type Requirement string

const (
	RequireNone        Requirement = ""
	RequireAdmin       Requirement = "admin"
	RequireAgency      Requirement = "agency"
	RequireAgencyAdmin Requirement = "agency-admin"
	RequireClient      Requirement = "client"
	RequireClientAdmin Requirement = "client-admin"
)

// Satisfies reports whether the context meets the declared requirement.
// Checks are flat field predicates: there is no privilege hierarchy, so an
// agency admin does not implicitly satisfy a client requirement and an
// admin does not implicitly satisfy an agency one. An undeclared
// requirement allows any authenticated principal.
func Satisfies(req Requirement, ctx Context) bool {
	switch req {
	case RequireNone:
		return true
	case RequireAdmin:
		return ctx.IsAdmin
	case RequireAgency:
		return ctx.IsAgencyUser && ctx.AgencyID != nil
	case RequireAgencyAdmin:
		return ctx.IsAgencyAdmin && ctx.AgencyID != nil
	case RequireClient:
		return ctx.ClientID != nil
	case RequireClientAdmin:
		return ctx.IsClientAdmin && ctx.ClientID != nil
	default:
		return false
	}
}

// Resolve derives the tenant context for a user. Agency roles require the
// agency foreign key, client roles require the client foreign key plus an
// existing client row (its owning agency is folded into the context). When
// the expected key is absent the returned context is empty and all
// type-gated routes deny access.
func Resolve(db *gorm.DB, role Role, agencyID, clientID *uint) Context {
	switch role {
	case RoleSuperAdmin, RoleAdmin:
		return Context{IsAdmin: true}

	case RoleAgencyOwner, RoleAgencyAdmin, RoleAgencyUser:
		if agencyID == nil {
			return Context{}
		}
		return Context{
			AgencyID:      agencyID,
			IsAgencyUser:  true,
			IsAgencyAdmin: role == RoleAgencyAdmin || role == RoleAgencyOwner,
		}

	case RoleClientAdmin, RoleClientUser:
		if clientID == nil {
			return Context{}
		}
		var owner struct {
			AgencyID *uint
		}
		result := db.Table("clients").
			Select("agency_id").
			Where("id = ? AND deleted_at IS NULL", *clientID).
			Scan(&owner)
		if result.Error != nil || result.RowsAffected == 0 {
			return Context{}
		}
		return Context{
			ClientID:      clientID,
			AgencyID:      owner.AgencyID,
			IsClientUser:  true,
			IsClientAdmin: role == RoleClientAdmin,
		}

	default:
		return Context{}
	}
}
