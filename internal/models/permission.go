package models

import "time"

// Built-in role ids, least to most privileged. PUBLIC is a distinct tier
// for unauthenticated callers, never equated with the lowest authenticated
// role.
const (
	RolePublic = "PUBLIC"
	RoleBasic  = "BASIC"
	RolePower  = "POWER"
	RoleAdmin  = "ADMIN"
)

var roleRank = map[string]int{
	RolePublic: 0,
	RoleBasic:  1,
	RolePower:  2,
	RoleAdmin:  3,
}

// RoleRank returns the privilege rank of a role id, or -1 for an unknown
// role (which can never satisfy any requirement).
func RoleRank(roleID string) int {
	rank, ok := roleRank[roleID]
	if !ok {
		return -1
	}
	return rank
}

// ValidRole reports whether roleID names a built-in role.
func ValidRole(roleID string) bool {
	_, ok := roleRank[roleID]
	return ok
}

// RoleSatisfies reports whether callerRole meets or exceeds requiredRole.
func RoleSatisfies(callerRole, requiredRole string) bool {
	caller := RoleRank(callerRole)
	if caller < 0 {
		return false
	}
	return caller >= RoleRank(requiredRole)
}

// Permission levels.
const (
	PermissionLevelRead  = "read"
	PermissionLevelWrite = "write"
)

// Permission binds a minimum role to a resource (a view id or a table id).
// Views with no explicit binding inherit the table's binding.
type Permission struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement" json:"-"`
	ResourceID string `gorm:"uniqueIndex:idx_resource_level;size:128;not null" json:"resourceId"`
	Level      string `gorm:"uniqueIndex:idx_resource_level;size:16;not null" json:"level"`
	RoleID     string `gorm:"size:32;not null" json:"roleId"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName overrides the metadata table name for Permission
func (Permission) TableName() string {
	return "permissions"
}
