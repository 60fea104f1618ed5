package auth

import (
	"context"
	"strings"
)

const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
	RoleAdmin    = "admin"
)

const (
	PermAppraisalRead   = "appraisal.read"
	PermAppraisalWrite  = "appraisal.write"
	PermAppraisalReview = "appraisal.review"
	PermAppraisalAdmin  = "appraisal.admin"
)

var DefaultPermissions = []string{
	PermAppraisalRead,
	PermAppraisalWrite,
	PermAppraisalReview,
	PermAppraisalAdmin,
}

// RolePermissions are coarse gates checked before the per-appraisal resolver.
// An employee can still be a supervisor on someone else's appraisal, so review
// permission is not reserved for managers.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermAppraisalRead,
		PermAppraisalWrite,
		PermAppraisalReview,
	},
	RoleManager: {
		PermAppraisalRead,
		PermAppraisalWrite,
		PermAppraisalReview,
	},
	RoleHR: {
		PermAppraisalRead,
		PermAppraisalWrite,
		PermAppraisalReview,
		PermAppraisalAdmin,
	},
	RoleAdmin: {
		PermAppraisalRead,
		PermAppraisalReview,
		PermAppraisalAdmin,
	},
}

// StaticPermissions answers permission checks from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(_ context.Context, role, permission string) (bool, error) {
	for _, perm := range RolePermissions[strings.ToLower(role)] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}

// HasOverride reports whether role is one of the configured HR override roles.
func HasOverride(role string, overrideRoles []string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range overrideRoles {
		if strings.ToLower(strings.TrimSpace(r)) == role {
			return true
		}
	}
	return false
}
