package auth

import (
	"fmt"
)

// RoleAdmin may create and delete allocations.
const RoleAdmin = "admin"

// ForbiddenError indicates a missing role or ownership.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	EmployeeID int64
	Roles      []string
}

func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RequireRole fails unless the actor holds role.
func RequireRole(a Actor, role string) error {
	if a.HasRole(role) {
		return nil
	}
	return ForbiddenError{Permission: "role:" + role}
}

// RequireOwner fails unless the actor is the employee the allocation belongs
// to. Admins pass as well.
func RequireOwner(a Actor, employeeID int64) error {
	if a.EmployeeID == employeeID || a.HasRole(RoleAdmin) {
		return nil
	}
	return ForbiddenError{Permission: "allocation.owner"}
}
