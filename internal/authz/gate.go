// Package authz decides whether a principal may run an operation.
package authz

import (
	"github.com/tjfontaine/recommendation-gateway/internal/domain"
)

// Authorize succeeds iff the principal holds at least one of the required
// roles. It performs no I/O. opName is used only in the error message.
func Authorize(principal domain.Principal, required domain.RoleSet, opName string) error {
	if principal.Roles.Intersects(required) {
		return nil
	}
	return domain.ErrForbidden(opName, required)
}

// AuthorizeOperation checks the principal against op's required roles.
func AuthorizeOperation(principal domain.Principal, op domain.Operation) error {
	return Authorize(principal, op.RequiredRoles(), op.Name())
}
