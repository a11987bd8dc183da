package crew

import (
	"github.com/google/uuid"
)

// IsCompanyOwnerScope reports full authority within a company
func IsCompanyOwnerScope(u *User) bool {
	return u != nil && u.Role.IsOwnerScope()
}

// HasPermission reports whether a deputy holds p. Other roles never hold
// explicit permissions.
func HasPermission(u *User, p Permission) bool {
	if u == nil || u.Role != RoleDeputy {
		return false
	}
	for _, held := range u.Permissions {
		if held == p {
			return true
		}
	}
	return false
}

// IsOfficeStaff reports a plain member seated in the company office
func IsOfficeStaff(u *User) bool {
	return u != nil && u.Role == RoleMember && u.OfficeAffiliated
}

// CanApproveStaff reports whether u may approve target. Office staff may
// only approve plain members, never deputies.
func CanApproveStaff(u, target *User) bool {
	if IsCompanyOwnerScope(u) || HasPermission(u, PermApproveStaff) {
		return true
	}
	return IsOfficeStaff(u) && target != nil && target.Role == RoleMember
}

// CanGrantPermissions reports whether u may hand perms to target. Owners
// grant anything, deputies only pass on permissions they hold and never to
// themselves.
func CanGrantPermissions(u, target *User, perms []Permission) bool {
	if IsCompanyOwnerScope(u) {
		return true
	}
	if u == nil || u.Role != RoleDeputy || target == nil || target.ID == u.ID {
		return false
	}
	for _, p := range perms {
		if !HasPermission(u, p) {
			return false
		}
	}
	return true
}

// CanResolveTransfer reports whether u may approve or reject a transfer
func CanResolveTransfer(u *User) bool {
	return IsCompanyOwnerScope(u) || HasPermission(u, PermApproveTransfers)
}

// CanRequestTransfer is reserved for office staff acting on plain members,
// admins transfer directly.
func CanRequestTransfer(u, target *User) bool {
	return IsOfficeStaff(u) && target != nil && target.Role == RoleMember
}

// CanEditUser reports whether u may edit profiles directly
func CanEditUser(u *User) bool {
	return IsCompanyOwnerScope(u) || (u != nil && u.Role == RoleDeputy)
}

// CanCreateProject reports whether u may create and manage projects
func CanCreateProject(u *User) bool {
	return IsCompanyOwnerScope(u) || HasPermission(u, PermCreateProject)
}

// CanManageFinance reports whether u may purchase licenses
func CanManageFinance(u *User) bool {
	return IsCompanyOwnerScope(u) || HasPermission(u, PermManageFinance)
}

// CanManageMembership reports whether u may remove target from the company
// or from one of its projects.
func CanManageMembership(u, target *User) bool {
	return (CanEditUser(u) && outranks(u, target)) || CanApproveStaff(u, target)
}

// outranks guards profile edits: only the creator touches the creator, and
// deputies cannot edit owners.
func outranks(u, target *User) bool {
	if u == nil || target == nil {
		return false
	}
	switch target.Role {
	case RoleCreator:
		return u.Role == RoleCreator
	case RoleOwner:
		return u.Role.IsOwnerScope()
	default:
		return true
	}
}

// Scope is the context a capability is evaluated against. Target is nil for
// company level actions that only carry CompanyID.
type Scope struct {
	Target    *User
	CompanyID *uuid.UUID
}

// Policy decides a capability for an actor within a scope
type Policy func(actor *User, scope Scope) bool

// Authorizer resolves capabilities through a registry of policies
type Authorizer struct {
	policies map[Capability]Policy
}

// NewAuthorizer returns an Authorizer with the default policy registry
func NewAuthorizer() *Authorizer {
	return &Authorizer{
		policies: map[Capability]Policy{
			CapApproveStaff: func(actor *User, s Scope) bool {
				return CanApproveStaff(actor, s.Target)
			},
			CapResolveTransfer: func(actor *User, _ Scope) bool {
				return CanResolveTransfer(actor)
			},
			CapRequestTransfer: func(actor *User, s Scope) bool {
				return CanRequestTransfer(actor, s.Target)
			},
			CapEditUser: func(actor *User, s Scope) bool {
				return CanEditUser(actor) && outranks(actor, s.Target)
			},
			CapSetPermissions: func(actor *User, s Scope) bool {
				return IsCompanyOwnerScope(actor) && s.Target != nil && s.Target.ID != actor.ID
			},
			CapCreateProject: func(actor *User, _ Scope) bool {
				return CanCreateProject(actor)
			},
			CapBlockUser: func(actor *User, s Scope) bool {
				return IsCompanyOwnerScope(actor) && s.Target != nil &&
					s.Target.Role != RoleCreator && s.Target.ID != actor.ID
			},
			CapManageMembership: func(actor *User, s Scope) bool {
				return s.Target != nil && s.Target.ID != actor.ID && CanManageMembership(actor, s.Target)
			},
			CapManageFinance: func(actor *User, _ Scope) bool {
				return CanManageFinance(actor)
			},
			CapManageCompany: func(actor *User, _ Scope) bool {
				return IsCompanyOwnerScope(actor)
			},
			CapReviewIdentity: func(actor *User, s Scope) bool {
				return IsCompanyOwnerScope(actor) && s.Target != nil && s.Target.ID != actor.ID
			},
			CapManageCatalog: func(actor *User, _ Scope) bool {
				return actor.Role == RoleCreator
			},
			CapRejectCompany: func(actor *User, _ Scope) bool {
				return actor.Role == RoleCreator
			},
		},
	}
}

// Can reports whether actor holds capability within scope
func (a *Authorizer) Can(actor *User, capability Capability, scope Scope) bool {
	return a.Authorize(actor, capability, scope) == nil
}

// Authorize returns a permission error naming the capability when actor is
// not allowed. Actors must be active, and everyone except the creator is
// confined to their own company.
func (a *Authorizer) Authorize(actor *User, capability Capability, scope Scope) error {
	if actor == nil {
		return newPermissionDenied(capability, "no acting user")
	}

	if !actor.IsActive() {
		return newPermissionDenied(capability, "acting user is not active")
	}

	if actor.Role != RoleCreator {
		companyID := scope.CompanyID
		if scope.Target != nil {
			companyID = scope.Target.CompanyID
		}
		if companyID != nil && !actor.BelongsTo(*companyID) {
			return newPermissionDenied(capability, "target belongs to another company")
		}
		if scope.Target != nil && companyID == nil {
			return newPermissionDenied(capability, "target is not affiliated with a company")
		}
	}

	policy, ok := a.policies[capability]
	if !ok {
		return newPermissionDenied(capability, "unknown capability")
	}

	if !policy(actor, scope) {
		return newPermissionDenied(capability, "role does not grant capability")
	}

	return nil
}
