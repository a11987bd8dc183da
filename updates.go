package crew

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// UserUpdate is one edit intent accepted by EditUser. The set of intents is
// closed: RenameUser, ChangePosition, ReassignProjects, SetPermissions,
// ChangeUsername and ResetPassword.
type UserUpdate interface {
	applyTo(ctx context.Context, s *Service, c *change, next *User) error
}

// RenameUser changes the display name
type RenameUser struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (u RenameUser) applyTo(_ context.Context, _ *Service, _ *change, next *User) error {
	name := strings.TrimSpace(u.FullName)
	if name == "" {
		return newValidationError("full_name", "full name is required")
	}
	next.FullName = name
	if u.FirstName != "" {
		next.FirstName = u.FirstName
	}
	if u.LastName != "" {
		next.LastName = u.LastName
	}
	return nil
}

// ChangePosition changes the free text position
type ChangePosition struct {
	Position string `json:"position"`
}

func (u ChangePosition) applyTo(_ context.Context, _ *Service, _ *change, next *User) error {
	position := strings.TrimSpace(u.Position)
	if position == "" {
		return newValidationError("position", "position is required")
	}
	next.Position = position
	return nil
}

// ReassignProjects overwrites the project assignments. This is the direct
// transfer used by owners and deputies.
type ReassignProjects struct {
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

func (u ReassignProjects) applyTo(ctx context.Context, s *Service, c *change, next *User) error {
	if _, err := s.checkAssignment(ctx, c.tx, next, u.ProjectIDs); err != nil {
		return err
	}
	next.AssignedProjectIDs = append([]uuid.UUID{}, u.ProjectIDs...)
	return nil
}

// SetPermissions replaces a deputy's permission set. Only owner scope may
// apply it.
type SetPermissions struct {
	Permissions []Permission `json:"permissions"`
}

func (u SetPermissions) applyTo(_ context.Context, s *Service, c *change, next *User) error {
	if err := s.authz.Authorize(c.actor, CapSetPermissions, Scope{Target: c.user}); err != nil {
		return err
	}
	if next.Role != RoleDeputy {
		return newValidationError("permissions", "permissions can only be set on ADMIN_L2 users")
	}
	perms, err := normalizePermissions(u.Permissions)
	if err != nil {
		return err
	}
	next.Permissions = perms
	return nil
}

// ChangeUsername changes the mobile number used as login username
type ChangeUsername struct {
	CountryCode string `json:"country_code"`
	Mobile      string `json:"mobile"`
}

func (u ChangeUsername) applyTo(ctx context.Context, s *Service, c *change, next *User) error {
	username, err := DeriveUsername(u.CountryCode, u.Mobile)
	if err != nil {
		return err
	}
	if err := s.ensureUsernameFree(ctx, c.tx, username, next.ID); err != nil {
		return err
	}
	next.Username = username
	next.CountryCode = u.CountryCode
	next.Mobile = u.Mobile
	return nil
}

// ResetPassword sets a new password on behalf of the user
type ResetPassword struct {
	Password string `json:"password"`
	hash     string
}

func (u ResetPassword) applyTo(_ context.Context, _ *Service, _ *change, next *User) error {
	if u.hash == "" {
		return newValidationError("password", "password is required")
	}
	next.PasswordHash = u.hash
	return nil
}

// EditUser applies updates to a copy of target and writes one audit entry
// per changed category, all sharing the same timestamp.
func (s *Service) EditUser(ctx context.Context, adminID, targetID uuid.UUID, updates ...UserUpdate) (*User, error) {
	if len(updates) == 0 {
		return nil, newValidationError("updates", "no changes supplied")
	}

	prepared := make([]UserUpdate, 0, len(updates))
	for _, u := range updates {
		switch v := u.(type) {
		case nil:
			continue
		case ResetPassword:
			hash, err := s.hash(v.Password)
			if err != nil {
				return nil, err
			}
			v.hash = hash
			prepared = append(prepared, v)
		case *ResetPassword:
			hash, err := s.hash(v.Password)
			if err != nil {
				return nil, err
			}
			prepared = append(prepared, ResetPassword{hash: hash})
		default:
			prepared = append(prepared, u)
		}
	}

	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapEditUser, Scope{Target: c.user}); err != nil {
			return err
		}

		next := c.user.clone()
		for _, u := range prepared {
			if err := u.applyTo(ctx, s, c, next); err != nil {
				return err
			}
		}

		if err := s.diffAndLog(ctx, c, next); err != nil {
			return err
		}

		next.Version = c.user.Version
		next.Logs = c.user.Logs
		*c.user = *next
		c.event = ActivityEventUserUpdated
		return nil
	})
}

func (s *Service) diffAndLog(ctx context.Context, c *change, next *User) error {
	old := c.user
	admin := c.adminName()

	if !sameProjectSet(old.AssignedProjectIDs, next.AssignedProjectIDs) {
		ids := append(append([]uuid.UUID{}, old.AssignedProjectIDs...), next.AssignedProjectIDs...)
		names, err := s.repo.Projects().NamesTx(ctx, c.tx, ids)
		if err != nil {
			return err
		}
		c.log.add(ActionProjectChange, admin, "Projects changed from ["+
			projectNames(old.AssignedProjectIDs, names)+"] to ["+
			projectNames(next.AssignedProjectIDs, names)+"]")

		if len(next.AssignedProjectIDs) > 0 {
			next.IsAvailableForWork = false
		} else if len(old.AssignedProjectIDs) > 0 {
			next.IsAvailableForWork = true
		}
	}

	if next.Position != old.Position {
		c.log.add(ActionPositionChange, admin, `Position changed from "`+old.Position+`" to "`+next.Position+`"`)
	}

	if next.FullName != old.FullName {
		c.log.add(ActionNameChange, admin, `Name changed from "`+old.FullName+`" to "`+next.FullName+`"`)
	}

	if !samePermissionSet(old.Permissions, next.Permissions) {
		c.log.add(ActionPermissionsChange, admin, "Permissions updated.")
	}

	if next.Username != old.Username {
		c.log.add(ActionUsernameChange, admin, "Username changed from "+old.Username+" to "+next.Username)
	}

	if next.PasswordHash != old.PasswordHash {
		c.log.add(ActionPasswordReset, admin, "Password reset by "+admin+".")
	}

	return nil
}

func sameProjectSet(a, b []uuid.UUID) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = a[i].String()
		bs[i] = b[i].String()
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func samePermissionSet(a, b []Permission) bool {
	if len(a) != len(b) {
		return false
	}
	held := make(map[Permission]int, len(a))
	for _, p := range a {
		held[p]++
	}
	for _, p := range b {
		if held[p] == 0 {
			return false
		}
		held[p]--
	}
	return true
}
