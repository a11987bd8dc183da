package crew

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ApprovalBundle is the role assignment applied when a pending user is
// approved. Nil AssignedProjectIDs keeps the projects requested at
// registration, a nil OfficeAffiliated derives it from the join intent.
type ApprovalBundle struct {
	Role                UserRole     `json:"role"`
	ProjectRoleCategory string       `json:"project_role_category,omitempty"`
	JobTitle            string       `json:"job_title,omitempty"`
	Position            string       `json:"position,omitempty"`
	Permissions         []Permission `json:"permissions,omitempty"`
	AssignedProjectIDs  []uuid.UUID  `json:"assigned_project_ids,omitempty"`
	OfficeAffiliated    *bool        `json:"office_affiliated,omitempty"`
}

// Approve activates a pending user with the given role assignment
func (s *Service) Approve(ctx context.Context, adminID, targetID uuid.UUID, bundle ApprovalBundle) (*User, error) {
	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if !c.user.IsPending() {
			return newInvalidTransition(c.user.Status, UserStatusActive)
		}

		effective := c.user.clone()
		if bundle.Role != "" {
			role, ok := ParseRole(string(bundle.Role))
			if !ok {
				return newValidationError("role", fmt.Sprintf("unknown role %q", bundle.Role))
			}
			effective.Role = role
		}
		if effective.Role != RoleMember && effective.Role != RoleDeputy {
			return newValidationError("role", "approved users must be USER or ADMIN_L2")
		}

		effective.OfficeAffiliated = c.user.JoinIntent == IntentOffice || c.user.JoinIntent == IntentBoth
		if bundle.OfficeAffiliated != nil {
			effective.OfficeAffiliated = *bundle.OfficeAffiliated
		}

		if err := s.authz.Authorize(c.actor, CapApproveStaff, Scope{Target: effective}); err != nil {
			return err
		}

		if err := validateClassification(effective, bundle); err != nil {
			return err
		}

		projects := c.user.AssignedProjectIDs
		if bundle.AssignedProjectIDs != nil {
			projects = bundle.AssignedProjectIDs
		}
		if _, err := s.checkAssignment(ctx, c.tx, effective, projects); err != nil {
			return err
		}

		u := c.user
		u.Role = effective.Role
		u.OfficeAffiliated = effective.OfficeAffiliated
		u.ProjectRoleCategory = bundle.ProjectRoleCategory
		u.JobTitle = bundle.JobTitle
		u.Position = approvedPosition(effective, bundle)
		u.AssignedProjectIDs = append([]uuid.UUID{}, projects...)
		u.Permissions = nil
		if u.Role == RoleDeputy {
			perms, err := normalizePermissions(bundle.Permissions)
			if err != nil {
				return err
			}
			if !CanGrantPermissions(c.actor, u, perms) {
				return newPermissionDenied(CapApproveStaff, "cannot grant permissions the acting user does not hold")
			}
			u.Permissions = perms
		}

		if err := s.machine.Transition(ctx, c.actorRef(), u, UserStatusActive); err != nil {
			return err
		}

		approvedBy := c.actor.ID
		approvedAt := c.now
		u.ApprovedBy = &approvedBy
		u.ApprovedAt = &approvedAt

		if len(u.AssignedProjectIDs) > 0 || u.OfficeAffiliated {
			u.IsAvailableForWork = false
		}

		label := u.JobTitle
		if label == "" {
			label = u.Position
		}
		c.log.add(ActionApproved, c.adminName(), fmt.Sprintf("User approved as %s by %s", label, c.adminName()))
		c.event = ActivityEventUserStatusChanged
		c.meta = map[string]any{"role": string(u.Role)}
		return nil
	})
}

func validateClassification(effective *User, bundle ApprovalBundle) error {
	category := bundle.ProjectRoleCategory
	if category == "" {
		if effective.Role == RoleMember && !effective.OfficeAffiliated {
			return newValidationError("project_role_category", "project role category is required for workforce")
		}
		if bundle.JobTitle != "" {
			return newValidationError("project_role_category", "job title requires a project role category")
		}
		return nil
	}

	if _, ok := ProjectRoleCategories[category]; !ok {
		return newValidationError("project_role_category", "unknown project role category")
	}

	if bundle.JobTitle != "" && !isJobTitleInCategory(category, bundle.JobTitle) {
		return newValidationError("job_title", "job title does not belong to the project role category")
	}

	return nil
}

func approvedPosition(effective *User, bundle ApprovalBundle) string {
	switch {
	case bundle.Position != "":
		return bundle.Position
	case bundle.JobTitle != "":
		return bundle.JobTitle
	case effective.OfficeAffiliated:
		return "Office Staff"
	default:
		return PositionWorkforce
	}
}

func normalizePermissions(perms []Permission) ([]Permission, error) {
	out := make([]Permission, 0, len(perms))
	seen := map[Permission]bool{}
	for _, p := range perms {
		if !p.IsValid() {
			return nil, newValidationError("permissions", fmt.Sprintf("unknown permission %q", p))
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// checkAssignment validates a project set for target: every project must
// exist and belong to the target's company, without duplicates, and a
// plain member holds at most one project. Returns the project names.
func (s *Service) checkAssignment(ctx context.Context, tx bun.IDB, target *User, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := map[uuid.UUID]string{}
	if len(ids) == 0 {
		return names, nil
	}

	if target.Role == RoleMember && len(ids) > 1 {
		return nil, newValidationError("assigned_project_ids", "a member can be assigned to a single project")
	}

	if target.CompanyID == nil {
		return nil, newValidationError("assigned_project_ids", "user is not affiliated with a company")
	}

	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		if seen[id] {
			return nil, newValidationError("assigned_project_ids", "duplicate project")
		}
		seen[id] = true

		project, err := s.repo.Projects().LoadTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if project.CompanyID != *target.CompanyID {
			return nil, newValidationError("assigned_project_ids", "project belongs to another company")
		}
		names[id] = project.Name
	}

	return names, nil
}

// ToggleBlock flips a user between ACTIVE and BLOCKED. Blocking drops any
// pending transfer request.
func (s *Service) ToggleBlock(ctx context.Context, adminID, userID uuid.UUID) (*User, error) {
	return s.mutate(ctx, adminID, userID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapBlockUser, Scope{Target: c.user}); err != nil {
			return err
		}

		switch c.user.Status {
		case UserStatusActive:
			if err := s.machine.Transition(ctx, c.actorRef(), c.user, UserStatusBlocked); err != nil {
				return err
			}
			c.user.TransferRequest = nil
			c.log.add(ActionBlocked, c.adminName(), fmt.Sprintf("User blocked by %s.", c.adminName()))
		case UserStatusBlocked:
			if err := s.machine.Transition(ctx, c.actorRef(), c.user, UserStatusActive); err != nil {
				return err
			}
			c.log.add(ActionUnblocked, c.adminName(), fmt.Sprintf("User unblocked by %s.", c.adminName()))
		default:
			return newInvalidTransition(c.user.Status, UserStatusBlocked)
		}

		c.event = ActivityEventUserStatusChanged
		return nil
	})
}

// RemoveFromCompany blocks the user. The record and its company affiliation
// are kept for the audit trail.
func (s *Service) RemoveFromCompany(ctx context.Context, adminID, targetID uuid.UUID) (*User, error) {
	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapManageMembership, Scope{Target: c.user}); err != nil {
			return err
		}

		if err := s.machine.Transition(ctx, c.actorRef(), c.user, UserStatusBlocked); err != nil {
			return err
		}
		c.user.TransferRequest = nil

		c.log.add(ActionRemovedFromCompany, c.adminName(),
			fmt.Sprintf("User blocked/removed from company by %s.", c.adminName()))
		c.event = ActivityEventUserStatusChanged
		return nil
	})
}

// RemoveFromProject drops one project assignment. When no assignment is
// left the user is opened to work automatically.
func (s *Service) RemoveFromProject(ctx context.Context, adminID, targetID, projectID uuid.UUID) (*User, error) {
	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapManageMembership, Scope{Target: c.user}); err != nil {
			return err
		}

		if !c.user.HasProject(projectID) {
			return newValidationError("project_id", "user is not assigned to this project")
		}

		names, err := s.repo.Projects().NamesTx(ctx, c.tx, []uuid.UUID{projectID})
		if err != nil {
			return err
		}

		remaining := make([]uuid.UUID, 0, len(c.user.AssignedProjectIDs))
		for _, id := range c.user.AssignedProjectIDs {
			if id != projectID {
				remaining = append(remaining, id)
			}
		}
		c.user.AssignedProjectIDs = remaining

		c.log.add(ActionRemovedFromProject, c.adminName(),
			fmt.Sprintf("Removed from project: %s", projectNames([]uuid.UUID{projectID}, names)))

		if len(remaining) == 0 {
			c.user.IsAvailableForWork = true
			c.log.add(ActionStatusUpdate, ActorSystem, "Auto-set to 'Open to Work' after project removal.")
		}

		c.event = ActivityEventUserUpdated
		return nil
	})
}

// RejectCompanyRegistration deletes a pending company together with its
// pending owner and the owner's audit trail. It is the only hard delete.
func (s *Service) RejectCompanyRegistration(ctx context.Context, creatorID, companyID uuid.UUID) error {
	var company *Company

	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		actor, err := s.repo.Users().LoadTx(ctx, tx, creatorID)
		if err != nil {
			return err
		}

		if err := s.authz.Authorize(actor, CapRejectCompany, Scope{CompanyID: &companyID}); err != nil {
			return err
		}

		if company, err = s.repo.Companies().LoadTx(ctx, tx, companyID); err != nil {
			return err
		}

		owner, err := s.repo.Users().LoadTx(ctx, tx, company.OwnerID)
		if err != nil && !IsNotFound(err) {
			return err
		}

		ownerPending := owner != nil && owner.IsPending()
		if company.Status != CompanyStatusPending && !ownerPending {
			return newValidationError("company", "only pending company registrations can be rejected")
		}

		members, err := s.repo.Users().SearchTx(ctx, tx, UserFilter{CompanyID: &companyID})
		if err != nil {
			return err
		}
		for _, m := range members {
			if m.ID != company.OwnerID {
				return newValidationError("company", "company already has members")
			}
		}

		if owner != nil {
			if err := s.repo.Logs().PurgeTx(ctx, tx, owner.ID); err != nil {
				return err
			}
			if err := s.repo.Users().PurgeTx(ctx, tx, owner.ID); err != nil {
				return err
			}
		}

		return s.repo.Companies().PurgeTx(ctx, tx, companyID)
	})
	if err != nil {
		return normalizeError(err)
	}

	s.logger.Info("rejected company registration %s", companyID)
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventCompanyRejected,
		Actor:      ActorRef{ID: creatorID.String(), Type: string(RoleCreator)},
		UserID:     company.OwnerID.String(),
		CompanyID:  companyID.String(),
		OccurredAt: s.now(),
	})

	return nil
}
