package crew

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RequestTransfer records an office initiated move of target to projectIDs.
// Assignments change only when an admin resolves the request.
func (s *Service) RequestTransfer(ctx context.Context, adminID, targetID uuid.UUID, projectIDs []uuid.UUID) (*User, error) {
	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapRequestTransfer, Scope{Target: c.user}); err != nil {
			return err
		}

		if c.user.TransferRequest != nil {
			return ErrTransferAlreadyPending
		}

		if !c.user.IsActive() || c.user.CompanyID == nil {
			return newValidationError("status", "only active company members can be transferred")
		}

		if len(projectIDs) == 0 {
			return newValidationError("target_project_ids", "at least one target project is required")
		}

		names, err := s.checkAssignment(ctx, c.tx, c.user, projectIDs)
		if err != nil {
			return err
		}

		targets := projectNames(projectIDs, names)
		c.user.TransferRequest = &TransferRequest{
			TargetProjectIDs: append([]uuid.UUID{}, projectIDs...),
			RequestedBy:      c.actor.FullName,
			RequestedByID:    c.actor.ID,
			RequestedAt:      c.now,
			Reason:           fmt.Sprintf("Transfer requested to: %s", targets),
		}

		c.log.add(ActionTransferRequested, c.adminName(), fmt.Sprintf("Transfer requested to projects: %s", targets))
		c.event = ActivityEventTransferRequested
		return nil
	})
}

// ResolveTransfer approves or rejects the pending transfer of target. The
// request is cleared either way.
func (s *Service) ResolveTransfer(ctx context.Context, adminID, targetID uuid.UUID, approved bool) (*User, error) {
	return s.mutate(ctx, adminID, targetID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapResolveTransfer, Scope{Target: c.user}); err != nil {
			return err
		}

		req := c.user.TransferRequest
		if req == nil {
			return ErrNoTransferPending
		}

		ids := append(append([]uuid.UUID{}, c.user.AssignedProjectIDs...), req.TargetProjectIDs...)
		names, err := s.repo.Projects().NamesTx(ctx, c.tx, ids)
		if err != nil {
			return err
		}
		oldNames := projectNames(c.user.AssignedProjectIDs, names)

		if approved {
			if _, err := s.checkAssignment(ctx, c.tx, c.user, req.TargetProjectIDs); err != nil {
				return err
			}

			c.user.AssignedProjectIDs = append([]uuid.UUID{}, req.TargetProjectIDs...)
			if len(c.user.AssignedProjectIDs) > 0 {
				c.user.IsAvailableForWork = false
			}

			c.log.add(ActionTransferApproved, c.adminName(), fmt.Sprintf(
				"Transfer Approved. Moved from [%s] to [%s]. Requested by %s",
				oldNames, projectNames(req.TargetProjectIDs, names), req.RequestedBy,
			))
		} else {
			c.log.add(ActionTransferRejected, c.adminName(), fmt.Sprintf(
				"Transfer Rejected. Remained in [%s]. Request by %s denied.",
				oldNames, req.RequestedBy,
			))
		}

		c.user.TransferRequest = nil
		c.event = ActivityEventTransferResolved
		c.meta = map[string]any{"approved": approved}
		return nil
	})
}
