package crew

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ToggleAvailability flips the "open to work" signal of the calling user.
// Turning it on while employed leaves a breadcrumb for admins.
func (s *Service) ToggleAvailability(ctx context.Context, userID uuid.UUID) (*User, error) {
	return s.mutate(ctx, uuid.Nil, userID, func(ctx context.Context, c *change) error {
		employed := c.user.IsEmployed()
		c.user.IsAvailableForWork = !c.user.IsAvailableForWork

		if employed && c.user.IsAvailableForWork {
			c.log.add(ActionAvailabilitySignal, ActorSelf, "User signaled 'Open to Work' while employed.")
		}

		c.event = ActivityEventAvailabilityToggled
		c.meta = map[string]any{"available": c.user.IsAvailableForWork}
		return nil
	})
}

// SubmitIdentityVerification stores identity documents and moves the
// verification to PENDING, or straight to VERIFIED when auto verification
// is enabled.
func (s *Service) SubmitIdentityVerification(ctx context.Context, userID uuid.UUID, sub IdentitySubmission) (*User, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, uuid.Nil, userID, func(ctx context.Context, c *change) error {
		if c.user.Verification == VerificationVerified {
			return newValidationError("verification", "identity is already verified")
		}

		addr := sub.Address
		c.user.Address = &addr
		c.user.NationalID = sub.NationalID
		c.user.IDCardURL = sub.IDCardURL
		c.user.ResumeURL = sub.ResumeURL

		c.user.Verification = VerificationPending
		if s.autoVerify {
			c.user.Verification = VerificationVerified
		}

		c.log.add(ActionIdentitySubmitted, ActorSelf, "Identity verification documents submitted.")
		c.event = ActivityEventVerificationChanged
		c.meta = map[string]any{"verification": string(c.user.Verification)}
		return nil
	})
}

// ReviewIdentityVerification settles a pending verification
func (s *Service) ReviewIdentityVerification(ctx context.Context, adminID, userID uuid.UUID, approved bool) (*User, error) {
	return s.mutate(ctx, adminID, userID, func(ctx context.Context, c *change) error {
		if err := s.authz.Authorize(c.actor, CapReviewIdentity, Scope{Target: c.user}); err != nil {
			return err
		}

		if c.user.Verification != VerificationPending {
			return newValidationError("verification", "no identity verification is pending")
		}

		outcome := "rejected"
		c.user.Verification = VerificationRejected
		if approved {
			outcome = "approved"
			c.user.Verification = VerificationVerified
		}

		c.log.add(ActionVerificationReviewed, c.adminName(),
			fmt.Sprintf("Identity verification %s by %s.", outcome, c.adminName()))
		c.event = ActivityEventVerificationChanged
		c.meta = map[string]any{"verification": string(c.user.Verification)}
		return nil
	})
}
