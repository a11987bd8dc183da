package crew

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Authenticate matches username and password exactly. A blocked account is
// reported only after the credentials match, so callers can tell a wrong
// password from a blocked user. Pending and unverified users authenticate
// so they can be routed to onboarding.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var user *User
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		user, err = s.repo.Users().LoadByUsernameTx(ctx, tx, username)
		return err
	})

	if err != nil {
		if IsNotFound(err) {
			s.loginFailed(ctx, nil, username, "unknown username")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if IsInvalidCredentials(err) {
			s.loginFailed(ctx, user, username, "password mismatch")
		}
		return nil, err
	}

	if user.IsBlocked() {
		s.loginFailed(ctx, user, username, "account blocked")
		return nil, ErrAccountBlocked
	}

	event := ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Actor:      selfActor(user),
		UserID:     user.ID.String(),
		FromStatus: user.Status,
		ToStatus:   user.Status,
		OccurredAt: s.now(),
	}
	if user.CompanyID != nil {
		event.CompanyID = user.CompanyID.String()
	}
	s.record(ctx, event)

	return user, nil
}

func (s *Service) loginFailed(ctx context.Context, user *User, username, reason string) {
	s.logger.Debug("authentication failed for %q: %s", username, reason)

	event := ActivityEvent{
		EventType:  ActivityEventLoginFailure,
		Actor:      ActorRef{Type: "anonymous", Name: username},
		OccurredAt: s.now(),
		Metadata: map[string]any{
			"username": username,
			"reason":   reason,
		},
	}
	if user != nil {
		event.UserID = user.ID.String()
		event.FromStatus = user.Status
		event.ToStatus = user.Status
	}
	s.record(ctx, event)
}

// ChangePassword sets a new password. The bootstrap creator leaves
// NEEDS_PASSWORD_CHANGE through this call.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, newPassword string) (*User, error) {
	hash, err := s.hash(newPassword)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, uuid.Nil, userID, func(ctx context.Context, c *change) error {
		c.user.PasswordHash = hash
		c.event = ActivityEventPasswordChanged

		if c.user.Role == RoleCreator && c.user.Status == UserStatusNeedsPasswordChange {
			if err := s.machine.Transition(ctx, selfActor(c.user), c.user, UserStatusActive); err != nil {
				return err
			}
		}

		c.log.add(ActionPasswordChanged, ActorSelf, "Password changed.")
		return nil
	})
}
