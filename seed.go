package crew

import (
	"context"
	"strings"

	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Bootstrap describes the system operator account created by Seed. When
// Username is empty it is derived from CountryCode and Mobile.
type Bootstrap struct {
	Username    string
	CountryCode string
	Mobile      string
	FullName    string
	Password    string
	Licenses    []*License
	Modules     []*Module
}

// SeedResult reports what Seed did
type SeedResult struct {
	Creator        *User
	CreatorCreated bool
}

// Seed installs the license catalog and the single CREATOR account. It is
// safe to call on every start: existing catalog rows and an existing
// creator are left untouched.
func (s *Service) Seed(ctx context.Context, boot Bootstrap) (*SeedResult, error) {
	username := strings.TrimSpace(boot.Username)
	if username == "" {
		var err error
		if username, err = DeriveUsername(boot.CountryCode, boot.Mobile); err != nil {
			return nil, err
		}
	}

	fullName := strings.TrimSpace(boot.FullName)
	if fullName == "" {
		fullName = "System Creator"
	}

	licenses := boot.Licenses
	if licenses == nil {
		licenses = DefaultLicenses()
	}
	modules := boot.Modules
	if modules == nil {
		modules = DefaultModules()
	}

	hash, err := s.hash(boot.Password)
	if err != nil {
		return nil, err
	}

	id, err := hashid.NewUUID(username)
	if err != nil {
		id = uuid.New()
	}

	result := &SeedResult{}
	now := s.now()

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Catalog().SeedTx(ctx, tx, licenses, modules); err != nil {
			return err
		}

		existing, err := s.repo.Users().SearchTx(ctx, tx, UserFilter{Roles: []UserRole{RoleCreator}})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			result.Creator = existing[0]
			return nil
		}

		if err := s.ensureUsernameFree(ctx, tx, username, uuid.Nil); err != nil {
			return err
		}

		creator := &User{
			ID:                 id,
			Username:           username,
			CountryCode:        boot.CountryCode,
			Mobile:             boot.Mobile,
			FullName:           fullName,
			PasswordHash:       hash,
			Role:               RoleCreator,
			Status:             UserStatusNeedsPasswordChange,
			Verification:       VerificationVerified,
			Position:           "System Creator",
			Permissions:        AllPermissions(),
			AssignedProjectIDs: []uuid.UUID{},
			CreatedAt:          now,
			UpdatedAt:          now,
		}

		if _, err := s.repo.Users().InsertTx(ctx, tx, creator); err != nil {
			return err
		}

		j := newJournal(creator.ID, now)
		j.add(ActionCreated, ActorSystem, "System creator account bootstrapped.")
		if creator.Logs, err = s.repo.Logs().AppendTx(ctx, tx, j.entries); err != nil {
			return err
		}

		result.Creator = creator
		result.CreatorCreated = true
		return nil
	})
	if err != nil {
		return nil, normalizeError(err)
	}

	if result.CreatorCreated {
		s.logger.Info("bootstrapped creator account %s", result.Creator.Username)
		s.emitCreated(ctx, ActivityEventUserRegistered, result.Creator, map[string]any{"bootstrap": true})
	} else {
		s.logger.Debug("creator account already present, skipping bootstrap")
	}

	return result, nil
}
