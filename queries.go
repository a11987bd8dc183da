package crew

import (
	"context"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OnboardingStep tells a caller where to route a freshly authenticated user
type OnboardingStep string

const (
	StepChangePassword OnboardingStep = "change_password"
	StepVerifyIdentity OnboardingStep = "verify_identity"
	StepAwaitReview    OnboardingStep = "await_verification_review"
	StepAwaitApproval  OnboardingStep = "await_approval"
	StepBlocked        OnboardingStep = "blocked"
	StepReady          OnboardingStep = "ready"
)

// NextStep resolves the onboarding route for u
func NextStep(u *User) OnboardingStep {
	switch {
	case u == nil:
		return StepBlocked
	case u.IsBlocked():
		return StepBlocked
	case u.Status == UserStatusNeedsPasswordChange:
		return StepChangePassword
	case u.Role != RoleCreator && (u.Verification == VerificationUnverified || u.Verification == VerificationRejected):
		return StepVerifyIdentity
	case u.Role != RoleCreator && u.Verification == VerificationPending:
		return StepAwaitReview
	case u.IsPending():
		return StepAwaitApproval
	default:
		return StepReady
	}
}

// GetUser loads a user with its audit trail in append order
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	var user *User
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		if user, err = s.repo.Users().LoadTx(ctx, tx, id); err != nil {
			return err
		}
		user.Logs, err = s.repo.Logs().ListTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UserHistory returns the audit trail most recent first
func (s *Service) UserHistory(ctx context.Context, id uuid.UUID) ([]UserLog, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return MostRecentFirst(user.Logs), nil
}

func (s *Service) searchUsers(ctx context.Context, filter UserFilter) ([]*User, error) {
	var records []*User
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		records, err = s.repo.Users().SearchTx(ctx, tx, filter)
		return err
	})
	return records, err
}

// PendingUsers lists the users of a company waiting for approval
func (s *Service) PendingUsers(ctx context.Context, companyID uuid.UUID) ([]*User, error) {
	return s.searchUsers(ctx, UserFilter{
		CompanyID: &companyID,
		Statuses:  []UserStatus{UserStatusPending},
	})
}

// PendingNotificationCount is the number of pending approvals of a company
func (s *Service) PendingNotificationCount(ctx context.Context, companyID uuid.UUID) (int, error) {
	pending, err := s.PendingUsers(ctx, companyID)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

// PendingTransfers lists company members with a transfer waiting for resolution
func (s *Service) PendingTransfers(ctx context.Context, companyID uuid.UUID) ([]*User, error) {
	members, err := s.searchUsers(ctx, UserFilter{
		CompanyID: &companyID,
		Statuses:  []UserStatus{UserStatusActive},
	})
	if err != nil {
		return nil, err
	}

	out := make([]*User, 0)
	for _, m := range members {
		if m.TransferRequest != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// CompanyMembers lists every user affiliated with a company
func (s *Service) CompanyMembers(ctx context.Context, companyID uuid.UUID) ([]*User, error) {
	return s.searchUsers(ctx, UserFilter{CompanyID: &companyID})
}

// GlobalUsers is the talent directory: everyone but the creator and owners
func (s *Service) GlobalUsers(ctx context.Context) ([]*User, error) {
	return s.searchUsers(ctx, UserFilter{
		ExcludeRoles: []UserRole{RoleCreator, RoleOwner},
	})
}

// CompanyProjects lists the projects of a company
func (s *Service) CompanyProjects(ctx context.Context, companyID uuid.UUID) ([]*Project, error) {
	var records []*Project
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		records, err = s.repo.Projects().ByCompanyTx(ctx, tx, companyID)
		return err
	})
	return records, err
}

// GetCompany loads a company
func (s *Service) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	var record *Company
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		record, err = s.repo.Companies().LoadTx(ctx, tx, id)
		return err
	})
	return record, err
}

// GetProject loads a project
func (s *Service) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	var record *Project
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		record, err = s.repo.Projects().LoadTx(ctx, tx, id)
		return err
	})
	return record, err
}

// ListCompanies lists every company
func (s *Service) ListCompanies(ctx context.Context) ([]*Company, error) {
	var records []*Company
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		records, err = s.repo.Companies().SearchTx(ctx, tx)
		return err
	})
	return records, err
}

// Licenses lists license tiers by price
func (s *Service) Licenses(ctx context.Context) ([]*License, error) {
	var records []*License
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		records, err = s.repo.Catalog().LicensesTx(ctx, tx)
		return err
	})
	return records, err
}

// Modules lists the add-on modules
func (s *Service) Modules(ctx context.Context) ([]*Module, error) {
	var records []*Module
	err := s.readTx(ctx, func(ctx context.Context, tx bun.IDB) error {
		var err error
		records, err = s.repo.Catalog().ModulesTx(ctx, tx)
		return err
	})
	return records, err
}
