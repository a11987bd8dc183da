package crew

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Default positions given at registration, replaced on approval
const (
	PositionJobSeeker    = "Job Seeker"
	PositionOfficePend   = "Office Staff (Pending)"
	PositionFieldPend    = "Field Staff (Pending)"
	PositionCompanyOwner = "Company Owner"
	PositionWorkforce    = "Workforce"
)

// CompanyRegistration is the result of RegisterCompany
type CompanyRegistration struct {
	Owner   *User    `json:"owner"`
	Company *Company `json:"company"`
}

// RegisterJoin creates a pending account for a person joining through a
// company code (OFFICE, BOTH), a project code (FIELD) or as unaffiliated
// talent. BOTH accepts an optional project code in SecondCode that must
// belong to the same company.
func (s *Service) RegisterJoin(ctx context.Context, req JoinRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	username, err := DeriveUsername(req.CountryCode, req.Mobile)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &User{
		Username:           username,
		CountryCode:        req.CountryCode,
		Mobile:             req.Mobile,
		Email:              req.Email,
		FirstName:          req.FirstName,
		LastName:           req.LastName,
		FullName:           req.Contact.FullName(),
		PasswordHash:       hash,
		Role:               RoleMember,
		Status:             UserStatusPending,
		Verification:       VerificationUnverified,
		JoinIntent:         req.Intent,
		AssignedProjectIDs: []uuid.UUID{},
		IsAvailableForWork: req.Intent == IntentTalent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureUsernameFree(ctx, tx, username, uuid.Nil); err != nil {
			return err
		}

		description, err := s.resolveJoinTarget(ctx, tx, req, user)
		if err != nil {
			return err
		}

		if _, err := s.repo.Users().InsertTx(ctx, tx, user); err != nil {
			return err
		}

		j := newJournal(user.ID, now)
		j.add(ActionRegistered, ActorSelf, description)
		logs, err := s.repo.Logs().AppendTx(ctx, tx, j.entries)
		if err != nil {
			return err
		}
		user.Logs = logs
		return nil
	})
	if err != nil {
		return nil, normalizeError(err)
	}

	s.logger.Info("registered user %s with intent %s", user.ID, req.Intent)
	s.emitCreated(ctx, ActivityEventUserRegistered, user, map[string]any{
		"intent": string(req.Intent),
	})

	return user, nil
}

func (s *Service) resolveJoinTarget(ctx context.Context, tx bun.IDB, req JoinRequest, user *User) (string, error) {
	switch req.Intent {
	case IntentTalent:
		user.Position = PositionJobSeeker
		return "Registered as Talent", nil

	case IntentOffice:
		company, err := s.repo.Companies().LoadByCodeTx(ctx, tx, req.Code)
		if err != nil {
			return "", err
		}
		user.CompanyID = &company.ID
		user.Position = PositionOfficePend
		return fmt.Sprintf("Joined with intent: %s", req.Intent), nil

	case IntentField:
		project, err := s.joinableProject(ctx, tx, req.Code, nil)
		if err != nil {
			return "", err
		}
		company, err := s.repo.Companies().LoadTx(ctx, tx, project.CompanyID)
		if err != nil {
			return "", wrapInternal(err, "project references a missing company")
		}
		user.CompanyID = &company.ID
		user.AssignedProjectIDs = []uuid.UUID{project.ID}
		user.Position = PositionFieldPend
		return fmt.Sprintf("Joined with intent: %s | Requested Project: %s", req.Intent, project.Name), nil

	case IntentBoth:
		company, err := s.repo.Companies().LoadByCodeTx(ctx, tx, req.Code)
		if err != nil {
			return "", err
		}
		user.CompanyID = &company.ID
		user.Position = PositionFieldPend

		description := fmt.Sprintf("Joined with intent: %s", req.Intent)
		if req.SecondCode != "" {
			project, err := s.joinableProject(ctx, tx, req.SecondCode, &company.ID)
			if err != nil {
				return "", err
			}
			user.AssignedProjectIDs = []uuid.UUID{project.ID}
			description += fmt.Sprintf(" | Requested Project: %s", project.Name)
		}
		return description, nil
	}

	return "", newValidationError("intent", "unknown join intent")
}

// joinableProject resolves an active project by code, optionally limited to
// one company.
func (s *Service) joinableProject(ctx context.Context, tx bun.IDB, code string, companyID *uuid.UUID) (*Project, error) {
	project, err := s.repo.Projects().LoadByCodeTx(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if companyID != nil && project.CompanyID != *companyID {
		return nil, newInvalidCode(KindProject, code)
	}
	if project.Status != ProjectStatusActive {
		return nil, newInvalidCode(KindProject, code)
	}
	return project, nil
}

// RegisterCompany creates an active company together with its owner. The
// owner is active but unverified.
func (s *Service) RegisterCompany(ctx context.Context, contact Contact, info CompanyInfo) (*CompanyRegistration, error) {
	if err := contact.Validate(); err != nil {
		return nil, err
	}
	if err := info.Validate(); err != nil {
		return nil, err
	}

	username, err := DeriveUsername(contact.CountryCode, contact.Mobile)
	if err != nil {
		return nil, err
	}

	hash, err := s.hash(contact.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	country := info.Country
	if country == "" {
		country = "Unknown"
	}

	owner := &User{
		ID:                 uuid.New(),
		Username:           username,
		CountryCode:        contact.CountryCode,
		Mobile:             contact.Mobile,
		Email:              contact.Email,
		FirstName:          contact.FirstName,
		LastName:           contact.LastName,
		FullName:           contact.FullName(),
		PasswordHash:       hash,
		Role:               RoleOwner,
		Status:             UserStatusActive,
		Verification:       VerificationUnverified,
		Position:           PositionCompanyOwner,
		Permissions:        AllPermissions(),
		AssignedProjectIDs: []uuid.UUID{},
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	company := &Company{
		ID:            uuid.New(),
		Name:          info.Name,
		Country:       country,
		Industry:      info.Industry,
		Status:        CompanyStatusActive,
		OwnerID:       owner.ID,
		ActiveModules: []string{},
		CreatedAt:     now,
	}
	owner.CompanyID = &company.ID

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.ensureUsernameFree(ctx, tx, username, uuid.Nil); err != nil {
			return err
		}

		code, err := s.uniqueCode(ctx, tx, companyCodeLength, s.repo.Companies().CodeTakenTx)
		if err != nil {
			return err
		}
		company.CompanyCode = code

		if _, err := s.repo.Companies().CreateTx(ctx, tx, company); err != nil {
			return wrapInternal(err, "failed to create company")
		}

		if _, err := s.repo.Users().InsertTx(ctx, tx, owner); err != nil {
			return err
		}

		j := newJournal(owner.ID, now)
		j.add(ActionCreated, ActorSystem, "Company Owner account created.")
		logs, err := s.repo.Logs().AppendTx(ctx, tx, j.entries)
		if err != nil {
			return err
		}
		owner.Logs = logs
		return nil
	})
	if err != nil {
		return nil, normalizeError(err)
	}

	s.logger.Info("registered company %s (%s) owned by %s", company.ID, company.CompanyCode, owner.ID)
	s.emitCreated(ctx, ActivityEventCompanyRegistered, owner, map[string]any{
		"company_id":   company.ID.String(),
		"company_code": company.CompanyCode,
	})

	return &CompanyRegistration{Owner: owner, Company: company}, nil
}

func (s *Service) ensureUsernameFree(ctx context.Context, tx bun.IDB, username string, exclude uuid.UUID) error {
	taken, err := s.repo.Users().UsernameTakenTx(ctx, tx, username, exclude)
	if err != nil {
		return err
	}
	if taken {
		return newDuplicateAccount(username)
	}
	return nil
}

func (s *Service) emitCreated(ctx context.Context, eventType ActivityEventType, user *User, meta map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		Actor:      selfActor(user),
		UserID:     user.ID.String(),
		ToStatus:   user.Status,
		Metadata:   meta,
		OccurredAt: user.CreatedAt,
	}
	for _, l := range user.Logs {
		event.Actions = append(event.Actions, l.Action)
	}
	if user.CompanyID != nil {
		event.CompanyID = user.CompanyID.String()
	}
	s.record(ctx, event)
}
