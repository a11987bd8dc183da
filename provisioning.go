package crew

import (
	"context"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProjectInput describes a new project
type ProjectInput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// Validate will run validation rules
func (p ProjectInput) Validate() error {
	return AsValidationError(validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(2, 200)),
		validation.Field(&p.Location, validation.Length(0, 200)),
	))
}

var projectTransitions = map[ProjectStatus]map[ProjectStatus]struct{}{
	ProjectStatusActive: {
		ProjectStatusCompleted: {},
		ProjectStatusArchived:  {},
	},
	ProjectStatusCompleted: {
		ProjectStatusArchived: {},
	},
}

// companyAction loads the actor and company inside one transaction and
// checks capability before running fn.
func (s *Service) companyAction(ctx context.Context, actorID, companyID uuid.UUID, capability Capability,
	fn func(ctx context.Context, tx bun.IDB, actor *User, company *Company) error) error {
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		actor, err := s.repo.Users().LoadTx(ctx, tx, actorID)
		if err != nil {
			return err
		}

		if err := s.authz.Authorize(actor, capability, Scope{CompanyID: &companyID}); err != nil {
			return err
		}

		company, err := s.repo.Companies().LoadTx(ctx, tx, companyID)
		if err != nil {
			return err
		}

		return fn(ctx, tx, actor, company)
	})
	return normalizeError(err)
}

// CreateProject adds an active project with a fresh join code
func (s *Service) CreateProject(ctx context.Context, adminID, companyID uuid.UUID, input ProjectInput) (*Project, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	var project *Project
	err := s.companyAction(ctx, adminID, companyID, CapCreateProject, func(ctx context.Context, tx bun.IDB, actor *User, company *Company) error {
		code, err := s.uniqueCode(ctx, tx, projectCodeLength, s.repo.Projects().CodeTakenTx)
		if err != nil {
			return err
		}

		project = &Project{
			ID:          uuid.New(),
			Name:        input.Name,
			ProjectCode: code,
			CompanyID:   company.ID,
			Location:    input.Location,
			Status:      ProjectStatusActive,
			CreatedAt:   s.now(),
		}

		if _, err := s.repo.Projects().CreateTx(ctx, tx, project); err != nil {
			return wrapInternal(err, "failed to create project")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("created project %s (%s) in company %s", project.ID, project.ProjectCode, companyID)
	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventProjectCreated,
		Actor:      ActorRef{ID: adminID.String(), Type: "admin"},
		CompanyID:  companyID.String(),
		Metadata:   map[string]any{"project_id": project.ID.String(), "project_code": project.ProjectCode},
		OccurredAt: project.CreatedAt,
	})

	return project, nil
}

// SetProjectStatus completes or archives a project. Projects are never
// deleted and archived projects are final.
func (s *Service) SetProjectStatus(ctx context.Context, adminID, projectID uuid.UUID, status ProjectStatus) (*Project, error) {
	var project *Project
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		if project, err = s.repo.Projects().LoadTx(ctx, tx, projectID); err != nil {
			return err
		}

		actor, err := s.repo.Users().LoadTx(ctx, tx, adminID)
		if err != nil {
			return err
		}

		if err := s.authz.Authorize(actor, CapCreateProject, Scope{CompanyID: &project.CompanyID}); err != nil {
			return err
		}

		if _, ok := projectTransitions[project.Status][status]; !ok {
			return newValidationError("status", "project cannot move from "+string(project.Status)+" to "+string(status))
		}

		project.Status = status
		return s.repo.Projects().SaveTx(ctx, tx, project)
	})
	if err != nil {
		return nil, normalizeError(err)
	}

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventProjectStatusChanged,
		Actor:      ActorRef{ID: adminID.String(), Type: "admin"},
		CompanyID:  project.CompanyID.String(),
		Metadata:   map[string]any{"project_id": project.ID.String(), "status": string(status)},
		OccurredAt: s.now(),
	})

	return project, nil
}

// PurchaseLicense activates a license tier and add-on modules for one
// month. Payment is not processed.
func (s *Service) PurchaseLicense(ctx context.Context, adminID, companyID uuid.UUID, licenseID string, modules []string) (*Company, error) {
	var company *Company
	err := s.companyAction(ctx, adminID, companyID, CapManageFinance, func(ctx context.Context, tx bun.IDB, actor *User, c *Company) error {
		if _, err := s.repo.Catalog().LicenseTx(ctx, tx, licenseID); err != nil {
			return err
		}

		available, err := s.repo.Catalog().ModulesTx(ctx, tx)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(available))
		for _, m := range available {
			known[m.ID] = true
		}

		active := make([]string, 0, len(modules))
		seen := map[string]bool{}
		for _, id := range modules {
			if !known[id] {
				return newNotFound(KindModule, id)
			}
			if !seen[id] {
				seen[id] = true
				active = append(active, id)
			}
		}

		expiry := s.now().AddDate(0, 1, 0)
		lid := licenseID
		c.LicenseID = &lid
		c.ActiveModules = active
		c.Status = CompanyStatusActive
		c.ExpiryDate = &expiry

		company = c
		return s.repo.Companies().SaveTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventCompanyLicensed,
		Actor:      ActorRef{ID: adminID.String(), Type: "admin"},
		CompanyID:  companyID.String(),
		Metadata:   map[string]any{"license_id": licenseID, "modules": company.ActiveModules},
		OccurredAt: s.now(),
	})

	return company, nil
}

// SetCompanyResume stores the link to the company portfolio document. An
// empty url clears it.
func (s *Service) SetCompanyResume(ctx context.Context, adminID, companyID uuid.UUID, url string) (*Company, error) {
	url = strings.TrimSpace(url)
	if err := validation.Validate(url, is.URL); err != nil {
		return nil, AsValidationError(validation.Errors{"resume_url": err})
	}

	var company *Company
	err := s.companyAction(ctx, adminID, companyID, CapManageCompany, func(ctx context.Context, tx bun.IDB, _ *User, c *Company) error {
		c.ResumeURL = url
		company = c
		return s.repo.Companies().SaveTx(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, ActivityEvent{
		EventType:  ActivityEventCompanyUpdated,
		Actor:      ActorRef{ID: adminID.String(), Type: "admin"},
		CompanyID:  companyID.String(),
		Metadata:   map[string]any{"resume_url": url},
		OccurredAt: s.now(),
	})

	return company, nil
}

// UpdateLicensePrice edits the monthly base price of a license tier
func (s *Service) UpdateLicensePrice(ctx context.Context, creatorID uuid.UUID, licenseID string, price int) (*License, error) {
	if price < 0 {
		return nil, newValidationError("base_price_monthly", "price cannot be negative")
	}

	var license *License
	err := s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		actor, err := s.repo.Users().LoadTx(ctx, tx, creatorID)
		if err != nil {
			return err
		}

		if err := s.authz.Authorize(actor, CapManageCatalog, Scope{}); err != nil {
			return err
		}

		if license, err = s.repo.Catalog().LicenseTx(ctx, tx, licenseID); err != nil {
			return err
		}

		license.BasePriceMonthly = price
		return s.repo.Catalog().SaveLicenseTx(ctx, tx, license)
	})
	if err != nil {
		return nil, normalizeError(err)
	}
	return license, nil
}

// RemainingDays is the number of started days left until expiry, zero for
// an unlicensed or expired company.
func RemainingDays(expiry *time.Time, now time.Time) int {
	if expiry == nil {
		return 0
	}
	diff := expiry.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(math.Ceil(diff.Hours() / 24))
}

// RemainingDays reports the license days left for company using the
// service clock.
func (s *Service) RemainingDays(company *Company) int {
	if company == nil {
		return 0
	}
	return RemainingDays(company.ExpiryDate, s.now())
}
