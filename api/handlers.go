package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	crew "github.com/goliatone/go-crew"
)

// LoginRequest is the payload for Login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return crew.AsValidationError(validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

// LoginResponse carries the session token and the onboarding route
type LoginResponse struct {
	Token    string              `json:"token"`
	User     *crew.User          `json:"user"`
	NextStep crew.OnboardingStep `json:"next_step"`
}

// RegisterCompanyRequest is the payload for RegisterCompany
type RegisterCompanyRequest struct {
	Contact crew.Contact     `json:"contact"`
	Company crew.CompanyInfo `json:"company"`
}

// PasswordRequest carries a new password
type PasswordRequest struct {
	Password string `json:"password"`
}

// DecisionRequest carries an approve or reject decision
type DecisionRequest struct {
	Approved bool `json:"approved"`
}

// TransferRequest carries the requested project set
type TransferRequest struct {
	ProjectIDs []uuid.UUID `json:"project_ids"`
}

// EditUserRequest groups the edit intents, absent keys are left untouched
type EditUserRequest struct {
	Rename      *crew.RenameUser       `json:"rename,omitempty"`
	Position    *crew.ChangePosition   `json:"position,omitempty"`
	Projects    *crew.ReassignProjects `json:"projects,omitempty"`
	Permissions *crew.SetPermissions   `json:"permissions,omitempty"`
	Username    *crew.ChangeUsername   `json:"username,omitempty"`
	Password    *crew.ResetPassword    `json:"password,omitempty"`
}

// Updates converts the request into the ordered edit intents
func (r EditUserRequest) Updates() []crew.UserUpdate {
	updates := []crew.UserUpdate{}
	if r.Rename != nil {
		updates = append(updates, *r.Rename)
	}
	if r.Position != nil {
		updates = append(updates, *r.Position)
	}
	if r.Projects != nil {
		updates = append(updates, *r.Projects)
	}
	if r.Permissions != nil {
		updates = append(updates, *r.Permissions)
	}
	if r.Username != nil {
		updates = append(updates, *r.Username)
	}
	if r.Password != nil {
		updates = append(updates, *r.Password)
	}
	return updates
}

// LicenseRequest is the payload for PurchaseLicense
type LicenseRequest struct {
	LicenseID string   `json:"license_id"`
	Modules   []string `json:"modules"`
}

// ProjectStatusRequest is the payload for SetProjectStatus
type ProjectStatusRequest struct {
	Status crew.ProjectStatus `json:"status"`
}

// ResumeRequest is the payload for SetCompanyResume
type ResumeRequest struct {
	ResumeURL string `json:"resume_url"`
}

// PriceRequest is the payload for UpdateLicensePrice
type PriceRequest struct {
	BasePriceMonthly int `json:"base_price_monthly"`
}

// Login authenticates and issues a session token
func (a *Controller) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	user, err := a.Service.Authenticate(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return err
	}

	token, err := a.Tokens.Generate(user)
	if err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Expires:  time.Now().Add(a.TokenTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})

	return c.JSON(LoginResponse{
		Token:    token,
		User:     user,
		NextStep: crew.NextStep(user),
	})
}

// RegisterJoin registers a person through a join code
func (a *Controller) RegisterJoin(c *fiber.Ctx) error {
	payload := new(crew.JoinRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	user, err := a.Service.RegisterJoin(c.UserContext(), *payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// RegisterCompany registers a company and its owner
func (a *Controller) RegisterCompany(c *fiber.Ctx) error {
	payload := new(RegisterCompanyRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	res, err := a.Service.RegisterCompany(c.UserContext(), payload.Contact, payload.Company)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Me returns the session user with onboarding route
func (a *Controller) Me(c *fiber.Ctx) error {
	user, err := a.loadSelf(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"user": user, "next_step": crew.NextStep(user)})
}

// ChangePassword sets the session user's password
func (a *Controller) ChangePassword(c *fiber.Ctx) error {
	me, err := a.selfUser(c)
	if err != nil {
		return err
	}

	payload := new(PasswordRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	user, err := a.Service.ChangePassword(c.UserContext(), me.ID, payload.Password)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// ToggleAvailability flips the session user's open to work signal
func (a *Controller) ToggleAvailability(c *fiber.Ctx) error {
	me, err := a.selfUser(c)
	if err != nil {
		return err
	}

	user, err := a.Service.ToggleAvailability(c.UserContext(), me.ID)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// SubmitIdentity stores the session user's identity documents
func (a *Controller) SubmitIdentity(c *fiber.Ctx) error {
	me, err := a.selfUser(c)
	if err != nil {
		return err
	}

	payload := new(crew.IdentitySubmission)
	if err := bind(c, payload); err != nil {
		return err
	}

	user, err := a.Service.SubmitIdentityVerification(c.UserContext(), me.ID, *payload)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// targetAction resolves the actor and the :id target before running fn
func (a *Controller) targetAction(c *fiber.Ctx, fn func(actor, target uuid.UUID) (any, error)) error {
	actor, err := a.actorID(c)
	if err != nil {
		return err
	}

	target, err := paramID(c, "id")
	if err != nil {
		return err
	}

	out, err := fn(actor, target)
	if err != nil {
		return err
	}
	if out == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(out)
}

// GetUser returns a user with its audit trail
func (a *Controller) GetUser(c *fiber.Ctx) error {
	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		if err := a.canView(c, actor, target); err != nil {
			return nil, err
		}
		return a.Service.GetUser(c.UserContext(), target)
	})
}

// UserHistory returns the audit trail most recent first
func (a *Controller) UserHistory(c *fiber.Ctx) error {
	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		if err := a.canView(c, actor, target); err != nil {
			return nil, err
		}
		return a.Service.UserHistory(c.UserContext(), target)
	})
}

// EditUser applies edit intents to a user
func (a *Controller) EditUser(c *fiber.Ctx) error {
	payload := new(EditUserRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.EditUser(c.UserContext(), actor, target, payload.Updates()...)
	})
}

// Approve activates a pending user
func (a *Controller) Approve(c *fiber.Ctx) error {
	payload := new(crew.ApprovalBundle)
	if err := bind(c, payload); err != nil {
		return err
	}
	a.debug("approve", payload)

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.Approve(c.UserContext(), actor, target, *payload)
	})
}

// ToggleBlock flips a user between active and blocked
func (a *Controller) ToggleBlock(c *fiber.Ctx) error {
	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.ToggleBlock(c.UserContext(), actor, target)
	})
}

// RemoveFromCompany blocks a member
func (a *Controller) RemoveFromCompany(c *fiber.Ctx) error {
	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.RemoveFromCompany(c.UserContext(), actor, target)
	})
}

// RemoveFromProject drops one assignment
func (a *Controller) RemoveFromProject(c *fiber.Ctx) error {
	projectID, err := paramID(c, "project")
	if err != nil {
		return err
	}

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.RemoveFromProject(c.UserContext(), actor, target, projectID)
	})
}

// RequestTransfer files a transfer request
func (a *Controller) RequestTransfer(c *fiber.Ctx) error {
	payload := new(TransferRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.RequestTransfer(c.UserContext(), actor, target, payload.ProjectIDs)
	})
}

// ResolveTransfer approves or rejects a pending transfer
func (a *Controller) ResolveTransfer(c *fiber.Ctx) error {
	payload := new(DecisionRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.ResolveTransfer(c.UserContext(), actor, target, payload.Approved)
	})
}

// ReviewIdentity settles a pending identity verification
func (a *Controller) ReviewIdentity(c *fiber.Ctx) error {
	payload := new(DecisionRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.targetAction(c, func(actor, target uuid.UUID) (any, error) {
		return a.Service.ReviewIdentityVerification(c.UserContext(), actor, target, payload.Approved)
	})
}

// GlobalUsers lists the talent directory
func (a *Controller) GlobalUsers(c *fiber.Ctx) error {
	if _, err := a.admin(c); err != nil {
		return err
	}

	users, err := a.Service.GlobalUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

// ListCompanies lists every company, creator only
func (a *Controller) ListCompanies(c *fiber.Ctx) error {
	actor, err := a.admin(c)
	if err != nil {
		return err
	}
	if actor.Role != crew.RoleCreator {
		return fiber.NewError(fiber.StatusForbidden, "only the creator can list companies")
	}

	companies, err := a.Service.ListCompanies(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(companies)
}

// companyAction resolves the actor and the :id company. Members of other
// companies are refused.
func (a *Controller) companyAction(c *fiber.Ctx, fn func(actor *crew.User, companyID uuid.UUID) (any, error)) error {
	actor, err := a.sessionUser(c)
	if err != nil {
		return err
	}

	companyID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	if actor.Role != crew.RoleCreator && !actor.BelongsTo(companyID) {
		return fiber.NewError(fiber.StatusForbidden, "company belongs to another tenant")
	}

	out, err := fn(actor, companyID)
	if err != nil {
		return err
	}
	if out == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.JSON(out)
}

// GetCompany returns a company with its remaining license days
func (a *Controller) GetCompany(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		company, err := a.Service.GetCompany(c.UserContext(), companyID)
		if err != nil {
			return nil, err
		}
		return fiber.Map{
			"company":        company,
			"remaining_days": a.Service.RemainingDays(company),
		}, nil
	})
}

// RejectCompany deletes a pending company registration
func (a *Controller) RejectCompany(c *fiber.Ctx) error {
	return a.companyAction(c, func(actor *crew.User, companyID uuid.UUID) (any, error) {
		return nil, a.Service.RejectCompanyRegistration(c.UserContext(), actor.ID, companyID)
	})
}

// CompanyMembers lists every member of a company
func (a *Controller) CompanyMembers(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.CompanyMembers(c.UserContext(), companyID)
	})
}

// PendingUsers lists pending approvals
func (a *Controller) PendingUsers(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.PendingUsers(c.UserContext(), companyID)
	})
}

// PendingCount returns the notification badge count
func (a *Controller) PendingCount(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		count, err := a.Service.PendingNotificationCount(c.UserContext(), companyID)
		if err != nil {
			return nil, err
		}
		return fiber.Map{"count": count}, nil
	})
}

// PendingTransfers lists members with a pending transfer
func (a *Controller) PendingTransfers(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.PendingTransfers(c.UserContext(), companyID)
	})
}

// CompanyProjects lists the projects of a company
func (a *Controller) CompanyProjects(c *fiber.Ctx) error {
	return a.companyAction(c, func(_ *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.CompanyProjects(c.UserContext(), companyID)
	})
}

// CreateProject adds a project to a company
func (a *Controller) CreateProject(c *fiber.Ctx) error {
	payload := new(crew.ProjectInput)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.companyAction(c, func(actor *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.CreateProject(c.UserContext(), actor.ID, companyID, *payload)
	})
}

// PurchaseLicense activates a license for a company
func (a *Controller) PurchaseLicense(c *fiber.Ctx) error {
	payload := new(LicenseRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.companyAction(c, func(actor *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.PurchaseLicense(c.UserContext(), actor.ID, companyID, payload.LicenseID, payload.Modules)
	})
}

// SetCompanyResume stores the company portfolio link
func (a *Controller) SetCompanyResume(c *fiber.Ctx) error {
	payload := new(ResumeRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	return a.companyAction(c, func(actor *crew.User, companyID uuid.UUID) (any, error) {
		return a.Service.SetCompanyResume(c.UserContext(), actor.ID, companyID, payload.ResumeURL)
	})
}

// GetProject returns a project
func (a *Controller) GetProject(c *fiber.Ctx) error {
	actor, err := a.sessionUser(c)
	if err != nil {
		return err
	}

	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	project, err := a.Service.GetProject(c.UserContext(), projectID)
	if err != nil {
		return err
	}

	if actor.Role != crew.RoleCreator && !actor.BelongsTo(project.CompanyID) {
		return fiber.NewError(fiber.StatusForbidden, "project belongs to another tenant")
	}
	return c.JSON(project)
}

// SetProjectStatus completes or archives a project
func (a *Controller) SetProjectStatus(c *fiber.Ctx) error {
	actor, err := a.actorID(c)
	if err != nil {
		return err
	}

	projectID, err := paramID(c, "id")
	if err != nil {
		return err
	}

	payload := new(ProjectStatusRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	project, err := a.Service.SetProjectStatus(c.UserContext(), actor, projectID, payload.Status)
	if err != nil {
		return err
	}
	return c.JSON(project)
}

// Licenses lists license tiers
func (a *Controller) Licenses(c *fiber.Ctx) error {
	licenses, err := a.Service.Licenses(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(licenses)
}

// Modules lists add-on modules
func (a *Controller) Modules(c *fiber.Ctx) error {
	modules, err := a.Service.Modules(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(modules)
}

// UpdateLicensePrice edits a license tier price, creator only
func (a *Controller) UpdateLicensePrice(c *fiber.Ctx) error {
	actor, err := a.actorID(c)
	if err != nil {
		return err
	}

	payload := new(PriceRequest)
	if err := bind(c, payload); err != nil {
		return err
	}

	license, err := a.Service.UpdateLicensePrice(c.UserContext(), actor, c.Params("id"), payload.BasePriceMonthly)
	if err != nil {
		return err
	}
	return c.JSON(license)
}

// loadSelf loads the stored session user once per request and keeps it in
// the user context. Claims are never trusted for authorization decisions.
func (a *Controller) loadSelf(c *fiber.Ctx) (*crew.User, error) {
	if user, ok := crew.FromContext(c.UserContext()); ok {
		return user, nil
	}

	id, err := a.actorID(c)
	if err != nil {
		return nil, err
	}

	user, err := a.Service.GetUser(c.UserContext(), id)
	if err != nil {
		return nil, err
	}

	c.SetUserContext(crew.WithContext(c.UserContext(), user))
	return user, nil
}

// selfUser gates self service. Pending and onboarding accounts may act on
// their own record, blocked accounts may not even with a live token.
func (a *Controller) selfUser(c *fiber.Ctx) (*crew.User, error) {
	user, err := a.loadSelf(c)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked() {
		return nil, crew.ErrAccountBlocked
	}
	return user, nil
}

// sessionUser loads the session user and requires an active account
func (a *Controller) sessionUser(c *fiber.Ctx) (*crew.User, error) {
	user, err := a.loadSelf(c)
	if err != nil {
		return nil, err
	}

	if !user.IsActive() {
		return nil, fiber.NewError(fiber.StatusForbidden, "account is not active")
	}
	return user, nil
}

func (a *Controller) admin(c *fiber.Ctx) (*crew.User, error) {
	user, err := a.sessionUser(c)
	if err != nil {
		return nil, err
	}
	if !user.Role.IsAdmin() && !crew.IsOfficeStaff(user) {
		return nil, fiber.NewError(fiber.StatusForbidden, "admin access required")
	}
	return user, nil
}

// canView lets users read their own record and admins read records of
// their company or of unaffiliated talent.
func (a *Controller) canView(c *fiber.Ctx, actorID, targetID uuid.UUID) error {
	if actorID == targetID {
		return nil
	}

	actor, err := a.admin(c)
	if err != nil {
		return err
	}
	if actor.Role == crew.RoleCreator {
		return nil
	}

	target, err := a.Service.GetUser(c.UserContext(), targetID)
	if err != nil {
		return err
	}
	if target.CompanyID != nil && !actor.BelongsTo(*target.CompanyID) {
		return fiber.NewError(fiber.StatusForbidden, "user belongs to another tenant")
	}
	return nil
}
