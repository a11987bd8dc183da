package crew

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserStatus is the lifecycle status of an account
type UserStatus string

const (
	// UserStatusActive is a fully operational account
	UserStatusActive UserStatus = "ACTIVE"
	// UserStatusPending is set at registration until an admin approves
	UserStatusPending UserStatus = "PENDING_APPROVAL"
	// UserStatusBlocked accounts cannot authenticate
	UserStatusBlocked UserStatus = "BLOCKED"
	// UserStatusNeedsPasswordChange is reserved for the bootstrap creator
	UserStatusNeedsPasswordChange UserStatus = "NEEDS_PASSWORD_CHANGE"
)

// VerificationStatus tracks identity verification, independent of status
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "UNVERIFIED"
	VerificationPending    VerificationStatus = "PENDING"
	VerificationVerified   VerificationStatus = "VERIFIED"
	VerificationRejected   VerificationStatus = "REJECTED"
)

// JoinIntent is the purpose stated at registration
type JoinIntent string

const (
	IntentOffice JoinIntent = "OFFICE"
	IntentField  JoinIntent = "FIELD"
	IntentBoth   JoinIntent = "BOTH"
	IntentTalent JoinIntent = "TALENT"
)

// IsValid reports whether the intent is a known value
func (i JoinIntent) IsValid() bool {
	switch i {
	case IntentOffice, IntentField, IntentBoth, IntentTalent:
		return true
	default:
		return false
	}
}

// CompanyStatus is the licensing state of a company
type CompanyStatus string

const (
	CompanyStatusActive         CompanyStatus = "ACTIVE"
	CompanyStatusPending        CompanyStatus = "PENDING_APPROVAL"
	CompanyStatusPendingPayment CompanyStatus = "PENDING_PAYMENT"
	CompanyStatusExpired        CompanyStatus = "EXPIRED"
)

// ProjectStatus is the state of a project, projects are archived and never deleted
type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
	ProjectStatusArchived  ProjectStatus = "ARCHIVED"
)

// Industry of a company
type Industry string

const (
	IndustryGeotechnical Industry = "Geotechnical"
	IndustryGeophysical  Industry = "Geophysical"
	IndustryMixed        Industry = "Mixed"
)

// TransferRequest is an office initiated move that waits for admin resolution
type TransferRequest struct {
	TargetProjectIDs []uuid.UUID `json:"target_project_ids"`
	RequestedBy      string      `json:"requested_by"`
	RequestedByID    uuid.UUID   `json:"requested_by_id"`
	RequestedAt      time.Time   `json:"requested_at"`
	Reason           string      `json:"reason,omitempty"`
}

// Address is collected during identity verification
type Address struct {
	Country    string `json:"country"`
	State      string `json:"state,omitempty"`
	City       string `json:"city"`
	MainStreet string `json:"main_street,omitempty"`
	SubStreet  string `json:"sub_street,omitempty"`
	Alley      string `json:"alley,omitempty"`
	Plate      string `json:"plate,omitempty"`
	Floor      string `json:"floor,omitempty"`
	Unit       string `json:"unit,omitempty"`
	ZipCode    string `json:"zip_code,omitempty"`
}

// User is a person account
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID          `bun:"id,pk,type:uuid" json:"id"`
	Username            string             `bun:"username,notnull,unique" json:"username"`
	CountryCode         string             `bun:"country_code" json:"country_code,omitempty"`
	Mobile              string             `bun:"mobile" json:"mobile,omitempty"`
	Email               string             `bun:"email" json:"email,omitempty"`
	FirstName           string             `bun:"first_name" json:"first_name,omitempty"`
	LastName            string             `bun:"last_name" json:"last_name,omitempty"`
	FullName            string             `bun:"full_name" json:"full_name,omitempty"`
	PasswordHash        string             `bun:"password_hash,notnull" json:"-"`
	Role                UserRole           `bun:"user_role,notnull" json:"role"`
	Status              UserStatus         `bun:"status,notnull" json:"status"`
	Verification        VerificationStatus `bun:"verification_status,notnull" json:"verification_status"`
	CompanyID           *uuid.UUID         `bun:"company_id,type:uuid" json:"company_id,omitempty"`
	AssignedProjectIDs  []uuid.UUID        `bun:"assigned_project_ids,type:jsonb" json:"assigned_project_ids"`
	JoinIntent          JoinIntent         `bun:"join_intent" json:"join_intent,omitempty"`
	Permissions         []Permission       `bun:"permissions,type:jsonb" json:"permissions,omitempty"`
	Position            string             `bun:"position" json:"position,omitempty"`
	ProjectRoleCategory string             `bun:"project_role_category" json:"project_role_category,omitempty"`
	JobTitle            string             `bun:"job_title" json:"job_title,omitempty"`
	OfficeAffiliated    bool               `bun:"office_affiliated,notnull" json:"office_affiliated"`
	IsAvailableForWork  bool               `bun:"is_available_for_work,notnull" json:"is_available_for_work"`
	TransferRequest     *TransferRequest   `bun:"transfer_request,type:jsonb" json:"transfer_request,omitempty"`
	NationalID          string             `bun:"national_id" json:"national_id,omitempty"`
	Address             *Address           `bun:"address,type:jsonb" json:"address,omitempty"`
	IDCardURL           string             `bun:"id_card_url" json:"id_card_url,omitempty"`
	ResumeURL           string             `bun:"resume_url" json:"resume_url,omitempty"`
	ApprovedBy          *uuid.UUID         `bun:"approved_by,type:uuid" json:"approved_by,omitempty"`
	ApprovedAt          *time.Time         `bun:"approved_at" json:"approved_at,omitempty"`
	Version             int64              `bun:"version,notnull" json:"version"`
	CreatedAt           time.Time          `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt           time.Time          `bun:"updated_at,notnull" json:"updated_at"`
	Logs                []UserLog          `bun:"-" json:"logs"`
}

// IsActive reports whether the user is active
func (u *User) IsActive() bool { return u != nil && u.Status == UserStatusActive }

// IsPending reports whether the user waits for approval
func (u *User) IsPending() bool { return u != nil && u.Status == UserStatusPending }

// IsBlocked reports whether the user is blocked
func (u *User) IsBlocked() bool { return u != nil && u.Status == UserStatusBlocked }

// BelongsTo reports whether the user is affiliated with the given company
func (u *User) BelongsTo(companyID uuid.UUID) bool {
	return u != nil && u.CompanyID != nil && *u.CompanyID == companyID
}

// IsEmployed reports whether the user holds a project assignment or an
// office seat inside a company.
func (u *User) IsEmployed() bool {
	if u == nil {
		return false
	}
	return len(u.AssignedProjectIDs) > 0 || (u.OfficeAffiliated && u.CompanyID != nil)
}

// HasProject reports whether projectID is among the assignments
func (u *User) HasProject(projectID uuid.UUID) bool {
	for _, id := range u.AssignedProjectIDs {
		if id == projectID {
			return true
		}
	}
	return false
}

// PrimaryProjectID is the first assignment, kept for single assignment readers
func (u *User) PrimaryProjectID() *uuid.UUID {
	if u == nil || len(u.AssignedProjectIDs) == 0 {
		return nil
	}
	id := u.AssignedProjectIDs[0]
	return &id
}

// GetUserProjects returns the ordered project assignments of a user
func GetUserProjects(u *User) []uuid.UUID {
	if u == nil || len(u.AssignedProjectIDs) == 0 {
		return []uuid.UUID{}
	}
	out := make([]uuid.UUID, len(u.AssignedProjectIDs))
	copy(out, u.AssignedProjectIDs)
	return out
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.AssignedProjectIDs = append([]uuid.UUID(nil), u.AssignedProjectIDs...)
	c.Permissions = append([]Permission(nil), u.Permissions...)
	c.Logs = append([]UserLog(nil), u.Logs...)
	if u.TransferRequest != nil {
		tr := *u.TransferRequest
		tr.TargetProjectIDs = append([]uuid.UUID(nil), u.TransferRequest.TargetProjectIDs...)
		c.TransferRequest = &tr
	}
	if u.Address != nil {
		addr := *u.Address
		c.Address = &addr
	}
	return &c
}

// Company is a tenant of the console
type Company struct {
	bun.BaseModel `bun:"table:companies,alias:cmp"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Name          string        `bun:"name,notnull" json:"name"`
	CompanyCode   string        `bun:"company_code,notnull,unique" json:"company_code"`
	Country       string        `bun:"country" json:"country,omitempty"`
	Industry      Industry      `bun:"industry" json:"industry,omitempty"`
	Status        CompanyStatus `bun:"status,notnull" json:"status"`
	OwnerID       uuid.UUID     `bun:"owner_id,notnull,type:uuid" json:"owner_id"`
	LicenseID     *string       `bun:"license_id" json:"license_id,omitempty"`
	ActiveModules []string      `bun:"active_modules,type:jsonb" json:"active_modules"`
	ExpiryDate    *time.Time    `bun:"expiry_date" json:"expiry_date,omitempty"`
	ResumeURL     string        `bun:"resume_url" json:"resume_url,omitempty"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
}

// Project belongs to exactly one company
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:prj"`
	ID            uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	Name          string        `bun:"name,notnull" json:"name"`
	ProjectCode   string        `bun:"project_code,notnull,unique" json:"project_code"`
	CompanyID     uuid.UUID     `bun:"company_id,notnull,type:uuid" json:"company_id"`
	Location      string        `bun:"location" json:"location,omitempty"`
	Status        ProjectStatus `bun:"status,notnull" json:"status"`
	CreatedAt     time.Time     `bun:"created_at,notnull" json:"created_at"`
}

// License is a purchasable tier
type License struct {
	bun.BaseModel    `bun:"table:licenses,alias:lic"`
	ID               string `bun:"id,pk" json:"id"`
	Name             string `bun:"name,notnull" json:"name"`
	BasePriceMonthly int    `bun:"base_price_monthly,notnull" json:"base_price_monthly"`
	MaxUsers         int    `bun:"max_users,notnull" json:"max_users"`
}

// Module is an add-on a company can activate with its license
type Module struct {
	bun.BaseModel `bun:"table:modules,alias:mod"`
	ID            string `bun:"id,pk" json:"id"`
	Name          string `bun:"name,notnull" json:"name"`
	PriceMonthly  int    `bun:"price_monthly,notnull" json:"price_monthly"`
	Description   string `bun:"description" json:"description,omitempty"`
}

// DefaultLicenses is the catalog seeded into a fresh store
func DefaultLicenses() []*License {
	return []*License{
		{ID: "basic", Name: "Basic License", BasePriceMonthly: 100, MaxUsers: 5},
		{ID: "pro", Name: "Professional License", BasePriceMonthly: 250, MaxUsers: 20},
		{ID: "enterprise", Name: "Enterprise License", BasePriceMonthly: 500, MaxUsers: 100},
	}
}

// DefaultModules is the module catalog seeded into a fresh store
func DefaultModules() []*Module {
	return []*Module{
		{ID: "geo_log", Name: "Geotechnical Logging", PriceMonthly: 50, Description: "Field logging and stratification"},
		{ID: "lab_data", Name: "Laboratory Management", PriceMonthly: 40, Description: "Soil and rock lab test results"},
		{ID: "geophysics", Name: "Geophysics Data", PriceMonthly: 60, Description: "Seismic and electrical resistivity data"},
		{ID: "gis_map", Name: "GIS Mapping", PriceMonthly: 30, Description: "Project location visualization"},
	}
}

// ProjectRoleCategories maps category keys to labels
var ProjectRoleCategories = map[string]string{
	"A": "Project Management Roles",
	"B": "Technical & Engineering Roles",
	"C": "Operations & Field Workforce",
	"D": "HSE & Quality Roles",
	"E": "Logistics & Support Roles",
}

// ProjectJobTitles lists the standard titles per category
var ProjectJobTitles = map[string][]string{
	"A": {"Project Manager", "Site Manager", "Field Supervisor", "Section Supervisor", "Project Controller"},
	"B": {"Geophysicist", "Geotechnical Engineer", "Field Engineer", "Drilling Engineer", "Instrumentation Engineer", "Data Analyst (Geo Data)", "Survey Engineer", "Logging Engineer"},
	"C": {"Foreman", "Senior Supervisor", "Machine Operator", "Drilling Operator", "Field Technician", "Mechanic", "Electrician", "Welder", "General Worker", "Technical Worker", "Driver", "Equipment Handler"},
	"D": {"HSE Officer", "HSE Supervisor", "Safety Inspector", "Environmental Officer", "Quality Control Officer"},
	"E": {"Logistics Coordinator", "Warehouse Officer / Storekeeper", "Procurement Coordinator", "Security Lead", "Camp Manager", "Maintenance Technician", "IT Support Technician"},
}

func isJobTitleInCategory(category, title string) bool {
	for _, t := range ProjectJobTitles[category] {
		if t == title {
			return true
		}
	}
	return false
}
