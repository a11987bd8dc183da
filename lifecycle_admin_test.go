package crew_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func TestApproveFieldWorker(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")

	pending := f.join(crew.IntentField, project.ProjectCode, "", "Farid")
	f.clock.Advance(time.Hour)

	user, err := f.svc.Approve(f.ctx, reg.Owner.ID, pending.ID, crew.ApprovalBundle{
		Role:                crew.RoleMember,
		ProjectRoleCategory: "C",
		JobTitle:            "Drilling Operator",
	})
	require.NoError(t, err)

	assert.Equal(t, crew.UserStatusActive, user.Status)
	assert.Equal(t, crew.RoleMember, user.Role)
	assert.Equal(t, "Drilling Operator", user.Position)
	assert.Equal(t, "C", user.ProjectRoleCategory)
	assert.False(t, user.OfficeAffiliated)
	assert.False(t, user.IsAvailableForWork)
	assert.Equal(t, []uuid.UUID{project.ID}, user.AssignedProjectIDs)
	assert.Empty(t, user.Permissions)
	require.NotNil(t, user.ApprovedBy)
	assert.Equal(t, reg.Owner.ID, *user.ApprovedBy)
	require.NotNil(t, user.ApprovedAt)
	assert.True(t, user.ApprovedAt.Equal(f.clock.Now()))
	assert.Equal(t, int64(2), user.Version)

	assert.Equal(t, []crew.LogAction{crew.ActionRegistered, crew.ActionApproved}, actions(user.Logs))
	approved := user.Logs[1]
	assert.Equal(t, reg.Owner.FullName, approved.AdminName)
	assert.Equal(t, "User approved as Drilling Operator by "+reg.Owner.FullName, approved.Description)

	events := f.sink.ofType(crew.ActivityEventUserStatusChanged)
	require.Len(t, events, 1)
	assert.Equal(t, crew.UserStatusPending, events[0].FromStatus)
	assert.Equal(t, crew.UserStatusActive, events[0].ToStatus)
	assert.Equal(t, reg.Owner.ID.String(), events[0].Actor.ID)
	assert.Equal(t, []crew.LogAction{crew.ActionApproved}, events[0].Actions)
}

func TestApproveOfficeStaffAndDeputy(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")

	office := f.officeStaff(reg.Owner, reg.Company, "Omid")
	assert.True(t, office.OfficeAffiliated)
	assert.Equal(t, "Office Staff", office.Position)
	assert.True(t, crew.IsOfficeStaff(office))

	deputy := f.deputy(reg.Owner, reg.Company, "Dana",
		crew.PermApproveStaff, crew.PermApproveStaff, crew.PermCreateProject)
	assert.Equal(t, crew.RoleDeputy, deputy.Role)
	assert.Equal(t, []crew.Permission{crew.PermApproveStaff, crew.PermCreateProject}, deputy.Permissions)

	stored, err := f.svc.GetUser(f.ctx, deputy.ID)
	require.NoError(t, err)
	assert.Equal(t, deputy.Permissions, stored.Permissions)
}

func TestApproveRules(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	other := f.registerCompany("Other Co")
	project := f.createProject(reg.Owner, "North Borehole")
	second := f.createProject(reg.Owner, "South Borehole")
	foreignProject := f.createProject(other.Owner, "Foreign Site")

	office := f.officeStaff(reg.Owner, reg.Company, "Omid")
	plainDeputy := f.deputy(reg.Owner, reg.Company, "Dana")
	approver := f.deputy(reg.Owner, reg.Company, "Arash", crew.PermApproveStaff)

	tests := []struct {
		name   string
		intent crew.JoinIntent
		code   string
		actor  func() uuid.UUID
		bundle crew.ApprovalBundle
		check  func(error) bool
	}{
		{
			name:   "office staff approves workforce",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return office.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "E"},
			check:  func(err error) bool { return err == nil },
		},
		{
			name:   "office staff approves office member",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return office.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleMember},
			check:  func(err error) bool { return err == nil },
		},
		{
			name:   "office staff approves both-intent member",
			intent: crew.IntentBoth, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return office.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleMember, ProjectRoleCategory: "C"},
			check:  func(err error) bool { return err == nil },
		},
		{
			name:   "office staff cannot approve a deputy",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return office.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleDeputy},
			check:  crew.IsPermissionDenied,
		},
		{
			name:   "deputy grants only held permissions",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return approver.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleDeputy, Permissions: []crew.Permission{crew.PermApproveStaff}},
			check:  func(err error) bool { return err == nil },
		},
		{
			name:   "deputy cannot grant permissions it lacks",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return approver.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleDeputy, Permissions: crew.AllPermissions()},
			check:  crew.IsPermissionDenied,
		},
		{
			name:   "deputy without grant",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return plainDeputy.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "C"},
			check:  crew.IsPermissionDenied,
		},
		{
			name:   "other tenant",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return other.Owner.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "C"},
			check:  crew.IsPermissionDenied,
		},
		{
			name:   "workforce needs a category",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{},
			check:  crew.IsValidationError,
		},
		{
			name:   "job title outside category",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "A", JobTitle: "Welder"},
			check:  crew.IsValidationError,
		},
		{
			name:   "unknown category",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "Z"},
			check:  crew.IsValidationError,
		},
		{
			name:   "owner role cannot be granted",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleOwner},
			check:  crew.IsValidationError,
		},
		{
			name:   "member holds a single project",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "C", AssignedProjectIDs: []uuid.UUID{project.ID, second.ID}},
			check:  crew.IsValidationError,
		},
		{
			name:   "project of another company",
			intent: crew.IntentField, code: project.ProjectCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{ProjectRoleCategory: "C", AssignedProjectIDs: []uuid.UUID{foreignProject.ID}},
			check:  crew.IsValidationError,
		},
		{
			name:   "unknown role",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{Role: crew.UserRole("SUPERVISOR")},
			check:  crew.IsValidationError,
		},
		{
			name:   "unknown permission",
			intent: crew.IntentOffice, code: reg.Company.CompanyCode,
			actor:  func() uuid.UUID { return reg.Owner.ID },
			bundle: crew.ApprovalBundle{Role: crew.RoleDeputy, Permissions: []crew.Permission{"FLY"}},
			check:  crew.IsValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := f.join(tt.intent, tt.code, "", "Candidate")
			_, err := f.svc.Approve(f.ctx, tt.actor(), pending.ID, tt.bundle)
			assert.True(t, tt.check(err), "unexpected result %v", err)

			if err != nil {
				stored, getErr := f.svc.GetUser(f.ctx, pending.ID)
				require.NoError(t, getErr)
				assert.Equal(t, crew.UserStatusPending, stored.Status)
				assert.Len(t, stored.Logs, 1)
			}
		})
	}
}

func TestApproveRequiresPendingUser(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	office := f.officeStaff(reg.Owner, reg.Company, "Omid")

	_, err := f.svc.Approve(f.ctx, reg.Owner.ID, office.ID, crew.ApprovalBundle{})
	assert.True(t, crew.IsInvalidTransition(err))

	_, err = f.svc.Approve(f.ctx, reg.Owner.ID, uuid.New(), crew.ApprovalBundle{})
	assert.True(t, crew.IsNotFound(err))
}

func TestToggleBlock(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")
	worker := f.worker(reg.Owner, project, "Farid")

	blocked, err := f.svc.ToggleBlock(f.ctx, reg.Owner.ID, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, crew.UserStatusBlocked, blocked.Status)

	_, err = f.svc.Authenticate(f.ctx, worker.Username, "password123")
	assert.ErrorIs(t, err, crew.ErrAccountBlocked)

	unblocked, err := f.svc.ToggleBlock(f.ctx, reg.Owner.ID, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, crew.UserStatusActive, unblocked.Status)
	assert.Equal(t, []crew.LogAction{
		crew.ActionRegistered, crew.ActionApproved, crew.ActionBlocked, crew.ActionUnblocked,
	}, actions(unblocked.Logs))

	_, err = f.svc.Authenticate(f.ctx, worker.Username, "password123")
	assert.NoError(t, err)

	pending := f.join(crew.IntentOffice, reg.Company.CompanyCode, "", "Parisa")
	_, err = f.svc.ToggleBlock(f.ctx, reg.Owner.ID, pending.ID)
	assert.True(t, crew.IsInvalidTransition(err))

	_, err = f.svc.ToggleBlock(f.ctx, reg.Owner.ID, reg.Owner.ID)
	assert.True(t, crew.IsPermissionDenied(err))

	_, err = f.svc.ToggleBlock(f.ctx, reg.Owner.ID, f.creator.ID)
	assert.True(t, crew.IsPermissionDenied(err))
}

func TestBlockedActorLosesAuthority(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")
	office := f.officeStaff(reg.Owner, reg.Company, "Omid")

	_, err := f.svc.ToggleBlock(f.ctx, reg.Owner.ID, office.ID)
	require.NoError(t, err)

	pending := f.join(crew.IntentField, project.ProjectCode, "", "Farid")
	_, err = f.svc.Approve(f.ctx, office.ID, pending.ID, crew.ApprovalBundle{ProjectRoleCategory: "C"})
	assert.True(t, crew.IsPermissionDenied(err))
}

func TestRemoveFromCompanyKeepsRecord(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")
	worker := f.worker(reg.Owner, project, "Farid")

	removed, err := f.svc.RemoveFromCompany(f.ctx, reg.Owner.ID, worker.ID)
	require.NoError(t, err)
	assert.Equal(t, crew.UserStatusBlocked, removed.Status)
	require.NotNil(t, removed.CompanyID)
	assert.Equal(t, reg.Company.ID, *removed.CompanyID)
	assert.Equal(t, crew.ActionRemovedFromCompany, removed.Logs[len(removed.Logs)-1].Action)

	members, err := f.svc.CompanyMembers(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestRemoveFromProjectOpensToWork(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")
	worker := f.worker(reg.Owner, project, "Farid")
	require.False(t, worker.IsAvailableForWork)

	updated, err := f.svc.RemoveFromProject(f.ctx, reg.Owner.ID, worker.ID, project.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.AssignedProjectIDs)
	assert.True(t, updated.IsAvailableForWork)

	n := len(updated.Logs)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, crew.ActionRemovedFromProject, updated.Logs[n-2].Action)
	assert.Equal(t, "Removed from project: North Borehole", updated.Logs[n-2].Description)
	assert.Equal(t, crew.ActionStatusUpdate, updated.Logs[n-1].Action)
	assert.Equal(t, crew.ActorSystem, updated.Logs[n-1].AdminName)

	_, err = f.svc.RemoveFromProject(f.ctx, reg.Owner.ID, worker.ID, project.ID)
	assert.True(t, crew.IsValidationError(err))
}

func TestRejectCompanyRegistration(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Pending Co")

	err := f.svc.RejectCompanyRegistration(f.ctx, f.creator.ID, reg.Company.ID)
	assert.True(t, crew.IsValidationError(err), "active companies cannot be rejected")

	pendingCompany := *reg.Company
	pendingCompany.Status = crew.CompanyStatusPending
	require.NoError(t, f.repo.Companies().SaveTx(f.ctx, f.db, &pendingCompany))

	err = f.svc.RejectCompanyRegistration(f.ctx, reg.Owner.ID, reg.Company.ID)
	assert.True(t, crew.IsPermissionDenied(err))

	require.NoError(t, f.svc.RejectCompanyRegistration(f.ctx, f.creator.ID, reg.Company.ID))

	_, err = f.svc.GetCompany(f.ctx, reg.Company.ID)
	assert.True(t, crew.IsNotFound(err))
	_, err = f.svc.GetUser(f.ctx, reg.Owner.ID)
	assert.True(t, crew.IsNotFound(err))

	events := f.sink.ofType(crew.ActivityEventCompanyRejected)
	require.Len(t, events, 1)
	assert.Equal(t, reg.Owner.ID.String(), events[0].UserID)
}

func TestRejectCompanyWithMembersFails(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Busy Co")
	f.join(crew.IntentOffice, reg.Company.CompanyCode, "", "Omid")

	pendingCompany := *reg.Company
	pendingCompany.Status = crew.CompanyStatusPending
	require.NoError(t, f.repo.Companies().SaveTx(f.ctx, f.db, &pendingCompany))

	err := f.svc.RejectCompanyRegistration(f.ctx, f.creator.ID, reg.Company.ID)
	assert.True(t, crew.IsValidationError(err))
}
