package crew_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func TestRegisterCompanyCreatesActiveOwner(t *testing.T) {
	f := newFixture(t)

	reg := f.registerCompany("Deep Drill")

	owner := reg.Owner
	company := reg.Company
	assert.Equal(t, crew.RoleOwner, owner.Role)
	assert.Equal(t, crew.UserStatusActive, owner.Status)
	assert.Equal(t, crew.VerificationUnverified, owner.Verification)
	assert.Equal(t, crew.PositionCompanyOwner, owner.Position)
	assert.ElementsMatch(t, crew.AllPermissions(), owner.Permissions)
	require.NotNil(t, owner.CompanyID)
	assert.Equal(t, company.ID, *owner.CompanyID)
	assert.Equal(t, owner.ID, company.OwnerID)
	assert.Equal(t, crew.CompanyStatusActive, company.Status)
	assert.Len(t, company.CompanyCode, 6)
	assert.Equal(t, "+989120000001", owner.Username)

	require.Len(t, owner.Logs, 1)
	assert.Equal(t, crew.ActionCreated, owner.Logs[0].Action)
	assert.Equal(t, crew.ActorSystem, owner.Logs[0].AdminName)

	events := f.sink.ofType(crew.ActivityEventCompanyRegistered)
	require.Len(t, events, 1)
	assert.Equal(t, company.ID.String(), events[0].CompanyID)
	assert.Equal(t, company.CompanyCode, events[0].Metadata["company_code"])
}

func TestRegisterCompanyDefaultsCountry(t *testing.T) {
	f := newFixture(t)

	reg, err := f.svc.RegisterCompany(f.ctx, f.contact("Nima", "Rahimi"), crew.CompanyInfo{
		Name:     "Seismic Works",
		Industry: crew.IndustryGeophysical,
	})
	require.NoError(t, err)
	assert.Equal(t, "Unknown", reg.Company.Country)
}

func TestRegisterJoinIntents(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	project := f.createProject(reg.Owner, "North Borehole")

	t.Run("talent", func(t *testing.T) {
		user := f.join(crew.IntentTalent, "", "", "Tara")
		assert.Equal(t, crew.UserStatusPending, user.Status)
		assert.Equal(t, crew.RoleMember, user.Role)
		assert.Nil(t, user.CompanyID)
		assert.Empty(t, user.AssignedProjectIDs)
		assert.True(t, user.IsAvailableForWork)
		assert.Equal(t, crew.PositionJobSeeker, user.Position)
		require.Len(t, user.Logs, 1)
		assert.Equal(t, crew.ActionRegistered, user.Logs[0].Action)
		assert.Equal(t, crew.ActorSelf, user.Logs[0].AdminName)
		assert.Equal(t, "Registered as Talent", user.Logs[0].Description)
	})

	t.Run("office", func(t *testing.T) {
		user := f.join(crew.IntentOffice, reg.Company.CompanyCode, "", "Omid")
		require.NotNil(t, user.CompanyID)
		assert.Equal(t, reg.Company.ID, *user.CompanyID)
		assert.Empty(t, user.AssignedProjectIDs)
		assert.False(t, user.IsAvailableForWork)
		assert.Equal(t, crew.PositionOfficePend, user.Position)
	})

	t.Run("field", func(t *testing.T) {
		user := f.join(crew.IntentField, project.ProjectCode, "", "Farid")
		require.NotNil(t, user.CompanyID)
		assert.Equal(t, reg.Company.ID, *user.CompanyID)
		assert.Equal(t, []uuid.UUID{project.ID}, user.AssignedProjectIDs)
		assert.Equal(t, crew.PositionFieldPend, user.Position)
		assert.Contains(t, user.Logs[0].Description, "North Borehole")
	})

	t.Run("both with project", func(t *testing.T) {
		user := f.join(crew.IntentBoth, reg.Company.CompanyCode, project.ProjectCode, "Bahar")
		assert.Equal(t, reg.Company.ID, *user.CompanyID)
		assert.Equal(t, []uuid.UUID{project.ID}, user.AssignedProjectIDs)
	})

	t.Run("both without project", func(t *testing.T) {
		user := f.join(crew.IntentBoth, reg.Company.CompanyCode, "", "Babak")
		assert.Equal(t, reg.Company.ID, *user.CompanyID)
		assert.Empty(t, user.AssignedProjectIDs)
	})

	t.Run("codes are case insensitive", func(t *testing.T) {
		user := f.join(crew.IntentOffice, " "+strings.ToLower(reg.Company.CompanyCode)+" ", "", "Leila")
		assert.Equal(t, reg.Company.ID, *user.CompanyID)
	})

	assert.Len(t, f.sink.ofType(crew.ActivityEventUserRegistered), 7)
}

func TestRegisterJoinRejectsBadCodes(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	other := f.registerCompany("Other Co")
	foreignProject := f.createProject(other.Owner, "Foreign Site")
	archived := f.createProject(reg.Owner, "Old Site")
	_, err := f.svc.SetProjectStatus(f.ctx, reg.Owner.ID, archived.ID, crew.ProjectStatusArchived)
	require.NoError(t, err)

	tests := []struct {
		name   string
		intent crew.JoinIntent
		code   string
		second string
	}{
		{"unknown company code", crew.IntentOffice, "NOPE00", ""},
		{"unknown project code", crew.IntentField, "NOPE0000", ""},
		{"archived project", crew.IntentField, archived.ProjectCode, ""},
		{"project of another company", crew.IntentBoth, reg.Company.CompanyCode, foreignProject.ProjectCode},
		{"company code used as project code", crew.IntentField, reg.Company.CompanyCode, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RegisterJoin(f.ctx, crew.JoinRequest{
				Contact:    f.contact("Ali", "Bad"),
				Intent:     tt.intent,
				Code:       tt.code,
				SecondCode: tt.second,
			})
			require.Error(t, err)
			assert.True(t, crew.IsInvalidCode(err), "got %v", err)
		})
	}

	pending, err := f.svc.PendingUsers(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRegisterRejectsDuplicateMobile(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")

	contact := f.contact("Sina", "Twice")
	_, err := f.svc.RegisterJoin(f.ctx, crew.JoinRequest{Contact: contact, Intent: crew.IntentTalent})
	require.NoError(t, err)

	contact.Mobile = "0" + contact.Mobile
	_, err = f.svc.RegisterJoin(f.ctx, crew.JoinRequest{Contact: contact, Intent: crew.IntentOffice, Code: reg.Company.CompanyCode})
	require.Error(t, err)
	assert.True(t, crew.IsDuplicateAccount(err))

	_, err = f.svc.RegisterCompany(f.ctx, contact, crew.CompanyInfo{Name: "Dup Co", Industry: crew.IndustryMixed})
	assert.True(t, crew.IsDuplicateAccount(err))
}

func TestRegisterJoinValidatesInput(t *testing.T) {
	f := newFixture(t)

	contact := f.contact("", "Nameless")
	_, err := f.svc.RegisterJoin(f.ctx, crew.JoinRequest{Contact: contact, Intent: crew.IntentTalent})
	require.Error(t, err)
	assert.True(t, crew.IsValidationError(err))
}
