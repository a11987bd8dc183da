package crew_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	crew "github.com/goliatone/go-crew"
)

func fullNames(users []*crew.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.FullName)
	}
	return out
}

func TestDirectoryQueries(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	north := f.createProject(reg.Owner, "North Borehole")
	f.worker(reg.Owner, north, "Farid")
	f.join(crew.IntentOffice, reg.Company.CompanyCode, "", "Omid")
	f.join(crew.IntentTalent, "", "", "Tara")
	foreign := f.registerCompany("Rock Core")

	pending, err := f.svc.PendingUsers(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Omid Worker"}, fullNames(pending))

	count, err := f.svc.PendingNotificationCount(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = f.svc.PendingNotificationCount(f.ctx, foreign.Company.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	members, err := f.svc.CompanyMembers(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Olivia Deep Drill", "Farid Worker", "Omid Worker"}, fullNames(members))

	global, err := f.svc.GlobalUsers(f.ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"Farid Worker", "Omid Worker", "Tara Worker"}, fullNames(global))

	companies, err := f.svc.ListCompanies(f.ctx)
	require.NoError(t, err)
	assert.Len(t, companies, 2)

	projects, err := f.svc.CompanyProjects(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, north.ID, projects[0].ID)

	projects, err = f.svc.CompanyProjects(f.ctx, foreign.Company.ID)
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestPendingTransfers(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	north := f.createProject(reg.Owner, "North Borehole")
	south := f.createProject(reg.Owner, "South Borehole")
	worker := f.worker(reg.Owner, north, "Farid")
	f.worker(reg.Owner, north, "Behnam")
	office := f.officeStaff(reg.Owner, reg.Company, "Omid")

	_, err := f.svc.RequestTransfer(f.ctx, office.ID, worker.ID, []uuid.UUID{south.ID})
	require.NoError(t, err)

	transfers, err := f.svc.PendingTransfers(f.ctx, reg.Company.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Farid Worker"}, fullNames(transfers))
}

func TestUserHistoryIsMostRecentFirst(t *testing.T) {
	f := newFixture(t)
	reg := f.registerCompany("Deep Drill")
	north := f.createProject(reg.Owner, "North Borehole")
	pending := f.join(crew.IntentField, north.ProjectCode, "", "Farid")

	f.clock.Advance(time.Hour)
	_, err := f.svc.Approve(f.ctx, reg.Owner.ID, pending.ID, crew.ApprovalBundle{
		Role:                crew.RoleMember,
		ProjectRoleCategory: "C",
		JobTitle:            "Drilling Operator",
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.ToggleBlock(f.ctx, reg.Owner.ID, pending.ID)
	require.NoError(t, err)

	history, err := f.svc.UserHistory(f.ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, []crew.LogAction{crew.ActionBlocked, crew.ActionApproved, crew.ActionRegistered}, actions(history))
	assert.True(t, history[0].Date.After(history[1].Date))
}
