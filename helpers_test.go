package crew_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"golang.org/x/crypto/bcrypt"

	crew "github.com/goliatone/go-crew"
)

const creatorPassword = "creator-pass"

type capturingSink struct {
	mu     sync.Mutex
	events []crew.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt crew.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) ofType(eventType crew.ActivityEventType) []crew.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []crew.ActivityEvent{}
	for _, e := range c.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	t       *testing.T
	ctx     context.Context
	db      *bun.DB
	repo    crew.RepositoryManager
	svc     *crew.Service
	sink    *capturingSink
	clock   *testClock
	creator *crew.User
	mobiles int
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newFixtureWithRepo(t *testing.T, wrap func(crew.RepositoryManager) crew.RepositoryManager, opts ...crew.ServiceOption) *fixture {
	t.Helper()

	ctx := context.Background()
	db := newTestDB(t)
	var repo crew.RepositoryManager = crew.NewRepositoryManager(db)
	require.NoError(t, repo.Validate())
	require.NoError(t, repo.CreateSchema(ctx))
	if wrap != nil {
		repo = wrap(repo)
	}

	f := &fixture{
		t:     t,
		ctx:   ctx,
		db:    db,
		repo:  repo,
		sink:  &capturingSink{},
		clock: &testClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
	}

	base := []crew.ServiceOption{
		crew.WithLogger(crew.NopLogger{}),
		crew.WithPasswordCost(bcrypt.MinCost),
		crew.WithClock(f.clock.Now),
		crew.WithActivitySink(f.sink),
	}
	f.svc = crew.NewService(repo, append(base, opts...)...)

	seeded, err := f.svc.Seed(ctx, crew.Bootstrap{
		Username: "creator",
		FullName: "System Creator",
		Password: creatorPassword,
	})
	require.NoError(t, err)
	require.True(t, seeded.CreatorCreated)

	f.creator, err = f.svc.ChangePassword(ctx, seeded.Creator.ID, creatorPassword)
	require.NoError(t, err)
	require.Equal(t, crew.UserStatusActive, f.creator.Status)

	return f
}

func newFixture(t *testing.T, opts ...crew.ServiceOption) *fixture {
	t.Helper()
	return newFixtureWithRepo(t, nil, opts...)
}

func (f *fixture) nextMobile() string {
	f.mobiles++
	return fmt.Sprintf("912%07d", f.mobiles)
}

func (f *fixture) contact(first, last string) crew.Contact {
	return crew.Contact{
		FirstName:   first,
		LastName:    last,
		CountryCode: "+98",
		Mobile:      f.nextMobile(),
		Password:    "password123",
	}
}

func (f *fixture) registerCompany(name string) *crew.CompanyRegistration {
	f.t.Helper()
	reg, err := f.svc.RegisterCompany(f.ctx, f.contact("Olivia", name), crew.CompanyInfo{
		Name:     name,
		Industry: crew.IndustryGeotechnical,
		Country:  "Iran",
	})
	require.NoError(f.t, err)
	return reg
}

func (f *fixture) createProject(owner *crew.User, name string) *crew.Project {
	f.t.Helper()
	project, err := f.svc.CreateProject(f.ctx, owner.ID, *owner.CompanyID, crew.ProjectInput{
		Name:     name,
		Location: "Site " + name,
	})
	require.NoError(f.t, err)
	return project
}

func (f *fixture) join(intent crew.JoinIntent, code, secondCode, first string) *crew.User {
	f.t.Helper()
	user, err := f.svc.RegisterJoin(f.ctx, crew.JoinRequest{
		Contact:    f.contact(first, "Worker"),
		Intent:     intent,
		Code:       code,
		SecondCode: secondCode,
	})
	require.NoError(f.t, err)
	return user
}

// worker joins through a project code and is approved as field workforce
func (f *fixture) worker(owner *crew.User, project *crew.Project, first string) *crew.User {
	f.t.Helper()
	pending := f.join(crew.IntentField, project.ProjectCode, "", first)
	user, err := f.svc.Approve(f.ctx, owner.ID, pending.ID, crew.ApprovalBundle{
		Role:                crew.RoleMember,
		ProjectRoleCategory: "C",
		JobTitle:            "Drilling Operator",
	})
	require.NoError(f.t, err)
	return user
}

// officeStaff joins through the company code and is approved as office staff
func (f *fixture) officeStaff(owner *crew.User, company *crew.Company, first string) *crew.User {
	f.t.Helper()
	pending := f.join(crew.IntentOffice, company.CompanyCode, "", first)
	user, err := f.svc.Approve(f.ctx, owner.ID, pending.ID, crew.ApprovalBundle{Role: crew.RoleMember})
	require.NoError(f.t, err)
	return user
}

func (f *fixture) deputy(owner *crew.User, company *crew.Company, first string, perms ...crew.Permission) *crew.User {
	f.t.Helper()
	pending := f.join(crew.IntentOffice, company.CompanyCode, "", first)
	user, err := f.svc.Approve(f.ctx, owner.ID, pending.ID, crew.ApprovalBundle{
		Role:        crew.RoleDeputy,
		Permissions: perms,
	})
	require.NoError(f.t, err)
	return user
}

func actions(logs []crew.UserLog) []crew.LogAction {
	out := make([]crew.LogAction, 0, len(logs))
	for _, l := range logs {
		out = append(out, l.Action)
	}
	return out
}
