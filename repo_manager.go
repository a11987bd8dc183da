package crew

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories of the directory store
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	Users() Users
	Logs() UserLogs
	Companies() Companies
	Projects() Projects
	Catalog() Catalog
	CreateSchema(ctx context.Context) error
}

type mngr struct {
	db        *bun.DB
	users     Users
	logs      UserLogs
	companies Companies
	projects  Projects
	catalog   Catalog
}

// NewRepositoryManager wires every repository to the same database handle
func NewRepositoryManager(db *bun.DB) RepositoryManager {
	return &mngr{
		db:        db,
		users:     NewUsersRepository(db),
		logs:      NewUserLogsRepository(db),
		companies: NewCompaniesRepository(db),
		projects:  NewProjectsRepository(db),
		catalog:   NewCatalogRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("database handle should be initialized")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.logs == nil {
		return errors.New("repository logs should be initialized")
	}

	if m.companies == nil {
		return errors.New("repository companies should be initialized")
	}

	if m.projects == nil {
		return errors.New("repository projects should be initialized")
	}

	if m.catalog == nil {
		return errors.New("repository catalog should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// CreateSchema creates missing tables and indexes
func (m mngr) CreateSchema(ctx context.Context) error {
	models := []any{
		(*User)(nil),
		(*UserLog)(nil),
		(*Company)(nil),
		(*Project)(nil),
		(*License)(nil),
		(*Module)(nil),
	}

	for _, model := range models {
		if _, err := m.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return wrapInternal(err, "failed to create table")
		}
	}

	indexes := []struct {
		model   any
		name    string
		columns []string
		unique  bool
	}{
		{(*UserLog)(nil), "idx_user_logs_user_seq", []string{"user_id", "seq"}, true},
		{(*User)(nil), "idx_users_company", []string{"company_id"}, false},
		{(*Project)(nil), "idx_projects_company", []string{"company_id"}, false},
	}

	for _, idx := range indexes {
		q := m.db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return wrapInternal(err, "failed to create index")
		}
	}

	return nil
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Logs() UserLogs {
	return m.logs
}

func (m mngr) Companies() Companies {
	return m.companies
}

func (m mngr) Projects() Projects {
	return m.projects
}

func (m mngr) Catalog() Catalog {
	return m.catalog
}
