package crew

import (
	"context"
	"strings"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Companies stores tenants
type Companies interface {
	repository.Repository[*Company]

	LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Company, error)
	LoadByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Company, error)
	CodeTakenTx(ctx context.Context, tx bun.IDB, code string) (bool, error)
	SaveTx(ctx context.Context, tx bun.IDB, company *Company) error
	SearchTx(ctx context.Context, tx bun.IDB) ([]*Company, error)
	PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

// Projects stores company projects
type Projects interface {
	repository.Repository[*Project]

	LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error)
	LoadByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Project, error)
	CodeTakenTx(ctx context.Context, tx bun.IDB, code string) (bool, error)
	SaveTx(ctx context.Context, tx bun.IDB, project *Project) error
	ByCompanyTx(ctx context.Context, tx bun.IDB, companyID uuid.UUID) ([]*Project, error)
	NamesTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

type companies struct {
	repository.Repository[*Company]
}

type projects struct {
	repository.Repository[*Project]
}

// NewCompaniesRepository returns the bun backed Companies repository
func NewCompaniesRepository(db *bun.DB) Companies {
	handlers := repository.ModelHandlers[*Company]{
		NewRecord: func() *Company {
			return &Company{}
		},
		GetID: func(record *Company) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Company, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "company_code"
		},
	}
	return &companies{Repository: repository.NewRepository(db, handlers)}
}

// NewProjectsRepository returns the bun backed Projects repository
func NewProjectsRepository(db *bun.DB) Projects {
	handlers := repository.ModelHandlers[*Project]{
		NewRecord: func() *Project {
			return &Project{}
		},
		GetID: func(record *Project) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *Project, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "project_code"
		},
	}
	return &projects{Repository: repository.NewRepository(db, handlers)}
}

func (r *companies) LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Company, error) {
	record := &Company{}
	err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newNotFound(KindCompany, id)
		}
		return nil, wrapInternal(err, "failed to load company")
	}
	return record, nil
}

func (r *companies) LoadByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Company, error) {
	record, err := r.Repository.GetByIdentifierTx(ctx, tx, normalizeCode(code))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newInvalidCode(KindCompany, code)
		}
		return nil, wrapInternal(err, "failed to load company by code")
	}
	return record, nil
}

func (r *companies) CodeTakenTx(ctx context.Context, tx bun.IDB, code string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*Company)(nil)).
		Where("?TableAlias.company_code = ?", code).
		Exists(ctx)
	if err != nil {
		return false, wrapInternal(err, "failed to check company code")
	}
	return exists, nil
}

func (r *companies) SaveTx(ctx context.Context, tx bun.IDB, company *Company) error {
	if _, err := r.Repository.UpdateTx(ctx, tx, company, repository.UpdateByID(company.ID.String())); err != nil {
		return wrapInternal(err, "failed to update company")
	}
	return nil
}

func (r *companies) SearchTx(ctx context.Context, tx bun.IDB) ([]*Company, error) {
	records := []*Company{}
	if err := tx.NewSelect().Model(&records).Order("created_at ASC").Scan(ctx); err != nil {
		return nil, wrapInternal(err, "failed to list companies")
	}
	return records, nil
}

func (r *companies) PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	if _, err := tx.NewDelete().Model((*Company)(nil)).Where("id = ?", id).Exec(ctx); err != nil {
		return wrapInternal(err, "failed to delete company")
	}
	return nil
}

func (r *projects) LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Project, error) {
	record := &Project{}
	err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newNotFound(KindProject, id)
		}
		return nil, wrapInternal(err, "failed to load project")
	}
	return record, nil
}

func (r *projects) LoadByCodeTx(ctx context.Context, tx bun.IDB, code string) (*Project, error) {
	record, err := r.Repository.GetByIdentifierTx(ctx, tx, normalizeCode(code))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newInvalidCode(KindProject, code)
		}
		return nil, wrapInternal(err, "failed to load project by code")
	}
	return record, nil
}

func (r *projects) CodeTakenTx(ctx context.Context, tx bun.IDB, code string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*Project)(nil)).
		Where("?TableAlias.project_code = ?", code).
		Exists(ctx)
	if err != nil {
		return false, wrapInternal(err, "failed to check project code")
	}
	return exists, nil
}

func (r *projects) SaveTx(ctx context.Context, tx bun.IDB, project *Project) error {
	if _, err := r.Repository.UpdateTx(ctx, tx, project, repository.UpdateByID(project.ID.String())); err != nil {
		return wrapInternal(err, "failed to update project")
	}
	return nil
}

func (r *projects) ByCompanyTx(ctx context.Context, tx bun.IDB, companyID uuid.UUID) ([]*Project, error) {
	records := []*Project{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.company_id = ?", companyID).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to list projects")
	}
	return records, nil
}

func (r *projects) NamesTx(ctx context.Context, tx bun.IDB, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	records := []*Project{}
	err := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to resolve project names")
	}

	for _, p := range records {
		names[p.ID] = p.Name
	}
	return names, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
