package crew

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Catalog holds the license tiers and add-on modules
type Catalog interface {
	LicensesTx(ctx context.Context, tx bun.IDB) ([]*License, error)
	LicenseTx(ctx context.Context, tx bun.IDB, id string) (*License, error)
	SaveLicenseTx(ctx context.Context, tx bun.IDB, license *License) error
	ModulesTx(ctx context.Context, tx bun.IDB) ([]*Module, error)
	SeedTx(ctx context.Context, tx bun.IDB, licenses []*License, modules []*Module) error
}

type catalog struct {
	db *bun.DB
}

// NewCatalogRepository returns the bun backed license and module catalog
func NewCatalogRepository(db *bun.DB) Catalog {
	return &catalog{db: db}
}

func (c *catalog) LicensesTx(ctx context.Context, tx bun.IDB) ([]*License, error) {
	records := []*License{}
	if err := tx.NewSelect().Model(&records).Order("base_price_monthly ASC").Scan(ctx); err != nil {
		return nil, wrapInternal(err, "failed to list licenses")
	}
	return records, nil
}

func (c *catalog) LicenseTx(ctx context.Context, tx bun.IDB, id string) (*License, error) {
	record := &License{}
	err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newNotFound(KindLicense, id)
		}
		return nil, wrapInternal(err, "failed to load license")
	}
	return record, nil
}

func (c *catalog) SaveLicenseTx(ctx context.Context, tx bun.IDB, license *License) error {
	res, err := tx.NewUpdate().Model(license).WherePK().Exec(ctx)
	if err != nil {
		return wrapInternal(err, "failed to update license")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return newNotFound(KindLicense, license.ID)
	}
	return nil
}

func (c *catalog) ModulesTx(ctx context.Context, tx bun.IDB) ([]*Module, error) {
	records := []*Module{}
	if err := tx.NewSelect().Model(&records).Order("id ASC").Scan(ctx); err != nil {
		return nil, wrapInternal(err, "failed to list modules")
	}
	return records, nil
}

// SeedTx inserts catalog rows that do not exist yet. Existing rows keep
// their edited prices.
func (c *catalog) SeedTx(ctx context.Context, tx bun.IDB, licenses []*License, modules []*Module) error {
	if len(licenses) > 0 {
		if _, err := tx.NewInsert().Model(&licenses).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return wrapInternal(err, "failed to seed licenses")
		}
	}

	if len(modules) > 0 {
		if _, err := tx.NewInsert().Model(&modules).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
			return wrapInternal(err, "failed to seed modules")
		}
	}

	return nil
}
