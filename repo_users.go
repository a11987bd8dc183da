package crew

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users persists user accounts. Mutations of an existing row go through
// SaveVersionedTx so concurrent transitions on the same user cannot interleave.
type Users interface {
	repository.Repository[*User]

	LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	LoadByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error)
	UsernameTakenTx(ctx context.Context, tx bun.IDB, username string, exclude uuid.UUID) (bool, error)
	InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	SaveVersionedTx(ctx context.Context, tx bun.IDB, user *User) error
	SearchTx(ctx context.Context, tx bun.IDB, filter UserFilter) ([]*User, error)
	PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

// UserFilter narrows SearchTx results. Zero values match everything.
type UserFilter struct {
	CompanyID    *uuid.UUID
	Statuses     []UserStatus
	Roles        []UserRole
	ExcludeRoles []UserRole
	Available    *bool
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns the bun backed Users repository
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "username"
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) LoadTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newNotFound(KindUser, id)
		}
		return nil, wrapInternal(err, "failed to load user")
	}
	return record, nil
}

func (a *users) LoadByUsernameTx(ctx context.Context, tx bun.IDB, username string) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.username = ?", strings.TrimSpace(username)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, newNotFound(KindUser, username)
		}
		return nil, wrapInternal(err, "failed to load user by username")
	}
	return record, nil
}

func (a *users) UsernameTakenTx(ctx context.Context, tx bun.IDB, username string, exclude uuid.UUID) (bool, error) {
	q := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.username = ?", username)
	if exclude != uuid.Nil {
		q = q.Where("?TableAlias.id != ?", exclude)
	}

	exists, err := q.Exists(ctx)
	if err != nil {
		return false, wrapInternal(err, "failed to check username")
	}
	return exists, nil
}

func (a *users) InsertTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user, time.Now())
	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, wrapInternal(err, "failed to create user")
	}
	return created, nil
}

// SaveVersionedTx writes every column of user guarded by the version read
// earlier in the same transaction. On success user.Version is incremented.
func (a *users) SaveVersionedTx(ctx context.Context, tx bun.IDB, user *User) error {
	expected := user.Version
	user.Version = expected + 1

	res, err := tx.NewUpdate().
		Model(user).
		WherePK().
		Where("version = ?", expected).
		Exec(ctx)
	if err != nil {
		user.Version = expected
		return wrapInternal(err, "failed to update user")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		user.Version = expected
		return wrapInternal(err, "failed to read update result")
	}

	if affected == 0 {
		user.Version = expected
		return ErrConcurrentUpdate
	}

	return nil
}

func (a *users) SearchTx(ctx context.Context, tx bun.IDB, filter UserFilter) ([]*User, error) {
	records := []*User{}
	q := tx.NewSelect().Model(&records)

	if filter.CompanyID != nil {
		q = q.Where("?TableAlias.company_id = ?", *filter.CompanyID)
	}

	if len(filter.Statuses) > 0 {
		q = q.Where("?TableAlias.status IN (?)", bun.In(filter.Statuses))
	}

	if len(filter.Roles) > 0 {
		q = q.Where("?TableAlias.user_role IN (?)", bun.In(filter.Roles))
	}

	if len(filter.ExcludeRoles) > 0 {
		q = q.Where("?TableAlias.user_role NOT IN (?)", bun.In(filter.ExcludeRoles))
	}

	if filter.Available != nil {
		q = q.Where("?TableAlias.is_available_for_work = ?", *filter.Available)
	}

	if err := q.Order("created_at ASC").Scan(ctx); err != nil {
		if repository.IsRecordNotFound(err) {
			return records, nil
		}
		return nil, wrapInternal(err, "failed to list users")
	}

	return records, nil
}

func (a *users) PurgeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return wrapInternal(err, "failed to delete user")
	}
	return nil
}

func prepareUserDefaults(record *User, now time.Time) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	if record.Role == "" {
		record.Role = RoleMember
	}

	if record.Status == "" {
		record.Status = UserStatusPending
	}

	if record.Verification == "" {
		record.Verification = VerificationUnverified
	}

	if record.AssignedProjectIDs == nil {
		record.AssignedProjectIDs = []uuid.UUID{}
	}

	if record.Version == 0 {
		record.Version = 1
	}

	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}

	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
}
