package crew

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserLogs is the append-only audit trail store
type UserLogs interface {
	AppendTx(ctx context.Context, tx bun.IDB, entries []UserLog) ([]UserLog, error)
	ListTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]UserLog, error)
	PurgeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error
}

type userLogs struct {
	db *bun.DB
}

// NewUserLogsRepository returns the bun backed audit store
func NewUserLogsRepository(db *bun.DB) UserLogs {
	return &userLogs{db: db}
}

// AppendTx assigns consecutive sequence numbers after the user's last entry
// and inserts the batch. The returned slice carries the stored values.
func (r *userLogs) AppendTx(ctx context.Context, tx bun.IDB, entries []UserLog) ([]UserLog, error) {
	if len(entries) == 0 {
		return entries, nil
	}

	userID := entries[0].UserID

	var last sql.NullInt64
	err := tx.NewSelect().
		Model((*UserLog)(nil)).
		ColumnExpr("MAX(seq)").
		Where("user_id = ?", userID).
		Scan(ctx, &last)
	if err != nil {
		return nil, wrapInternal(err, "failed to read audit sequence")
	}

	out := make([]UserLog, len(entries))
	copy(out, entries)
	next := int(last.Int64)
	for i := range out {
		next++
		out[i].Seq = next
	}

	if _, err := tx.NewInsert().Model(&out).Exec(ctx); err != nil {
		return nil, wrapInternal(err, "failed to append audit entries")
	}

	return out, nil
}

func (r *userLogs) ListTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) ([]UserLog, error) {
	records := []UserLog{}
	err := tx.NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("seq ASC").
		Scan(ctx)
	if err != nil {
		return nil, wrapInternal(err, "failed to list audit entries")
	}
	return records, nil
}

func (r *userLogs) PurgeTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) error {
	_, err := tx.NewDelete().
		Model((*UserLog)(nil)).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return wrapInternal(err, "failed to delete audit entries")
	}
	return nil
}
