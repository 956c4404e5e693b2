package repository

import (
	"context"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/shared"
)

type RefillLogRepository struct {
	db db.DBTX
}

func NewRefillLogRepository(dbtx db.DBTX) *RefillLogRepository {
	return &RefillLogRepository{db: dbtx}
}

func (r *RefillLogRepository) Create(ctx context.Context, rec shared.RefillLogRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO refill_logs (id, machine_id, operator_id, before_stock, added_claim, after_stock, comment, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.MachineID, rec.OperatorID, rec.Before, rec.Added, rec.After,
		pgconv.StringPtrToPgtype(rec.Comment), rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create refill log", err)
	}
	return nil
}
