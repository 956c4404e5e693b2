package repository

import (
	"context"
	"time"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type AlertRepository struct {
	db db.DBTX
}

func NewAlertRepository(dbtx db.DBTX) *AlertRepository {
	return &AlertRepository{db: dbtx}
}

const alertColumns = `id, machine_id, type, message, created_at, resolved_at, resolved_by`

// FindRecentUnresolved backs the dedup check: the newest unresolved alert of
// this kind created after `since`, if any.
func (r *AlertRepository) FindRecentUnresolved(ctx context.Context, machineID uuid.UUID, alertType alert.Type, since time.Time) (*alert.Alert, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+alertColumns+` FROM alerts
		WHERE machine_id = $1 AND type = $2 AND resolved_at IS NULL AND created_at > $3
		ORDER BY created_at DESC
		LIMIT 1`, machineID, alertType.String(), since)
	return scanAlert(row)
}

func (r *AlertRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*alert.Alert, error) {
	row := r.db.QueryRow(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = $1 FOR UPDATE`, id)
	return scanAlert(row)
}

func (r *AlertRepository) Create(ctx context.Context, a *alert.Alert) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO alerts (id, machine_id, type, message, created_at, resolved_at, resolved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID(), a.MachineID(), a.Type().String(), a.Message(), a.CreatedAt(),
		pgconv.TimePtrToPgtype(a.ResolvedAt()), pgconv.UUIDPtrToPgtype(a.ResolvedBy()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create alert", err)
	}
	return nil
}

func (r *AlertRepository) Save(ctx context.Context, a *alert.Alert) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE alerts SET message = $2, resolved_at = $3, resolved_by = $4
		WHERE id = $1`,
		a.ID(), a.Message(),
		pgconv.TimePtrToPgtype(a.ResolvedAt()), pgconv.UUIDPtrToPgtype(a.ResolvedBy()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save alert", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("alert not found on save", nil, infra.KindNotFound)
	}
	return nil
}

func scanAlert(row rowScanner) (*alert.Alert, error) {
	var (
		id         uuid.UUID
		machineID  uuid.UUID
		typeStr    string
		message    string
		createdAt  time.Time
		resolvedAt pgtype.Timestamptz
		resolvedBy pgtype.UUID
	)

	err := row.Scan(&id, &machineID, &typeStr, &message, &createdAt, &resolvedAt, &resolvedBy)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("alert not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan alert", err)
	}

	alertType, err := alert.NewType(typeStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored alert type invalid", err)
	}

	return alert.ReconstructAlert(
		id, machineID, alertType, message, createdAt,
		pgconv.TimePtrFromPgtype(resolvedAt),
		pgconv.UUIDPtrFromPgtype(resolvedBy),
	), nil
}
