package repository

import (
	"context"
	"time"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

type DeviceRepository struct {
	db db.DBTX
}

func NewDeviceRepository(dbtx db.DBTX) *DeviceRepository {
	return &DeviceRepository{db: dbtx}
}

func (r *DeviceRepository) Create(ctx context.Context, rec shared.DeviceRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO devices (id, machine_id, api_key, paired_at)
		VALUES ($1, $2, $3, $4)`,
		rec.ID, rec.MachineID, rec.APIKey, rec.PairedAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepository) FindByAPIKey(ctx context.Context, apiKey string) (*shared.DeviceRecord, error) {
	var (
		id        uuid.UUID
		machineID uuid.UUID
		key       string
		pairedAt  time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT id, machine_id, api_key, paired_at FROM devices WHERE api_key = $1`, apiKey).
		Scan(&id, &machineID, &key, &pairedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("device not found by api key", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find device", err)
	}

	return &shared.DeviceRecord{ID: id, MachineID: machineID, APIKey: key, PairedAt: pairedAt}, nil
}

func (r *DeviceRepository) DeleteByMachineID(ctx context.Context, machineID uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM devices WHERE machine_id = $1`, machineID); err != nil {
		return infra.WrapRepoErr("failed to delete device", err)
	}
	return nil
}
