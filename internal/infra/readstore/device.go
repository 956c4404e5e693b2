package readstore

import (
	"context"

	"vendfleet/internal/infra/db"
	"vendfleet/internal/infra/repository"

	"github.com/google/uuid"
)

// DeviceKeyResolver backs the device-key middleware with pool reads.
type DeviceKeyResolver struct {
	repo *repository.DeviceRepository
}

func NewDeviceKeyResolver(dbtx db.DBTX) *DeviceKeyResolver {
	return &DeviceKeyResolver{repo: repository.NewDeviceRepository(dbtx)}
}

func (r *DeviceKeyResolver) ResolveMachineID(ctx context.Context, apiKey string) (uuid.UUID, error) {
	rec, err := r.repo.FindByAPIKey(ctx, apiKey)
	if err != nil {
		return uuid.Nil, err
	}
	return rec.MachineID, nil
}
