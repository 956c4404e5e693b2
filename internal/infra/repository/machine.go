package repository

import (
	"context"
	"encoding/json"
	"time"

	"vendfleet/internal/domain/machine"
	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type MachineRepository struct {
	db db.DBTX
}

func NewMachineRepository(dbtx db.DBTX) *MachineRepository {
	return &MachineRepository{db: dbtx}
}

const machineColumns = `id, code, capacity, product_stock, status, assigned_manager_id,
	last_service_at, last_telemetry_at, created_at, updated_at`

func (r *MachineRepository) FindByID(ctx context.Context, id uuid.UUID) (*machine.Machine, error) {
	row := r.db.QueryRow(ctx, `SELECT `+machineColumns+` FROM machines WHERE id = $1`, id)
	return scanMachine(row, "machine not found by id")
}

// FindByIDForUpdate locks the machine row for the rest of the transaction.
// This is what serializes per-machine stock mutations across instances.
func (r *MachineRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*machine.Machine, error) {
	row := r.db.QueryRow(ctx, `SELECT `+machineColumns+` FROM machines WHERE id = $1 FOR UPDATE`, id)
	return scanMachine(row, "machine not found by id")
}

func (r *MachineRepository) FindByCode(ctx context.Context, code string) (*machine.Machine, error) {
	row := r.db.QueryRow(ctx, `SELECT `+machineColumns+` FROM machines WHERE code = $1`, code)
	return scanMachine(row, "machine not found by code")
}

func (r *MachineRepository) Create(ctx context.Context, m *machine.Machine) error {
	stockJSON, err := json.Marshal(m.ProductStock())
	if err != nil {
		return infra.WrapRepoErr("failed to encode product stock", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO machines (id, code, capacity, product_stock, status, assigned_manager_id,
			last_service_at, last_telemetry_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		m.ID(), m.Code().String(), m.Capacity().Int(), stockJSON, m.Status().String(),
		pgconv.UUIDPtrToPgtype(m.AssignedManagerID()),
		pgconv.TimePtrToPgtype(m.LastServiceAt()),
		pgconv.TimePtrToPgtype(m.LastTelemetryAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create machine", err)
	}
	return nil
}

// Save writes the whole mutable state back. Callers hold the FOR UPDATE lock,
// so this is the second half of a read-modify-write, never a blind overwrite.
func (r *MachineRepository) Save(ctx context.Context, m *machine.Machine) error {
	stockJSON, err := json.Marshal(m.ProductStock())
	if err != nil {
		return infra.WrapRepoErr("failed to encode product stock", err)
	}

	tag, err := r.db.Exec(ctx, `
		UPDATE machines
		SET product_stock = $2, status = $3, assigned_manager_id = $4,
			last_service_at = $5, last_telemetry_at = $6, updated_at = now()
		WHERE id = $1`,
		m.ID(), stockJSON, m.Status().String(),
		pgconv.UUIDPtrToPgtype(m.AssignedManagerID()),
		pgconv.TimePtrToPgtype(m.LastServiceAt()),
		pgconv.TimePtrToPgtype(m.LastTelemetryAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to save machine", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("machine not found on save", nil, infra.KindNotFound)
	}
	return nil
}

// Delete removes the machine; sessions, logs, sales, alerts and the device
// row go with it through the cascading foreign keys, atomically.
func (r *MachineRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM machines WHERE id = $1`, id)
	if err != nil {
		return infra.WrapRepoErr("failed to delete machine", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("machine not found on delete", nil, infra.KindNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMachine(row rowScanner, notFoundMsg string) (*machine.Machine, error) {
	var (
		id              uuid.UUID
		codeStr         string
		capacityInt     int
		stockJSON       []byte
		statusStr       string
		managerID       pgtype.UUID
		lastServiceAt   pgtype.Timestamptz
		lastTelemetryAt pgtype.Timestamptz
		createdAt       time.Time
		updatedAt       time.Time
	)

	err := row.Scan(&id, &codeStr, &capacityInt, &stockJSON, &statusStr, &managerID,
		&lastServiceAt, &lastTelemetryAt, &createdAt, &updatedAt)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(notFoundMsg, err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan machine", err)
	}

	code, err := machine.NewCode(codeStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored machine code invalid", err)
	}
	capacity, err := machine.NewCapacity(capacityInt)
	if err != nil {
		return nil, infra.WrapRepoErr("stored machine capacity invalid", err)
	}
	status, err := machine.NewStatus(statusStr)
	if err != nil {
		return nil, infra.WrapRepoErr("stored machine status invalid", err)
	}

	var stock machine.Stock
	if err := json.Unmarshal(stockJSON, &stock); err != nil {
		return nil, infra.WrapRepoErr("failed to decode product stock", err)
	}
	if stock == nil {
		stock = machine.Stock{}
	}

	return machine.ReconstructMachine(
		id, code, capacity, stock, status,
		pgconv.UUIDPtrFromPgtype(managerID),
		pgconv.TimePtrFromPgtype(lastServiceAt),
		pgconv.TimePtrFromPgtype(lastTelemetryAt),
		createdAt, updatedAt,
	), nil
}
