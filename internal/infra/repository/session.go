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
)

type RefillSessionRepository struct {
	db db.DBTX
}

func NewRefillSessionRepository(dbtx db.DBTX) *RefillSessionRepository {
	return &RefillSessionRepository{db: dbtx}
}

// Create inserts the session snapshot. A concurrent start on the same machine
// trips UNIQUE(machine_id) and surfaces as KindDuplicateKey.
func (r *RefillSessionRepository) Create(ctx context.Context, s *machine.RefillSession) error {
	stockJSON, err := json.Marshal(s.InitialProductStock())
	if err != nil {
		return infra.WrapRepoErr("failed to encode session snapshot", err)
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO refill_sessions (id, machine_id, operator_id, started_at, initial_stock, initial_product_stock)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID(), s.MachineID(), s.OperatorID(), s.StartedAt(), s.InitialStock(), stockJSON,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create refill session", err)
	}
	return nil
}

func (r *RefillSessionRepository) FindByMachineID(ctx context.Context, machineID uuid.UUID) (*machine.RefillSession, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, machine_id, operator_id, started_at, initial_stock, initial_product_stock
		FROM refill_sessions WHERE machine_id = $1`, machineID)
	return scanSession(row)
}

func (r *RefillSessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM refill_sessions WHERE id = $1`, id)
	if err != nil {
		return infra.WrapRepoErr("failed to delete refill session", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.WrapRepoErr("refill session not found on delete", nil, infra.KindNotFound)
	}
	return nil
}

func (r *RefillSessionRepository) ListStartedBefore(ctx context.Context, cutoff time.Time) ([]*machine.RefillSession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, machine_id, operator_id, started_at, initial_stock, initial_product_stock
		FROM refill_sessions WHERE started_at < $1 ORDER BY started_at`, cutoff)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list stale refill sessions", err)
	}
	defer rows.Close()

	var sessions []*machine.RefillSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate refill sessions", err)
	}
	return sessions, nil
}

func scanSession(row rowScanner) (*machine.RefillSession, error) {
	var (
		id           uuid.UUID
		machineID    uuid.UUID
		operatorID   uuid.UUID
		startedAt    time.Time
		initialStock int
		stockJSON    []byte
	)

	err := row.Scan(&id, &machineID, &operatorID, &startedAt, &initialStock, &stockJSON)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("refill session not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to scan refill session", err)
	}

	var stock machine.Stock
	if err := json.Unmarshal(stockJSON, &stock); err != nil {
		return nil, infra.WrapRepoErr("failed to decode session snapshot", err)
	}
	if stock == nil {
		stock = machine.Stock{}
	}

	return machine.ReconstructRefillSession(id, machineID, operatorID, startedAt, initialStock, stock), nil
}
