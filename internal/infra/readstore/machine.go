package readstore

import (
	"context"
	"encoding/json"
	"time"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type MachineReadStore struct {
	db db.DBTX
}

func NewMachineReadStore(dbtx db.DBTX) *MachineReadStore {
	return &MachineReadStore{db: dbtx}
}

func (r *MachineReadStore) FindSnapshot(ctx context.Context, id uuid.UUID) (*queries.MachineSnapshotView, error) {
	row := r.db.QueryRow(ctx, `
		SELECT m.id, m.code, m.capacity, m.product_stock, m.status,
			m.assigned_manager_id, m.last_service_at, m.last_telemetry_at,
			m.created_at, m.updated_at,
			s.operator_id, s.started_at
		FROM machines m
		LEFT JOIN refill_sessions s ON s.machine_id = m.id
		WHERE m.id = $1`, id)

	var (
		view            queries.MachineSnapshotView
		stockJSON       []byte
		managerID       pgtype.UUID
		lastServiceAt   pgtype.Timestamptz
		lastTelemetryAt pgtype.Timestamptz
		sessionOperator pgtype.UUID
		sessionStarted  pgtype.Timestamptz
	)
	err := row.Scan(&view.ID, &view.Code, &view.Capacity, &stockJSON, &view.Status,
		&managerID, &lastServiceAt, &lastTelemetryAt,
		&view.CreatedAt, &view.UpdatedAt,
		&sessionOperator, &sessionStarted)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("machine not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find machine snapshot", err)
	}

	if err := json.Unmarshal(stockJSON, &view.ProductStock); err != nil {
		return nil, infra.WrapRepoErr("failed to decode product stock", err)
	}
	for _, qty := range view.ProductStock {
		view.Stock += qty
	}
	if view.Capacity > 0 {
		view.StockPercentage = float64(view.Stock) / float64(view.Capacity) * 100
	}

	view.AssignedManagerID = pgconv.UUIDPtrFromPgtype(managerID)
	view.LastServiceAt = pgconv.TimePtrFromPgtype(lastServiceAt)
	view.LastTelemetryAt = pgconv.TimePtrFromPgtype(lastTelemetryAt)
	view.SessionOperatorID = pgconv.UUIDPtrFromPgtype(sessionOperator)
	view.SessionStartedAt = pgconv.TimePtrFromPgtype(sessionStarted)

	return &view, nil
}

const machineListQuery = `
	SELECT m.id, m.code, m.capacity, m.product_stock, m.status,
		m.last_telemetry_at, (s.id IS NOT NULL) AS in_service
	FROM machines m
	LEFT JOIN refill_sessions s ON s.machine_id = m.id`

func (r *MachineReadStore) FindAll(ctx context.Context) ([]*queries.MachineListItem, error) {
	rows, err := r.db.Query(ctx, machineListQuery+` ORDER BY m.code`)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list machines", err)
	}
	defer rows.Close()
	return scanMachineList(rows)
}

func (r *MachineReadStore) FindByManagerID(ctx context.Context, managerID uuid.UUID) ([]*queries.MachineListItem, error) {
	rows, err := r.db.Query(ctx, machineListQuery+` WHERE m.assigned_manager_id = $1 ORDER BY m.code`, managerID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list machines by manager", err)
	}
	defer rows.Close()
	return scanMachineList(rows)
}

func (r *MachineReadStore) FindSessionsStartedBefore(ctx context.Context, cutoff time.Time) ([]*queries.StaleSessionView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.machine_id, m.code, s.operator_id, s.started_at
		FROM refill_sessions s
		JOIN machines m ON m.id = s.machine_id
		WHERE s.started_at < $1
		ORDER BY s.started_at`, cutoff)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list stale sessions", err)
	}
	defer rows.Close()

	var result []*queries.StaleSessionView
	for rows.Next() {
		var v queries.StaleSessionView
		if err := rows.Scan(&v.SessionID, &v.MachineID, &v.MachineCode, &v.OperatorID, &v.StartedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan stale session", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate stale sessions", err)
	}
	return result, nil
}

type pgRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanMachineList(rows pgRows) ([]*queries.MachineListItem, error) {
	var result []*queries.MachineListItem
	for rows.Next() {
		var (
			item            queries.MachineListItem
			stockJSON       []byte
			lastTelemetryAt pgtype.Timestamptz
		)
		err := rows.Scan(&item.ID, &item.Code, &item.Capacity, &stockJSON, &item.Status,
			&lastTelemetryAt, &item.InService)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan machine row", err)
		}

		var stock map[uuid.UUID]int
		if err := json.Unmarshal(stockJSON, &stock); err != nil {
			return nil, infra.WrapRepoErr("failed to decode product stock", err)
		}
		for _, qty := range stock {
			item.Stock += qty
		}
		if item.Capacity > 0 {
			item.StockPercentage = float64(item.Stock) / float64(item.Capacity) * 100
		}
		item.LastTelemetryAt = pgconv.TimePtrFromPgtype(lastTelemetryAt)

		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate machines", err)
	}
	return result, nil
}
