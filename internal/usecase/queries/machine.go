package queries

import (
	"context"
	"time"

	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

// Read models (DTO for read side)
type MachineSnapshotView struct {
	ID                uuid.UUID         `json:"id"`
	Code              string            `json:"code"`
	Capacity          int               `json:"capacity"`
	Status            string            `json:"status"`
	Stock             int               `json:"stock"`
	ProductStock      map[uuid.UUID]int `json:"product_stock"`
	StockPercentage   float64           `json:"stock_percentage"`
	LowStock          bool              `json:"low_stock"`
	AssignedManagerID *uuid.UUID        `json:"assigned_manager_id,omitempty"`
	LastServiceAt     *time.Time        `json:"last_service_at,omitempty"`
	LastTelemetryAt   *time.Time        `json:"last_telemetry_at,omitempty"`
	SessionOperatorID *uuid.UUID        `json:"session_operator_id,omitempty"`
	SessionStartedAt  *time.Time        `json:"session_started_at,omitempty"`
	SessionStale      bool              `json:"session_stale"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

type MachineListItem struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	Capacity        int        `json:"capacity"`
	Status          string     `json:"status"`
	Stock           int        `json:"stock"`
	StockPercentage float64    `json:"stock_percentage"`
	InService       bool       `json:"in_service"`
	LastTelemetryAt *time.Time `json:"last_telemetry_at,omitempty"`
}

type StaleSessionView struct {
	SessionID   uuid.UUID `json:"session_id"`
	MachineID   uuid.UUID `json:"machine_id"`
	MachineCode string    `json:"machine_code"`
	OperatorID  uuid.UUID `json:"operator_id"`
	StartedAt   time.Time `json:"started_at"`
	Age         string    `json:"age"`
}

type MachineQueries interface {
	GetSnapshot(ctx context.Context, id uuid.UUID, actor shared.Actor) (*MachineSnapshotView, error)
	List(ctx context.Context, actor shared.Actor) ([]*MachineListItem, error)
	// ListStaleSessions surfaces sessions past the timeout so an admin can
	// force-release them.
	ListStaleSessions(ctx context.Context, actor shared.Actor) ([]*StaleSessionView, error)
}

type MachineViewRepo interface {
	FindSnapshot(ctx context.Context, id uuid.UUID) (*MachineSnapshotView, error)
	FindAll(ctx context.Context) ([]*MachineListItem, error)
	FindByManagerID(ctx context.Context, managerID uuid.UUID) ([]*MachineListItem, error)
	FindSessionsStartedBefore(ctx context.Context, cutoff time.Time) ([]*StaleSessionView, error)
}

type machineQueriesImpl struct {
	repo  MachineViewRepo
	clock clock.Clock
	cfg   config.MachineConfig
}

func NewMachineQueries(repo MachineViewRepo, clk clock.Clock, cfg config.MachineConfig) MachineQueries {
	return &machineQueriesImpl{repo: repo, clock: clk, cfg: cfg}
}

func (q *machineQueriesImpl) GetSnapshot(ctx context.Context, id uuid.UUID, actor shared.Actor) (*MachineSnapshotView, error) {
	view, err := q.repo.FindSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	view.LowStock = float64(view.Stock) < float64(view.Capacity)*q.cfg.LowStockRatio
	if view.SessionStartedAt != nil {
		view.SessionStale = q.clock.Now().Sub(*view.SessionStartedAt) > q.cfg.SessionTimeout
	}
	return view, nil
}

func (q *machineQueriesImpl) List(ctx context.Context, actor shared.Actor) ([]*MachineListItem, error) {
	// Managers see only their fleet; admins and viewers see everything.
	if actor.IsManager() {
		return q.repo.FindByManagerID(ctx, actor.ID)
	}
	return q.repo.FindAll(ctx)
}

func (q *machineQueriesImpl) ListStaleSessions(ctx context.Context, actor shared.Actor) ([]*StaleSessionView, error) {
	now := q.clock.Now()
	views, err := q.repo.FindSessionsStartedBefore(ctx, now.Add(-q.cfg.SessionTimeout))
	if err != nil {
		return nil, err
	}
	for _, v := range views {
		v.Age = now.Sub(v.StartedAt).Round(time.Second).String()
	}
	return views, nil
}
