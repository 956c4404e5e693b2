package queries

import (
	"context"
	"time"

	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

type RefillLogView struct {
	ID         uuid.UUID `json:"id"`
	MachineID  uuid.UUID `json:"machine_id"`
	OperatorID uuid.UUID `json:"operator_id"`
	Before     int       `json:"before"`
	Added      int       `json:"added"`
	After      int       `json:"after"`
	Comment    *string   `json:"comment,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

type SaleView struct {
	ID        uuid.UUID `json:"id"`
	MachineID uuid.UUID `json:"machine_id"`
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	SoldAt    time.Time `json:"sold_at"`
}

type SalesSummaryView struct {
	MachineID uuid.UUID `json:"machine_id"`
	Count     int       `json:"count"`
	Units     int       `json:"units"`
	Revenue   float64   `json:"revenue"`
}

type HistoryQueries interface {
	RefillLogs(ctx context.Context, machineID uuid.UUID, limit int, actor shared.Actor) ([]*RefillLogView, error)
	Sales(ctx context.Context, machineID uuid.UUID, from, to time.Time, limit int, actor shared.Actor) ([]*SaleView, error)
	SalesSummary(ctx context.Context, machineID uuid.UUID, from, to time.Time, actor shared.Actor) (*SalesSummaryView, error)
}

type HistoryViewRepo interface {
	FindRefillLogs(ctx context.Context, machineID uuid.UUID, limit int) ([]*RefillLogView, error)
	FindSales(ctx context.Context, machineID uuid.UUID, from, to time.Time, limit int) ([]*SaleView, error)
	SummarizeSales(ctx context.Context, machineID uuid.UUID, from, to time.Time) (*SalesSummaryView, error)
}

type historyQueriesImpl struct {
	repo HistoryViewRepo
}

func NewHistoryQueries(repo HistoryViewRepo) HistoryQueries {
	return &historyQueriesImpl{repo: repo}
}

func (q *historyQueriesImpl) RefillLogs(ctx context.Context, machineID uuid.UUID, limit int, _ shared.Actor) ([]*RefillLogView, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return q.repo.FindRefillLogs(ctx, machineID, limit)
}

func (q *historyQueriesImpl) Sales(ctx context.Context, machineID uuid.UUID, from, to time.Time, limit int, _ shared.Actor) ([]*SaleView, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return q.repo.FindSales(ctx, machineID, from, to, limit)
}

func (q *historyQueriesImpl) SalesSummary(ctx context.Context, machineID uuid.UUID, from, to time.Time, _ shared.Actor) (*SalesSummaryView, error) {
	return q.repo.SummarizeSales(ctx, machineID, from, to)
}
