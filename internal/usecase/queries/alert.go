package queries

import (
	"context"
	"time"

	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

type AlertView struct {
	ID         uuid.UUID  `json:"id"`
	MachineID  uuid.UUID  `json:"machine_id"`
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

type AlertFilter struct {
	MachineID      *uuid.UUID
	UnresolvedOnly bool
	Limit          int
}

type AlertQueries interface {
	List(ctx context.Context, filter AlertFilter, actor shared.Actor) ([]*AlertView, error)
}

type AlertViewRepo interface {
	Find(ctx context.Context, filter AlertFilter) ([]*AlertView, error)
}

type alertQueriesImpl struct {
	repo AlertViewRepo
}

func NewAlertQueries(repo AlertViewRepo) AlertQueries {
	return &alertQueriesImpl{repo: repo}
}

func (q *alertQueriesImpl) List(ctx context.Context, filter AlertFilter, _ shared.Actor) ([]*AlertView, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return q.repo.Find(ctx, filter)
}
