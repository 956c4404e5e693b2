package readstore

import (
	"context"
	"fmt"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgtype"
)

type AlertReadStore struct {
	db db.DBTX
}

func NewAlertReadStore(dbtx db.DBTX) *AlertReadStore {
	return &AlertReadStore{db: dbtx}
}

func (r *AlertReadStore) Find(ctx context.Context, filter queries.AlertFilter) ([]*queries.AlertView, error) {
	query := `SELECT id, machine_id, type, message, created_at, resolved_at FROM alerts`
	args := []any{}

	where := ""
	if filter.MachineID != nil {
		args = append(args, *filter.MachineID)
		where = fmt.Sprintf(" WHERE machine_id = $%d", len(args))
	}
	if filter.UnresolvedOnly {
		if where == "" {
			where = " WHERE resolved_at IS NULL"
		} else {
			where += " AND resolved_at IS NULL"
		}
	}

	args = append(args, filter.Limit)
	query += where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list alerts", err)
	}
	defer rows.Close()

	var result []*queries.AlertView
	for rows.Next() {
		var (
			v          queries.AlertView
			resolvedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&v.ID, &v.MachineID, &v.Type, &v.Message, &v.CreatedAt, &resolvedAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan alert", err)
		}
		v.ResolvedAt = pgconv.TimePtrFromPgtype(resolvedAt)
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate alerts", err)
	}
	return result, nil
}
