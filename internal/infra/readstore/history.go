package readstore

import (
	"context"
	"time"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/pkg/pgconv"
	"vendfleet/internal/usecase/queries"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type HistoryReadStore struct {
	db db.DBTX
}

func NewHistoryReadStore(dbtx db.DBTX) *HistoryReadStore {
	return &HistoryReadStore{db: dbtx}
}

func (r *HistoryReadStore) FindRefillLogs(ctx context.Context, machineID uuid.UUID, limit int) ([]*queries.RefillLogView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, machine_id, operator_id, before_stock, added_claim, after_stock,
			comment, started_at, finished_at
		FROM refill_logs
		WHERE machine_id = $1
		ORDER BY finished_at DESC
		LIMIT $2`, machineID, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list refill logs", err)
	}
	defer rows.Close()

	var result []*queries.RefillLogView
	for rows.Next() {
		var (
			v       queries.RefillLogView
			comment pgtype.Text
		)
		err := rows.Scan(&v.ID, &v.MachineID, &v.OperatorID, &v.Before, &v.Added, &v.After,
			&comment, &v.StartedAt, &v.FinishedAt)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan refill log", err)
		}
		v.Comment = pgconv.StringPtrFromPgtype(comment)
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate refill logs", err)
	}
	return result, nil
}

func (r *HistoryReadStore) FindSales(ctx context.Context, machineID uuid.UUID, from, to time.Time, limit int) ([]*queries.SaleView, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, machine_id, product_id, qty, price, total, sold_at
		FROM sales
		WHERE machine_id = $1 AND sold_at >= $2 AND sold_at < $3
		ORDER BY sold_at DESC
		LIMIT $4`, machineID, from, to, limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list sales", err)
	}
	defer rows.Close()

	var result []*queries.SaleView
	for rows.Next() {
		var v queries.SaleView
		if err := rows.Scan(&v.ID, &v.MachineID, &v.ProductID, &v.Qty, &v.Price, &v.Total, &v.SoldAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan sale", err)
		}
		result = append(result, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate sales", err)
	}
	return result, nil
}

func (r *HistoryReadStore) SummarizeSales(ctx context.Context, machineID uuid.UUID, from, to time.Time) (*queries.SalesSummaryView, error) {
	row := r.db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(qty), 0), COALESCE(SUM(total), 0)
		FROM sales
		WHERE machine_id = $1 AND sold_at >= $2 AND sold_at < $3`, machineID, from, to)

	v := queries.SalesSummaryView{MachineID: machineID}
	if err := row.Scan(&v.Count, &v.Units, &v.Revenue); err != nil {
		return nil, infra.WrapRepoErr("failed to summarize sales", err)
	}
	return &v, nil
}
