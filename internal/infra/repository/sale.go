package repository

import (
	"context"

	"vendfleet/internal/infra"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/usecase/shared"
)

type SaleRepository struct {
	db db.DBTX
}

func NewSaleRepository(dbtx db.DBTX) *SaleRepository {
	return &SaleRepository{db: dbtx}
}

func (r *SaleRepository) Create(ctx context.Context, rec shared.SaleRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO sales (id, machine_id, product_id, qty, price, total, sold_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.MachineID, rec.ProductID, rec.Qty, rec.Price, rec.Total, rec.SoldAt,
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create sale", err)
	}
	return nil
}
