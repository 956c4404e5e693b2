package request

import (
	"github.com/google/uuid"
)

type TelemetryRequest struct {
	ReportedTotal *int    `json:"reported_total,omitempty" binding:"omitempty,min=0"`
	ErrorCode     *string `json:"error_code,omitempty"`
}

type SaleRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Qty       int       `json:"qty" binding:"required,min=1"`
	Price     float64   `json:"price" binding:"min=0"`
}
