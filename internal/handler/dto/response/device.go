package response

import (
	"vendfleet/internal/usecase/commands"

	"github.com/google/uuid"
)

type TelemetryResponse struct {
	MachineID     uuid.UUID `json:"machine_id"`
	Stock         int       `json:"stock"`
	Status        string    `json:"status"`
	DriftDetected bool      `json:"drift_detected"`
}

func FromTelemetryResult(r *commands.TelemetryResult) TelemetryResponse {
	return TelemetryResponse{
		MachineID:     r.MachineID,
		Stock:         r.Stock,
		Status:        r.Status.String(),
		DriftDetected: r.DriftDetected,
	}
}

type SaleResponse struct {
	SaleID    uuid.UUID `json:"sale_id"`
	MachineID uuid.UUID `json:"machine_id"`
	ProductID uuid.UUID `json:"product_id"`
	Qty       int       `json:"qty"`
	Total     float64   `json:"total"`
	Stock     int       `json:"stock"`
	Status    string    `json:"status"`
}

func FromSaleResult(r *commands.SaleResult) SaleResponse {
	return SaleResponse{
		SaleID:    r.SaleID,
		MachineID: r.MachineID,
		ProductID: r.ProductID,
		Qty:       r.Qty,
		Total:     r.Total,
		Stock:     r.Stock,
		Status:    r.Status.String(),
	}
}
