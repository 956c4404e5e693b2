package response

import (
	"vendfleet/internal/usecase/commands"

	"github.com/google/uuid"
)

type MachineCreatedResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
	Stock  int       `json:"stock"`
}

func FromCreateMachineResult(r *commands.CreateMachineResult) MachineCreatedResponse {
	return MachineCreatedResponse{
		ID:     r.MachineID,
		Status: r.Status.String(),
		Stock:  r.Stock,
	}
}

// PairDeviceResponse carries the API key; it is shown once and never
// retrievable again.
type PairDeviceResponse struct {
	MachineID uuid.UUID `json:"machine_id"`
	APIKey    string    `json:"api_key"`
}

func FromPairDeviceResult(r *commands.PairDeviceResult) PairDeviceResponse {
	return PairDeviceResponse{MachineID: r.MachineID, APIKey: r.APIKey}
}
