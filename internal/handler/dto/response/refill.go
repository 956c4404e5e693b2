package response

import (
	"vendfleet/internal/usecase/commands"

	"github.com/google/uuid"
)

type RefillStartedResponse struct {
	SessionID    uuid.UUID `json:"session_id"`
	MachineID    uuid.UUID `json:"machine_id"`
	InitialStock int       `json:"initial_stock"`
}

func FromStartRefillResult(r *commands.StartRefillResult) RefillStartedResponse {
	return RefillStartedResponse{
		SessionID:    r.SessionID,
		MachineID:    r.MachineID,
		InitialStock: r.InitialStock,
	}
}

type RefillSummaryResponse struct {
	MachineID     uuid.UUID `json:"machine_id"`
	Before        int       `json:"before"`
	Claimed       int       `json:"claimed"`
	ActuallyAdded int       `json:"actually_added"`
	After         int       `json:"after"`
	Status        string    `json:"status"`
	OverfillAlert bool      `json:"overfill_alert"`
}

func FromRefillSummary(r *commands.RefillSummary) RefillSummaryResponse {
	return RefillSummaryResponse{
		MachineID:     r.MachineID,
		Before:        r.Before,
		Claimed:       r.Claimed,
		ActuallyAdded: r.ActuallyAdded,
		After:         r.After,
		Status:        r.Status.String(),
		OverfillAlert: r.OverfillAlert,
	}
}
