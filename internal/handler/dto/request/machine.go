package request

import (
	"github.com/google/uuid"
)

type CreateMachineRequest struct {
	Code       string      `json:"code" binding:"required"`
	Capacity   int         `json:"capacity" binding:"required,min=1,max=1000"`
	ManagerID  *uuid.UUID  `json:"manager_id,omitempty"`
	ProductIDs []uuid.UUID `json:"product_ids,omitempty"`
	SeedStock  int         `json:"seed_stock,omitempty" binding:"omitempty,min=0"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

type AssignManagerRequest struct {
	ManagerID uuid.UUID `json:"manager_id" binding:"required"`
}
