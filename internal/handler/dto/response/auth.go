package response

import (
	"vendfleet/internal/domain/operator"

	"github.com/google/uuid"
)

type OperatorResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

type LoginResponse struct {
	AccessToken string           `json:"access_token"`
	Operator    OperatorResponse `json:"operator"`
}

func FromOperator(o *operator.Operator) OperatorResponse {
	return OperatorResponse{
		ID:    o.ID(),
		Email: o.Email().String(),
		Role:  o.Role().String(),
	}
}
