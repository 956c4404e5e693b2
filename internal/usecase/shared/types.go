package shared

import (
	"vendfleet/internal/domain/operator"

	"github.com/google/uuid"
)

// Actor is the authenticated operator behind a command, as resolved by the
// auth middleware.
type Actor struct {
	ID   uuid.UUID
	Role operator.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == operator.RoleAdmin
}

func (a Actor) IsManager() bool {
	return a.Role == operator.RoleManager
}
