package machine

import (
	"time"

	"github.com/google/uuid"
)

// RefillSession is the ephemeral record of an in-progress refill. At most one
// exists per machine; the storage layer enforces that with a unique
// constraint, not an application check.
type RefillSession struct {
	id                  uuid.UUID
	machineID           uuid.UUID
	operatorID          uuid.UUID
	startedAt           time.Time
	initialStock        int
	initialProductStock Stock
}

// NewRefillSession snapshots the machine's stock at the moment the refill
// starts; finish-time math works off this snapshot, not the live machine.
func NewRefillSession(m *Machine, operatorID uuid.UUID, startedAt time.Time) *RefillSession {
	return &RefillSession{
		id:                  uuid.New(),
		machineID:           m.ID(),
		operatorID:          operatorID,
		startedAt:           startedAt,
		initialStock:        m.Stock(),
		initialProductStock: m.ProductStock(),
	}
}

func ReconstructRefillSession(id, machineID, operatorID uuid.UUID, startedAt time.Time, initialStock int, initialProductStock Stock) *RefillSession {
	return &RefillSession{
		id:                  id,
		machineID:           machineID,
		operatorID:          operatorID,
		startedAt:           startedAt,
		initialStock:        initialStock,
		initialProductStock: initialProductStock.Clone(),
	}
}

func (s *RefillSession) ID() uuid.UUID         { return s.id }
func (s *RefillSession) MachineID() uuid.UUID  { return s.machineID }
func (s *RefillSession) OperatorID() uuid.UUID { return s.operatorID }
func (s *RefillSession) StartedAt() time.Time  { return s.startedAt }
func (s *RefillSession) InitialStock() int     { return s.initialStock }

func (s *RefillSession) InitialProductStock() Stock {
	return s.initialProductStock.Clone()
}

// StartedBy reports whether op opened this session. Only the starter (or an
// admin) may finish it.
func (s *RefillSession) StartedBy(operatorID uuid.UUID) bool {
	return s.operatorID == operatorID
}

// IsStale reports whether the session has outlived the operational timeout
// and should be treated as abandoned.
func (s *RefillSession) IsStale(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.startedAt) > timeout
}
