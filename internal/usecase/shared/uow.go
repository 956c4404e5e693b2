package shared

import (
	"context"
	"time"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/domain/machine"
	"vendfleet/internal/domain/operator"
	"vendfleet/internal/infra/db"

	"github.com/google/uuid"
)

// UnitOfWork scopes every machine mutation to one transaction so concurrent
// writers to the same machine cannot interleave partial updates.
type UnitOfWork interface {
	// Within: full read-committed transaction with retry on serialization
	// failures; all stock/status mutations go through here.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithDB: single-query operations using implicit transactions.
	WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error
}

type Tx interface {
	Machines() MachineRepository
	Sessions() RefillSessionRepository
	RefillLogs() RefillLogRepository
	Sales() SaleRepository
	Alerts() AlertRepository
	Devices() DeviceRepository
	Notifications() NotificationRepository
	DB() db.DBTX
}

type MachineRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*machine.Machine, error)
	// FindByIDForUpdate takes the row lock that serializes per-machine
	// mutations across server instances.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*machine.Machine, error)
	FindByCode(ctx context.Context, code string) (*machine.Machine, error)
	Create(ctx context.Context, m *machine.Machine) error
	Save(ctx context.Context, m *machine.Machine) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type RefillSessionRepository interface {
	// Create hits the UNIQUE(machine_id) constraint when a session already
	// exists; callers turn that duplicate-key error into a Conflict.
	Create(ctx context.Context, s *machine.RefillSession) error
	FindByMachineID(ctx context.Context, machineID uuid.UUID) (*machine.RefillSession, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListStartedBefore(ctx context.Context, cutoff time.Time) ([]*machine.RefillSession, error)
}

// RefillLogRecord is one row of the append-only refill history.
type RefillLogRecord struct {
	ID         uuid.UUID
	MachineID  uuid.UUID
	OperatorID uuid.UUID
	Before     int
	Added      int
	After      int
	Comment    *string
	StartedAt  time.Time
	FinishedAt time.Time
}

type RefillLogRepository interface {
	Create(ctx context.Context, rec RefillLogRecord) error
}

// SaleRecord is one row of the append-only sales history.
type SaleRecord struct {
	ID        uuid.UUID
	MachineID uuid.UUID
	ProductID uuid.UUID
	Qty       int
	Price     float64
	Total     float64
	SoldAt    time.Time
}

type SaleRepository interface {
	Create(ctx context.Context, rec SaleRecord) error
}

type AlertRepository interface {
	// FindRecentUnresolved returns the newest unresolved alert of the given
	// kind created after `since`, or a NotFound-kind error.
	FindRecentUnresolved(ctx context.Context, machineID uuid.UUID, alertType alert.Type, since time.Time) (*alert.Alert, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*alert.Alert, error)
	Create(ctx context.Context, a *alert.Alert) error
	Save(ctx context.Context, a *alert.Alert) error
}

// DeviceRecord binds an embedded device's API key to a machine.
type DeviceRecord struct {
	ID        uuid.UUID
	MachineID uuid.UUID
	APIKey    string
	PairedAt  time.Time
}

type DeviceRepository interface {
	Create(ctx context.Context, rec DeviceRecord) error
	FindByAPIKey(ctx context.Context, apiKey string) (*DeviceRecord, error)
	DeleteByMachineID(ctx context.Context, machineID uuid.UUID) error
}

type NotificationRepository interface {
	CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error
}

// PushSubscriptionRecord is one browser/device endpoint an operator
// registered for alert delivery.
type PushSubscriptionRecord struct {
	ID         uuid.UUID
	OperatorID uuid.UUID
	Endpoint   string
	P256dh     string
	Auth       string
}

type PushSubscriptionRepository interface {
	Upsert(ctx context.Context, sub PushSubscriptionRecord) error
	ListAll(ctx context.Context) ([]PushSubscriptionRecord, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

// OperatorRepository is read outside the unit of work: operator rows never
// change inside machine transactions.
type OperatorRepository interface {
	FindByEmail(ctx context.Context, email string) (*operator.Operator, error)
	FindByID(ctx context.Context, id uuid.UUID) (*operator.Operator, error)
	Create(ctx context.Context, o *operator.Operator) error
}
