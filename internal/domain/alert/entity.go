package alert

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidType     = errors.New("invalid alert type")
	ErrAlreadyResolved = errors.New("alert already resolved")
)

// DedupWindow suppresses repeat alerts of the same kind for the same machine.
const DedupWindow = 30 * time.Minute

type Type string

const (
	TypeLowStock   Type = "LOW_STOCK"
	TypeOutOfStock Type = "OUT_OF_STOCK"
	TypeError      Type = "ERROR"
	TypeDrift      Type = "DRIFT"
)

func NewType(s string) (Type, error) {
	switch Type(strings.ToUpper(s)) {
	case TypeLowStock, TypeOutOfStock, TypeError, TypeDrift:
		return Type(strings.ToUpper(s)), nil
	default:
		return "", ErrInvalidType
	}
}

func (t Type) String() string {
	return string(t)
}

// Alert is an operator-facing signal attached to a machine. Alerts are
// append-only except for resolution.
type Alert struct {
	id         uuid.UUID
	machineID  uuid.UUID
	alertType  Type
	message    string
	createdAt  time.Time
	resolvedAt *time.Time
	resolvedBy *uuid.UUID
}

func NewAlert(machineID uuid.UUID, alertType Type, message string, createdAt time.Time) *Alert {
	return &Alert{
		id:        uuid.New(),
		machineID: machineID,
		alertType: alertType,
		message:   message,
		createdAt: createdAt,
	}
}

func ReconstructAlert(id, machineID uuid.UUID, alertType Type, message string, createdAt time.Time, resolvedAt *time.Time, resolvedBy *uuid.UUID) *Alert {
	return &Alert{
		id:         id,
		machineID:  machineID,
		alertType:  alertType,
		message:    message,
		createdAt:  createdAt,
		resolvedAt: resolvedAt,
		resolvedBy: resolvedBy,
	}
}

func (a *Alert) ID() uuid.UUID          { return a.id }
func (a *Alert) MachineID() uuid.UUID   { return a.machineID }
func (a *Alert) Type() Type             { return a.alertType }
func (a *Alert) Message() string        { return a.message }
func (a *Alert) CreatedAt() time.Time   { return a.createdAt }
func (a *Alert) ResolvedAt() *time.Time { return a.resolvedAt }
func (a *Alert) ResolvedBy() *uuid.UUID { return a.resolvedBy }

func (a *Alert) IsResolved() bool {
	return a.resolvedAt != nil
}

// SuppressesDuplicateAt reports whether a new alert of the same kind at `now`
// falls inside this alert's dedup window.
func (a *Alert) SuppressesDuplicateAt(now time.Time) bool {
	return !a.IsResolved() && now.Sub(a.createdAt) < DedupWindow
}

// Resolve closes the alert. Double resolution fails; a note, when given, is
// appended to the message for the audit trail.
func (a *Alert) Resolve(resolverID uuid.UUID, note string, now time.Time) error {
	if a.IsResolved() {
		return ErrAlreadyResolved
	}
	a.resolvedAt = &now
	a.resolvedBy = &resolverID
	if note != "" {
		a.message = a.message + " | resolved: " + note
	}
	return nil
}
