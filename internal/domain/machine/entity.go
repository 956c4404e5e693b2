package machine

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidCode     = errors.New("machine code must match ^[A-Z0-9-]{3,20}$")
	ErrInvalidCapacity = errors.New("machine capacity must be between 1 and 1000")
	ErrNotPaired       = errors.New("machine is not paired")
	ErrAlreadyPaired   = errors.New("machine is already paired")
	ErrOutOfStock      = errors.New("machine is out of stock")
	ErrInService       = errors.New("machine is in service")
	ErrNotInService    = errors.New("machine is not in service")
	ErrErrored         = errors.New("machine is in error state")
	ErrInactive        = errors.New("machine is inactive")
)

var codePattern = regexp.MustCompile(`^[A-Z0-9-]{3,20}$`)

const (
	MinCapacity = 1
	MaxCapacity = 1000
)

// Code is the human-facing machine identifier printed on the cabinet.
type Code string

func NewCode(s string) (Code, error) {
	if !codePattern.MatchString(s) {
		return "", ErrInvalidCode
	}
	return Code(s), nil
}

func (c Code) String() string {
	return string(c)
}

type Capacity int

func NewCapacity(v int) (Capacity, error) {
	if v < MinCapacity || v > MaxCapacity {
		return 0, ErrInvalidCapacity
	}
	return Capacity(v), nil
}

func (c Capacity) Int() int {
	return int(c)
}

// Machine is the aggregate root. The product stock map is owned exclusively
// by this type: every mutation goes through the ledger functions and keeps
// the cached total in sync, so sum(productStock) == stock holds after any
// operation.
type Machine struct {
	id                uuid.UUID
	code              Code
	capacity          Capacity
	productStock      Stock
	stock             int
	status            Status
	assignedManagerID *uuid.UUID
	lastServiceAt     *time.Time
	lastTelemetryAt   *time.Time
	createdAt         time.Time
	updatedAt         time.Time
}

// NewMachine creates an UNPAIRED machine with no stock. Pairing a device is
// what brings it into rotation.
func NewMachine(code Code, capacity Capacity, managerID *uuid.UUID) *Machine {
	return &Machine{
		id:                uuid.New(),
		code:              code,
		capacity:          capacity,
		productStock:      Stock{},
		stock:             0,
		status:            StatusUnpaired,
		assignedManagerID: managerID,
	}
}

// NewSeededMachine creates a machine pre-loaded with total units spread evenly
// across the given products, clamped to capacity. Seeded machines skip the
// pairing step and start on a stock-derived status.
func NewSeededMachine(code Code, capacity Capacity, managerID *uuid.UUID, productIDs []uuid.UUID, total int, lowStockRatio float64) *Machine {
	if total > capacity.Int() {
		total = capacity.Int()
	}
	stock := RedistributeEvenly(total, productIDs)
	m := &Machine{
		id:                uuid.New(),
		code:              code,
		capacity:          capacity,
		productStock:      stock,
		stock:             SumTotal(stock),
		status:            StatusWorking,
		assignedManagerID: managerID,
	}
	m.status = Resolve(m.stock, capacity.Int(), m.status, lowStockRatio)
	return m
}

func ReconstructMachine(
	id uuid.UUID,
	code Code,
	capacity Capacity,
	productStock Stock,
	status Status,
	assignedManagerID *uuid.UUID,
	lastServiceAt, lastTelemetryAt *time.Time,
	createdAt, updatedAt time.Time,
) *Machine {
	return &Machine{
		id:                id,
		code:              code,
		capacity:          capacity,
		productStock:      productStock.Clone(),
		stock:             SumTotal(productStock),
		status:            status,
		assignedManagerID: assignedManagerID,
		lastServiceAt:     lastServiceAt,
		lastTelemetryAt:   lastTelemetryAt,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (m *Machine) ID() uuid.UUID                { return m.id }
func (m *Machine) Code() Code                   { return m.code }
func (m *Machine) Capacity() Capacity           { return m.capacity }
func (m *Machine) Stock() int                   { return m.stock }
func (m *Machine) Status() Status               { return m.status }
func (m *Machine) AssignedManagerID() *uuid.UUID { return m.assignedManagerID }
func (m *Machine) LastServiceAt() *time.Time    { return m.lastServiceAt }
func (m *Machine) LastTelemetryAt() *time.Time  { return m.lastTelemetryAt }
func (m *Machine) CreatedAt() time.Time         { return m.createdAt }
func (m *Machine) UpdatedAt() time.Time         { return m.updatedAt }

// ProductStock returns a copy; callers never get a handle on the owned map.
func (m *Machine) ProductStock() Stock {
	return m.productStock.Clone()
}

func (m *Machine) ProductQuantity(productID uuid.UUID) int {
	return m.productStock[productID]
}

func (m *Machine) StockPercentage() float64 {
	if m.capacity.Int() == 0 {
		return 0
	}
	return float64(m.stock) / float64(m.capacity.Int()) * 100
}

func (m *Machine) IsLowOnStock(lowStockRatio float64) bool {
	if lowStockRatio <= 0 || lowStockRatio > 1 {
		lowStockRatio = DefaultLowStockRatio
	}
	return float64(m.stock) < float64(m.capacity.Int())*lowStockRatio
}

func (m *Machine) setStock(s Stock) {
	m.productStock = s
	m.stock = SumTotal(s)
}

// Recompute refreshes the stock-derived status and reports whether it moved.
func (m *Machine) Recompute(lowStockRatio float64) (from, to Status, changed bool) {
	from = m.status
	to = Resolve(m.stock, m.capacity.Int(), m.status, lowStockRatio)
	m.status = to
	return from, to, from != to
}

// Pair attaches a device to an UNPAIRED machine and brings it to WORKING.
func (m *Machine) Pair() error {
	if m.status != StatusUnpaired {
		return ErrAlreadyPaired
	}
	m.status = StatusWorking
	return nil
}

// SetActive is the administrative INACTIVE toggle. Reactivation lands on
// WORKING and the next recompute settles the real stock-derived status.
func (m *Machine) SetActive(active bool, lowStockRatio float64) error {
	if active {
		if m.status != StatusInactive {
			return ErrInvalidStatus
		}
		m.status = StatusWorking
		m.Recompute(lowStockRatio)
		return nil
	}
	if m.status == StatusUnpaired {
		return ErrNotPaired
	}
	m.status = StatusInactive
	return nil
}

// MarkError forces the status to ERROR. Device error telemetry overrides
// whatever the stock level says.
func (m *Machine) MarkError() {
	m.status = StatusError
}

// BeginService transitions into IN_SERVICE for a refill. The caller has
// already checked session uniqueness; this only guards the status machine.
func (m *Machine) BeginService(now time.Time) error {
	switch m.status {
	case StatusInService:
		return ErrInService
	case StatusError:
		return ErrErrored
	case StatusUnpaired:
		return ErrNotPaired
	case StatusInactive:
		return ErrInactive
	}
	m.status = StatusInService
	m.lastServiceAt = &now
	return nil
}

// RefillOutcome reports what a finished refill actually did to the machine.
type RefillOutcome struct {
	Before        int
	Claimed       int
	ActuallyAdded int
	After         int
	Overfill      int
}

// FinishService applies a refill computed from the session snapshot: the new
// total is the snapshot's stock plus the claim, clamped to capacity and to
// the room left on the current map, and the actually-added units are spread
// evenly over the existing products. The status leaves IN_SERVICE through a
// recompute.
func (m *Machine) FinishService(initialStock, addedClaim int, now time.Time, lowStockRatio float64) (RefillOutcome, error) {
	if m.status != StatusInService {
		return RefillOutcome{}, ErrNotInService
	}

	stockAfter := initialStock + addedClaim
	if stockAfter > m.capacity.Int() {
		stockAfter = m.capacity.Int()
	}
	actuallyAdded := stockAfter - initialStock
	if actuallyAdded < 0 {
		actuallyAdded = 0
	}
	// Telemetry can move stock while the session is open, so the clamp
	// against the snapshot is not enough: never add past what the machine
	// holds room for right now.
	if headroom := m.capacity.Int() - m.stock; actuallyAdded > headroom {
		actuallyAdded = headroom
		if actuallyAdded < 0 {
			actuallyAdded = 0
		}
	}

	if actuallyAdded > 0 {
		m.setStock(DistributeIncrementEvenly(m.productStock, actuallyAdded))
	}
	m.lastServiceAt = &now

	m.status = StatusWorking
	m.Recompute(lowStockRatio)

	return RefillOutcome{
		Before:        initialStock,
		Claimed:       addedClaim,
		ActuallyAdded: actuallyAdded,
		After:         m.stock,
		Overfill:      addedClaim - actuallyAdded,
	}, nil
}

// ReleaseService force-finishes an abandoned session with nothing added.
func (m *Machine) ReleaseService(lowStockRatio float64) error {
	if m.status != StatusInService {
		return ErrNotInService
	}
	m.status = StatusWorking
	m.Recompute(lowStockRatio)
	return nil
}

// ApplySale checks the status preconditions in order and deducts qty of the
// product. First failed precondition wins; the stock map is untouched on any
// error.
func (m *Machine) ApplySale(productID uuid.UUID, qty int, now time.Time, lowStockRatio float64) error {
	switch m.status {
	case StatusUnpaired:
		return ErrNotPaired
	case StatusOutOfStock:
		return ErrOutOfStock
	case StatusInService:
		return ErrInService
	case StatusError:
		return ErrErrored
	case StatusInactive:
		return ErrInactive
	}

	reduced, err := ReduceFromProduct(m.productStock, productID, qty)
	if err != nil {
		return err
	}
	m.setStock(reduced)
	m.lastTelemetryAt = &now
	m.Recompute(lowStockRatio)
	return nil
}

// DriftThreshold is the tolerated gap between the recorded total and a
// device-reported total before a DRIFT alert fires.
func (m *Machine) DriftThreshold() int {
	pct := int(math.Ceil(float64(m.capacity.Int()) * 0.05))
	if pct < 5 {
		return 5
	}
	return pct
}

// ApplyReportedTotal reconciles a device-reported total into the ledger:
// proportionally when the machine has stock, evenly across known products
// when it does not, and zeroing everything when the device reports empty.
// A total above capacity is clamped to it; drift alerting carries the
// disagreement. Returns whether the stock map changed.
func (m *Machine) ApplyReportedTotal(reported int, now time.Time, lowStockRatio float64) bool {
	m.lastTelemetryAt = &now
	if reported < 0 {
		return false
	}
	if c := m.capacity.Int(); reported > c {
		reported = c
	}

	var next Stock
	switch {
	case reported == 0:
		next = make(Stock, len(m.productStock))
		for id := range m.productStock {
			next[id] = 0
		}
	case m.stock > 0:
		next = RedistributeProportionally(m.productStock, float64(reported)/float64(m.stock))
	default:
		next = RedistributeEvenly(reported, SortedProductIDs(m.productStock))
	}

	changed := !stockEqual(m.productStock, next)
	if changed {
		m.setStock(next)
	}
	m.Recompute(lowStockRatio)
	return changed
}

// TouchTelemetry records device contact without touching stock or status.
func (m *Machine) TouchTelemetry(now time.Time) {
	m.lastTelemetryAt = &now
}

// StockDrift is |recorded - reported|.
func (m *Machine) StockDrift(reported int) int {
	d := m.stock - reported
	if d < 0 {
		d = -d
	}
	return d
}

func (m *Machine) AssignManager(managerID uuid.UUID) {
	m.assignedManagerID = &managerID
}

// ManagedBy reports whether the manager may operate this machine: their own
// machines and unassigned ones.
func (m *Machine) ManagedBy(managerID uuid.UUID) bool {
	return m.assignedManagerID == nil || *m.assignedManagerID == managerID
}

func stockEqual(a, b Stock) bool {
	if len(a) != len(b) {
		return false
	}
	for id, qty := range a {
		if b[id] != qty {
			return false
		}
	}
	return true
}

func (m *Machine) String() string {
	return fmt.Sprintf("machine %s (%s, %d/%d)", m.code, m.status, m.stock, m.capacity.Int())
}
