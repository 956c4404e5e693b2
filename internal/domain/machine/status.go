package machine

import (
	"errors"
	"strings"
)

var ErrInvalidStatus = errors.New("invalid machine status")

type Status string

const (
	StatusWorking    Status = "WORKING"
	StatusLowStock   Status = "LOW_STOCK"
	StatusOutOfStock Status = "OUT_OF_STOCK"
	StatusInService  Status = "IN_SERVICE"
	StatusError      Status = "ERROR"
	StatusInactive   Status = "INACTIVE"
	StatusUnpaired   Status = "UNPAIRED"
)

// DefaultLowStockRatio is the fraction of capacity under which a machine
// counts as low on stock.
const DefaultLowStockRatio = 0.5

func NewStatus(s string) (Status, error) {
	switch Status(strings.ToUpper(s)) {
	case StatusWorking, StatusLowStock, StatusOutOfStock, StatusInService,
		StatusError, StatusInactive, StatusUnpaired:
		return Status(strings.ToUpper(s)), nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s Status) String() string {
	return string(s)
}

// IsSticky reports whether automatic recomputation must leave the status
// alone. Only an explicit administrative or pairing action moves a machine
// out of these states.
func (s Status) IsSticky() bool {
	return s == StatusInactive || s == StatusUnpaired
}

// AllowsSale gates point-of-sale deductions.
func (s Status) AllowsSale() bool {
	switch s {
	case StatusUnpaired, StatusOutOfStock, StatusInService, StatusError, StatusInactive:
		return false
	default:
		return true
	}
}

// Resolve derives the stock-driven status. Sticky states pass through
// untouched, and the recovery transition back to WORKING only fires from
// LOW_STOCK or OUT_OF_STOCK so an ERROR or IN_SERVICE machine is never
// silently cleared by a stock change alone.
func Resolve(totalStock, capacity int, current Status, lowStockRatio float64) Status {
	if current.IsSticky() {
		return current
	}
	if lowStockRatio <= 0 || lowStockRatio > 1 {
		lowStockRatio = DefaultLowStockRatio
	}

	switch {
	case totalStock == 0:
		return StatusOutOfStock
	case float64(totalStock) < float64(capacity)*lowStockRatio:
		return StatusLowStock
	case current == StatusLowStock || current == StatusOutOfStock:
		return StatusWorking
	default:
		return current
	}
}
