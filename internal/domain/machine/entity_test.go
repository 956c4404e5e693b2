//go:build unit

package machine_test

import (
	"testing"
	"time"

	"vendfleet/internal/domain/machine"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func mustCode(t *testing.T, s string) machine.Code {
	t.Helper()
	c, err := machine.NewCode(s)
	require.NoError(t, err)
	return c
}

func mustCapacity(t *testing.T, v int) machine.Capacity {
	t.Helper()
	c, err := machine.NewCapacity(v)
	require.NoError(t, err)
	return c
}

func workingMachine(t *testing.T, capacity int, stock machine.Stock) *machine.Machine {
	t.Helper()
	return machine.ReconstructMachine(
		uuid.New(),
		mustCode(t, "VM-001"),
		mustCapacity(t, capacity),
		stock,
		machine.StatusWorking,
		nil,
		nil, nil,
		testNow, testNow,
	)
}

func TestNewCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid code", "VM-001", false},
		{"digits only", "12345", false},
		{"lowercase", "vm-001", true},
		{"too short", "AB", true},
		{"too long", "AAAAAAAAAAAAAAAAAAAAA", true},
		{"invalid characters", "VM_001", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := machine.NewCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, machine.ErrInvalidCode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewCapacity(t *testing.T) {
	_, err := machine.NewCapacity(0)
	assert.ErrorIs(t, err, machine.ErrInvalidCapacity)

	_, err = machine.NewCapacity(1001)
	assert.ErrorIs(t, err, machine.ErrInvalidCapacity)

	c, err := machine.NewCapacity(600)
	require.NoError(t, err)
	assert.Equal(t, 600, c.Int())
}

func TestNewMachine(t *testing.T) {
	m := machine.NewMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil)

	assert.Equal(t, machine.StatusUnpaired, m.Status())
	assert.Equal(t, 0, m.Stock())
	assert.Empty(t, m.ProductStock())
}

func TestNewSeededMachine(t *testing.T) {
	products := []uuid.UUID{uuid.New(), uuid.New()}

	t.Run("seeds stock and derives status", func(t *testing.T) {
		m := machine.NewSeededMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil, products, 80, machine.DefaultLowStockRatio)
		assert.Equal(t, 80, m.Stock())
		assert.Equal(t, machine.StatusWorking, m.Status())
	})

	t.Run("seed above capacity is clamped", func(t *testing.T) {
		m := machine.NewSeededMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil, products, 150, machine.DefaultLowStockRatio)
		assert.Equal(t, 100, m.Stock())
	})

	t.Run("small seed lands on low stock", func(t *testing.T) {
		m := machine.NewSeededMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil, products, 10, machine.DefaultLowStockRatio)
		assert.Equal(t, machine.StatusLowStock, m.Status())
	})
}

func TestPair(t *testing.T) {
	m := machine.NewMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil)

	require.NoError(t, m.Pair())
	assert.Equal(t, machine.StatusWorking, m.Status())

	assert.ErrorIs(t, m.Pair(), machine.ErrAlreadyPaired)
}

func TestSetActive(t *testing.T) {
	t.Run("deactivate and reactivate", func(t *testing.T) {
		a := uuid.New()
		m := workingMachine(t, 100, machine.Stock{a: 80})

		require.NoError(t, m.SetActive(false, machine.DefaultLowStockRatio))
		assert.Equal(t, machine.StatusInactive, m.Status())

		require.NoError(t, m.SetActive(true, machine.DefaultLowStockRatio))
		assert.Equal(t, machine.StatusWorking, m.Status())
	})

	t.Run("reactivation recomputes the stock status", func(t *testing.T) {
		a := uuid.New()
		m := workingMachine(t, 100, machine.Stock{a: 10})
		require.NoError(t, m.SetActive(false, machine.DefaultLowStockRatio))

		require.NoError(t, m.SetActive(true, machine.DefaultLowStockRatio))
		assert.Equal(t, machine.StatusLowStock, m.Status())
	})

	t.Run("activating a non-inactive machine fails", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{uuid.New(): 80})
		assert.ErrorIs(t, m.SetActive(true, machine.DefaultLowStockRatio), machine.ErrInvalidStatus)
	})

	t.Run("unpaired machines cannot be deactivated", func(t *testing.T) {
		m := machine.NewMachine(mustCode(t, "VM-001"), mustCapacity(t, 100), nil)
		assert.ErrorIs(t, m.SetActive(false, machine.DefaultLowStockRatio), machine.ErrNotPaired)
	})
}

func TestBeginService(t *testing.T) {
	t.Run("working machine enters service", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{uuid.New(): 80})
		require.NoError(t, m.BeginService(testNow))
		assert.Equal(t, machine.StatusInService, m.Status())
		require.NotNil(t, m.LastServiceAt())
		assert.Equal(t, testNow, *m.LastServiceAt())
	})

	tests := []struct {
		name    string
		status  machine.Status
		wantErr error
	}{
		{"already in service", machine.StatusInService, machine.ErrInService},
		{"errored", machine.StatusError, machine.ErrErrored},
		{"unpaired", machine.StatusUnpaired, machine.ErrNotPaired},
		{"inactive", machine.StatusInactive, machine.ErrInactive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := machine.ReconstructMachine(
				uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, 100),
				machine.Stock{uuid.New(): 80}, tt.status, nil, nil, nil, testNow, testNow,
			)
			assert.ErrorIs(t, m.BeginService(testNow), tt.wantErr)
		})
	}

	t.Run("out of stock machine can be serviced", func(t *testing.T) {
		m := machine.ReconstructMachine(
			uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, 100),
			machine.Stock{uuid.New(): 0}, machine.StatusOutOfStock, nil, nil, nil, testNow, testNow,
		)
		assert.NoError(t, m.BeginService(testNow))
	})
}

func TestFinishService(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	inService := func(t *testing.T, capacity int, stock machine.Stock) *machine.Machine {
		t.Helper()
		m := machine.ReconstructMachine(
			uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, capacity),
			stock, machine.StatusInService, nil, nil, nil, testNow, testNow,
		)
		return m
	}

	t.Run("full claim applies", func(t *testing.T) {
		m := inService(t, 100, machine.Stock{a: 20, b: 20})

		out, err := m.FinishService(40, 30, testNow, machine.DefaultLowStockRatio)
		require.NoError(t, err)
		assert.Equal(t, 40, out.Before)
		assert.Equal(t, 30, out.Claimed)
		assert.Equal(t, 30, out.ActuallyAdded)
		assert.Equal(t, 70, out.After)
		assert.Equal(t, 0, out.Overfill)
		assert.Equal(t, 70, m.Stock())
		assert.Equal(t, machine.StatusWorking, m.Status())
	})

	t.Run("claim past capacity is clamped", func(t *testing.T) {
		m := inService(t, 360, machine.Stock{a: 170, b: 170})

		out, err := m.FinishService(340, 50, testNow, machine.DefaultLowStockRatio)
		require.NoError(t, err)
		assert.Equal(t, 20, out.ActuallyAdded)
		assert.Equal(t, 360, out.After)
		assert.Equal(t, 30, out.Overfill)
		assert.Equal(t, 360, m.Stock())
	})

	t.Run("stock raised mid-session is still capped at capacity", func(t *testing.T) {
		// Telemetry pushed the machine to 350 after the session snapshot
		// recorded 100; only the remaining room may be added.
		m := inService(t, 360, machine.Stock{a: 175, b: 175})

		out, err := m.FinishService(100, 50, testNow, machine.DefaultLowStockRatio)
		require.NoError(t, err)
		assert.Equal(t, 10, out.ActuallyAdded)
		assert.Equal(t, 360, out.After)
		assert.Equal(t, 40, out.Overfill)
		assert.Equal(t, 360, m.Stock())
	})

	t.Run("zero claim changes nothing but leaves service", func(t *testing.T) {
		m := inService(t, 100, machine.Stock{a: 80})

		out, err := m.FinishService(80, 0, testNow, machine.DefaultLowStockRatio)
		require.NoError(t, err)
		assert.Equal(t, 0, out.ActuallyAdded)
		assert.Equal(t, 80, m.Stock())
		assert.Equal(t, machine.StatusWorking, m.Status())
	})

	t.Run("refill below the ratio stays low stock", func(t *testing.T) {
		m := inService(t, 100, machine.Stock{a: 10})

		_, err := m.FinishService(10, 20, testNow, machine.DefaultLowStockRatio)
		require.NoError(t, err)
		assert.Equal(t, machine.StatusLowStock, m.Status())
	})

	t.Run("fails when not in service", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 80})
		_, err := m.FinishService(80, 10, testNow, machine.DefaultLowStockRatio)
		assert.ErrorIs(t, err, machine.ErrNotInService)
	})
}

func TestReleaseService(t *testing.T) {
	a := uuid.New()
	m := machine.ReconstructMachine(
		uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, 100),
		machine.Stock{a: 80}, machine.StatusInService, nil, nil, nil, testNow, testNow,
	)

	require.NoError(t, m.ReleaseService(machine.DefaultLowStockRatio))
	assert.Equal(t, machine.StatusWorking, m.Status())
	assert.Equal(t, 80, m.Stock())

	assert.ErrorIs(t, m.ReleaseService(machine.DefaultLowStockRatio), machine.ErrNotInService)
}

func TestApplySale(t *testing.T) {
	a := uuid.New()

	t.Run("deducts and recomputes", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 51})

		require.NoError(t, m.ApplySale(a, 2, testNow, machine.DefaultLowStockRatio))
		assert.Equal(t, 49, m.Stock())
		assert.Equal(t, machine.StatusLowStock, m.Status())
		require.NotNil(t, m.LastTelemetryAt())
	})

	t.Run("selling the last unit goes out of stock", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 1})

		require.NoError(t, m.ApplySale(a, 1, testNow, machine.DefaultLowStockRatio))
		assert.Equal(t, machine.StatusOutOfStock, m.Status())
	})

	t.Run("status preconditions are checked in order", func(t *testing.T) {
		tests := []struct {
			name    string
			status  machine.Status
			wantErr error
		}{
			{"unpaired", machine.StatusUnpaired, machine.ErrNotPaired},
			{"out of stock", machine.StatusOutOfStock, machine.ErrOutOfStock},
			{"in service", machine.StatusInService, machine.ErrInService},
			{"errored", machine.StatusError, machine.ErrErrored},
			{"inactive", machine.StatusInactive, machine.ErrInactive},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				m := machine.ReconstructMachine(
					uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, 100),
					machine.Stock{a: 80}, tt.status, nil, nil, nil, testNow, testNow,
				)
				err := m.ApplySale(a, 1, testNow, machine.DefaultLowStockRatio)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 80, m.Stock(), "stock must be untouched on failure")
			})
		}
	})

	t.Run("insufficient product stock", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 80})
		err := m.ApplySale(uuid.New(), 1, testNow, machine.DefaultLowStockRatio)
		assert.ErrorIs(t, err, machine.ErrInsufficientStock)
		assert.Equal(t, 80, m.Stock())
	})
}

func TestDriftThreshold(t *testing.T) {
	tests := []struct {
		capacity int
		want     int
	}{
		{40, 5},
		{100, 5},
		{101, 6},
		{200, 10},
		{1000, 50},
	}
	for _, tt := range tests {
		m := workingMachine(t, tt.capacity, machine.Stock{})
		assert.Equal(t, tt.want, m.DriftThreshold(), "capacity %d", tt.capacity)
	}
}

func TestApplyReportedTotal(t *testing.T) {
	a, b := uuid.New(), uuid.New()

	t.Run("zero report empties every product", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 30, b: 20})

		changed := m.ApplyReportedTotal(0, testNow, machine.DefaultLowStockRatio)
		assert.True(t, changed)
		assert.Equal(t, 0, m.Stock())
		assert.Equal(t, machine.StatusOutOfStock, m.Status())
	})

	t.Run("positive report scales proportionally", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 60, b: 30})

		changed := m.ApplyReportedTotal(45, testNow, machine.DefaultLowStockRatio)
		assert.True(t, changed)
		assert.Equal(t, 30, m.ProductQuantity(a))
		assert.Equal(t, 15, m.ProductQuantity(b))
	})

	t.Run("report into an empty machine splits evenly", func(t *testing.T) {
		m := machine.ReconstructMachine(
			uuid.New(), mustCode(t, "VM-001"), mustCapacity(t, 100),
			machine.Stock{a: 0, b: 0}, machine.StatusOutOfStock, nil, nil, nil, testNow, testNow,
		)

		changed := m.ApplyReportedTotal(9, testNow, machine.DefaultLowStockRatio)
		assert.True(t, changed)
		assert.Equal(t, 9, m.Stock())
		assert.Equal(t, machine.StatusLowStock, m.Status())
	})

	t.Run("report above capacity is clamped to it", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 60, b: 40})

		changed := m.ApplyReportedTotal(500, testNow, machine.DefaultLowStockRatio)
		assert.False(t, changed, "a full machine absorbs nothing from the clamped total")
		assert.Equal(t, 100, m.Stock())
	})

	t.Run("overreport onto a partial machine fills to capacity", func(t *testing.T) {
		m := workingMachine(t, 360, machine.Stock{a: 60, b: 40})

		changed := m.ApplyReportedTotal(500, testNow, machine.DefaultLowStockRatio)
		assert.True(t, changed)
		assert.Equal(t, 360, m.Stock())
		assert.Equal(t, 216, m.ProductQuantity(a))
		assert.Equal(t, 144, m.ProductQuantity(b))
	})

	t.Run("matching report leaves stock alone", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 60})

		changed := m.ApplyReportedTotal(60, testNow, machine.DefaultLowStockRatio)
		assert.False(t, changed)
		assert.Equal(t, 60, m.Stock())
		require.NotNil(t, m.LastTelemetryAt(), "telemetry contact is recorded either way")
	})

	t.Run("negative report is ignored", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{a: 60})

		changed := m.ApplyReportedTotal(-1, testNow, machine.DefaultLowStockRatio)
		assert.False(t, changed)
		assert.Equal(t, 60, m.Stock())
	})
}

func TestStockDrift(t *testing.T) {
	m := workingMachine(t, 100, machine.Stock{uuid.New(): 60})

	assert.Equal(t, 0, m.StockDrift(60))
	assert.Equal(t, 10, m.StockDrift(50))
	assert.Equal(t, 10, m.StockDrift(70))
}

func TestManagedBy(t *testing.T) {
	manager := uuid.New()
	other := uuid.New()

	t.Run("unassigned machine is open to any manager", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{})
		assert.True(t, m.ManagedBy(manager))
	})

	t.Run("assigned machine is restricted to its manager", func(t *testing.T) {
		m := workingMachine(t, 100, machine.Stock{})
		m.AssignManager(manager)
		assert.True(t, m.ManagedBy(manager))
		assert.False(t, m.ManagedBy(other))
	})
}
