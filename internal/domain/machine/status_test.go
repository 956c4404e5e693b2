//go:build unit

package machine_test

import (
	"testing"

	"vendfleet/internal/domain/machine"

	"github.com/stretchr/testify/assert"
)

func TestNewStatus(t *testing.T) {
	t.Run("accepts known statuses case-insensitively", func(t *testing.T) {
		got, err := machine.NewStatus("working")
		assert.NoError(t, err)
		assert.Equal(t, machine.StatusWorking, got)

		got, err = machine.NewStatus("IN_SERVICE")
		assert.NoError(t, err)
		assert.Equal(t, machine.StatusInService, got)
	})

	t.Run("rejects unknown statuses", func(t *testing.T) {
		_, err := machine.NewStatus("broken")
		assert.ErrorIs(t, err, machine.ErrInvalidStatus)
	})
}

func TestStatusAllowsSale(t *testing.T) {
	assert.True(t, machine.StatusWorking.AllowsSale())
	assert.True(t, machine.StatusLowStock.AllowsSale())

	for _, s := range []machine.Status{
		machine.StatusUnpaired,
		machine.StatusOutOfStock,
		machine.StatusInService,
		machine.StatusError,
		machine.StatusInactive,
	} {
		assert.False(t, s.AllowsSale(), "status %s must block sales", s)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		stock    int
		capacity int
		current  machine.Status
		want     machine.Status
	}{
		{"zero stock becomes out of stock", 0, 100, machine.StatusWorking, machine.StatusOutOfStock},
		{"under ratio becomes low stock", 49, 100, machine.StatusWorking, machine.StatusLowStock},
		{"at ratio stays working", 50, 100, machine.StatusWorking, machine.StatusWorking},
		{"low stock recovers to working", 80, 100, machine.StatusLowStock, machine.StatusWorking},
		{"out of stock recovers to working", 80, 100, machine.StatusOutOfStock, machine.StatusWorking},
		{"error is not cleared by a stock change", 80, 100, machine.StatusError, machine.StatusError},
		{"in service is not cleared by a stock change", 80, 100, machine.StatusInService, machine.StatusInService},
		{"error still degrades to out of stock", 0, 100, machine.StatusError, machine.StatusOutOfStock},
		{"inactive is sticky", 0, 100, machine.StatusInactive, machine.StatusInactive},
		{"unpaired is sticky", 80, 100, machine.StatusUnpaired, machine.StatusUnpaired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := machine.Resolve(tt.stock, tt.capacity, tt.current, machine.DefaultLowStockRatio)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("out-of-range ratio falls back to the default", func(t *testing.T) {
		got := machine.Resolve(49, 100, machine.StatusWorking, 0)
		assert.Equal(t, machine.StatusLowStock, got)

		got = machine.Resolve(49, 100, machine.StatusWorking, 1.5)
		assert.Equal(t, machine.StatusLowStock, got)
	})
}
