package machine

import (
	"errors"
	"math"
	"sort"

	"github.com/google/uuid"
)

var ErrInsufficientStock = errors.New("insufficient stock for product")

// Stock maps a product id to the quantity currently loaded in a machine.
// Ledger functions never mutate their input; they return fresh maps so a
// failed mutation can be dropped without touching the aggregate.
type Stock map[uuid.UUID]int

func (s Stock) Clone() Stock {
	out := make(Stock, len(s))
	for id, qty := range s {
		out[id] = qty
	}
	return out
}

func SumTotal(s Stock) int {
	total := 0
	for _, qty := range s {
		total += qty
	}
	return total
}

// SortedProductIDs pins remainder allocation to a stable order. Map iteration
// order is not reproducible, so every distribution walks products in ascending
// id order.
func SortedProductIDs(s Stock) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return ids[i].String() < ids[j].String()
	})
	return ids
}

// AddToProduct increments a single product and reports the delta actually
// applied. Total-capacity clamping is the caller's job; this layer only
// refuses non-positive amounts.
func AddToProduct(s Stock, productID uuid.UUID, amount int) (Stock, int) {
	out := s.Clone()
	if amount <= 0 {
		return out, 0
	}
	out[productID] += amount
	return out, amount
}

// ReduceFromProduct decrements exactly amount or fails without side effects.
func ReduceFromProduct(s Stock, productID uuid.UUID, amount int) (Stock, error) {
	if amount <= 0 {
		return nil, ErrInsufficientStock
	}
	current, ok := s[productID]
	if !ok || current < amount {
		return nil, ErrInsufficientStock
	}
	out := s.Clone()
	out[productID] = current - amount
	return out, nil
}

// RedistributeProportionally scales every quantity by ratio, flooring to
// integers. Used when a device reports a new total that must keep each
// product's prior share.
func RedistributeProportionally(s Stock, ratio float64) Stock {
	out := make(Stock, len(s))
	for id, qty := range s {
		out[id] = int(math.Floor(float64(qty) * ratio))
	}
	return out
}

// RedistributeEvenly splits total across the given products with integer
// floor division; the remainder goes one unit at a time to the first products
// in ascending id order.
func RedistributeEvenly(total int, productIDs []uuid.UUID) Stock {
	out := make(Stock, len(productIDs))
	if len(productIDs) == 0 || total < 0 {
		return out
	}

	sorted := make([]uuid.UUID, len(productIDs))
	copy(sorted, productIDs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	base := total / len(sorted)
	remainder := total % len(sorted)
	for i, id := range sorted {
		qty := base
		if i < remainder {
			qty++
		}
		out[id] = qty
	}
	return out
}

// DistributeIncrementEvenly adds `added` units on top of the existing
// quantities, split evenly with the same remainder rule as RedistributeEvenly.
func DistributeIncrementEvenly(s Stock, added int) Stock {
	out := s.Clone()
	if added <= 0 || len(out) == 0 {
		return out
	}

	ids := SortedProductIDs(s)
	base := added / len(ids)
	remainder := added % len(ids)
	for i, id := range ids {
		inc := base
		if i < remainder {
			inc++
		}
		out[id] += inc
	}
	return out
}
