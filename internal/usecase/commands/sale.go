package commands

import (
	"context"

	"vendfleet/internal/domain/machine"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrMachineNotPaired  = errs.New("machine is not paired")
	ErrMachineOutOfStock = errs.New("machine is out of stock")
	ErrMachineInactive   = errs.New("machine is inactive")
	ErrInsufficientStock = errs.New("insufficient stock for product")
	ErrInvalidSale       = errs.New("invalid sale parameters")
)

type SaleResult struct {
	SaleID    uuid.UUID
	MachineID uuid.UUID
	ProductID uuid.UUID
	Qty       int
	Total     float64
	Stock     int
	Status    machine.Status
}

type SaleCommands interface {
	Record(ctx context.Context, machineID, productID uuid.UUID, qty int, price float64) (*SaleResult, error)
}

type saleCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
	cfg   config.MachineConfig
}

func NewSaleCommands(uow shared.UnitOfWork, clk clock.Clock, cfg config.MachineConfig) SaleCommands {
	return &saleCommandsImpl{uow: uow, clock: clk, cfg: cfg}
}

func (uc *saleCommandsImpl) Record(ctx context.Context, machineID, productID uuid.UUID, qty int, price float64) (*SaleResult, error) {
	if qty <= 0 || price < 0 {
		return nil, ErrInvalidSale
	}

	var result *SaleResult

	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		now := uc.clock.Now()
		prevStatus := m.Status()

		if err := m.ApplySale(productID, qty, now, uc.cfg.LowStockRatio); err != nil {
			switch err {
			case machine.ErrNotPaired:
				return ErrMachineNotPaired
			case machine.ErrOutOfStock:
				return ErrMachineOutOfStock
			case machine.ErrInService:
				return ErrMachineInService
			case machine.ErrErrored:
				return ErrMachineErrored
			case machine.ErrInactive:
				return ErrMachineInactive
			case machine.ErrInsufficientStock:
				return ErrInsufficientStock
			default:
				return errs.Mark(err, ErrMachineNotOperable)
			}
		}

		rec := shared.SaleRecord{
			ID:        uuid.New(),
			MachineID: m.ID(),
			ProductID: productID,
			Qty:       qty,
			Price:     price,
			Total:     price * float64(qty),
			SoldAt:    now,
		}
		if err := tx.Sales().Create(ctx, rec); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		// Alert only on the transition, not on every sale in a low state.
		if m.Status() != prevStatus {
			if err := raiseStockAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		if err := tx.Machines().Save(ctx, m); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		result = &SaleResult{
			SaleID:    rec.ID,
			MachineID: m.ID(),
			ProductID: productID,
			Qty:       qty,
			Total:     rec.Total,
			Stock:     m.Stock(),
			Status:    m.Status(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
