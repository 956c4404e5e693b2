package commands

import (
	"context"
	"crypto/rand"
	"encoding/hex"

	"vendfleet/internal/domain/machine"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrDuplicateMachineCode = errs.New("machine code already in use")
	ErrInvalidMachine       = errs.New("invalid machine parameters")
	ErrMachineNotUnpaired   = errs.New("machine already paired")
)

type CreateMachineRequest struct {
	Code       string
	Capacity   int
	ManagerID  *uuid.UUID
	ProductIDs []uuid.UUID
	SeedStock  int
}

type CreateMachineResult struct {
	MachineID uuid.UUID
	Status    machine.Status
	Stock     int
}

type PairDeviceResult struct {
	MachineID uuid.UUID
	APIKey    string
}

type MachineCommands interface {
	Create(ctx context.Context, req CreateMachineRequest, actor shared.Actor) (*CreateMachineResult, error)
	// PairDevice attaches a device to an UNPAIRED machine and hands back the
	// generated API key exactly once.
	PairDevice(ctx context.Context, machineID uuid.UUID, actor shared.Actor) (*PairDeviceResult, error)
	SetActive(ctx context.Context, machineID uuid.UUID, active bool, actor shared.Actor) error
	AssignManager(ctx context.Context, machineID, managerID uuid.UUID, actor shared.Actor) error
	Delete(ctx context.Context, machineID uuid.UUID, actor shared.Actor) error
}

type machineCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
	cfg   config.MachineConfig
}

func NewMachineCommands(uow shared.UnitOfWork, clk clock.Clock, cfg config.MachineConfig) MachineCommands {
	return &machineCommandsImpl{uow: uow, clock: clk, cfg: cfg}
}

func (uc *machineCommandsImpl) Create(ctx context.Context, req CreateMachineRequest, actor shared.Actor) (*CreateMachineResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	code, err := machine.NewCode(req.Code)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidMachine)
	}
	capacity, err := machine.NewCapacity(req.Capacity)
	if err != nil {
		return nil, errs.Mark(err, ErrInvalidMachine)
	}

	var m *machine.Machine
	if req.SeedStock > 0 && len(req.ProductIDs) > 0 {
		m = machine.NewSeededMachine(code, capacity, req.ManagerID, req.ProductIDs, req.SeedStock, uc.cfg.LowStockRatio)
	} else {
		m = machine.NewMachine(code, capacity, req.ManagerID)
	}

	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Machines().Create(ctx, m); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrDuplicateMachineCode
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateMachineResult{MachineID: m.ID(), Status: m.Status(), Stock: m.Stock()}, nil
}

func (uc *machineCommandsImpl) PairDevice(ctx context.Context, machineID uuid.UUID, actor shared.Actor) (*PairDeviceResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	apiKey, err := generateAPIKey()
	if err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	err = uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := m.Pair(); err != nil {
			return ErrMachineNotUnpaired
		}

		if err := tx.Devices().Create(ctx, shared.DeviceRecord{
			ID:        uuid.New(),
			MachineID: m.ID(),
			APIKey:    apiKey,
			PairedAt:  uc.clock.Now(),
		}); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := tx.Machines().Save(ctx, m); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &PairDeviceResult{MachineID: machineID, APIKey: apiKey}, nil
}

func (uc *machineCommandsImpl) SetActive(ctx context.Context, machineID uuid.UUID, active bool, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := m.SetActive(active, uc.cfg.LowStockRatio); err != nil {
			return errs.Mark(err, ErrMachineNotOperable)
		}

		if err := tx.Machines().Save(ctx, m); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func (uc *machineCommandsImpl) AssignManager(ctx context.Context, machineID, managerID uuid.UUID, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		m.AssignManager(managerID)
		if err := tx.Machines().Save(ctx, m); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

// Delete removes the machine and every dependent record in one transaction;
// the cascading foreign keys do the fan-out.
func (uc *machineCommandsImpl) Delete(ctx context.Context, machineID uuid.UUID, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.Machines().Delete(ctx, machineID); err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

func generateAPIKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
