package commands

import (
	"context"
	"fmt"
	"time"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/domain/machine"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrMachineNotFound         = errs.New("machine not found")
	ErrSessionNotFound         = errs.New("no active refill session")
	ErrSessionConflict         = errs.New("refill session already active")
	ErrMachineInService        = errs.New("machine already in service")
	ErrMachineErrored          = errs.New("machine is in error state")
	ErrMachineNotOperable      = errs.New("machine is not operable")
	ErrForbidden               = errs.New("operator not allowed for this machine")
	ErrDatabaseOperationFailed = errs.New("database operation failed")
)

type StartRefillResult struct {
	SessionID    uuid.UUID
	MachineID    uuid.UUID
	InitialStock int
}

type RefillSummary struct {
	MachineID     uuid.UUID
	Before        int
	Claimed       int
	ActuallyAdded int
	After         int
	Status        machine.Status
	OverfillAlert bool
}

type RefillCommands interface {
	Start(ctx context.Context, machineID uuid.UUID, actor shared.Actor) (*StartRefillResult, error)
	Finish(ctx context.Context, machineID uuid.UUID, actor shared.Actor, addedClaim int, comment *string) (*RefillSummary, error)
	// ForceRelease reaps an abandoned session: admin-only, records a
	// zero-added refill log so the audit trail shows the recovery.
	ForceRelease(ctx context.Context, machineID uuid.UUID, actor shared.Actor) error
	// SweepStaleSessions flags sessions that outlived the timeout with an
	// alert so an administrator can force-release them. Returns how many
	// new alerts were raised.
	SweepStaleSessions(ctx context.Context) (int, error)
}

type refillCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
	cfg   config.MachineConfig
}

func NewRefillCommands(uow shared.UnitOfWork, clk clock.Clock, cfg config.MachineConfig) RefillCommands {
	return &refillCommandsImpl{uow: uow, clock: clk, cfg: cfg}
}

func (uc *refillCommandsImpl) Start(ctx context.Context, machineID uuid.UUID, actor shared.Actor) (*StartRefillResult, error) {
	var result *StartRefillResult

	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrMachineNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := authorizeMachineAccess(m, actor); err != nil {
			return err
		}

		now := uc.clock.Now()
		if err := m.BeginService(now); err != nil {
			switch err {
			case machine.ErrInService:
				return ErrMachineInService
			case machine.ErrErrored:
				return ErrMachineErrored
			default:
				return errs.Mark(err, ErrMachineNotOperable)
			}
		}

		// First manager to service an orphan machine takes it over.
		if m.AssignedManagerID() == nil && actor.IsManager() {
			m.AssignManager(actor.ID)
		}

		session := machine.NewRefillSession(m, actor.ID, now)
		if err := tx.Sessions().Create(ctx, session); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return ErrSessionConflict
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := tx.Machines().Save(ctx, m); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		result = &StartRefillResult{
			SessionID:    session.ID(),
			MachineID:    m.ID(),
			InitialStock: session.InitialStock(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (uc *refillCommandsImpl) Finish(ctx context.Context, machineID uuid.UUID, actor shared.Actor, addedClaim int, comment *string) (*RefillSummary, error) {
	var summary *RefillSummary

	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		res, err := uc.finishLocked(ctx, tx, machineID, actor, addedClaim, comment, false)
		if err != nil {
			return err
		}
		summary = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (uc *refillCommandsImpl) ForceRelease(ctx context.Context, machineID uuid.UUID, actor shared.Actor) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	comment := "force released by administrator"
	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		_, err := uc.finishLocked(ctx, tx, machineID, actor, 0, &comment, true)
		return err
	})
}

func (uc *refillCommandsImpl) SweepStaleSessions(ctx context.Context) (int, error) {
	flagged := 0
	err := uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		now := uc.clock.Now()
		sessions, err := tx.Sessions().ListStartedBefore(ctx, now.Add(-uc.cfg.SessionTimeout))
		if err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		for _, s := range sessions {
			if !s.IsStale(now, uc.cfg.SessionTimeout) {
				continue
			}
			m, err := tx.Machines().FindByID(ctx, s.MachineID())
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			msg := fmt.Sprintf("refill session on %s abandoned for %s",
				m.Code(), now.Sub(s.StartedAt()).Round(time.Minute))
			_, created, err := ensureAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, s.MachineID(), alert.TypeError, msg)
			if err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
			if created {
				flagged++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

func (uc *refillCommandsImpl) finishLocked(
	ctx context.Context,
	tx shared.Tx,
	machineID uuid.UUID,
	actor shared.Actor,
	addedClaim int,
	comment *string,
	force bool,
) (*RefillSummary, error) {
	m, err := tx.Machines().FindByIDForUpdate(ctx, machineID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrMachineNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	session, err := tx.Sessions().FindByMachineID(ctx, machineID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if m.Status() != machine.StatusInService {
		return nil, ErrSessionNotFound
	}

	// Only the starter finishes a session; admins may finish (or force
	// release) anyone's.
	if !force && !actor.IsAdmin() && !session.StartedBy(actor.ID) {
		return nil, ErrForbidden
	}

	now := uc.clock.Now()
	outcome, err := m.FinishService(session.InitialStock(), addedClaim, now, uc.cfg.LowStockRatio)
	if err != nil {
		return nil, errs.Mark(err, ErrSessionNotFound)
	}

	if err := tx.Sessions().Delete(ctx, session.ID()); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if err := tx.RefillLogs().Create(ctx, shared.RefillLogRecord{
		ID:         uuid.New(),
		MachineID:  m.ID(),
		OperatorID: actor.ID,
		Before:     outcome.Before,
		Added:      outcome.Claimed,
		After:      outcome.After,
		Comment:    comment,
		StartedAt:  session.StartedAt(),
		FinishedAt: now,
	}); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	overfillAlerted := false
	if outcome.Overfill > 0 {
		msg := fmt.Sprintf("refill overfill on %s: claimed %d but only %d fit (capacity %d)",
			m.Code(), outcome.Claimed, outcome.ActuallyAdded, m.Capacity().Int())
		if _, _, err := ensureAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m.ID(), alert.TypeError, msg); err != nil {
			return nil, errs.Mark(err, ErrDatabaseOperationFailed)
		}
		overfillAlerted = true
	}

	if err := raiseStockAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	if err := tx.Machines().Save(ctx, m); err != nil {
		return nil, errs.Mark(err, ErrDatabaseOperationFailed)
	}

	return &RefillSummary{
		MachineID:     m.ID(),
		Before:        outcome.Before,
		Claimed:       outcome.Claimed,
		ActuallyAdded: outcome.ActuallyAdded,
		After:         outcome.After,
		Status:        m.Status(),
		OverfillAlert: overfillAlerted,
	}, nil
}

// raiseStockAlert emits the LOW_STOCK / OUT_OF_STOCK alert matching the
// machine's current stock-derived status, deduplicated.
func raiseStockAlert(ctx context.Context, tx shared.Tx, now time.Time, window time.Duration, m *machine.Machine) error {
	switch m.Status() {
	case machine.StatusOutOfStock:
		msg := fmt.Sprintf("%s is out of stock", m.Code())
		_, _, err := ensureAlert(ctx, tx, now, window, m.ID(), alert.TypeOutOfStock, msg)
		return err
	case machine.StatusLowStock:
		msg := fmt.Sprintf("%s is low on stock: %d of %d", m.Code(), m.Stock(), m.Capacity().Int())
		_, _, err := ensureAlert(ctx, tx, now, window, m.ID(), alert.TypeLowStock, msg)
		return err
	default:
		return nil
	}
}

// authorizeMachineAccess enforces the manager/admin split: admins touch any
// machine, managers only their own or unassigned ones.
func authorizeMachineAccess(m *machine.Machine, actor shared.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.IsManager() {
		if !m.ManagedBy(actor.ID) {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}
