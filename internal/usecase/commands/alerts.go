package commands

import (
	"context"
	"encoding/json"
	"time"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

var (
	ErrAlertNotFound       = errs.New("alert not found")
	ErrAlertAlreadyResolved = errs.New("alert already resolved")
)

type AlertCommands interface {
	Resolve(ctx context.Context, alertID uuid.UUID, actor shared.Actor, note string) error
}

type alertCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
}

func NewAlertCommands(uow shared.UnitOfWork, clk clock.Clock) AlertCommands {
	return &alertCommandsImpl{uow: uow, clock: clk}
}

func (uc *alertCommandsImpl) Resolve(ctx context.Context, alertID uuid.UUID, actor shared.Actor, note string) error {
	if !actor.IsAdmin() && !actor.IsManager() {
		return ErrForbidden
	}

	return uc.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		a, err := tx.Alerts().FindByIDForUpdate(ctx, alertID)
		if err != nil {
			if infra.IsKind(err, infra.KindNotFound) {
				return ErrAlertNotFound
			}
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}

		if err := a.Resolve(actor.ID, note, uc.clock.Now()); err != nil {
			return errs.Mark(err, ErrAlertAlreadyResolved)
		}

		if err := tx.Alerts().Save(ctx, a); err != nil {
			return errs.Mark(err, ErrDatabaseOperationFailed)
		}
		return nil
	})
}

// ensureAlert is the deduplicating alert factory every mutation path shares:
// an unresolved alert of the same kind inside the window is returned as-is,
// otherwise a new alert row and its delivery job are written in the caller's
// transaction.
func ensureAlert(
	ctx context.Context,
	tx shared.Tx,
	now time.Time,
	window time.Duration,
	machineID uuid.UUID,
	alertType alert.Type,
	message string,
) (*alert.Alert, bool, error) {
	if window <= 0 {
		window = alert.DedupWindow
	}

	existing, err := tx.Alerts().FindRecentUnresolved(ctx, machineID, alertType, now.Add(-window))
	if err == nil {
		return existing, false, nil
	}
	if !infra.IsKind(err, infra.KindNotFound) {
		return nil, false, err
	}

	created := alert.NewAlert(machineID, alertType, message, now)
	if err := tx.Alerts().Create(ctx, created); err != nil {
		return nil, false, err
	}

	payload, err := json.Marshal(map[string]any{
		"alert_id":   created.ID(),
		"machine_id": machineID,
		"type":       alertType.String(),
		"message":    message,
	})
	if err != nil {
		return nil, false, err
	}
	if err := tx.Notifications().CreateJob(ctx, "webpush", "machine_alert", payload, now); err != nil {
		return nil, false, err
	}

	return created, true, nil
}
