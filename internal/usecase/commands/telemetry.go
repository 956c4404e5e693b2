package commands

import (
	"context"
	"fmt"

	"vendfleet/internal/domain/alert"
	"vendfleet/internal/domain/machine"
	"vendfleet/internal/infra"
	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/pkg/errs"
	"vendfleet/internal/usecase/shared"

	"github.com/google/uuid"
)

// TelemetryInput is what an embedded device reports in one callback. Both
// fields are optional; an empty report still bumps lastTelemetryAt.
type TelemetryInput struct {
	ReportedTotal *int
	ErrorCode     *string
}

type TelemetryResult struct {
	MachineID     uuid.UUID
	Stock         int
	Status        machine.Status
	DriftDetected bool
}

type TelemetryCommands interface {
	Apply(ctx context.Context, machineID uuid.UUID, input TelemetryInput) (*TelemetryResult, error)
}

type telemetryCommandsImpl struct {
	uow   shared.UnitOfWork
	clock clock.Clock
	cfg   config.MachineConfig
}

func NewTelemetryCommands(uow shared.UnitOfWork, clk clock.Clock, cfg config.MachineConfig) TelemetryCommands {
	return &telemetryCommandsImpl{uow: uow, clock: clk, cfg: cfg}
}

func (uc *telemetryCommandsImpl) Apply(ctx context.Context, machineID uuid.UUID, input TelemetryInput) (*TelemetryResult, error) {
	var result *TelemetryResult

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
		stockChanged := false
		driftDetected := false

		if input.ReportedTotal != nil {
			reported := *input.ReportedTotal

			// Drift is informational: alert, then apply the reading anyway.
			if drift := m.StockDrift(reported); drift >= m.DriftThreshold() {
				driftDetected = true
				msg := fmt.Sprintf("stock drift on %s: recorded %d, device reports %d",
					m.Code(), m.Stock(), reported)
				if _, _, err := ensureAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m.ID(), alert.TypeDrift, msg); err != nil {
					return errs.Mark(err, ErrDatabaseOperationFailed)
				}
			}

			stockChanged = m.ApplyReportedTotal(reported, now, uc.cfg.LowStockRatio)
		} else {
			m.TouchTelemetry(now)
		}

		if input.ErrorCode != nil {
			m.MarkError()
			msg := fmt.Sprintf("device error on %s: code %s", m.Code(), *input.ErrorCode)
			if _, _, err := ensureAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m.ID(), alert.TypeError, msg); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		statusChanged := m.Status() != prevStatus
		if statusChanged {
			if err := raiseStockAlert(ctx, tx, now, uc.cfg.AlertDedupWindow, m); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		// Writes are skipped when neither stock nor status moved; the
		// telemetry timestamp alone is not worth a round trip per report.
		if stockChanged || statusChanged {
			if err := tx.Machines().Save(ctx, m); err != nil {
				return errs.Mark(err, ErrDatabaseOperationFailed)
			}
		}

		result = &TelemetryResult{
			MachineID:     m.ID(),
			Stock:         m.Stock(),
			Status:        m.Status(),
			DriftDetected: driftDetected,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
