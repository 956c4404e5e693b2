package components

import (
	"context"
	"log/slog"
	"time"

	"vendfleet/internal/pkg/clock"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/usecase/commands"
	"vendfleet/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
	fx.Invoke(StartSessionSweeper),
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func(cfg config.Config) config.MachineConfig { return cfg.Machine },
	func(cfg config.Config) config.DeviceConfig { return cfg.Device },
	func(cfg config.Config) config.PushConfig { return cfg.Push },
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewAuthCommands,
		commands.NewMachineCommands,
		commands.NewRefillCommands,
		commands.NewTelemetryCommands,
		commands.NewSaleCommands,
		commands.NewAlertCommands,
		commands.NewPushCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewMachineQueries,
		queries.NewAlertQueries,
		queries.NewHistoryQueries,
	),
)

// StartSessionSweeper periodically flags refill sessions that outlived the
// timeout. Disabled when the interval is zero.
func StartSessionSweeper(lc fx.Lifecycle, refills commands.RefillCommands, cfg config.MachineConfig) {
	if cfg.SessionSweepInterval <= 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go runSessionSweeper(ctx, refills, cfg.SessionSweepInterval)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
}

func runSessionSweeper(ctx context.Context, refills commands.RefillCommands, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := refills.SweepStaleSessions(ctx)
			if err != nil {
				slog.Error("stale session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("flagged stale refill sessions", "count", n)
			}
		}
	}
}
