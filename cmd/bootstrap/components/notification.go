package components

import (
	"context"

	"vendfleet/internal/notification"

	"go.uber.org/fx"
)

var NotificationModule = fx.Module("notification",
	fx.Provide(
		fx.Annotate(
			func() *notification.WebPushSender { return &notification.WebPushSender{} },
			fx.As(new(notification.Sender)),
		),
		notification.NewDispatcher,
	),
	fx.Invoke(StartDispatcher),
)

func StartDispatcher(lc fx.Lifecycle, d *notification.Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			d.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
}
