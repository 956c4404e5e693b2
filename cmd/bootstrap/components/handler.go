package components

import (
	"vendfleet/internal/handler"
	"vendfleet/internal/handler/api"
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/pkg/config"
	"vendfleet/internal/usecase/commands"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewAuthHandler,
		api.NewMachineHandler,
		api.NewRefillHandler,
		api.NewDeviceHandler,
		api.NewAlertHandler,
		NewPushHandler,
		middleware.NewAuthMiddleware,
		middleware.NewDeviceKeyMiddleware,
		NewHandlers,
	),
	fx.Invoke(handler.NewRouter),
)

func NewPushHandler(pushCommands commands.PushCommands, cfg config.Config) *api.PushHandler {
	return api.NewPushHandler(pushCommands, cfg.Push.VAPIDPublicKey)
}

func NewHandlers(
	auth *api.AuthHandler,
	machine *api.MachineHandler,
	refill *api.RefillHandler,
	device *api.DeviceHandler,
	alert *api.AlertHandler,
	push *api.PushHandler,
) handler.Handlers {
	return handler.Handlers{
		Auth:    auth,
		Machine: machine,
		Refill:  refill,
		Device:  device,
		Alert:   alert,
		Push:    push,
	}
}
