package bootstrap

import (
	"vendfleet/cmd/bootstrap/components"

	"go.uber.org/fx"
)

var Module = fx.Options(
	ConfigModule,
	DBModule,
	JWTModule,
	CacheModule,
	components.PersistenceModule,
	components.UseCaseModule,
	components.NotificationModule,
	components.HandlerModule,
)
