package components

import (
	"vendfleet/internal/handler/middleware"
	"vendfleet/internal/infra/db"
	"vendfleet/internal/infra/readstore"
	"vendfleet/internal/infra/repository"
	"vendfleet/internal/infra/uow"
	"vendfleet/internal/usecase/queries"
	"vendfleet/internal/usecase/shared"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var PersistenceModule = fx.Module("persistence",
	baseOption,
	readstoreModule,
	repositoryModule,
)

var baseOption = fx.Provide(
	NewDBTX,
)

var readstoreModule = fx.Module("persistence/readstore",
	fx.Provide(
		fx.Annotate(
			readstore.NewMachineReadStore,
			fx.As(new(queries.MachineViewRepo)),
		),
		fx.Annotate(
			readstore.NewAlertReadStore,
			fx.As(new(queries.AlertViewRepo)),
		),
		fx.Annotate(
			readstore.NewHistoryReadStore,
			fx.As(new(queries.HistoryViewRepo)),
		),
		fx.Annotate(
			readstore.NewDeviceKeyResolver,
			fx.As(new(middleware.DeviceResolver)),
		),
	),
)

var repositoryModule = fx.Module("persistence/repository",
	fx.Provide(
		uow.NewPostgresUoW,
		fx.Annotate(
			repository.NewOperatorRepository,
			fx.As(new(shared.OperatorRepository)),
		),
		fx.Annotate(
			repository.NewPushSubscriptionRepository,
			fx.As(new(shared.PushSubscriptionRepository)),
		),
		repository.NewNotificationRepository,
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
