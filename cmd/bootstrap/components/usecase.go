package components

import (
	"coursereg/internal/pkg/clock"
	"coursereg/internal/pkg/config"
	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"

	"go.uber.org/fx"
)

var UseCaseModule = fx.Module("usecase",
	usecaseBaseOption,
	usecaseCommandsModule,
	usecaseQueriesModule,
)

var usecaseBaseOption = fx.Provide(
	clock.NewRealClock,
	func(cfg config.Config) config.RegistrationConfig { return cfg.Registration },
	func(cfg config.Config) config.WorkerConfig { return cfg.Worker },
	func(cfg config.Config) config.GatewayConfig { return cfg.Gateway },
)

var usecaseCommandsModule = fx.Module("usecase/commands",
	fx.Provide(
		commands.NewRegistrationCommands,
		commands.NewReconcileCommands,
		commands.NewPromotionCommands,
		commands.NewSweepCommands,
		commands.NewJobCommands,
	),
)

var usecaseQueriesModule = fx.Module("usecase/queries",
	fx.Provide(
		queries.NewRegistrationQueries,
		queries.NewCohortQueries,
	),
)
