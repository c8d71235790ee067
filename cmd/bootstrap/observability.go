package bootstrap

import (
	"coursereg/internal/observability"

	"go.uber.org/fx"
)

var ObservabilityModule = fx.Module("observability",
	fx.Provide(
		observability.NewMetrics,
	),
)
