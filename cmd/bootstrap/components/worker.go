package components

import (
	"context"

	"coursereg/internal/worker"

	"go.uber.org/fx"
)

var WorkerModule = fx.Module("worker",
	fx.Provide(
		worker.NewManager,
	),
	fx.Invoke(startWorkers),
)

func startWorkers(lc fx.Lifecycle, mgr *worker.Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			mgr.Start(ctx)
			return nil
		},
		OnStop: func(_ context.Context) error {
			mgr.Stop()
			return nil
		},
	})
}
