package components

import (
	"coursereg/internal/handler"
	"coursereg/internal/handler/api"
	"coursereg/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewRegistrationHandler,
		api.NewCohortHandler,
		api.NewWebhookHandler,
		middleware.NewAuthMiddleware,
	),
	fx.Invoke(handler.NewRouter),
)
