package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"coursereg/internal/handler/api"
	"coursereg/internal/handler/middleware"
	"coursereg/internal/observability"
	"coursereg/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

func NewRouter(
	engine *gin.Engine,
	cfg config.Config,
	registrationHandler *api.RegistrationHandler,
	cohortHandler *api.CohortHandler,
	webhookHandler *api.WebhookHandler,
	authMiddleware *middleware.AuthMiddleware,
	metrics *observability.Metrics,
) {
	setupMiddleware(engine, cfg)
	setupRoutes(engine, cfg, registrationHandler, cohortHandler, webhookHandler, authMiddleware, metrics)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(middleware.LoggingMiddleware(nil, cfg.Log))
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(
	engine *gin.Engine,
	cfg config.Config,
	registrationHandler *api.RegistrationHandler,
	cohortHandler *api.CohortHandler,
	webhookHandler *api.WebhookHandler,
	authMiddleware *middleware.AuthMiddleware,
	metrics *observability.Metrics,
) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	apiGroup := engine.Group("/api")
	{
		cohorts := apiGroup.Group("/cohorts")
		{
			addRoutes(cohorts, []route{
				{Method: http.MethodGet, Path: "", Handler: cohortHandler.ListCohorts},
				{Method: http.MethodGet, Path: "/:id", Handler: cohortHandler.GetCohort},
			})
		}

		registrations := apiGroup.Group("/registrations")
		registrations.Use(authMiddleware.RequireAuth())
		{
			addRoutes(registrations, []route{
				{Method: http.MethodPost, Path: "", Handler: registrationHandler.CreateRegistration},
				{Method: http.MethodGet, Path: "", Handler: registrationHandler.ListMyRegistrations},
				{Method: http.MethodGet, Path: "/:id", Handler: registrationHandler.GetRegistration},
				{Method: http.MethodDelete, Path: "/:id", Handler: registrationHandler.CancelRegistration},
			})
		}

		waitlist := apiGroup.Group("/waitlist")
		waitlist.Use(authMiddleware.RequireAuth())
		{
			addRoutes(waitlist, []route{
				{Method: http.MethodPost, Path: "", Handler: registrationHandler.JoinWaitlist},
				{Method: http.MethodGet, Path: "/:cohort_id", Handler: registrationHandler.WaitlistStatus},
			})
		}

		webhooks := apiGroup.Group("/webhooks")
		webhooks.Use(middleware.WebhookRateLimit(cfg.Gateway))
		{
			addRoutes(webhooks, []route{
				{Method: http.MethodPost, Path: "/gateway", Handler: webhookHandler.HandleGatewayEvent},
			})
		}
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
