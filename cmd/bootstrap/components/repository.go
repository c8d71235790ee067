package components

import (
	"coursereg/internal/infra/collab"
	"coursereg/internal/infra/db"
	"coursereg/internal/infra/readstore"
	repo_impl "coursereg/internal/infra/repository"
	"coursereg/internal/infra/uow"
	"coursereg/internal/usecase/commands"
	"coursereg/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		NewDBTX,
		uow.NewPostgresRunner,
		fx.Annotate(
			repo_impl.NewCohortRepository,
			fx.As(new(commands.CatalogReader)),
			fx.As(new(commands.CapacityLedger)),
		),
		fx.Annotate(
			repo_impl.NewRegistrationRepository,
			fx.As(new(commands.RegistrationRepository)),
		),
		fx.Annotate(
			repo_impl.NewPaymentRepository,
			fx.As(new(commands.PaymentRepository)),
		),
		fx.Annotate(
			repo_impl.NewPromoRepository,
			fx.As(new(commands.PromoRepository)),
		),
		fx.Annotate(
			repo_impl.NewWaitlistRepository,
			fx.As(new(commands.WaitlistRepository)),
		),
		fx.Annotate(
			repo_impl.NewGatewayEventRepository,
			fx.As(new(commands.GatewayEventRepository)),
		),
		fx.Annotate(
			repo_impl.NewJobRepository,
			fx.As(new(commands.JobQueue)),
		),
		fx.Annotate(
			repo_impl.NewAuditRepository,
			fx.As(new(commands.Auditor)),
		),
		fx.Annotate(
			repo_impl.NewAnomalyRepository,
			fx.As(new(commands.AnomalyRecorder)),
		),
		// External collaborators behind narrow interfaces
		fx.Annotate(
			collab.NewLogNotifier,
			fx.As(new(commands.Notifier)),
		),
		fx.Annotate(
			collab.NewLogCertificateIssuer,
			fx.As(new(commands.CertificateIssuer)),
		),
		// Read-side repositories for queries
		fx.Annotate(
			readstore.NewRegistrationReadStore,
			fx.As(new(queries.RegistrationViewRepo)),
		),
		fx.Annotate(
			readstore.NewCohortReadStore,
			fx.As(new(queries.CohortViewRepo)),
		),
	),
)

func NewDBTX(pool *pgxpool.Pool) db.DBTX {
	return pool
}
