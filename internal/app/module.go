// Package app wires the weather ETL together with Fx.
package app

import (
	"context"
	"strings"

	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/internal/archive"
	"github.com/tigerroll/weather-etl/internal/notify/telegram"
	"github.com/tigerroll/weather-etl/internal/pipeline"
	"github.com/tigerroll/weather-etl/internal/repository"
	"github.com/tigerroll/weather-etl/internal/scheduler"
	"github.com/tigerroll/weather-etl/internal/server"
	"github.com/tigerroll/weather-etl/internal/source/openmeteo"
	"github.com/tigerroll/weather-etl/internal/transform"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/clickhouse"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/postgres"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/minio"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	runRepo "github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/inmemory"
	sqlRepo "github.com/tigerroll/weather-etl/pkg/batch/infrastructure/repository/sql"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Mode selects what the process does after wiring.
type Mode string

const (
	ModeServe     Mode = "serve"
	ModeOnce      Mode = "once"
	ModeBootstrap Mode = "bootstrap"
)

// DefaultDBAdapters is used when DB_ADAPTERS is unset.
const DefaultDBAdapters = "clickhouse,sqlite"

// DBProviderMap selects a database provider module by adapter name.
var DBProviderMap = map[string]fx.Option{
	"clickhouse": clickhouse.Module,
	"postgres":   postgres.Module,
	"redshift":   postgres.Module,
	"mysql":      mysql.Module,
	"sqlite":     sqlite.Module,
}

// dbProviderAliases maps adapter names that share a provider onto one canonical name.
var dbProviderAliases = map[string]string{
	"redshift": "postgres",
}

// DBProviderOptions turns a comma-separated adapter list (e.g. "clickhouse,sqlite") into Fx options.
// Unknown names are logged and skipped; a provider is registered once even if named twice.
func DBProviderOptions(adapters string) []fx.Option {
	if strings.TrimSpace(adapters) == "" {
		adapters = DefaultDBAdapters
	}
	options := make([]fx.Option, 0)
	seen := make(map[string]struct{})
	for _, name := range strings.Split(adapters, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		module, ok := DBProviderMap[name]
		if !ok {
			logger.Warnf("DB Provider '%s' is configured but not recognized/supported. Skipping.", name)
			continue
		}
		canonical := name
		if alias, ok := dbProviderAliases[name]; ok {
			canonical = alias
		}
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		options = append(options, module)
		logger.Debugf("DB Provider '%s' selected and registered.", name)
	}
	return options
}

// StorageModule registers every archive backend; the connection's type picks one at resolve time.
var StorageModule = fx.Options(
	storageAdapter.Module,
	local.Module,
	minio.Module,
	gcs.Module,
)

// NewRunRepository keeps run history in the configured database, or in memory when none is set.
func NewRunRepository(cfg *config.Config, resolver database.DBConnectionResolver) runRepo.RunRepository {
	if ref := cfg.ETL.History.DBRef; ref != "" {
		return sqlRepo.NewSQLRunRepository(resolver, ref)
	}
	logger.Infof("Run history is kept in memory; it is lost on restart.")
	return inmemory.NewInMemoryRunRepository()
}

func newForecastClient(cfg *config.Config) *openmeteo.Client {
	return openmeteo.NewClient(cfg)
}

// newSubscriberSyncer returns the per-run getUpdates sync, unless the long-poll listener owns
// the update stream. Only one consumer may call getUpdates at a time.
func newSubscriberSyncer(cfg *config.Config, mode Mode, store *repository.SubscriberStore) pipeline.SubscriberSyncer {
	if mode == ModeServe && cfg.ETL.Notification.Listen {
		return pipeline.NoOpSyncer{}
	}
	return telegram.NewSubscriberSync(cfg, store)
}

// DomainModule provides the pipeline components and binds them to the orchestrator's ports.
var DomainModule = fx.Options(
	fx.Provide(
		newForecastClient,
		func(c *openmeteo.Client) pipeline.Fetcher { return c },
		archive.NewWriter,
		func(w *archive.Writer) pipeline.Archiver { return w },
		transform.NewHourlyTransformer,
		func(t *transform.HourlyTransformer) pipeline.HourlyTransformer { return t },
		transform.NewDailyTransformer,
		func(t *transform.DailyTransformer) pipeline.DailyTransformer { return t },
		repository.NewWeatherRepository,
		func(r *repository.WeatherRepository) pipeline.Loader { return r },
		repository.NewSchemaBootstrapper,
		repository.NewSubscriberStore,
		func(s *repository.SubscriberStore) telegram.SubscriberRegistry { return s },
		func(s *repository.SubscriberStore) server.SubscriberCounter { return s },
		telegram.NewDispatcher,
		func(d *telegram.Dispatcher) pipeline.Notifier { return d },
		telegram.NewListener,
		newSubscriberSyncer,
		NewRunRepository,
		pipeline.NewCityPipeline,
		pipeline.NewOrchestrator,
		func(o *pipeline.Orchestrator) scheduler.Runner { return o },
		scheduler.New,
		newStatusServer,
	),
)

func newStatusServer(cfg *config.Config, runs runRepo.RunRepository, subs server.SubscriberCounter, endpoint metrics.MetricsEndpoint) *server.Server {
	return server.New(cfg, runs, subs, endpoint.Handler)
}

// schemaParams collects everything that owns a table.
type schemaParams struct {
	fx.In
	Cfg          *config.Config
	Mode         Mode
	Bootstrapper *repository.SchemaBootstrapper
	Subscribers  *repository.SubscriberStore
	Runs         runRepo.RunRepository
}

// ensureSchemas creates the registry tables on every start and the warehouse tables in bootstrap
// mode or when warehouse.bootstrap_on_start is set.
func ensureSchemas(ctx context.Context, p schemaParams) error {
	if p.Mode == ModeBootstrap || p.Cfg.ETL.Warehouse.BootstrapOnStart {
		if err := p.Bootstrapper.Bootstrap(ctx); err != nil {
			return err
		}
	}
	if err := p.Subscribers.EnsureSchema(ctx); err != nil {
		return err
	}
	if sqlRuns, ok := p.Runs.(*sqlRepo.SQLRunRepository); ok {
		return sqlRuns.EnsureSchema(ctx)
	}
	return nil
}
