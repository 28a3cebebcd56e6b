package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/internal/notify/telegram"
	"github.com/tigerroll/weather-etl/internal/pipeline"
	"github.com/tigerroll/weather-etl/internal/scheduler"
	"github.com/tigerroll/weather-etl/internal/server"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	batchlistener "github.com/tigerroll/weather-etl/pkg/batch/listener"
	"github.com/tigerroll/weather-etl/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const (
	startTimeout = 30 * time.Second
	stopTimeout  = 60 * time.Second
)

// Options configures RunApplication.
type Options struct {
	Mode           Mode
	EnvFilePath    string
	EmbeddedConfig config.EmbeddedConfig
	DBProviders    []fx.Option
}

// NewApp builds the Fx application for opts. It does not start it.
func NewApp(opts Options, extra ...fx.Option) *fx.App {
	options := []fx.Option{
		fx.Supply(
			opts.EmbeddedConfig,
			opts.Mode,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,
		fx.Options(opts.DBProviders...),
		gormadapter.Module,
		StorageModule,
		metrics.Module,
		batchlistener.Module,
		DomainModule,
		fx.Invoke(applyLogLevel),
		fx.Invoke(registerLifecycle),
	}
	return fx.New(append(options, extra...)...)
}

// RunApplication runs the process in opts.Mode until it finishes or ctx is cancelled,
// and returns the exit code.
func RunApplication(ctx context.Context, opts Options) int {
	app := NewApp(opts)
	if err := app.Err(); err != nil {
		logger.Errorf("Application wiring failed: %v", err)
		return 1
	}

	startCtx, cancelStart := context.WithTimeout(ctx, startTimeout)
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		logger.Errorf("Application start failed: %v", err)
		return 1
	}

	var code int
	select {
	case sig := <-app.Wait():
		code = sig.ExitCode
	case <-ctx.Done():
		logger.Warnf("Shutdown requested.")
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), stopTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Application stop failed: %v", err)
		if code == 0 {
			code = 1
		}
	}
	return code
}

func applyLogLevel(cfg *config.Config) {
	logger.SetLogLevel(cfg.ETL.System.Logging.Level)
	logger.Debugf("Log level set to: %s", cfg.ETL.System.Logging.Level)
}

// lifecycleParams collects what the mode-specific hooks need.
type lifecycleParams struct {
	fx.In
	Lifecycle    fx.Lifecycle
	Shutdowner   fx.Shutdowner
	Cfg          *config.Config
	Mode         Mode
	Schemas      schemaParams
	Orchestrator *pipeline.Orchestrator
	Scheduler    *scheduler.Scheduler
	Server       *server.Server
	Listener     *telegram.Listener
}

func registerLifecycle(p lifecycleParams) {
	runCtx, cancel := context.WithCancel(context.Background())
	var workers []func()

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := ensureSchemas(ctx, p.Schemas); err != nil {
				return err
			}

			switch p.Mode {
			case ModeBootstrap:
				logger.Infof("Schemas are in place.")
				return p.Shutdowner.Shutdown()
			case ModeOnce:
				go runOnce(runCtx, p.Orchestrator, p.Shutdowner)
			default:
				workers = append(workers, startBackground(runCtx, "scheduler", p.Scheduler.Start))
				if p.Cfg.ETL.Notification.Listen {
					workers = append(workers, startBackground(runCtx, "telegram listener", p.Listener.Run))
				}
				if p.Cfg.ETL.Server.Enabled {
					p.Server.Start()
				}
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application is shutting down.")
			cancel()
			if p.Mode == ModeServe && p.Cfg.ETL.Server.Enabled {
				if err := p.Server.Shutdown(ctx); err != nil {
					logger.Warnf("Status server shutdown: %v", err)
				}
			}
			for _, wait := range workers {
				wait()
			}
			return nil
		},
	})
}

// runOnce executes a single run and shuts the app down with exit code 1 if any city failed.
func runOnce(ctx context.Context, orch *pipeline.Orchestrator, shutdowner fx.Shutdowner) {
	code := 0
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in pipeline run: %v", r)
			code = 1
		}
		if err := shutdowner.Shutdown(fx.ExitCode(code)); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	run, err := orch.Run(ctx)
	if err != nil {
		logger.Errorf("Run finished with failures: %s", exception.ExtractErrorMessage(err))
		code = 1
	}
	if run != nil {
		logger.Infof("Run '%s' finished with status %s in %s.", run.ID, run.Status, run.Duration())
	}
}

// startBackground runs fn until ctx is cancelled and returns a function that waits for it.
func startBackground(ctx context.Context, name string, fn func(context.Context) error) func() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, exception.ErrNotificationDisabled) {
			logger.Errorf("%s stopped: %s", name, exception.ExtractErrorMessage(err))
		}
	}()
	return func() { <-done }
}
