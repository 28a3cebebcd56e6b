package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/weather-etl/internal/app"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// embeddedConfig is the default configuration. ${VAR} placeholders are expanded from the
// environment and ETL_* variables override individual keys.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

const usage = `Usage: weather-etl [flags] [serve|once|bootstrap]

Commands:
  serve      run the pipeline on the configured cron schedule (default)
  once       run the pipeline a single time and exit; exit code 1 if any city failed
  bootstrap  create the warehouse and registry tables and exit

Flags:
`

func main() {
	envFile := flag.String("env-file", envOr("ENV_FILE_PATH", ".env"), "path to a .env file")
	dbAdapters := flag.String("db-adapters", envOr("DB_ADAPTERS", app.DefaultDBAdapters), "comma-separated database providers to register")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	mode := app.ModeServe
	if flag.NArg() > 0 {
		mode = app.Mode(flag.Arg(0))
	}
	switch mode {
	case app.ModeServe, app.ModeOnce, app.ModeBootstrap:
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", mode)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting weather-etl in %s mode.", mode)
	code := app.RunApplication(ctx, app.Options{
		Mode:           mode,
		EnvFilePath:    *envFile,
		EmbeddedConfig: config.EmbeddedConfig(embeddedConfig),
		DBProviders:    app.DBProviderOptions(*dbAdapters),
	})
	stop()
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
