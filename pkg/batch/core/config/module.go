package config

import (
	"time"

	"go.uber.org/fx"
)

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.ETL.System.Logging
}

// NewPipelineConfigProvider extracts the orchestration section.
func NewPipelineConfigProvider(cfg *Config) *PipelineConfig {
	return &cfg.ETL.Pipeline
}

// NewWeatherConfigProvider extracts the forecast API section.
func NewWeatherConfigProvider(cfg *Config) *WeatherConfig {
	return &cfg.ETL.Weather
}

// NewArchiveConfigProvider extracts the archive section.
func NewArchiveConfigProvider(cfg *Config) *ArchiveConfig {
	return &cfg.ETL.Archive
}

// NewWarehouseConfigProvider extracts the analytical store section.
func NewWarehouseConfigProvider(cfg *Config) *WarehouseConfig {
	return &cfg.ETL.Warehouse
}

// NewNotificationConfigProvider extracts the Bot API section.
func NewNotificationConfigProvider(cfg *Config) *NotificationConfig {
	return &cfg.ETL.Notification
}

// NewScheduleConfigProvider extracts the trigger section.
func NewScheduleConfigProvider(cfg *Config) *ScheduleConfig {
	return &cfg.ETL.Schedule
}

// NewHistoryConfigProvider extracts the run history section.
func NewHistoryConfigProvider(cfg *Config) *HistoryConfig {
	return &cfg.ETL.History
}

// NewServerConfigProvider extracts the HTTP server section.
func NewServerConfigProvider(cfg *Config) *ServerConfig {
	return &cfg.ETL.Server
}

// NewObservabilityConfigProvider extracts the metrics and tracing section.
func NewObservabilityConfigProvider(cfg *Config) *ObservabilityConfig {
	return &cfg.ETL.Observability
}

// NewLocationProvider resolves the pipeline timezone once.
func NewLocationProvider(cfg *Config) *time.Location {
	return cfg.Location()
}

// Module provides *Config and its sections to Fx. EmbeddedConfig must be supplied by the caller.
var Module = fx.Options(
	fx.Provide(
		fx.Annotate(
			func() *OsEnvironmentExpander { return NewOsEnvironmentExpander() },
			fx.As(new(EnvironmentExpander)),
		),
	),
	fx.Provide(NewConfigProvider),
	fx.Provide(
		NewLoggingConfigProvider,
		NewPipelineConfigProvider,
		NewWeatherConfigProvider,
		NewArchiveConfigProvider,
		NewWarehouseConfigProvider,
		NewNotificationConfigProvider,
		NewScheduleConfigProvider,
		NewHistoryConfigProvider,
		NewServerConfigProvider,
		NewObservabilityConfigProvider,
		NewLocationProvider,
	),
)
