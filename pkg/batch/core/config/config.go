package config

import "time"

// Package config provides structures and utilities for managing application configuration.

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LogLevel defines the logging level for the application.
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
	LogLevelFatal LogLevel = "FATAL"
)

// RetryConfig holds configuration for fixed-interval retries.
type RetryConfig struct {
	MaxAttempts                 int      `yaml:"max_attempts" validate:"gte=1"`                   // MaxAttempts is the total number of attempts, including the first.
	InitialInterval             int      `yaml:"initial_interval" validate:"gte=0"`               // InitialInterval is the delay between attempts in milliseconds.
	RetryableExceptions         []string `yaml:"retryable_exceptions"`                            // RetryableExceptions names registered exception types that are always retried.
	CircuitBreakerThreshold     int      `yaml:"circuit_breaker_threshold" validate:"gte=0"`      // CircuitBreakerThreshold is the number of consecutive failures to open the circuit. 0 disables the breaker.
	CircuitBreakerResetInterval int      `yaml:"circuit_breaker_reset_interval" validate:"gte=0"` // CircuitBreakerResetInterval is the time in milliseconds before a half-open probe.
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level" validate:"omitempty,oneof=TRACE DEBUG INFO WARN WARNING ERROR FATAL trace debug info warn warning error fatal"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone decides what "tomorrow" means for every run.
	Timezone string `yaml:"timezone" validate:"required"`
	// Logging is the logging configuration.
	Logging LoggingConfig `yaml:"logging"`
}

// CityConfig is one entry of the static city table.
type CityConfig struct {
	Name      string  `yaml:"name" validate:"required"`
	Latitude  float64 `yaml:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `yaml:"longitude" validate:"gte=-180,lte=180"`
}

// PipelineConfig holds orchestration settings.
type PipelineConfig struct {
	// Name labels runs in logs, metrics and spans.
	Name string `yaml:"name" validate:"required"`
	// Cities is the configured city set, processed in order.
	Cities []CityConfig `yaml:"cities" validate:"required,min=1,dive"`
	// Parallelism bounds concurrent city pipelines. 1 means sequential.
	Parallelism int `yaml:"parallelism" validate:"gte=1"`
	// CityTimeout bounds one city's pipeline. 0 disables the deadline.
	CityTimeout time.Duration `yaml:"city_timeout" validate:"gte=0"`
}

// WeatherConfig holds forecast API settings.
type WeatherConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	HourlyFields []string      `yaml:"hourly_fields" validate:"required,min=1"`
	DailyFields  []string      `yaml:"daily_fields" validate:"required,min=1"`
	ForecastDays int           `yaml:"forecast_days" validate:"gte=2"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	Retry        RetryConfig   `yaml:"retry"`
}

// ArchiveConfig holds raw payload archive settings.
type ArchiveConfig struct {
	// StorageRef names an entry under adapter.storage.
	StorageRef string `yaml:"storage_ref" validate:"required"`
	Bucket     string `yaml:"bucket" validate:"required"`
}

// WarehouseConfig holds analytical store settings.
type WarehouseConfig struct {
	// DBRef names an entry under adapter.database.
	DBRef            string `yaml:"db_ref" validate:"required"`
	BootstrapOnStart bool   `yaml:"bootstrap_on_start"`
}

// NotificationConfig holds Bot API settings. An empty BotToken disables notifications.
type NotificationConfig struct {
	BaseURL  string        `yaml:"base_url" validate:"required,url"`
	BotToken string        `yaml:"bot_token"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
	// RegistryDBRef names the database holding subscribers and run history.
	RegistryDBRef string `yaml:"registry_db_ref" validate:"required"`
	// Listen enables the long-poll listener in serve mode.
	Listen bool `yaml:"listen"`
}

// Enabled reports whether a bot token is configured.
func (n NotificationConfig) Enabled() bool {
	return n.BotToken != ""
}

// HistoryConfig selects where run history is kept. An empty DBRef keeps it in memory.
type HistoryConfig struct {
	DBRef string `yaml:"db_ref"`
}

// ScheduleConfig holds the recurring trigger.
type ScheduleConfig struct {
	Cron       string `yaml:"cron" validate:"required"`
	RunOnStart bool   `yaml:"run_on_start"`
}

// ServerConfig holds the status HTTP server settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address" validate:"required_if=Enabled true"`
}

// OTLPConfig holds collector settings shared by traces and metrics.
type OTLPConfig struct {
	Endpoint string `yaml:"endpoint"`
	Protocol string `yaml:"protocol" validate:"oneof=http grpc"`
	Insecure bool   `yaml:"insecure"`
}

// ObservabilityConfig selects metric and trace backends.
type ObservabilityConfig struct {
	MetricsBackend  string     `yaml:"metrics_backend" validate:"oneof=prometheus otlp"`
	TracingEnabled  bool       `yaml:"tracing_enabled"`
	ServiceName     string     `yaml:"service_name" validate:"required"`
	AsyncBufferSize int        `yaml:"async_buffer_size" validate:"gte=0"`
	OTLP            OTLPConfig `yaml:"otlp"`
}

// ETLConfig holds all configuration under the "etl" top-level key.
type ETLConfig struct {
	System        SystemConfig        `yaml:"system"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Weather       WeatherConfig       `yaml:"weather"`
	Archive       ArchiveConfig       `yaml:"archive"`
	Warehouse     WarehouseConfig     `yaml:"warehouse"`
	Notification  NotificationConfig  `yaml:"notification"`
	Schedule      ScheduleConfig      `yaml:"schedule"`
	History       HistoryConfig       `yaml:"history"`
	Server        ServerConfig        `yaml:"server"`
	Observability ObservabilityConfig `yaml:"observability"`
	// AdapterConfigs holds raw adapter sections keyed by kind ("database", "storage") and then by connection name.
	AdapterConfigs map[string]interface{} `yaml:"adapter"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	ETL ETLConfig `yaml:"etl"`
	// EmbeddedConfig holds configuration loaded from an embedded source, not from YAML.
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// Location resolves the configured timezone. It falls back to UTC for an unknown name;
// validation rejects unknown names before this is reached in normal startup.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ETL.System.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DefaultHourlyFields are the Open-Meteo hourly variables requested per city.
var DefaultHourlyFields = []string{"temperature_2m", "precipitation", "wind_speed_10m", "wind_direction_10m"}

// DefaultDailyFields are the Open-Meteo daily variables requested per city.
var DefaultDailyFields = []string{"temperature_2m_max", "temperature_2m_min", "precipitation_sum"}

// NewConfig returns a new instance of Config with default values.
func NewConfig() *Config {
	cfg := &Config{
		ETL: ETLConfig{
			System: SystemConfig{
				Timezone: "Europe/Moscow",
				Logging:  LoggingConfig{Level: "INFO"},
			},
			Pipeline: PipelineConfig{
				Name: "weather_etl",
				Cities: []CityConfig{
					{Name: "Moscow", Latitude: 55.7558, Longitude: 37.6173},
					{Name: "Samara", Latitude: 53.1959, Longitude: 50.1002},
				},
				Parallelism: 1,
			},
			Weather: WeatherConfig{
				BaseURL:      "https://api.open-meteo.com",
				HourlyFields: append([]string(nil), DefaultHourlyFields...),
				DailyFields:  append([]string(nil), DefaultDailyFields...),
				ForecastDays: 2,
				Timeout:      30 * time.Second,
				Retry: RetryConfig{
					MaxAttempts:     3,
					InitialInterval: 10000,
					RetryableExceptions: []string{
						"net.OpError",
						"context.DeadlineExceeded",
						"UnexpectedStatus",
					},
					CircuitBreakerThreshold:     5,
					CircuitBreakerResetInterval: 60000,
				},
			},
			Archive: ArchiveConfig{
				StorageRef: "archive",
				Bucket:     "weather-raw",
			},
			Warehouse: WarehouseConfig{
				DBRef: "warehouse",
			},
			Notification: NotificationConfig{
				BaseURL:       "https://api.telegram.org",
				Timeout:       10 * time.Second,
				RegistryDBRef: "registry",
			},
			Schedule: ScheduleConfig{
				Cron: "* * * * *",
			},
			History: HistoryConfig{
				DBRef: "registry",
			},
			Server: ServerConfig{
				Enabled: true,
				Address: ":8080",
			},
			Observability: ObservabilityConfig{
				MetricsBackend:  "prometheus",
				ServiceName:     "weather-etl",
				AsyncBufferSize: 100,
				OTLP:            OTLPConfig{Protocol: "http", Insecure: true},
			},
		},
	}

	// Populated by YAML or by mergeConfig.
	cfg.ETL.AdapterConfigs = map[string]interface{}{}
	return cfg
}
