package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// warehouseDDL maps database type to the idempotent statements creating the forecast tables.
// "{db}" is replaced with the connection's database name.
var warehouseDDL = map[string][]string{
	"clickhouse": {
		`CREATE DATABASE IF NOT EXISTS {db}`,
		`CREATE TABLE IF NOT EXISTS {db}.weather_hourly (
    city String,
    date Date,
    hour DateTime,
    temperature Float32,
    precipitation Float32,
    wind_speed Float32,
    wind_direction Int32,
    created_at DateTime DEFAULT now()
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(date)
ORDER BY (city, date, hour)`,
		`CREATE TABLE IF NOT EXISTS {db}.weather_daily (
    city String,
    date Date,
    temp_min Float32,
    temp_max Float32,
    temp_avg Float32,
    precipitation_total Float32,
    wind_max Float32,
    created_at DateTime DEFAULT now()
) ENGINE = MergeTree()
PARTITION BY toYYYYMM(date)
ORDER BY (city, date)`,
	},
	"sqlite": {
		`CREATE TABLE IF NOT EXISTS weather_hourly (
    city TEXT NOT NULL,
    date DATE NOT NULL,
    hour DATETIME NOT NULL,
    temperature REAL,
    precipitation REAL,
    wind_speed REAL,
    wind_direction INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_hourly_city_date ON weather_hourly (city, date, hour)`,
		`CREATE TABLE IF NOT EXISTS weather_daily (
    city TEXT NOT NULL,
    date DATE NOT NULL,
    temp_min REAL,
    temp_max REAL,
    temp_avg REAL,
    precipitation_total REAL,
    wind_max REAL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_daily_city_date ON weather_daily (city, date)`,
	},
	"postgres": {
		`CREATE TABLE IF NOT EXISTS weather_hourly (
    city VARCHAR(255) NOT NULL,
    date DATE NOT NULL,
    hour TIMESTAMPTZ NOT NULL,
    temperature REAL,
    precipitation REAL,
    wind_speed REAL,
    wind_direction INTEGER,
    created_at TIMESTAMPTZ DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_hourly_city_date ON weather_hourly (city, date, hour)`,
		`CREATE TABLE IF NOT EXISTS weather_daily (
    city VARCHAR(255) NOT NULL,
    date DATE NOT NULL,
    temp_min REAL,
    temp_max REAL,
    temp_avg REAL,
    precipitation_total REAL,
    wind_max REAL,
    created_at TIMESTAMPTZ DEFAULT now()
)`,
		`CREATE INDEX IF NOT EXISTS idx_weather_daily_city_date ON weather_daily (city, date)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS weather_hourly (
    city VARCHAR(255) NOT NULL,
    date DATE NOT NULL,
    hour DATETIME NOT NULL,
    temperature FLOAT,
    precipitation FLOAT,
    wind_speed FLOAT,
    wind_direction INT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_weather_hourly_city_date (city, date, hour)
)`,
		`CREATE TABLE IF NOT EXISTS weather_daily (
    city VARCHAR(255) NOT NULL,
    date DATE NOT NULL,
    temp_min FLOAT,
    temp_max FLOAT,
    temp_avg FLOAT,
    precipitation_total FLOAT,
    wind_max FLOAT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_weather_daily_city_date (city, date)
)`,
	},
}

// SchemaBootstrapper creates the forecast tables on the warehouse connection.
type SchemaBootstrapper struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// NewSchemaBootstrapper creates a SchemaBootstrapper for the warehouse connection.
func NewSchemaBootstrapper(cfg *config.Config, dbResolver database.DBConnectionResolver) *SchemaBootstrapper {
	return &SchemaBootstrapper{dbResolver: dbResolver, dbName: cfg.ETL.Warehouse.DBRef}
}

// Bootstrap runs the DDL for the connection's dialect. Running it twice is harmless.
func (b *SchemaBootstrapper) Bootstrap(ctx context.Context) error {
	conn, err := b.dbResolver.ResolveDBConnection(ctx, b.dbName)
	if err != nil {
		return exception.NewTerminalError(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", b.dbName), err)
	}
	statements, ok := warehouseDDL[conn.Type()]
	if !ok {
		return exception.NewBatchErrorf(moduleName, "no warehouse DDL for database type '%s'", conn.Type())
	}
	dbName := conn.Config().Database
	if dbName == "" {
		dbName = "weather"
	}
	for _, stmt := range statements {
		if _, err := conn.ExecuteRaw(ctx, strings.ReplaceAll(stmt, "{db}", dbName)); err != nil {
			return exception.NewTerminalError(moduleName, "failed to bootstrap warehouse schema", err)
		}
	}
	logger.Infof("Warehouse schema ready on '%s' (%s).", b.dbName, conn.Type())
	return nil
}
