// Package repository writes forecast rows to the analytical store and keeps the Telegram subscriber registry.
package repository

import (
	"context"
	"fmt"

	"github.com/tigerroll/weather-etl/internal/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const moduleName = "repository"

// WeatherRepository inserts hourly and daily rows, one statement per row and without a transaction.
// A failing row stops the load; rows already written stay.
type WeatherRepository struct {
	dbResolver database.DBConnectionResolver
	dbName     string
}

// NewWeatherRepository creates a WeatherRepository on the warehouse connection.
func NewWeatherRepository(cfg *config.Config, dbResolver database.DBConnectionResolver) *WeatherRepository {
	return &WeatherRepository{dbResolver: dbResolver, dbName: cfg.ETL.Warehouse.DBRef}
}

func (r *WeatherRepository) getDBConnection(ctx context.Context) (database.DBConnection, error) {
	conn, err := r.dbResolver.ResolveDBConnection(ctx, r.dbName)
	if err != nil {
		return nil, exception.NewBatchError(moduleName, fmt.Sprintf("failed to resolve DB connection '%s'", r.dbName), err, false, true)
	}
	return conn, nil
}

// SaveHourly inserts records in order and returns how many were written.
// An empty slice is a no-op that does not touch the database.
func (r *WeatherRepository) SaveHourly(ctx context.Context, records []model.HourlyRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return 0, err
	}

	table := model.HourlyRecord{}.TableName()
	for i := range records {
		if _, err := conn.ExecuteUpdate(ctx, &records[i], "CREATE", table, nil); err != nil {
			return i, exception.NewBatchError(moduleName,
				fmt.Sprintf("failed to insert %s row %d/%d for %s", table, i+1, len(records), records[i].City), err, false, true)
		}
	}
	logger.Infof("Saved %d hourly records for %s.", len(records), records[0].City)
	return len(records), nil
}

// SaveDaily inserts one summary row.
func (r *WeatherRepository) SaveDaily(ctx context.Context, summary *model.DailySummary) error {
	if summary == nil {
		return exception.NewTerminalError(moduleName, "daily summary is nil", nil)
	}
	conn, err := r.getDBConnection(ctx)
	if err != nil {
		return err
	}
	if _, err := conn.ExecuteUpdate(ctx, summary, "CREATE", summary.TableName(), nil); err != nil {
		return exception.NewBatchError(moduleName, fmt.Sprintf("failed to insert %s row for %s", summary.TableName(), summary.City), err, false, true)
	}
	logger.Infof("Saved daily summary for %s on %s.", summary.City, summary.Date.Format("2006-01-02"))
	return nil
}
