package gorm_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
)

type weatherRow struct {
	City        string  `gorm:"column:city;primaryKey"`
	Temperature float64 `gorm:"column:temperature"`
}

func (weatherRow) TableName() string { return "weather_rows" }

// setupGormMock opens gorm over sqlmock with the MySQL dialect.
func setupGormMock(t *testing.T) (sqlmock.Sqlmock, *gormadapter.GormDBAdapter) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: "mysql"}, "warehouse")
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = conn.Close()
	})
	return mock, conn
}

func TestExecuteRaw(t *testing.T) {
	mock, conn := setupGormMock(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS weather_rows (city String)")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := conn.ExecuteRaw(context.Background(), "CREATE TABLE IF NOT EXISTS weather_rows (city String)")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpsertBuildsOnDuplicateKey(t *testing.T) {
	mock, conn := setupGormMock(t)

	mock.ExpectExec("INSERT INTO `weather_rows` .* ON DUPLICATE KEY UPDATE `temperature`=VALUES\\(`temperature`\\)").
		WithArgs("Samara", 21.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := conn.ExecuteUpsert(context.Background(), &weatherRow{City: "Samara", Temperature: 21.5}, "weather_rows",
		[]string{"city"}, []string{"temperature"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountUsesTableName(t *testing.T) {
	mock, conn := setupGormMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT count(*) FROM `weather_rows` WHERE `city` = ?")).
		WithArgs("Moscow").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(24))

	n, err := conn.Count(context.Background(), &weatherRow{}, map[string]interface{}{"city": "Moscow"})
	require.NoError(t, err)
	assert.Equal(t, int64(24), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecuteUpdateRejectsUnknownOperation(t *testing.T) {
	_, conn := setupGormMock(t)

	_, err := conn.ExecuteUpdate(context.Background(), &weatherRow{}, "MERGE", "weather_rows", nil)
	assert.ErrorContains(t, err, "unsupported update operation")
}

func TestIsTableNotExistError(t *testing.T) {
	_, conn := setupGormMock(t)

	for _, msg := range []string{
		"no such table: telegram_subscribers",
		"Error 1146 (42S02): Table 'weather.weather_hourly' doesn't exist",
		`ERROR: relation "weather_daily" does not exist (SQLSTATE 42P01)`,
		"code: 60, message: Table default.weather_hourly does not exist (UNKNOWN_TABLE)",
	} {
		assert.True(t, conn.IsTableNotExistError(errors.New(msg)), msg)
	}
	assert.False(t, conn.IsTableNotExistError(errors.New("connection refused")))
	assert.False(t, conn.IsTableNotExistError(nil))
}
