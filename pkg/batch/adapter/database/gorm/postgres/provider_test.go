package postgres_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/postgres"
)

func TestConnectionString(t *testing.T) {
	c := dbconfig.DatabaseConfig{Host: "pg", Port: 5432, Database: "weather", User: "etl", Password: "pw"}
	assert.Equal(t, "host=pg port=5432 user=etl password=pw dbname=weather sslmode=disable", postgres.ConnectionString(c))

	c.Sslmode = "require"
	c.Schema = "etl"
	assert.Equal(t, "host=pg port=5432 user=etl password=pw dbname=weather sslmode=require search_path=etl", postgres.ConnectionString(c))
}
