package mysql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/mysql"
)

func TestConnectionString(t *testing.T) {
	c := dbconfig.DatabaseConfig{Host: "db", Port: 3306, Database: "weather", User: "etl", Password: "pw"}
	assert.Equal(t, "etl:pw@tcp(db:3306)/weather?parseTime=true", mysql.ConnectionString(c))

	c.Params = "charset=utf8mb4"
	assert.Equal(t, "etl:pw@tcp(db:3306)/weather?parseTime=true&charset=utf8mb4", mysql.ConnectionString(c))
}
