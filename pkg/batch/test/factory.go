package test

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/database/gorm/sqlite"
	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/local"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
)

// adapterSection returns cfg's adapter.<kind> map, creating it when absent.
func adapterSection(cfg *config.Config, kind string) map[string]interface{} {
	if cfg.ETL.AdapterConfigs == nil {
		cfg.ETL.AdapterConfigs = map[string]interface{}{}
	}
	section, ok := cfg.ETL.AdapterConfigs[kind].(map[string]interface{})
	if !ok {
		section = map[string]interface{}{}
		cfg.ETL.AdapterConfigs[kind] = section
	}
	return section
}

// NewSQLiteResolver points each named database connection at its own SQLite file under
// t.TempDir() and returns a resolver over them. Connections are closed on cleanup.
func NewSQLiteResolver(t testing.TB, cfg *config.Config, names ...string) dbadapter.DBConnectionResolver {
	t.Helper()
	section := adapterSection(cfg, "database")
	dir := t.TempDir()
	for _, name := range names {
		section[name] = map[string]interface{}{"type": sqlite.ProviderType, "database": filepath.Join(dir, name+".db")}
	}
	resolver := gormadapter.NewResolverFromProviders(cfg, sqlite.NewProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })
	return resolver
}

// NewLocalStorageResolver maps the named storage connection to a temp directory.
// It returns the resolver and the directory.
func NewLocalStorageResolver(t testing.TB, cfg *config.Config, name string) (storageAdapter.StorageConnectionResolver, string) {
	t.Helper()
	dir := t.TempDir()
	adapterSection(cfg, "storage")[name] = map[string]interface{}{"type": "local", "base_dir": dir}
	resolver := storageAdapter.NewConnectionResolverFromProviders(cfg, local.NewLocalProvider(cfg))
	t.Cleanup(func() { _ = resolver.CloseAll() })
	return resolver, dir
}

// NewSQLMockConnection opens gorm over sqlmock with the MySQL dialect and wraps it as a
// named DBConnection of type dbType.
func NewSQLMockConnection(t testing.TB, name, dbType string) (dbadapter.DBConnection, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	require.NoError(t, err)

	conn, err := gormadapter.NewGormDBAdapter(gormDB, dbconfig.DatabaseConfig{Type: dbType}, name)
	require.NoError(t, err)
	t.Cleanup(func() {
		mock.ExpectClose()
		_ = conn.Close()
	})
	return conn, mock
}
