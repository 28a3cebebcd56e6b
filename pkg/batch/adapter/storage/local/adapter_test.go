package local_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage/local"
	coreConfig "github.com/tigerroll/weather-etl/pkg/batch/core/config"
)

func newConfig(baseDir string) *coreConfig.Config {
	cfg := coreConfig.NewConfig()
	cfg.ETL.AdapterConfigs = map[string]interface{}{
		"storage": map[string]interface{}{
			"archive": map[string]interface{}{"type": "local", "base_dir": baseDir},
			"remote":  map[string]interface{}{"type": "minio", "endpoint": "localhost:9000"},
		},
	}
	return cfg
}

func TestLocalAdapterRoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "archive")
	require.NoError(t, err)

	require.NoError(t, conn.EnsureBucket(ctx, "weather-raw"))
	require.NoError(t, conn.EnsureBucket(ctx, "weather-raw"), "EnsureBucket must be idempotent")

	body := `{"city":"Samara"}`
	require.NoError(t, conn.Upload(ctx, "weather-raw", "Samara_20240101_120000.json", strings.NewReader(body), "application/json"))

	rc, err := conn.Download(ctx, "weather-raw", "Samara_20240101_120000.json")
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	require.NoError(t, conn.Upload(ctx, "weather-raw", "Moscow_20240101_120000.json", strings.NewReader("{}"), "application/json"))

	var names []string
	require.NoError(t, conn.ListObjects(ctx, "weather-raw", "Samara_", func(name string) error {
		names = append(names, name)
		return nil
	}))
	assert.Equal(t, []string{"Samara_20240101_120000.json"}, names)

	require.NoError(t, conn.DeleteObject(ctx, "weather-raw", "Samara_20240101_120000.json"))
	require.NoError(t, conn.DeleteObject(ctx, "weather-raw", "Samara_20240101_120000.json"), "deleting a missing object is not an error")
	_, err = conn.Download(ctx, "weather-raw", "Samara_20240101_120000.json")
	assert.Error(t, err)
}

func TestLocalAdapterRejectsPathEscape(t *testing.T) {
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: t.TempDir()}, "archive")
	require.NoError(t, err)

	err = conn.Upload(context.Background(), "weather-raw", "../../etc/passwd", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "outside of BaseDir")
}

func TestNewLocalAdapterValidation(t *testing.T) {
	_, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local"}, "archive")
	assert.ErrorContains(t, err, "BaseDir must be specified")

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: file}, "archive")
	assert.ErrorContains(t, err, "is not a directory")
}

func TestLocalProviderPoolsConnections(t *testing.T) {
	provider := local.NewLocalProvider(newConfig(t.TempDir()))
	assert.Equal(t, "local", provider.Type())

	first, err := provider.GetConnection("archive")
	require.NoError(t, err)
	second, err := provider.GetConnection("archive")
	require.NoError(t, err)
	assert.Same(t, first, second)

	reconnected, err := provider.ForceReconnect("archive")
	require.NoError(t, err)
	assert.NotSame(t, first, reconnected)

	_, err = provider.GetConnection("remote")
	assert.ErrorContains(t, err, "type mismatch")

	_, err = provider.GetConnection("missing")
	assert.Error(t, err)

	assert.NoError(t, provider.CloseAll())
}

func TestConnectionResolverRoutesByType(t *testing.T) {
	cfg := newConfig(t.TempDir())
	resolver := storageAdapter.NewConnectionResolverFromProviders(cfg, local.NewLocalProvider(cfg))

	conn, err := resolver.ResolveStorageConnection(context.Background(), "archive")
	require.NoError(t, err)
	assert.Equal(t, "archive", conn.Name())
	assert.Equal(t, "local", conn.Type())

	_, err = resolver.ResolveConnection(context.Background(), "remote")
	assert.ErrorContains(t, err, "no storage provider found for type 'minio'")

	assert.NoError(t, resolver.CloseAll())
}
