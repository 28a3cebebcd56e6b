package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/weather-etl/internal/repository"
	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	"github.com/tigerroll/weather-etl/pkg/batch/test"
)

func newSubscriberStore(t *testing.T) *repository.SubscriberStore {
	t.Helper()
	cfg := config.NewConfig()
	resolver := test.NewSQLiteResolver(t, cfg, cfg.ETL.Notification.RegistryDBRef)
	return repository.NewSubscriberStore(cfg, resolver)
}

func TestSubscriberStoreBeforeSchemaIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := newSubscriberStore(t)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	offset, err := store.Offset(ctx, "123")
	require.NoError(t, err)
	assert.Zero(t, offset)
}

func TestSubscriberStoreAddIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newSubscriberStore(t)
	require.NoError(t, store.EnsureSchema(ctx))
	require.NoError(t, store.EnsureSchema(ctx))

	for _, id := range []int64{42, -1001234567890, 7, 42} {
		require.NoError(t, store.Add(ctx, id))
	}

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{-1001234567890, 7, 42}, ids)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestSubscriberStoreOffsets(t *testing.T) {
	ctx := context.Background()
	store := newSubscriberStore(t)
	require.NoError(t, store.EnsureSchema(ctx))

	require.NoError(t, store.SaveOffset(ctx, "123", 10))
	require.NoError(t, store.SaveOffset(ctx, "123", 15))
	require.NoError(t, store.SaveOffset(ctx, "456", 3))

	got, err := store.Offset(ctx, "123")
	require.NoError(t, err)
	assert.Equal(t, 15, got)

	got, err = store.Offset(ctx, "456")
	require.NoError(t, err)
	assert.Equal(t, 3, got)
}
