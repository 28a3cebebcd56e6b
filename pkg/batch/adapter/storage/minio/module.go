package minio

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
)

// Module contributes the MinIO provider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewMinioProvider,
		fx.ResultTags(storageAdapter.StorageProviderGroup),
	)),
)
