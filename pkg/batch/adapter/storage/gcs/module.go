package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
)

// Module contributes the GCS provider to the storage_providers group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.ResultTags(storageAdapter.StorageProviderGroup),
	)),
)
