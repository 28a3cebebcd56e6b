package storage

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// Module provides the StorageConnectionResolver. Backends contribute providers through their own modules.
var Module = fx.Options(
	fx.Provide(
		NewConnectionResolver,
		func(r *ConnectionResolver) StorageConnectionResolver { return r },
	),
	fx.Invoke(func(lc fx.Lifecycle, r *ConnectionResolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				logger.Debugf("Closing storage connections.")
				return r.CloseAll()
			},
		})
	}),
)
