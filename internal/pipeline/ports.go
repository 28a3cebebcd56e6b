// Package pipeline runs the per-city ETL state machine and the run that drives it over every configured city.
package pipeline

import (
	"context"
	"time"

	"github.com/tigerroll/weather-etl/internal/domain/model"
)

// Fetcher retrieves the raw forecast for a city and reports how many attempts it took.
type Fetcher interface {
	FetchWithAttempts(ctx context.Context, city model.City) (*model.RawForecastPayload, int, error)
}

// Archiver persists the raw payload and returns its object key.
type Archiver interface {
	Archive(ctx context.Context, payload *model.RawForecastPayload) (string, error)
}

// HourlyTransformer turns a payload into tomorrow's hourly records.
type HourlyTransformer interface {
	Transform(payload *model.RawForecastPayload, runTime time.Time) ([]model.HourlyRecord, error)
}

// DailyTransformer turns a payload into tomorrow's summary.
type DailyTransformer interface {
	Transform(payload *model.RawForecastPayload, runTime time.Time) (*model.DailySummary, error)
}

// Loader writes transformed rows to the analytical store.
type Loader interface {
	SaveHourly(ctx context.Context, records []model.HourlyRecord) (int, error)
	SaveDaily(ctx context.Context, summary *model.DailySummary) error
}

// Notifier broadcasts a summary to every subscriber.
type Notifier interface {
	Broadcast(ctx context.Context, summary *model.DailySummary) (model.BroadcastTally, error)
}

// SubscriberSyncer refreshes the subscriber registry before a run.
type SubscriberSyncer interface {
	Sync(ctx context.Context) (int, error)
}

// NoOpSyncer is used when subscribers are registered by the long-poll listener instead.
type NoOpSyncer struct{}

func (NoOpSyncer) Sync(context.Context) (int, error) { return 0, nil }
