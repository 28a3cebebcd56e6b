package metrics

import (
	"context"
	"sync"
	"time"

	config "github.com/tigerroll/weather-etl/pkg/batch/core/config"
	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/metrics"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"

	"go.uber.org/fx"
)

// MetricEvent represents a metric event to be recorded asynchronously.
type MetricEvent struct {
	Type          string
	RunExecution  *model.RunExecution
	CityExecution *model.CityExecution
	StepExecution *model.StepExecution
	Name          string // step name, city or operation name depending on Type
	City          string
	Delivered     int
	Failed        int
	Duration      time.Duration
	Tags          map[string]string
}

// Metric event type constants
const (
	MetricEventTypeRunStart       = "run_start"
	MetricEventTypeRunEnd         = "run_end"
	MetricEventTypeCityEnd        = "city_end"
	MetricEventTypeStepEnd        = "step_end"
	MetricEventTypeRetry          = "retry"
	MetricEventTypeNotification   = "notification"
	MetricEventTypeRecordDuration = "record_duration"
)

// AsyncMetricRecorder asynchronously records metrics by pushing events to a channel
// and processing them in a separate goroutine.
type AsyncMetricRecorder struct {
	eventQueue   chan MetricEvent
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	syncRecorder metrics.MetricRecorder
}

// NewAsyncMetricRecorder creates a new asynchronous metric recorder.
// bufferSize: The buffer size for the event queue. If 0 or less, a default value is used.
func NewAsyncMetricRecorder(bufferSize int, syncRec metrics.MetricRecorder) *AsyncMetricRecorder {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	r := &AsyncMetricRecorder{
		eventQueue:   make(chan MetricEvent, bufferSize),
		stopCh:       make(chan struct{}),
		syncRecorder: syncRec,
	}
	r.wg.Add(1)
	go r.run()
	logger.Debugf("AsyncMetricRecorder: Worker goroutine started (buffer size: %d).", bufferSize)
	return r
}

// run reads events from the queue until stopped, then drains what is left.
func (r *AsyncMetricRecorder) run() {
	defer r.wg.Done()
	for {
		select {
		case event := <-r.eventQueue:
			r.processEvent(event)
		case <-r.stopCh:
			remainingEvents := len(r.eventQueue)
			for i := 0; i < remainingEvents; i++ {
				r.processEvent(<-r.eventQueue)
			}
			logger.Debugf("AsyncMetricRecorder: Worker goroutine stopped. Processed %d remaining events.", remainingEvents)
			return
		}
	}
}

func (r *AsyncMetricRecorder) processEvent(event MetricEvent) {
	// The caller's context may be cancelled by the time the event is processed.
	ctx := context.Background()
	switch event.Type {
	case MetricEventTypeRunStart:
		r.syncRecorder.RecordRunStart(ctx, event.RunExecution)
	case MetricEventTypeRunEnd:
		r.syncRecorder.RecordRunEnd(ctx, event.RunExecution)
	case MetricEventTypeCityEnd:
		r.syncRecorder.RecordCityEnd(ctx, event.CityExecution)
	case MetricEventTypeStepEnd:
		r.syncRecorder.RecordStepEnd(ctx, event.StepExecution)
	case MetricEventTypeRetry:
		r.syncRecorder.RecordRetry(ctx, model.StepName(event.Name), event.City)
	case MetricEventTypeNotification:
		r.syncRecorder.RecordNotification(ctx, event.City, event.Delivered, event.Failed)
	case MetricEventTypeRecordDuration:
		r.syncRecorder.RecordDuration(ctx, event.Name, event.Duration, event.Tags)
	default:
		logger.Warnf("AsyncMetricRecorder: Unknown metric event type: %s", event.Type)
	}
}

// Close gracefully stops the recorder and processes all remaining events in the queue.
func (r *AsyncMetricRecorder) Close() {
	r.stopOnce.Do(func() {
		logger.Debugf("AsyncMetricRecorder: Sending shutdown signal...")
		close(r.stopCh)
	})
	r.wg.Wait()
}

// sendEvent sends an event to the queue, logging a warning if the queue is full.
func (r *AsyncMetricRecorder) sendEvent(event MetricEvent, id string) {
	select {
	case r.eventQueue <- event:
	default:
		logger.Warnf("AsyncMetricRecorder: Event queue is full (type: %s, ID: %s). Event discarded.", event.Type, id)
	}
}

func (r *AsyncMetricRecorder) RecordRunStart(ctx context.Context, run *model.RunExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunStart, RunExecution: run}, run.ID)
}

func (r *AsyncMetricRecorder) RecordRunEnd(ctx context.Context, run *model.RunExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRunEnd, RunExecution: run}, run.ID)
}

func (r *AsyncMetricRecorder) RecordCityEnd(ctx context.Context, city *model.CityExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeCityEnd, CityExecution: city}, city.ID)
}

func (r *AsyncMetricRecorder) RecordStepEnd(ctx context.Context, step *model.StepExecution) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeStepEnd, StepExecution: step}, step.ID)
}

func (r *AsyncMetricRecorder) RecordRetry(ctx context.Context, step model.StepName, city string) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRetry, Name: string(step), City: city}, city)
}

func (r *AsyncMetricRecorder) RecordNotification(ctx context.Context, city string, delivered, failed int) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeNotification, City: city, Delivered: delivered, Failed: failed}, city)
}

func (r *AsyncMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.sendEvent(MetricEvent{Type: MetricEventTypeRecordDuration, Name: name, Duration: duration, Tags: tags}, name)
}

var _ metrics.MetricRecorder = (*AsyncMetricRecorder)(nil)

// NewAsyncMetricRecorderWrapper is used with fx.Decorate.
// It wraps the configured recorder and drains it on shutdown.
func NewAsyncMetricRecorderWrapper(lc fx.Lifecycle, cfg *config.Config, syncRecorder metrics.MetricRecorder) metrics.MetricRecorder {
	asyncRecorder := NewAsyncMetricRecorder(cfg.ETL.Observability.AsyncBufferSize, syncRecorder)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			asyncRecorder.Close()
			return nil
		},
	})
	logger.Debugf("MetricRecorder decorated with asynchronous wrapper.")
	return asyncRecorder
}
