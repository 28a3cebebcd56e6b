package listener_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/listener"
)

type ctxKey string

// recordingListener appends "<name>:<hook>" to a shared log and tags the context.
type recordingListener struct {
	port.NoOpListener
	name  string
	log   *[]string
	panic bool
}

func (l *recordingListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	*l.log = append(*l.log, l.name+":BeforeRun")
	if l.panic {
		panic("boom")
	}
	return context.WithValue(ctx, ctxKey(l.name), true)
}

func (l *recordingListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	*l.log = append(*l.log, l.name+":AfterRun")
	if l.panic {
		panic("boom")
	}
}

func TestCompositeListenerOrdering(t *testing.T) {
	var log []string
	first := &recordingListener{name: "first", log: &log}
	second := &recordingListener{name: "second", log: &log}
	composite := listener.NewCompositeListener(first, nil, second)

	run := model.NewRunExecution("weather_etl", 1)
	ctx := composite.BeforeRun(context.Background(), run)
	composite.AfterRun(ctx, run)

	assert.Equal(t, []string{"first:BeforeRun", "second:BeforeRun", "second:AfterRun", "first:AfterRun"}, log)
	assert.Equal(t, true, ctx.Value(ctxKey("first")))
	assert.Equal(t, true, ctx.Value(ctxKey("second")))
}

func TestCompositeListenerSurvivesPanics(t *testing.T) {
	var log []string
	broken := &recordingListener{name: "broken", log: &log, panic: true}
	healthy := &recordingListener{name: "healthy", log: &log}
	composite := listener.NewCompositeListener(broken, healthy)

	run := model.NewRunExecution("weather_etl", 1)
	var ctx context.Context
	assert.NotPanics(t, func() {
		ctx = composite.BeforeRun(context.Background(), run)
		composite.AfterRun(ctx, run)
	})
	assert.Equal(t, true, ctx.Value(ctxKey("healthy")))
	assert.Nil(t, ctx.Value(ctxKey("broken")))
	assert.Equal(t, []string{"broken:BeforeRun", "healthy:BeforeRun", "healthy:AfterRun", "broken:AfterRun"}, log)
}
