package listener

import (
	"context"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// CompositeListener fans events out to its listeners in order.
// Before hooks thread the context through each listener; After hooks run in reverse order
// so that spans and timers close innermost first. A panicking listener is logged and skipped.
type CompositeListener struct {
	listeners []port.PipelineListener
}

func NewCompositeListener(listeners ...port.PipelineListener) *CompositeListener {
	filtered := make([]port.PipelineListener, 0, len(listeners))
	for _, l := range listeners {
		if l != nil {
			filtered = append(filtered, l)
		}
	}
	return &CompositeListener{listeners: filtered}
}

func (c *CompositeListener) guard(hook string) {
	if r := recover(); r != nil {
		logger.Errorf("Listener panicked in %s: %v", hook, r)
	}
}

func (c *CompositeListener) before(ctx context.Context, hook string, fn func(context.Context, port.PipelineListener) context.Context) context.Context {
	for _, l := range c.listeners {
		ctx = func() (out context.Context) {
			out = ctx
			defer c.guard(hook)
			return fn(ctx, l)
		}()
	}
	return ctx
}

func (c *CompositeListener) after(hook string, fn func(port.PipelineListener)) {
	for i := len(c.listeners) - 1; i >= 0; i-- {
		func() {
			defer c.guard(hook)
			fn(c.listeners[i])
		}()
	}
}

func (c *CompositeListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	return c.before(ctx, "BeforeRun", func(ctx context.Context, l port.PipelineListener) context.Context {
		return l.BeforeRun(ctx, run)
	})
}

func (c *CompositeListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	c.after("AfterRun", func(l port.PipelineListener) { l.AfterRun(ctx, run) })
}

func (c *CompositeListener) BeforeCity(ctx context.Context, city *model.CityExecution) context.Context {
	return c.before(ctx, "BeforeCity", func(ctx context.Context, l port.PipelineListener) context.Context {
		return l.BeforeCity(ctx, city)
	})
}

func (c *CompositeListener) AfterCity(ctx context.Context, city *model.CityExecution) {
	c.after("AfterCity", func(l port.PipelineListener) { l.AfterCity(ctx, city) })
}

func (c *CompositeListener) BeforeStep(ctx context.Context, step *model.StepExecution) context.Context {
	return c.before(ctx, "BeforeStep", func(ctx context.Context, l port.PipelineListener) context.Context {
		return l.BeforeStep(ctx, step)
	})
}

func (c *CompositeListener) AfterStep(ctx context.Context, step *model.StepExecution) {
	c.after("AfterStep", func(l port.PipelineListener) { l.AfterStep(ctx, step) })
}

var _ port.PipelineListener = (*CompositeListener)(nil)
