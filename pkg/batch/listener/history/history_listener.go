// Package history persists a snapshot of every run through the RunRepository.
package history

import (
	"context"
	"time"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
	port "github.com/tigerroll/weather-etl/pkg/batch/core/ports"
	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

const saveTimeout = 10 * time.Second

// HistoryListener saves the run when it starts and again when it finishes.
// A failed save is logged; it never affects the run.
type HistoryListener struct {
	port.NoOpListener
	repo repository.RunRepository
}

func NewHistoryListener(repo repository.RunRepository) *HistoryListener {
	return &HistoryListener{repo: repo}
}

func (l *HistoryListener) BeforeRun(ctx context.Context, run *model.RunExecution) context.Context {
	l.save(ctx, run)
	return ctx
}

func (l *HistoryListener) AfterRun(ctx context.Context, run *model.RunExecution) {
	l.save(ctx, run)
}

func (l *HistoryListener) save(ctx context.Context, run *model.RunExecution) {
	// Detached so that a cancelled run still records its final state.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
	defer cancel()
	if err := l.repo.SaveRunExecution(saveCtx, run); err != nil {
		logger.Warnf("HistoryListener: failed to save run '%s': %s", run.ID, exception.ExtractErrorMessage(err))
	}
}

var _ port.PipelineListener = (*HistoryListener)(nil)
