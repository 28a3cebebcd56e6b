// Package inmemory provides an in-memory implementation of the RunRepository interface,
// used when no history database is configured and in tests.
package inmemory

import (
	"context"
	"sort"
	"sync"

	model "github.com/tigerroll/weather-etl/pkg/batch/core/domain/model"
	"github.com/tigerroll/weather-etl/pkg/batch/core/domain/repository"
)

// DefaultCapacity bounds how many runs are retained.
const DefaultCapacity = 500

// InMemoryRunRepository keeps the most recent run snapshots in a map.
type InMemoryRunRepository struct {
	runs     map[string]repository.RunSnapshot
	capacity int
	mu       sync.RWMutex
}

// NewInMemoryRunRepository creates and initializes a new instance of InMemoryRunRepository.
func NewInMemoryRunRepository() *InMemoryRunRepository {
	return &InMemoryRunRepository{
		runs:     make(map[string]repository.RunSnapshot),
		capacity: DefaultCapacity,
	}
}

// SaveRunExecution stores a snapshot of run, evicting the oldest entry once full.
func (r *InMemoryRunRepository) SaveRunExecution(ctx context.Context, run *model.RunExecution) error {
	snapshot := repository.SnapshotOf(run)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[snapshot.ID] = snapshot

	if len(r.runs) > r.capacity {
		oldest := ""
		for id, s := range r.runs {
			if oldest == "" || s.StartTime.Before(r.runs[oldest].StartTime) {
				oldest = id
			}
		}
		delete(r.runs, oldest)
	}
	return nil
}

// FindRecentRunExecutions returns up to limit runs, newest first. limit <= 0 returns all.
func (r *InMemoryRunRepository) FindRecentRunExecutions(ctx context.Context, limit int) ([]repository.RunSnapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]repository.RunSnapshot, 0, len(r.runs))
	for _, s := range r.runs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FindLatestRunExecution returns the newest run.
func (r *InMemoryRunRepository) FindLatestRunExecution(ctx context.Context) (*repository.RunSnapshot, error) {
	recent, _ := r.FindRecentRunExecutions(ctx, 1)
	if len(recent) == 0 {
		return nil, repository.ErrRunExecutionNotFound
	}
	return &recent[0], nil
}

var _ repository.RunRepository = (*InMemoryRunRepository)(nil)
