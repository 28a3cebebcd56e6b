package model

import (
	"fmt"
	"sync"
	"time"

	"github.com/tigerroll/weather-etl/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/weather-etl/pkg/batch/support/util/logger"
)

// RunExecution is one scheduled (or manual) pass over every configured city.
type RunExecution struct {
	ID              string
	PipelineName    string
	StartTime       time.Time
	EndTime         *time.Time
	Status          BatchStatus
	Failures        FailureList
	CityExecutions  []*CityExecution
	CompletedCities int
	TotalCities     int
	LastUpdated     time.Time

	mu sync.Mutex
}

// CityExecution is the state machine of one city within a run.
type CityExecution struct {
	ID             string
	City           string
	RunExecution   *RunExecution
	RunExecutionID string
	StartTime      time.Time
	EndTime        *time.Time
	Status         BatchStatus
	CurrentStep    StepName
	FailedStep     StepName
	Failures       FailureList
	StepExecutions []*StepExecution
	ArchiveKey     string
	HourlyRows     int
	DailyRows      int
	Delivered      int
	Undelivered    int
	LastUpdated    time.Time
}

// StepExecution records one step of a CityExecution.
type StepExecution struct {
	ID              string
	StepName        StepName
	CityExecution   *CityExecution
	CityExecutionID string
	StartTime       time.Time
	EndTime         *time.Time
	Status          BatchStatus
	Result          *StepResult
	LastUpdated     time.Time
}

// NewRunExecution creates a RunExecution for totalCities cities.
func NewRunExecution(pipelineName string, totalCities int) *RunExecution {
	now := time.Now()
	return &RunExecution{
		ID:             NewID(),
		PipelineName:   pipelineName,
		StartTime:      now,
		Status:         BatchStatusStarting,
		Failures:       make(FailureList, 0),
		CityExecutions: make([]*CityExecution, 0, totalCities),
		TotalCities:    totalCities,
		LastUpdated:    now,
	}
}

// TransitionTo safely transitions the state of RunExecution.
func (re *RunExecution) TransitionTo(newStatus BatchStatus) error {
	if !isValidTransition(re.Status, newStatus) {
		return fmt.Errorf("RunExecution (ID: %s): Invalid state transition: %s -> %s", re.ID, re.Status, newStatus)
	}
	re.Status = newStatus
	return nil
}

// MarkAsStarted updates the RunExecution status to STARTED.
func (re *RunExecution) MarkAsStarted() {
	if err := re.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to STARTED: %v", re.ID, err)
		re.Status = BatchStatusStarted
	}
	re.LastUpdated = time.Now()
}

// NewCityExecution creates a CityExecution attached to the run. Safe for concurrent use.
func (re *RunExecution) NewCityExecution(city string) *CityExecution {
	now := time.Now()
	ce := &CityExecution{
		ID:             NewID(),
		City:           city,
		RunExecution:   re,
		RunExecutionID: re.ID,
		StartTime:      now,
		Status:         BatchStatusStarting,
		Failures:       make(FailureList, 0),
		StepExecutions: make([]*StepExecution, 0, len(PipelineSteps)),
		LastUpdated:    now,
	}
	re.mu.Lock()
	re.CityExecutions = append(re.CityExecutions, ce)
	re.mu.Unlock()
	return ce
}

// Finish counts completed cities and sets the final status:
// COMPLETED when every city completed, FAILED otherwise.
func (re *RunExecution) Finish() {
	re.mu.Lock()
	defer re.mu.Unlock()

	completed := 0
	for _, ce := range re.CityExecutions {
		if ce.Status == BatchStatusCompleted {
			completed++
			continue
		}
		for _, f := range ce.Failures {
			re.Failures.add(fmt.Sprintf("%s: %s", ce.City, f))
		}
	}
	re.CompletedCities = completed

	next := BatchStatusCompleted
	if completed < re.TotalCities {
		next = BatchStatusFailed
	}
	if err := re.TransitionTo(next); err != nil {
		logger.Warnf("Could not update RunExecution (ID: %s) status to %s: %v", re.ID, next, err)
		re.Status = next
	}
	now := time.Now()
	re.EndTime = &now
	re.LastUpdated = now
}

// Summary renders the N/M completion count.
func (re *RunExecution) Summary() string {
	return fmt.Sprintf("%d/%d", re.CompletedCities, re.TotalCities)
}

// Duration returns the elapsed time, up to now for unfinished runs.
func (re *RunExecution) Duration() time.Duration {
	if re.EndTime == nil {
		return time.Since(re.StartTime)
	}
	return re.EndTime.Sub(re.StartTime)
}

// TransitionTo safely transitions the state of CityExecution.
func (ce *CityExecution) TransitionTo(newStatus BatchStatus) error {
	if !isValidTransition(ce.Status, newStatus) {
		return fmt.Errorf("CityExecution (ID: %s): Invalid state transition: %s -> %s", ce.ID, ce.Status, newStatus)
	}
	ce.Status = newStatus
	return nil
}

// MarkAsStarted updates the CityExecution status to STARTED.
func (ce *CityExecution) MarkAsStarted() {
	if err := ce.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update CityExecution (ID: %s) status to STARTED: %v", ce.ID, err)
		ce.Status = BatchStatusStarted
	}
	ce.LastUpdated = time.Now()
}

// MarkAsCompleted updates the CityExecution status to COMPLETED (the DONE state).
func (ce *CityExecution) MarkAsCompleted() {
	if err := ce.TransitionTo(BatchStatusCompleted); err != nil {
		logger.Warnf("Could not update CityExecution (ID: %s) status to COMPLETED: %v", ce.ID, err)
		ce.Status = BatchStatusCompleted
	}
	now := time.Now()
	ce.EndTime = &now
	ce.LastUpdated = now
}

// MarkAsFailed collapses the CityExecution to FAILED at step.
func (ce *CityExecution) MarkAsFailed(step StepName, err error) {
	if tErr := ce.TransitionTo(BatchStatusFailed); tErr != nil {
		logger.Warnf("Could not update CityExecution (ID: %s) status to FAILED: %v", ce.ID, tErr)
		ce.Status = BatchStatusFailed
	}
	ce.FailedStep = step
	now := time.Now()
	ce.EndTime = &now
	ce.LastUpdated = now
	ce.AddFailureException(err)
}

// AddFailureException adds error information to CityExecution. It avoids adding duplicate errors.
func (ce *CityExecution) AddFailureException(err error) {
	if err == nil {
		return
	}
	errMsg := exception.ExtractErrorMessage(err)
	if !ce.Failures.add(errMsg) {
		logger.Debugf("Skipped adding duplicate error '%s' to CityExecution (ID: %s).", errMsg, ce.ID)
		return
	}
	ce.LastUpdated = time.Now()
}

// NewStepExecution creates a StepExecution for step and makes it the current step.
func (ce *CityExecution) NewStepExecution(step StepName) *StepExecution {
	now := time.Now()
	se := &StepExecution{
		ID:              NewID(),
		StepName:        step,
		CityExecution:   ce,
		CityExecutionID: ce.ID,
		StartTime:       now,
		Status:          BatchStatusStarting,
		LastUpdated:     now,
	}
	ce.StepExecutions = append(ce.StepExecutions, se)
	ce.CurrentStep = step
	return se
}

// TransitionTo safely transitions the state of StepExecution.
func (se *StepExecution) TransitionTo(newStatus BatchStatus) error {
	if !isValidTransition(se.Status, newStatus) {
		return fmt.Errorf("StepExecution (ID: %s): Invalid state transition: %s -> %s", se.ID, se.Status, newStatus)
	}
	se.Status = newStatus
	return nil
}

// MarkAsStarted updates the StepExecution status to STARTED.
func (se *StepExecution) MarkAsStarted() {
	if err := se.TransitionTo(BatchStatusStarted); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to STARTED: %v", se.ID, err)
		se.Status = BatchStatusStarted
	}
	se.LastUpdated = time.Now()
}

// Complete records result and derives the final status from its outcome.
func (se *StepExecution) Complete(result StepResult) {
	next := BatchStatusCompleted
	switch {
	case result.Outcome.IsFailure():
		next = BatchStatusFailed
	case result.Outcome == OutcomeNoOp:
		next = BatchStatusNoOp
	}
	if err := se.TransitionTo(next); err != nil {
		logger.Warnf("Could not update StepExecution (ID: %s) status to %s: %v", se.ID, next, err)
		se.Status = next
	}
	se.Result = &result
	now := time.Now()
	se.EndTime = &now
	se.LastUpdated = now
}
