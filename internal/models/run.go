package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents valid run states
type RunStatus string

// Run statuses
const (
	RunStatusPending RunStatus = "pending"
	RunStatusPassed  RunStatus = "passed"
	RunStatusFailed  RunStatus = "failed"
)

// Run is the outcome of one scenario execution
type Run struct {
	ID           string    `json:"id"`
	ScenarioName string    `json:"scenario_name"`
	Target       string    `json:"target"`
	Engine       string    `json:"engine"`
	Status       RunStatus `json:"status"`
	FailedStep   int       `json:"failed_step,omitempty"`
	Error        string    `json:"error,omitempty"`
	Artifacts    []string  `json:"artifacts"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
}

// Run errors
var (
	ErrRunAlreadyFinished = errors.New("run is already finished")
	ErrMissingFailure     = errors.New("failed run requires an error")
)

// NewRun creates a pending run
func NewRun(scenarioName, target, engine string) *Run {
	return &Run{
		ID:           uuid.New().String(),
		ScenarioName: scenarioName,
		Target:       target,
		Engine:       engine,
		Status:       RunStatusPending,
		StartedAt:    time.Now(),
	}
}

// AddArtifact records a screenshot written by the run
func (r *Run) AddArtifact(path string) {
	r.Artifacts = append(r.Artifacts, path)
}

// Pass marks the run as passed
func (r *Run) Pass() error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: status %s", ErrRunAlreadyFinished, r.Status)
	}
	r.Status = RunStatusPassed
	r.FinishedAt = time.Now()
	return nil
}

// Fail marks the run as failed at the given 1-based step. Step 0 means the
// failure happened outside any step (launch or initial navigation).
func (r *Run) Fail(step int, cause error) error {
	if r.Status != RunStatusPending {
		return fmt.Errorf("%w: status %s", ErrRunAlreadyFinished, r.Status)
	}
	if cause == nil {
		return ErrMissingFailure
	}
	r.Status = RunStatusFailed
	r.FailedStep = step
	r.Error = cause.Error()
	r.FinishedAt = time.Now()
	return nil
}

// IsPassed returns true if the run passed
func (r *Run) IsPassed() bool {
	return r.Status == RunStatusPassed
}

// IsFailed returns true if the run failed
func (r *Run) IsFailed() bool {
	return r.Status == RunStatusFailed
}

// Duration returns how long the run took, or zero while pending
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
