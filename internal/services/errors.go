package services

import (
	"fmt"

	"github.com/themizzi/uiverify/internal/models"
)

// StepError reports the scenario step that aborted a run. Index is 1-based;
// index 0 is the initial navigation to the scenario target.
type StepError struct {
	Index   int
	Action  models.Action
	Subject string
	Err     error
}

func (e *StepError) Error() string {
	if e.Index == 0 {
		return fmt.Sprintf("open %s: %v", e.Subject, e.Err)
	}
	return fmt.Sprintf("step %d (%s %q): %v", e.Index, e.Action, e.Subject, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
