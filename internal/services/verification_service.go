package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/themizzi/uiverify/internal/browser"
	"github.com/themizzi/uiverify/internal/models"
)

// RunRepository defines the interface for run history persistence
type RunRepository interface {
	CreateRun(run *models.Run) error
	FinishRun(run *models.Run) error
	ListRecentRuns(limit int) ([]*models.Run, error)
}

// VerificationService runs scenarios against a browser
type VerificationService interface {
	Run(ctx context.Context, scenario *models.Scenario) (*models.Run, error)
}

// RunOptions holds the settings shared by every scenario run
type RunOptions struct {
	Engine            string
	Headless          bool
	Viewport          models.Viewport
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	BaseURL           string
	OutputDir         string

	// Diagnostics receives page console output and uncaught errors when set
	Diagnostics io.Writer
}

// VerificationServiceImpl implements VerificationService
type VerificationServiceImpl struct {
	launcher browser.Launcher
	history  RunRepository
	options  RunOptions
}

// NewVerificationService creates a runner. history may be nil, in which case
// runs are not recorded.
func NewVerificationService(launcher browser.Launcher, history RunRepository, options RunOptions) VerificationService {
	if options.NavigationTimeout <= 0 {
		options.NavigationTimeout = 30 * time.Second
	}
	if options.ElementTimeout <= 0 {
		options.ElementTimeout = 5 * time.Second
	}
	return &VerificationServiceImpl{
		launcher: launcher,
		history:  history,
		options:  options,
	}
}

// Run executes the scenario in a fresh session. The session is closed on every
// path out of Run. The returned Run is non-nil once the target resolved, even
// when the error is non-nil.
func (s *VerificationServiceImpl) Run(ctx context.Context, scenario *models.Scenario) (*models.Run, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: nil scenario", models.ErrInvalidScenario)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}

	target, err := scenario.Target.Resolve(s.options.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}

	run := models.NewRun(scenario.Name, target, s.options.Engine)
	if s.history != nil {
		if err := s.history.CreateRun(run); err != nil {
			log.Printf("Warning: failed to record run %s: %v", run.ID, err)
		}
	}

	log.Printf("Running scenario %q against %s", scenario.Name, target)
	runErr := s.execute(ctx, scenario, target, run)

	if runErr != nil {
		step := 0
		var stepErr *StepError
		if errors.As(runErr, &stepErr) {
			step = stepErr.Index
		}
		_ = run.Fail(step, runErr)
	} else {
		_ = run.Pass()
	}

	if s.history != nil {
		if err := s.history.FinishRun(run); err != nil {
			log.Printf("Warning: failed to record result of run %s: %v", run.ID, err)
		}
	}

	return run, runErr
}

func (s *VerificationServiceImpl) execute(ctx context.Context, scenario *models.Scenario, target string, run *models.Run) error {
	viewport := s.options.Viewport
	if scenario.Viewport != nil {
		viewport = *scenario.Viewport
	}

	session, err := s.launcher.Launch(ctx, browser.SessionOptions{
		Headless:    s.options.Headless,
		Viewport:    viewport,
		Diagnostics: s.options.Diagnostics,
	})
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Printf("Warning: failed to close browser session: %v", err)
		}
	}()

	if err := session.Open(ctx, target, s.options.NavigationTimeout); err != nil {
		return &StepError{Index: 0, Action: models.ActionNavigate, Subject: scenario.Target.String(), Err: err}
	}

	steps := scenario.Steps
	if scenario.Output != "" {
		steps = append(steps[:len(steps):len(steps)], models.Capture(scenario.Output))
	}

	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return &StepError{Index: i + 1, Action: step.Action, Subject: step.Subject(), Err: fmt.Errorf("run cancelled: %w", err)}
		}
		if err := s.executeStep(ctx, session, scenario, step, run); err != nil {
			return &StepError{Index: i + 1, Action: step.Action, Subject: step.Subject(), Err: err}
		}
	}

	return nil
}

func (s *VerificationServiceImpl) executeStep(ctx context.Context, session browser.Session, scenario *models.Scenario, step models.Step, run *models.Run) error {
	timeout := step.Timeout
	if timeout <= 0 {
		timeout = s.options.ElementTimeout
	}

	switch step.Action {
	case models.ActionNavigate:
		url, err := step.Target.Resolve(s.options.BaseURL)
		if err != nil {
			return err
		}
		navTimeout := s.options.NavigationTimeout
		if step.Timeout > 0 {
			navTimeout = step.Timeout
		}
		return session.Open(ctx, url, navTimeout)

	case models.ActionForceState:
		hiddenClass := scenario.HiddenClassOrDefault()
		for _, id := range step.FlagIDs() {
			found, err := session.ForceState(ctx, id, step.Flags[id], hiddenClass)
			if err != nil {
				return err
			}
			if !found {
				log.Printf("Warning: force_state: no element with id %q, leaving page unchanged", id)
			}
		}
		return nil

	case models.ActionClick:
		return session.Click(ctx, step.Selector, timeout)

	case models.ActionFill:
		return session.Fill(ctx, step.Selector, step.Text, timeout)

	case models.ActionWait:
		if step.Selector != "" {
			return session.WaitFor(ctx, step.Selector, step.WaitStateOrDefault(), timeout)
		}
		log.Printf("Waiting a fixed %s; a selector wait is more reliable when one is available", step.Duration)
		return pause(ctx, step.Duration)

	case models.ActionCapture:
		path := s.outputPath(step.Path)
		fullPage := scenario.FullPage
		if step.FullPage != nil {
			fullPage = *step.FullPage
		}
		if err := session.Capture(ctx, path, fullPage); err != nil {
			return err
		}
		run.AddArtifact(path)
		log.Printf("Screenshot saved to %s", path)
		return nil

	default:
		return fmt.Errorf("%w: unknown action %q", models.ErrInvalidStep, step.Action)
	}
}

// outputPath places relative capture paths under the configured output directory
func (s *VerificationServiceImpl) outputPath(path string) string {
	if s.options.OutputDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(s.options.OutputDir, path)
}

// pause is a fixed delay that still honors cancellation
func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("wait interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
