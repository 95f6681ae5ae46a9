package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/themizzi/uiverify/internal/models"
	"github.com/themizzi/uiverify/internal/services"
)

// RunVerify runs one scenario. A signal on interrupt cancels the run and the
// browser session with it. If interrupt is nil, SIGINT and SIGTERM are used.
func RunVerify(ctx context.Context, service services.VerificationService, scenario *models.Scenario, interrupt chan os.Signal) (*models.Run, error) {
	if interrupt == nil {
		interrupt = make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(interrupt)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-interrupt:
			log.Printf("Received signal: %v, cancelling run...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if scenario == nil {
		return nil, fmt.Errorf("%w: nil scenario", models.ErrInvalidScenario)
	}

	run, err := service.Run(ctx, scenario)
	if err != nil {
		return run, fmt.Errorf("scenario %q failed: %w", scenario.Name, err)
	}

	log.Printf("Scenario %q passed in %s with %d screenshot(s)", scenario.Name, run.Duration().Round(time.Millisecond), len(run.Artifacts))
	return run, nil
}
