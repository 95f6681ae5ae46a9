package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/themizzi/uiverify/internal/models"
)

// PlaywrightLauncher launches headless Chromium through the Playwright driver.
type PlaywrightLauncher struct {
	installDriver bool
}

// NewPlaywrightLauncher creates a launcher. With installDriver set, the
// Playwright driver and Chromium are downloaded on first launch if missing.
func NewPlaywrightLauncher(installDriver bool) *PlaywrightLauncher {
	return &PlaywrightLauncher{installDriver: installDriver}
}

// Launch starts the driver, a browser, an isolated context and one page.
// Cancelling ctx tears the session down.
func (l *PlaywrightLauncher) Launch(ctx context.Context, opts SessionOptions) (Session, error) {
	opts = opts.withDefaults()

	runOpts := &playwright.RunOptions{
		Browsers: []string{"chromium"},
		Verbose:  false,
		Stdout:   io.Discard,
		Stderr:   io.Discard,
	}
	if l.installDriver {
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright: %w", err)
		}
	}

	pw, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if diag := newDiagnosticWriter(opts.Diagnostics); diag != nil {
		page.OnConsole(func(msg playwright.ConsoleMessage) {
			diag.console(msg.Type(), msg.Text())
		})
		page.OnPageError(func(err error) {
			diag.pageError(err.Error())
		})
	}

	s := &playwrightSession{
		pw:      pw,
		browser: browser,
		context: browserContext,
		page:    page,
		done:    make(chan struct{}),
	}

	// Playwright calls do not take a context; closing the browser is what
	// unblocks an in-flight call when the run is cancelled.
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return s, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}

func (s *playwrightSession) Open(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return navigationError(url, err)
	}

	resp, err := s.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   millis(timeout),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil {
		return navigationError(url, err)
	}
	if resp != nil && resp.Status() >= 400 {
		return navigationError(url, fmt.Errorf("server responded with status %d", resp.Status()))
	}
	return nil
}

func (s *playwrightSession) ForceState(ctx context.Context, id string, visibility models.Visibility, hiddenClass string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, interactionError("force_state", id, err)
	}

	result, err := s.page.Evaluate(forceStateScript, forceStateArgs(id, visibility, hiddenClass))
	if err != nil {
		return false, interactionError("force_state", id, err)
	}
	found, _ := result.(bool)
	return found, nil
}

// locate waits for the first match of selector to be attached
func (s *playwrightSession) locate(ctx context.Context, selector string, timeout time.Duration) (playwright.Locator, error) {
	if err := ctx.Err(); err != nil {
		return nil, notFoundError(selector, err)
	}

	loc := s.page.Locator(selector).First()
	if err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: millis(timeout),
	}); err != nil {
		return nil, notFoundError(selector, err)
	}
	return loc, nil
}

func (s *playwrightSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	loc, err := s.locate(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: millis(timeout)}); err != nil {
		return interactionError("click", selector, err)
	}
	return nil
}

func (s *playwrightSession) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	loc, err := s.locate(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := loc.Fill(text, playwright.LocatorFillOptions{Timeout: millis(timeout)}); err != nil {
		return interactionError("fill", selector, err)
	}
	return nil
}

func (s *playwrightSession) WaitFor(ctx context.Context, selector string, state models.WaitState, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return notFoundError(selector, err)
	}

	var pwState *playwright.WaitForSelectorState
	switch state {
	case models.WaitStateAttached:
		pwState = playwright.WaitForSelectorStateAttached
	case models.WaitStateDetached:
		pwState = playwright.WaitForSelectorStateDetached
	case models.WaitStateHidden:
		pwState = playwright.WaitForSelectorStateHidden
	default:
		pwState = playwright.WaitForSelectorStateVisible
	}

	if err := s.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   pwState,
		Timeout: millis(timeout),
	}); err != nil {
		return notFoundError(selector, fmt.Errorf("not %s: %w", state, err))
	}
	return nil
}

func (s *playwrightSession) Capture(ctx context.Context, path string, fullPage bool) error {
	if err := ctx.Err(); err != nil {
		return captureError(path, err)
	}

	data, err := s.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
		Timeout:  millis(DefaultCaptureTimeout),
	})
	if err != nil {
		return captureError(path, err)
	}
	return writeScreenshot(path, data)
}

// Close releases the page, context, browser and driver process
func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.page.Close()    // Ignore errors, continue cleanup
		_ = s.context.Close() // Ignore errors, continue cleanup
		s.closeErr = errors.Join(s.browser.Close(), s.pw.Stop())
	})
	return s.closeErr
}
