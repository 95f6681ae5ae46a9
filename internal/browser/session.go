package browser

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/themizzi/uiverify/internal/models"
)

// Supported engines
const (
	EnginePlaywright = "playwright"
	EngineChromedp   = "chromedp"
)

// Default values for browser operations
const (
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
	DefaultCaptureTimeout = 30 * time.Second
)

// Launcher starts isolated browser sessions.
type Launcher interface {
	Launch(ctx context.Context, opts SessionOptions) (Session, error)
}

// Session is one browser instance with a single page. Every blocking method
// is bounded by its timeout and by ctx; Close is safe to call more than once.
type Session interface {
	// Open navigates the page to an absolute URL.
	Open(ctx context.Context, url string, timeout time.Duration) error

	// ForceState shows or hides the element with the given id by toggling
	// hiddenClass. It reports false when no such element exists.
	// Only the verification runner may call it.
	ForceState(ctx context.Context, id string, visibility models.Visibility, hiddenClass string) (bool, error)

	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, text string, timeout time.Duration) error
	WaitFor(ctx context.Context, selector string, state models.WaitState, timeout time.Duration) error

	// Capture writes a PNG screenshot to path, replacing any existing file.
	Capture(ctx context.Context, path string, fullPage bool) error

	Close() error
}

// SessionOptions configures a new browser session.
type SessionOptions struct {
	Headless bool
	Viewport models.Viewport

	// Diagnostics receives console messages and uncaught page errors.
	// Nil disables forwarding.
	Diagnostics io.Writer
}

// withDefaults fills in the viewport when unset
func (o SessionOptions) withDefaults() SessionOptions {
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = models.Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	return o
}

// NewLauncher returns the launcher for the named engine
func NewLauncher(engine string, installDriver bool) (Launcher, error) {
	switch engine {
	case "", EnginePlaywright:
		return NewPlaywrightLauncher(installDriver), nil
	case EngineChromedp:
		return NewChromedpLauncher(), nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", engine)
	}
}

// diagnosticWriter serializes writes from browser event goroutines.
type diagnosticWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newDiagnosticWriter(w io.Writer) *diagnosticWriter {
	if w == nil {
		return nil
	}
	return &diagnosticWriter{w: w}
}

func (d *diagnosticWriter) console(kind, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "console [%s]: %s\n", kind, text)
}

func (d *diagnosticWriter) pageError(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "page error: %s\n", text)
}
