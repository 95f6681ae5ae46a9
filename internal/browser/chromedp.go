package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/themizzi/uiverify/internal/models"
)

// ChromedpLauncher launches a local Chrome over the DevTools protocol.
type ChromedpLauncher struct {
	allocatorOptions []chromedp.ExecAllocatorOption
}

// NewChromedpLauncher creates a launcher using chromedp's default headless flags
func NewChromedpLauncher(extra ...chromedp.ExecAllocatorOption) *ChromedpLauncher {
	return &ChromedpLauncher{allocatorOptions: extra}
}

// Launch starts Chrome with a single tab. The browser process is bound to
// ctx: cancelling it kills the process.
func (l *ChromedpLauncher) Launch(ctx context.Context, opts SessionOptions) (Session, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-popup-blocking", true),
	)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	allocOpts = append(allocOpts, l.allocatorOptions...)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if diag := newDiagnosticWriter(opts.Diagnostics); diag != nil {
		chromedp.ListenTarget(tabCtx, func(ev interface{}) {
			switch ev := ev.(type) {
			case *runtime.EventConsoleAPICalled:
				diag.console(string(ev.Type), formatConsoleArgs(ev.Args))
			case *runtime.EventExceptionThrown:
				diag.pageError(formatException(ev.ExceptionDetails))
			}
		})
	}

	// The first Run starts the browser.
	if err := chromedp.Run(tabCtx, chromedp.EmulateViewport(int64(opts.Viewport.Width), int64(opts.Viewport.Height))); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &chromedpSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}, nil
}

type chromedpSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// opContext derives a context from the tab that expires after timeout or
// when the caller's ctx is done, whichever comes first.
func (s *chromedpSession) opContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithTimeout(s.tabCtx, timeout)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromedpSession) Open(ctx context.Context, url string, timeout time.Duration) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	resp, err := chromedp.RunResponse(opCtx, chromedp.Navigate(url))
	if err != nil {
		return navigationError(url, err)
	}
	if resp != nil && resp.Status >= 400 {
		return navigationError(url, fmt.Errorf("server responded with status %d", resp.Status))
	}
	return nil
}

func (s *chromedpSession) ForceState(ctx context.Context, id string, visibility models.Visibility, hiddenClass string) (bool, error) {
	expr, err := forceStateExpression(id, visibility, hiddenClass)
	if err != nil {
		return false, interactionError("force_state", id, err)
	}

	opCtx, cancel := s.opContext(ctx, DefaultCaptureTimeout)
	defer cancel()

	var found bool
	if err := chromedp.Run(opCtx, chromedp.Evaluate(expr, &found)); err != nil {
		return false, interactionError("force_state", id, err)
	}
	return found, nil
}

// locate waits for the first node matching selector
func (s *chromedpSession) locate(ctx context.Context, selector string, timeout time.Duration) (*cdp.Node, error) {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	var nodes []*cdp.Node
	if err := chromedp.Run(opCtx, chromedp.Nodes(selector, &nodes, chromedp.ByQuery)); err != nil {
		return nil, notFoundError(selector, err)
	}
	if len(nodes) == 0 {
		return nil, notFoundError(selector, errors.New("no matching node"))
	}
	return nodes[0], nil
}

func (s *chromedpSession) Click(ctx context.Context, selector string, timeout time.Duration) error {
	node, err := s.locate(ctx, selector, timeout)
	if err != nil {
		return err
	}

	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(opCtx, chromedp.MouseClickNode(node)); err != nil {
		return interactionError("click", selector, err)
	}
	return nil
}

func (s *chromedpSession) Fill(ctx context.Context, selector, text string, timeout time.Duration) error {
	node, err := s.locate(ctx, selector, timeout)
	if err != nil {
		return err
	}

	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	ids := []cdp.NodeID{node.NodeID}
	if err := chromedp.Run(opCtx,
		chromedp.Clear(ids, chromedp.ByNodeID),
		chromedp.SendKeys(ids, text, chromedp.ByNodeID),
	); err != nil {
		return interactionError("fill", selector, err)
	}
	return nil
}

func (s *chromedpSession) WaitFor(ctx context.Context, selector string, state models.WaitState, timeout time.Duration) error {
	opCtx, cancel := s.opContext(ctx, timeout)
	defer cancel()

	var action chromedp.QueryAction
	switch state {
	case models.WaitStateAttached:
		action = chromedp.WaitReady(selector, chromedp.ByQuery)
	case models.WaitStateDetached:
		action = chromedp.WaitNotPresent(selector, chromedp.ByQuery)
	case models.WaitStateHidden:
		action = chromedp.WaitNotVisible(selector, chromedp.ByQuery)
	default:
		action = chromedp.WaitVisible(selector, chromedp.ByQuery)
	}

	if err := chromedp.Run(opCtx, action); err != nil {
		return notFoundError(selector, fmt.Errorf("not %s: %w", state, err))
	}
	return nil
}

func (s *chromedpSession) Capture(ctx context.Context, path string, fullPage bool) error {
	opCtx, cancel := s.opContext(ctx, DefaultCaptureTimeout)
	defer cancel()

	// Quality 100 makes FullScreenshot encode PNG.
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(opCtx, action); err != nil {
		return captureError(path, err)
	}
	return writeScreenshot(path, buf)
}

// Close shuts the tab, then the browser process, and waits for both
func (s *chromedpSession) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.tabCtx)
		s.tabCancel()
		s.allocCancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("failed to close browser: %w", err)
		}
	})
	return s.closeErr
}

func formatConsoleArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case len(arg.Value) > 0:
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

func formatException(details *runtime.ExceptionDetails) string {
	if details == nil {
		return "unknown exception"
	}
	if details.Exception != nil && details.Exception.Description != "" {
		return details.Exception.Description
	}
	return details.Text
}
