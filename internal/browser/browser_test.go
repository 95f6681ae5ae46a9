package browser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themizzi/uiverify/internal/models"
)

func TestNewLauncher(t *testing.T) {
	tests := []struct {
		engine  string
		want    interface{}
		wantErr bool
	}{
		{engine: "", want: &PlaywrightLauncher{}},
		{engine: EnginePlaywright, want: &PlaywrightLauncher{}},
		{engine: EngineChromedp, want: &ChromedpLauncher{}},
		{engine: "selenium", wantErr: true},
	}

	for _, tt := range tests {
		t.Run("engine "+tt.engine, func(t *testing.T) {
			launcher, err := NewLauncher(tt.engine, false)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, launcher)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, launcher)
		})
	}
}

func TestSessionOptions_WithDefaults(t *testing.T) {
	opts := SessionOptions{Headless: true}.withDefaults()
	assert.Equal(t, models.Viewport{Width: 1280, Height: 720}, opts.Viewport)

	custom := SessionOptions{Viewport: models.Viewport{Width: 390, Height: 844}}.withDefaults()
	assert.Equal(t, models.Viewport{Width: 390, Height: 844}, custom.Viewport)
}

func TestForceStateExpression(t *testing.T) {
	// WHEN
	expr, err := forceStateExpression(`auth"Container`, models.VisibilityHide, "d-none")

	// THEN
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(expr, "(([id, show, hiddenClass]) =>"))
	assert.True(t, strings.HasSuffix(expr, `)(["auth\"Container",false,"d-none"])`), expr)
}

func TestForceStateArgs(t *testing.T) {
	show := forceStateArgs("appContainer", models.VisibilityShow, "hidden")
	hide := forceStateArgs("authContainer", models.VisibilityHide, "d-none")

	assert.Equal(t, []interface{}{"appContainer", true, "hidden"}, show)
	assert.Equal(t, []interface{}{"authContainer", false, "d-none"}, hide)
}

func TestWriteScreenshot_CreatesParentDirectories(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "out", "nested", "settings.png")

	// WHEN
	err := writeScreenshot(path, []byte("png-data"))

	// THEN
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-data", string(data))
}

func TestWriteScreenshot_Overwrites(t *testing.T) {
	// GIVEN
	path := filepath.Join(t.TempDir(), "settings.png")
	require.NoError(t, writeScreenshot(path, []byte("first capture, longer")))

	// WHEN
	err := writeScreenshot(path, []byte("second"))

	// THEN
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteScreenshot_Errors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	tests := []struct {
		name string
		path string
		data []byte
	}{
		{"empty image", filepath.Join(dir, "a.png"), nil},
		{"parent is a file", filepath.Join(blocker, "a.png"), []byte("png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := writeScreenshot(tt.path, tt.data)
			assert.ErrorIs(t, err, ErrCapture)
		})
	}
}

func TestErrorKinds(t *testing.T) {
	cause := errors.New("timeout 5000ms exceeded")

	tests := []struct {
		name string
		err  error
		kind error
		text string
	}{
		{"navigation", navigationError("http://127.0.0.1:1", cause), ErrNavigation, "http://127.0.0.1:1"},
		{"not found", notFoundError("#settingsButton", cause), ErrElementNotFound, "#settingsButton"},
		{"interaction", interactionError("click", "#settingsButton", cause), ErrInteraction, "click #settingsButton"},
		{"capture", captureError("out/a.png", cause), ErrCapture, "out/a.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.kind)
			assert.ErrorIs(t, tt.err, cause)
			assert.Contains(t, tt.err.Error(), tt.text)
		})
	}
}

func TestDiagnosticWriter(t *testing.T) {
	assert.Nil(t, newDiagnosticWriter(nil))

	var buf bytes.Buffer
	diag := newDiagnosticWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			diag.console("log", "hello")
		}()
	}
	wg.Wait()
	diag.pageError("ReferenceError: x is not defined")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "console [log]: hello", lines[0])
	assert.Equal(t, "page error: ReferenceError: x is not defined", lines[10])
}

func TestFormatConsoleArgs(t *testing.T) {
	args := []*runtime.RemoteObject{
		{Type: runtime.TypeString, Value: []byte(`"loaded"`)},
		{Type: runtime.TypeNumber, Value: []byte(`3`)},
		{Type: runtime.TypeObject, Description: "HTMLDivElement"},
		{Type: runtime.TypeUndefined},
	}

	assert.Equal(t, "loaded 3 HTMLDivElement undefined", formatConsoleArgs(args))
}

func TestFormatException(t *testing.T) {
	assert.Equal(t, "unknown exception", formatException(nil))
	assert.Equal(t, "Uncaught", formatException(&runtime.ExceptionDetails{Text: "Uncaught"}))
	assert.Equal(t, "TypeError: boom", formatException(&runtime.ExceptionDetails{
		Text:      "Uncaught",
		Exception: &runtime.RemoteObject{Description: "TypeError: boom"},
	}))
}
