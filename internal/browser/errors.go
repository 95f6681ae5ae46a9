package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Error kinds reported by sessions. Match them with errors.Is.
var (
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrInteraction     = errors.New("interaction failed")
	ErrCapture         = errors.New("capture failed")
)

func navigationError(url string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrNavigation, url, err)
}

func notFoundError(selector string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrElementNotFound, selector, err)
}

func interactionError(action, selector string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrInteraction, action, selector, err)
}

func captureError(path string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrCapture, path, err)
}

// writeScreenshot stores image bytes at path, creating parent directories.
// Existing files are truncated.
func writeScreenshot(path string, data []byte) error {
	if len(data) == 0 {
		return captureError(path, errors.New("browser returned an empty image"))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return captureError(path, err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return captureError(path, err)
	}
	return nil
}
