package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/themizzi/uiverify/internal/browser"
	"github.com/themizzi/uiverify/internal/models"
)

// Default timeouts
const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultElementTimeout    = 5 * time.Second
)

// BrowserConfig holds configuration for the browser session
type BrowserConfig struct {
	Engine            string
	Headless          bool
	Viewport          models.Viewport
	NavigationTimeout time.Duration
	ElementTimeout    time.Duration
	InstallDriver     bool
}

// LoadBrowserConfig loads browser configuration from environment variables
func LoadBrowserConfig(getenv func(string) string) (*BrowserConfig, error) {
	config := &BrowserConfig{
		Engine:            getenv("UIVERIFY_ENGINE"),
		Headless:          true,
		Viewport:          models.Viewport{Width: browser.DefaultViewportWidth, Height: browser.DefaultViewportHeight},
		NavigationTimeout: DefaultNavigationTimeout,
		ElementTimeout:    DefaultElementTimeout,
	}

	if config.Engine == "" {
		config.Engine = browser.EnginePlaywright
	}
	if config.Engine != browser.EnginePlaywright && config.Engine != browser.EngineChromedp {
		return nil, fmt.Errorf("UIVERIFY_ENGINE must be %s or %s, got %q", browser.EnginePlaywright, browser.EngineChromedp, config.Engine)
	}

	var err error
	if v := getenv("UIVERIFY_HEADLESS"); v != "" {
		if config.Headless, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("UIVERIFY_HEADLESS: %w", err)
		}
	}
	if v := getenv("UIVERIFY_INSTALL_DRIVER"); v != "" {
		if config.InstallDriver, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("UIVERIFY_INSTALL_DRIVER: %w", err)
		}
	}
	if v := getenv("UIVERIFY_VIEWPORT"); v != "" {
		if config.Viewport, err = ParseViewport(v); err != nil {
			return nil, fmt.Errorf("UIVERIFY_VIEWPORT: %w", err)
		}
	}
	if v := getenv("UIVERIFY_NAV_TIMEOUT"); v != "" {
		if config.NavigationTimeout, err = parsePositiveDuration(v); err != nil {
			return nil, fmt.Errorf("UIVERIFY_NAV_TIMEOUT: %w", err)
		}
	}
	if v := getenv("UIVERIFY_ELEMENT_TIMEOUT"); v != "" {
		if config.ElementTimeout, err = parsePositiveDuration(v); err != nil {
			return nil, fmt.Errorf("UIVERIFY_ELEMENT_TIMEOUT: %w", err)
		}
	}

	return config, nil
}

// ParseViewport parses a WIDTHxHEIGHT string such as 1280x720
func ParseViewport(s string) (models.Viewport, error) {
	w, h, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return models.Viewport{}, fmt.Errorf("viewport %q must look like 1280x720", s)
	}
	width, err := strconv.Atoi(w)
	if err != nil || width <= 0 {
		return models.Viewport{}, fmt.Errorf("invalid viewport width %q", w)
	}
	height, err := strconv.Atoi(h)
	if err != nil || height <= 0 {
		return models.Viewport{}, fmt.Errorf("invalid viewport height %q", h)
	}
	return models.Viewport{Width: width, Height: height}, nil
}

func parsePositiveDuration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive, got %s", s)
	}
	return d, nil
}
