package models

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Action identifies what a scenario step does
type Action string

// Step actions
const (
	ActionNavigate   Action = "navigate"
	ActionForceState Action = "force_state"
	ActionClick      Action = "click"
	ActionFill       Action = "fill"
	ActionWait       Action = "wait"
	ActionCapture    Action = "capture"
)

// Visibility is the forced state applied to an element by force_state
type Visibility string

// Visibility values
const (
	VisibilityShow Visibility = "show"
	VisibilityHide Visibility = "hide"
)

// WaitState is the element condition a selector wait blocks on
type WaitState string

// Wait states
const (
	WaitStateAttached WaitState = "attached"
	WaitStateDetached WaitState = "detached"
	WaitStateVisible  WaitState = "visible"
	WaitStateHidden   WaitState = "hidden"
)

// DefaultHiddenClass is the class force_state toggles when a scenario does not name one.
const DefaultHiddenClass = "d-none"

// Domain errors
var (
	ErrInvalidScenario = errors.New("invalid scenario")
	ErrInvalidTarget   = errors.New("invalid target")
	ErrMissingBaseURL  = errors.New("target path requires a base URL")
	ErrInvalidStep     = errors.New("invalid step")
	ErrNoCapture       = errors.New("scenario declares no screenshot")
)

// Target is where a scenario (or a navigate step) points the browser.
// Exactly one field must be set.
type Target struct {
	File string `yaml:"file,omitempty"`
	URL  string `yaml:"url,omitempty"`
	Path string `yaml:"path,omitempty"`
}

// Validate checks that exactly one kind of location is set
func (t Target) Validate() error {
	set := 0
	for _, v := range []string{t.File, t.URL, t.Path} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("%w: exactly one of file, url or path must be set", ErrInvalidTarget)
	}
	return nil
}

// Resolve turns the target into a navigable URL. Files become absolute file://
// URLs, paths are resolved against baseURL.
func (t Target) Resolve(baseURL string) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	switch {
	case t.File != "":
		abs, err := filepath.Abs(t.File)
		if err != nil {
			return "", fmt.Errorf("%w: resolve %s: %v", ErrInvalidTarget, t.File, err)
		}
		u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
		return u.String(), nil

	case t.URL != "":
		u, err := url.Parse(t.URL)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		if u.Scheme == "" || (u.Host == "" && u.Scheme != "file") {
			return "", fmt.Errorf("%w: %q is not an absolute URL", ErrInvalidTarget, t.URL)
		}
		return u.String(), nil

	default:
		if baseURL == "" {
			return "", ErrMissingBaseURL
		}
		base, err := url.Parse(baseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return "", fmt.Errorf("%w: base URL %q is not an origin", ErrInvalidTarget, baseURL)
		}
		ref, err := url.Parse(t.Path)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
		}
		return base.ResolveReference(ref).String(), nil
	}
}

// String returns a short human-readable form of the target
func (t Target) String() string {
	switch {
	case t.File != "":
		return "file:" + t.File
	case t.URL != "":
		return t.URL
	case t.Path != "":
		return "path:" + t.Path
	default:
		return "<empty>"
	}
}

// Viewport is the browser window size in CSS pixels
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Step is a single scripted interaction
type Step struct {
	Action   Action                `yaml:"action"`
	Selector string                `yaml:"selector,omitempty"`
	Text     string                `yaml:"text,omitempty"`
	State    WaitState             `yaml:"state,omitempty"`
	Duration time.Duration         `yaml:"duration,omitempty"`
	Timeout  time.Duration         `yaml:"timeout,omitempty"`
	Path     string                `yaml:"path,omitempty"`
	FullPage *bool                 `yaml:"full_page,omitempty"`
	Flags    map[string]Visibility `yaml:"flags,omitempty"`
	Target   *Target               `yaml:"target,omitempty"`
}

// Navigate returns a step that loads target in the current page
func Navigate(target Target) Step {
	return Step{Action: ActionNavigate, Target: &target}
}

// ForceState returns a step that shows or hides elements by id
func ForceState(flags map[string]Visibility) Step {
	return Step{Action: ActionForceState, Flags: flags}
}

// Click returns a click step
func Click(selector string) Step {
	return Step{Action: ActionClick, Selector: selector}
}

// Fill returns a step that replaces the value of an input
func Fill(selector, text string) Step {
	return Step{Action: ActionFill, Selector: selector, Text: text}
}

// WaitFor returns a step that blocks until selector reaches state
func WaitFor(selector string, state WaitState) Step {
	return Step{Action: ActionWait, Selector: selector, State: state}
}

// Pause returns a fixed-delay wait step
func Pause(d time.Duration) Step {
	return Step{Action: ActionWait, Duration: d}
}

// Capture returns a screenshot step
func Capture(path string) Step {
	return Step{Action: ActionCapture, Path: path}
}

// WithTimeout returns a copy of the step with its element timeout overridden
func (s Step) WithTimeout(d time.Duration) Step {
	s.Timeout = d
	return s
}

// Validate checks the fields required by the step's action
func (s Step) Validate() error {
	if s.Timeout < 0 {
		return fmt.Errorf("%w: negative timeout", ErrInvalidStep)
	}

	switch s.Action {
	case ActionNavigate:
		if s.Target == nil {
			return fmt.Errorf("%w: navigate requires a target", ErrInvalidStep)
		}
		return s.Target.Validate()

	case ActionForceState:
		if len(s.Flags) == 0 {
			return fmt.Errorf("%w: force_state requires flags", ErrInvalidStep)
		}
		for id, v := range s.Flags {
			if id == "" {
				return fmt.Errorf("%w: force_state flag with empty id", ErrInvalidStep)
			}
			if v != VisibilityShow && v != VisibilityHide {
				return fmt.Errorf("%w: flag %q must be show or hide, got %q", ErrInvalidStep, id, v)
			}
		}

	case ActionClick:
		if s.Selector == "" {
			return fmt.Errorf("%w: click requires a selector", ErrInvalidStep)
		}

	case ActionFill:
		if s.Selector == "" {
			return fmt.Errorf("%w: fill requires a selector", ErrInvalidStep)
		}

	case ActionWait:
		if s.Selector == "" && s.Duration <= 0 {
			return fmt.Errorf("%w: wait requires a selector or a positive duration", ErrInvalidStep)
		}
		if s.Selector != "" && s.Duration > 0 {
			return fmt.Errorf("%w: wait takes a selector or a duration, not both", ErrInvalidStep)
		}
		switch s.State {
		case "", WaitStateAttached, WaitStateDetached, WaitStateVisible, WaitStateHidden:
		default:
			return fmt.Errorf("%w: invalid wait state %q", ErrInvalidStep, s.State)
		}
		if s.Selector == "" && s.State != "" {
			return fmt.Errorf("%w: wait state needs a selector", ErrInvalidStep)
		}

	case ActionCapture:
		if s.Path == "" {
			return fmt.Errorf("%w: capture requires a path", ErrInvalidStep)
		}

	case "":
		return fmt.Errorf("%w: missing action", ErrInvalidStep)

	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidStep, s.Action)
	}

	return nil
}

// WaitStateOrDefault returns the step's wait state, visible when unset
func (s Step) WaitStateOrDefault() WaitState {
	if s.State == "" {
		return WaitStateVisible
	}
	return s.State
}

// FlagIDs returns the force_state element ids in a stable order
func (s Step) FlagIDs() []string {
	ids := make([]string, 0, len(s.Flags))
	for id := range s.Flags {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subject returns the selector, path or target the step acts on
func (s Step) Subject() string {
	switch s.Action {
	case ActionNavigate:
		if s.Target != nil {
			return s.Target.String()
		}
	case ActionForceState:
		parts := make([]string, 0, len(s.Flags))
		for _, id := range s.FlagIDs() {
			parts = append(parts, id+"="+string(s.Flags[id]))
		}
		return strings.Join(parts, ",")
	case ActionWait:
		if s.Selector == "" {
			return s.Duration.String()
		}
		return s.Selector
	case ActionCapture:
		return s.Path
	}
	return s.Selector
}

// Scenario is an ordered list of steps run against one browser session
type Scenario struct {
	Name        string    `yaml:"name"`
	Target      Target    `yaml:"target"`
	Viewport    *Viewport `yaml:"viewport,omitempty"`
	FullPage    bool      `yaml:"full_page,omitempty"`
	HiddenClass string    `yaml:"hidden_class,omitempty"`
	Output      string    `yaml:"output,omitempty"`
	Steps       []Step    `yaml:"steps"`
}

// NewScenario creates a scenario with validation
func NewScenario(name string, target Target, steps ...Step) (*Scenario, error) {
	s := &Scenario{
		Name:   name,
		Target: target,
		Steps:  steps,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the target, every step and that at least one screenshot is declared
func (s *Scenario) Validate() error {
	if err := s.Target.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	if s.Viewport != nil && (s.Viewport.Width <= 0 || s.Viewport.Height <= 0) {
		return fmt.Errorf("%w: viewport must be positive, got %dx%d", ErrInvalidScenario, s.Viewport.Width, s.Viewport.Height)
	}
	for i, step := range s.Steps {
		if err := step.Validate(); err != nil {
			return fmt.Errorf("%w: step %d: %w", ErrInvalidScenario, i+1, err)
		}
	}
	if len(s.Captures()) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, ErrNoCapture)
	}
	return nil
}

// Captures returns every screenshot path the scenario declares, in run order
func (s *Scenario) Captures() []string {
	var paths []string
	for _, step := range s.Steps {
		if step.Action == ActionCapture {
			paths = append(paths, step.Path)
		}
	}
	if s.Output != "" {
		paths = append(paths, s.Output)
	}
	return paths
}

// HiddenClassOrDefault returns the class force_state toggles
func (s *Scenario) HiddenClassOrDefault() string {
	if s.HiddenClass == "" {
		return DefaultHiddenClass
	}
	return s.HiddenClass
}
