package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/themizzi/uiverify/internal/models"
)

// Load reads and validates a scenario file. Relative file targets and capture
// paths in the document stay relative to the working directory, matching how
// the command line resolves them. A missing name defaults to the file name.
func Load(path string) (*models.Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return s, nil
}

// Parse decodes a YAML scenario document and validates it. Unknown fields are
// rejected.
func Parse(data []byte) (*models.Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s models.Scenario
	if err := dec.Decode(&s); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", models.ErrInvalidScenario)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidScenario, err)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
