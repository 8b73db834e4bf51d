package director

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteScenario stores scenario as YAML with two-space indentation.
func WriteScenario(scenario *Scenario, path string) error {
	if scenario.Version == "" {
		scenario.Version = Version
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(scenario); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode scenario: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// ReadScenario loads and validates the scenario at path. Unknown keys are
// rejected so typos in hand-edited files do not silently drop tracks.
func ReadScenario(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	var scenario Scenario
	if err := dec.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &scenario, nil
}
