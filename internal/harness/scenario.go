package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario defines a decoding scenario.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Exactly one source: a circuit (heralded decoding) or an error model
	// (static decoding), as a file path or inline text.
	Circuit     string `yaml:"circuit,omitempty"`
	CircuitText string `yaml:"circuit_text,omitempty"`
	Model       string `yaml:"model,omitempty"`
	ModelText   string `yaml:"model_text,omitempty"`

	// Config is an optional CUE decoder configuration file.
	Config string `yaml:"config,omitempty"`

	// Shots are decoded in order; shot indices label captured failures.
	Shots []Shot `yaml:"shots"`

	// Assertions validate the compiled model and the failure store.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Shot is one detection event record given by its fired detectors.
type Shot struct {
	Name      string      `yaml:"name"`
	Detectors []int       `yaml:"detectors"`
	Expect    *ShotExpect `yaml:"expect,omitempty"`
}

// ShotExpect is the expected outcome of a shot. Failure, when set, is the
// expected solver failure reason and Observables is ignored.
type ShotExpect struct {
	Observables []int  `yaml:"observables"`
	Failure     string `yaml:"failure,omitempty"`
}

// Assertion types.
const (
	AssertModel            = "model"
	AssertEdge             = "edge"
	AssertHeraldEdge       = "herald_edge"
	AssertFailuresRecorded = "failures_recorded"
)

// Assertion validates the compiled model or the failure store.
type Assertion struct {
	Type string `yaml:"type"`

	// model
	Kind           string `yaml:"kind,omitempty"`
	NumDetectors   *int   `yaml:"num_detectors,omitempty"`
	NumObservables *int   `yaml:"num_observables,omitempty"`
	NumEdges       *int   `yaml:"num_edges,omitempty"`
	NumHeralds     *int   `yaml:"num_heralds,omitempty"`

	// edge, herald_edge
	Detectors []int `yaml:"detectors,omitempty"`
	Herald    *int  `yaml:"herald,omitempty"`

	// failures_recorded
	Count *int `yaml:"count,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Relative paths in
// the scenario are resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Parse YAML with strict field validation (catches typos like "shot:" vs "shots:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := filepath.Dir(path)
	for _, p := range []*string{&scenario.Circuit, &scenario.Model, &scenario.Config} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario %s: %w", path, err)
	}

	return &scenario, nil
}

// LoadScenarios loads every .yaml and .yml file directly in dir, sorted by
// file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}

	scenarios := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, err
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	sources := 0
	for _, v := range []string{s.Circuit, s.CircuitText, s.Model, s.ModelText} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return fmt.Errorf("exactly one of circuit, circuit_text, model, model_text is required (got %d)", sources)
	}

	for _, p := range []string{s.Circuit, s.Model, s.Config} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", p)
		}
	}

	if len(s.Shots) == 0 {
		return fmt.Errorf("shots list is required and must be non-empty")
	}

	for i, shot := range s.Shots {
		if shot.Name == "" {
			return fmt.Errorf("shots[%d]: name is required", i)
		}
		for _, d := range shot.Detectors {
			if d < 0 {
				return fmt.Errorf("shots[%d]: negative detector %d", i, d)
			}
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertModel:
		if a.Kind == "" && a.NumDetectors == nil && a.NumObservables == nil && a.NumEdges == nil && a.NumHeralds == nil {
			return fmt.Errorf("assertions[%d]: model needs at least one of kind, num_detectors, num_observables, num_edges, num_heralds", index)
		}
	case AssertEdge:
		if a.Detectors == nil {
			return fmt.Errorf("assertions[%d]: detectors is required for edge (use [] for the empty edge)", index)
		}
	case AssertHeraldEdge:
		if a.Herald == nil {
			return fmt.Errorf("assertions[%d]: herald is required for herald_edge", index)
		}
		if a.Detectors == nil {
			return fmt.Errorf("assertions[%d]: detectors is required for herald_edge", index)
		}
	case AssertFailuresRecorded:
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: non-negative count is required for failures_recorded", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
