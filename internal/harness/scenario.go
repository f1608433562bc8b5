package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario loads rules, applies a sequence of working memory changes and
// asserts on the resulting activation trace and the final matches.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Rules lists CUE rule files. Relative paths are resolved against the
	// scenario file's directory by LoadScenario.
	Rules []string `yaml:"rules"`

	// Unlinking overrides the network's left/right unlinking. Default on.
	Unlinking *bool `yaml:"unlinking,omitempty"`

	// Steps are applied in order, one engine transaction each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final trace and matches.
	// Supported types: match_count, match_contains, trace_order, trace_count
	Assertions []Assertion `yaml:"assertions"`
}

// Step asserts or retracts one fact. Exactly one of Assert and Retract is set.
type Step struct {
	// Assert holds one value per schema field.
	Assert []any `yaml:"assert,omitempty"`

	// As labels the asserted fact. Labels replace fact IDs in the trace and
	// are how Retract names a fact.
	As string `yaml:"as,omitempty"`

	// Retract names a fact by label (or by raw fact ID).
	Retract string `yaml:"retract,omitempty"`
}

// TraceRef selects trace events by kind and rule. Empty fields match anything.
type TraceRef struct {
	Kind string `yaml:"kind,omitempty"`
	Rule string `yaml:"rule,omitempty"`
}

// Assertion validates the trace or the final matches.
type Assertion struct {
	// Type specifies the assertion type:
	// - "match_count": Rule has exactly Count current matches
	// - "match_contains": Rule has a current match whose binding contains Binding
	// - "trace_order": Events occur in this order (gaps allowed)
	// - "trace_count": Events matching Rule and Kind occur exactly Count times
	Type string `yaml:"type"`

	// Rule names the production (match_count, match_contains, trace_count).
	Rule string `yaml:"rule,omitempty"`

	// Kind optionally filters trace_count to "activate" or "retract".
	Kind string `yaml:"kind,omitempty"`

	// Count is the expected number (match_count, trace_count).
	Count int `yaml:"count,omitempty"`

	// Binding is a subset of the expected binding (match_contains).
	Binding map[string]any `yaml:"binding,omitempty"`

	// Events is the expected order (trace_order).
	Events []TraceRef `yaml:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertMatchCount    = "match_count"
	AssertMatchContains = "match_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// Rule paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	base := filepath.Dir(path)
	for i, p := range scenario.Rules {
		if !filepath.IsAbs(p) {
			scenario.Rules[i] = filepath.Join(base, p)
		}
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	for _, p := range scenario.Rules {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: rule file not found: %s", p)
		}
	}
	return scenario, nil
}

// ParseScenario decodes scenario YAML without touching the filesystem.
// Rule paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Rules) == 0 {
		return fmt.Errorf("rules list is required and must be non-empty")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	labels := make(map[string]bool)
	for i, step := range s.Steps {
		switch {
		case step.Assert != nil && step.Retract != "":
			return fmt.Errorf("steps[%d]: assert and retract are exclusive", i)
		case step.Assert != nil:
			if step.As != "" {
				if labels[step.As] {
					return fmt.Errorf("steps[%d]: duplicate label %q", i, step.As)
				}
				labels[step.As] = true
			}
		case step.Retract != "":
			if step.As != "" {
				return fmt.Errorf("steps[%d]: as is only valid with assert", i)
			}
		default:
			return fmt.Errorf("steps[%d]: assert or retract is required", i)
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
	case AssertMatchCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for match_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for match_count", index)
		}
	case AssertMatchContains:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for match_contains", index)
		}
		if len(a.Binding) == 0 {
			return fmt.Errorf("assertions[%d]: binding is required for match_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Rule == "" {
			return fmt.Errorf("assertions[%d]: rule is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Kind != "" && a.Kind != "activate" && a.Kind != "retract" {
		return fmt.Errorf("assertions[%d]: kind must be activate or retract", index)
	}
	return nil
}
