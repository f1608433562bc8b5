package ir

import (
	"errors"
	"fmt"
	"slices"
)

// Schema names the fields of every WME, in tuple order.
// It fixes WME arity for a network.
type Schema []string

// DefaultSchema is the classic (identifier, attribute, value) triple.
var DefaultSchema = Schema{"id", "attr", "value"}

// Index returns the tuple position of a field name.
func (s Schema) Index(name string) (int, bool) {
	i := slices.Index(s, name)
	return i, i >= 0
}

// Validate rejects empty schemas and duplicate field names.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return errors.New("schema: no fields")
	}
	seen := make(map[string]bool, len(s))
	for _, name := range s {
		if name == "" {
			return errors.New("schema: empty field name")
		}
		if seen[name] {
			return fmt.Errorf("schema: duplicate field %q", name)
		}
		seen[name] = true
	}
	return nil
}

// Term is one position of a pattern.
//
// Exactly one of these holds:
//   - constant: Value != nil
//   - variable: Var != ""
//   - wildcard: both empty
type Term struct {
	Var   string  `json:"var,omitempty"`
	Value IRValue `json:"value,omitempty"`
}

// Variable returns a variable term.
func Variable(name string) Term { return Term{Var: name} }

// Constant returns a constant term.
func Constant(v IRValue) Term { return Term{Value: v} }

// Wildcard returns a term that matches any value.
func Wildcard() Term { return Term{} }

func (t Term) IsVar() bool      { return t.Var != "" }
func (t Term) IsConst() bool    { return t.Var == "" && t.Value != nil }
func (t Term) IsWildcard() bool { return t.Var == "" && t.Value == nil }

// String renders the term the way rule files write it.
func (t Term) String() string {
	switch {
	case t.IsVar():
		return "?" + t.Var
	case t.IsConst():
		return Format(t.Value)
	default:
		return "*"
	}
}

// Pattern is one condition: one term per schema field.
type Pattern struct {
	Terms []Term `json:"terms"`
}

// Variables returns the variables of the pattern in first-occurrence order.
func (p Pattern) Variables() []string {
	var vars []string
	for _, t := range p.Terms {
		if t.IsVar() && !slices.Contains(vars, t.Var) {
			vars = append(vars, t.Var)
		}
	}
	return vars
}

// Rule is a named conjunction of patterns.
type Rule struct {
	Name     string    `json:"name"`
	Patterns []Pattern `json:"patterns"`
}

// Variables returns every variable bound by the rule, in binding order.
func (r Rule) Variables() []string {
	var vars []string
	for _, p := range r.Patterns {
		for _, v := range p.Variables() {
			if !slices.Contains(vars, v) {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// Validate checks the rule against a schema. Arity mismatches are rejected
// here so the network never sees a test on a field the WME does not have.
func (r Rule) Validate(schema Schema) error {
	if r.Name == "" {
		return errors.New("rule: empty name")
	}
	if len(r.Patterns) == 0 {
		return fmt.Errorf("rule %q: no patterns", r.Name)
	}
	for i, p := range r.Patterns {
		if len(p.Terms) != len(schema) {
			return fmt.Errorf("rule %q: pattern %d has %d terms, schema has %d fields",
				r.Name, i, len(p.Terms), len(schema))
		}
	}
	return nil
}
