package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/rete/internal/ir"
)

// Validation error codes (E100-E199)
const (
	ErrSchemaInvalid     = "E100" // schema empty or has duplicate fields
	ErrRuleNameEmpty     = "E101" // rule name is required
	ErrRuleNoPatterns    = "E102" // at least one pattern required
	ErrPatternArity      = "E103" // pattern width differs from schema
	ErrDuplicateRuleName = "E105" // two rules share a name
	ErrInvalidVarName    = "E108" // variable name is not an identifier
)

var varNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]*$`)

// ValidationError represents a rule validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled ruleset. Returns all errors found (does not
// fail fast).
func Validate(rs *Ruleset) []ValidationError {
	var errs []ValidationError

	if err := rs.Schema.Validate(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "schema",
			Message: err.Error(),
			Code:    ErrSchemaInvalid,
		})
	}

	seen := make(map[string]bool)
	for i, rule := range rs.Rules {
		field := fmt.Sprintf("rule[%d]", i)
		if rule.Name != "" {
			field = fmt.Sprintf("rule.%q", rule.Name)
		}

		if strings.TrimSpace(rule.Name) == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "rule name is required",
				Code:    ErrRuleNameEmpty,
			})
		} else if seen[rule.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate rule name: %q", rule.Name),
				Code:    ErrDuplicateRuleName,
			})
		}
		seen[rule.Name] = true

		errs = append(errs, validateRule(field, rule, rs.Schema)...)
	}
	return errs
}

func validateRule(field string, rule ir.Rule, schema ir.Schema) []ValidationError {
	var errs []ValidationError

	if len(rule.Patterns) == 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".when",
			Message: "at least one pattern is required",
			Code:    ErrRuleNoPatterns,
		})
	}

	for i, p := range rule.Patterns {
		pfield := fmt.Sprintf("%s.when[%d]", field, i)
		if len(p.Terms) != len(schema) {
			errs = append(errs, ValidationError{
				Field:   pfield,
				Message: fmt.Sprintf("pattern has %d terms, schema has %d fields", len(p.Terms), len(schema)),
				Code:    ErrPatternArity,
			})
		}
		for _, name := range p.Variables() {
			if !varNamePattern.MatchString(name) {
				errs = append(errs, ValidationError{
					Field:   pfield,
					Message: fmt.Sprintf("invalid variable name %q", name),
					Code:    ErrInvalidVarName,
				})
			}
		}
	}
	return errs
}
