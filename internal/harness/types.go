package harness

import "github.com/roach88/rete/internal/ir"

// TraceEvent is one activation or retraction in a scenario trace.
// Facts hold step labels where the scenario gave one, fact IDs otherwise.
type TraceEvent struct {
	Seq     int64       `json:"seq"`
	Kind    string      `json:"kind"` // "activate" or "retract"
	Rule    string      `json:"rule"`
	Binding ir.IRObject `json:"binding"`
	Facts   []string    `json:"facts"`
}

// MatchView is a current match at the end of a scenario.
type MatchView struct {
	Binding ir.IRObject `json:"binding"`
	Facts   []string    `json:"facts"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Trace contains all activations and retractions in seq order.
	Trace []TraceEvent `json:"trace"`

	// Matches holds the final matches per rule.
	Matches map[string][]MatchView `json:"matches,omitempty"`

	// Errors contains step and assertion failures.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Matches: make(map[string][]MatchView),
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
