package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/rete/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for i, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] seq=%d %s %s %s %v\n",
			i+1, event.Seq, event.Kind, event.Rule, ir.Format(event.Binding), event.Facts)
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertMatchCount:
			err = assertMatchCount(result, a)
		case AssertMatchContains:
			err = assertMatchContains(result, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// assertMatchCount checks the number of current matches of a rule.
func assertMatchCount(result *Result, a Assertion) error {
	matches, ok := result.Matches[a.Rule]
	if !ok {
		return &AssertionError{
			Type:     AssertMatchCount,
			Expected: fmt.Sprintf("rule %s", a.Rule),
			Actual:   "no such rule",
			Trace:    result.Trace,
		}
	}
	if len(matches) != a.Count {
		return &AssertionError{
			Type:     AssertMatchCount,
			Expected: fmt.Sprintf("%s has %d matches", a.Rule, a.Count),
			Actual:   fmt.Sprintf("%d matches", len(matches)),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertMatchContains checks that some current match of a rule binds every
// variable in a.Binding to the given value.
func assertMatchContains(result *Result, a Assertion) error {
	want, err := ir.FromAny(a.Binding)
	if err != nil {
		return fmt.Errorf("match_contains: binding: %w", err)
	}
	expected := want.(ir.IRObject)

	for _, m := range result.Matches[a.Rule] {
		if bindingContains(m.Binding, expected) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertMatchContains,
		Expected: fmt.Sprintf("%s match with binding %s", a.Rule, ir.Format(expected)),
		Actual:   fmt.Sprintf("%d matches, none contain it", len(result.Matches[a.Rule])),
		Trace:    result.Trace,
	}
}

func bindingContains(actual, expected ir.IRObject) bool {
	for k, v := range expected {
		got, ok := actual[k]
		if !ok || !ir.Equal(got, v) {
			return false
		}
	}
	return true
}

func (r TraceRef) matches(ev TraceEvent) bool {
	return (r.Kind == "" || r.Kind == ev.Kind) && (r.Rule == "" || r.Rule == ev.Rule)
}

func (r TraceRef) String() string {
	kind, rule := r.Kind, r.Rule
	if kind == "" {
		kind = "*"
	}
	if rule == "" {
		rule = "*"
	}
	return kind + " " + rule
}

// assertTraceOrder checks that the events occur in order as a subsequence
// of the trace. Intervening events are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for i, ref := range a.Events {
		start := pos
		for pos < len(trace) && !ref.matches(trace[pos]) {
			pos++
		}
		if pos == len(trace) {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("event %d (%s) not found after position %d", i+1, ref, start),
				Trace:    trace,
			}
		}
		pos++
	}
	return nil
}

// assertTraceCount checks the number of trace events for a rule, optionally
// of one kind.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	ref := TraceRef{Kind: a.Kind, Rule: a.Rule}
	count := 0
	for _, ev := range trace {
		if ref.matches(ev) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%s occurs %d times", ref, a.Count),
			Actual:   fmt.Sprintf("%d times", count),
			Trace:    trace,
		}
	}
	return nil
}
