package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rete/internal/ir"
)

func sampleResult() *Result {
	r := NewResult()
	r.Trace = []TraceEvent{
		{Seq: 2, Kind: "activate", Rule: "a", Binding: ir.IRObject{"x": ir.IRInt(1)}},
		{Seq: 4, Kind: "activate", Rule: "b"},
		{Seq: 6, Kind: "retract", Rule: "a", Binding: ir.IRObject{"x": ir.IRInt(1)}},
	}
	r.Matches["a"] = []MatchView{}
	r.Matches["b"] = []MatchView{{Binding: ir.IRObject{"x": ir.IRInt(1), "y": ir.IRString("z")}}}
	return r
}

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"match_count ok", Assertion{Type: AssertMatchCount, Rule: "b", Count: 1}, ""},
		{"match_count zero", Assertion{Type: AssertMatchCount, Rule: "a", Count: 0}, ""},
		{"match_count wrong", Assertion{Type: AssertMatchCount, Rule: "b", Count: 2}, "1 matches"},
		{"match_count unknown rule", Assertion{Type: AssertMatchCount, Rule: "zz", Count: 0}, "no such rule"},
		{"match_contains subset", Assertion{Type: AssertMatchContains, Rule: "b", Binding: map[string]any{"y": "z"}}, ""},
		{"match_contains kind-sensitive", Assertion{Type: AssertMatchContains, Rule: "b", Binding: map[string]any{"x": "1"}}, "none contain it"},
		{"trace_order ok", Assertion{Type: AssertTraceOrder, Events: []TraceRef{
			{Kind: "activate", Rule: "a"}, {Kind: "retract", Rule: "a"},
		}}, ""},
		{"trace_order repeated ref", Assertion{Type: AssertTraceOrder, Events: []TraceRef{
			{Rule: "a"}, {Rule: "a"},
		}}, ""},
		{"trace_order wrong", Assertion{Type: AssertTraceOrder, Events: []TraceRef{
			{Rule: "b"}, {Kind: "activate", Rule: "a"},
		}}, "event 2 (activate a)"},
		{"trace_count any kind", Assertion{Type: AssertTraceCount, Rule: "a", Count: 2}, ""},
		{"trace_count kind", Assertion{Type: AssertTraceCount, Rule: "a", Kind: "retract", Count: 1}, ""},
		{"trace_count wrong", Assertion{Type: AssertTraceCount, Rule: "b", Count: 0}, "1 times"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := EvaluateAssertions(sampleResult(), []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestMarshalTrace_Canonical(t *testing.T) {
	data, err := MarshalTrace("s", []TraceEvent{
		{Seq: 1, Kind: "activate", Rule: "r", Binding: ir.IRObject{"b": ir.IRInt(2), "a": ir.IRString("<x>")}, Facts: []string{"f-1"}},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`{"scenario_name":"s","trace":[{"binding":{"a":"<x>","b":2},"facts":["f-1"],"kind":"activate","rule":"r","seq":1}]}`,
		string(data))
}
