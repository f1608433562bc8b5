package rete

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rete/internal/ir"
)

func TestCompilePattern(t *testing.T) {
	tests := []struct {
		name    string
		pattern ir.Pattern
		want    CompiledPattern
	}{
		{
			name:    "constants and variables",
			pattern: pat(v("x"), c(str("on")), v("y")),
			want: CompiledPattern{
				Constants: []ConstantTest{{Field: 1, Value: str("on")}},
				Vars:      []VarTest{{Var: "x", Field: 0}, {Var: "y", Field: 2}},
			},
		},
		{
			name:    "repeated variable becomes equality",
			pattern: pat(v("x"), c(str("self")), v("x")),
			want: CompiledPattern{
				Constants:  []ConstantTest{{Field: 1, Value: str("self")}},
				Equalities: []EqualityTest{{Left: 0, Right: 2}},
				Vars:       []VarTest{{Var: "x", Field: 0}},
			},
		},
		{
			name:    "wildcards produce nothing",
			pattern: pat(wild(), wild(), wild()),
			want:    CompiledPattern{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CompilePattern(ir.DefaultSchema, tt.pattern)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompilePatternArity(t *testing.T) {
	_, err := CompilePattern(ir.DefaultSchema, pat(v("x")))
	assert.True(t, HasCode(err, ErrCodeArity))
}

func TestRelinkKeepsDescendantsFirst(t *testing.T) {
	net := newNet(t)
	mustProduction(t, net, rule("loop",
		pat(v("x"), c(str("on")), v("y")),
		pat(v("y"), c(str("on")), v("z"))), nil)

	j1 := net.Children(RootID)[0]
	bm := net.Children(j1)[0]
	j2 := net.Children(bm)[0]
	amem := net.nodes[j1].amem

	assert.Equal(t, []NodeID{j1}, net.Successors(amem), "j2 starts right-unlinked")

	mustAdd(t, net, num(1), str("on"), num(1))
	assert.Equal(t, []NodeID{j2, j1}, net.Successors(amem))
}
