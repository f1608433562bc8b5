package rete

import "github.com/roach88/rete/internal/ir"

// CompiledPattern is a pattern resolved against a schema: alpha tests for
// its constants and repeated variables, and join tests for its variables.
type CompiledPattern struct {
	Constants  []ConstantTest
	Equalities []EqualityTest
	Vars       []VarTest
}

// CompilePattern resolves a pattern to field indexes.
//
//   - a constant becomes a ConstantTest
//   - the first occurrence of a variable becomes a VarTest
//   - a later occurrence of the same variable becomes an EqualityTest
//     against the first
//   - a wildcard produces nothing
func CompilePattern(schema ir.Schema, p ir.Pattern) (CompiledPattern, error) {
	var cp CompiledPattern
	if len(p.Terms) != len(schema) {
		return cp, newError(ErrCodeArity, NoNode, "pattern has %d terms, schema has %d fields", len(p.Terms), len(schema))
	}

	first := make(map[string]Field)
	for i, term := range p.Terms {
		f := Field(i)
		switch {
		case term.IsConst():
			cp.Constants = append(cp.Constants, ConstantTest{Field: f, Value: term.Value})
		case term.IsVar():
			if at, seen := first[term.Var]; seen {
				cp.Equalities = append(cp.Equalities, EqualityTest{Left: at, Right: f})
				continue
			}
			first[term.Var] = f
			cp.Vars = append(cp.Vars, VarTest{Var: term.Var, Field: f})
		}
	}
	return cp, nil
}
