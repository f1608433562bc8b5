package compiler

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/rete/internal/ir"
)

// Rule files look like:
//
//	schema: ["id", "attr", "value"]   // optional, this is the default
//
//	rule: "on-red": {
//		when: [
//			{id: "?x", attr: "on", value: "?y"},
//			{id: "?y", attr: "color", value: "red"},
//		]
//	}
//
// A pattern is either a struct keyed by field name (missing fields are
// wildcards) or a list with one entry per schema field. Strings starting
// with "?" are variables, "*" is a wildcard, anything else is a constant.

// Ruleset is the compiled content of one or more rule files.
type Ruleset struct {
	Schema ir.Schema
	Rules  []ir.Rule
}

// CompileSource compiles rule source text. Used by tests and by callers
// that hold rules in memory.
func CompileSource(filename, src string) (*Ruleset, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src, cue.Filename(filename))
	return CompileRuleset(v)
}

// CompileRuleset compiles the top-level value of a rules package.
// Rules come out in label order, which CUE keeps as source order.
func CompileRuleset(v cue.Value) (*Ruleset, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	schema, err := CompileSchema(v.LookupPath(cue.ParsePath("schema")))
	if err != nil {
		return nil, err
	}
	rs := &Ruleset{Schema: schema}

	rulesVal := v.LookupPath(cue.ParsePath("rule"))
	if !rulesVal.Exists() {
		return rs, nil
	}
	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		rule, err := CompileRule(iter.Value(), schema)
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, *rule)
	}
	return rs, nil
}

// CompileSchema parses the optional schema list. A missing value yields
// ir.DefaultSchema.
func CompileSchema(v cue.Value) (ir.Schema, error) {
	if !v.Exists() {
		return append(ir.Schema(nil), ir.DefaultSchema...), nil
	}
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "schema",
			Message: "schema must be a list of field names",
			Pos:     v.Pos(),
		}
	}

	var schema ir.Schema
	for iter.Next() {
		name, err := iter.Value().String()
		if err != nil {
			return nil, &CompileError{
				Field:   "schema",
				Message: "schema entries must be strings",
				Pos:     iter.Value().Pos(),
			}
		}
		schema = append(schema, name)
	}
	if err := schema.Validate(); err != nil {
		return nil, &CompileError{Field: "schema", Message: err.Error(), Pos: v.Pos()}
	}
	return schema, nil
}

// CompileRule parses one rule struct. The rule name is the struct label.
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rule: "r": { when: [...] }`)
//	rule, err := CompileRule(v.LookupPath(cue.ParsePath(`rule."r"`)), ir.DefaultSchema)
func CompileRule(v cue.Value, schema ir.Schema) (*ir.Rule, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	rule := &ir.Rule{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		rule.Name = strings.Trim(labels[len(labels)-1].String(), `"`)
	}

	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{
			Field:   "when",
			Message: "when clause is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := whenVal.List()
	if err != nil {
		return nil, &CompileError{
			Field:   "when",
			Message: "when must be a list of patterns",
			Pos:     whenVal.Pos(),
		}
	}

	for iter.Next() {
		p, err := compilePattern(iter.Value(), schema)
		if err != nil {
			return nil, err
		}
		rule.Patterns = append(rule.Patterns, p)
	}
	if len(rule.Patterns) == 0 {
		return nil, &CompileError{
			Field:   "when",
			Message: "at least one pattern is required",
			Pos:     whenVal.Pos(),
		}
	}
	return rule, nil
}

func compilePattern(v cue.Value, schema ir.Schema) (ir.Pattern, error) {
	terms := make([]ir.Term, len(schema))

	switch v.Kind() {
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return ir.Pattern{}, formatCUEError(err)
		}
		i := 0
		for iter.Next() {
			if i >= len(schema) {
				return ir.Pattern{}, arityError(v, schema)
			}
			term, err := compileTerm(iter.Value())
			if err != nil {
				return ir.Pattern{}, err
			}
			terms[i] = term
			i++
		}
		if i != len(schema) {
			return ir.Pattern{}, arityError(v, schema)
		}

	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return ir.Pattern{}, formatCUEError(err)
		}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			i, ok := schema.Index(name)
			if !ok {
				return ir.Pattern{}, &CompileError{
					Field:   "when.field",
					Message: fmt.Sprintf("unknown field %q, schema has %v", name, []string(schema)),
					Pos:     iter.Value().Pos(),
				}
			}
			term, err := compileTerm(iter.Value())
			if err != nil {
				return ir.Pattern{}, err
			}
			terms[i] = term
		}

	default:
		return ir.Pattern{}, &CompileError{
			Field:   "when",
			Message: "pattern must be a struct or a list",
			Pos:     v.Pos(),
		}
	}
	return ir.Pattern{Terms: terms}, nil
}

func arityError(v cue.Value, schema ir.Schema) error {
	return &CompileError{
		Field:   "when.arity",
		Message: fmt.Sprintf("positional pattern must have %d entries", len(schema)),
		Pos:     v.Pos(),
	}
}

func compileTerm(v cue.Value) (ir.Term, error) {
	if v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return ir.Term{}, formatCUEError(err)
		}
		switch {
		case s == "*":
			return ir.Wildcard(), nil
		case strings.HasPrefix(s, "?"):
			name := strings.TrimPrefix(s, "?")
			if name == "" {
				return ir.Term{}, &CompileError{
					Field:   "when.var",
					Message: `variable needs a name after "?"`,
					Pos:     v.Pos(),
				}
			}
			return ir.Variable(name), nil
		}
		return ir.Constant(ir.IRString(s)), nil
	}

	val, err := constValue(v)
	if err != nil {
		return ir.Term{}, err
	}
	return ir.Constant(val), nil
}

// constValue converts a concrete CUE value into an IRValue.
func constValue(v cue.Value) (ir.IRValue, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.IRNull{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRBool(b), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRInt(n), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.IRString(s), nil
	case cue.FloatKind:
		return nil, &CompileError{
			Field:   "type",
			Message: "float constants are not supported, use int",
			Pos:     v.Pos(),
		}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var arr ir.IRArray
		for iter.Next() {
			elem, err := constValue(iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, elem)
		}
		if arr == nil {
			arr = ir.IRArray{}
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		obj := ir.IRObject{}
		for iter.Next() {
			elem, err := constValue(iter.Value())
			if err != nil {
				return nil, err
			}
			obj[iter.Selector().Unquoted()] = elem
		}
		return obj, nil
	default:
		return nil, &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("value must be concrete, got %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}
