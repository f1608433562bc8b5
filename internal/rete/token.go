package rete

import "github.com/roach88/rete/internal/ir"

// Binding maps variable names to the values bound within one token.
// A binding is never mutated once its token exists; tokens may share one.
type Binding map[string]ir.IRValue

// Object converts the binding for hashing and canonical encoding.
func (b Binding) Object() ir.IRObject {
	obj := make(ir.IRObject, len(b))
	for k, v := range b {
		obj[k] = v
	}
	return obj
}

// Token is one partial or complete match: the WME that extended the match,
// the parent token holding the rest of it, and the accumulated binding.
//
// The dummy root token has no parent and no WME.
type Token struct {
	parent   *Token
	wme      *WME
	binding  Binding
	node     NodeID
	children []*Token
}

// Parent returns the token this one extends, or nil for the root token.
func (t *Token) Parent() *Token { return t.parent }

// WME returns the WME that extended the match, or nil for the root token.
func (t *Token) WME() *WME { return t.wme }

// Binding returns the token's binding. Callers must not modify it.
func (t *Token) Binding() Binding { return t.binding }

// Node returns the memory or terminal that owns the token.
func (t *Token) Node() NodeID { return t.node }

// WMEs returns the matched WMEs in condition order.
func (t *Token) WMEs() []*WME {
	depth := 0
	for tok := t; tok.wme != nil; tok = tok.parent {
		depth++
	}
	wmes := make([]*WME, depth)
	for tok := t; tok.wme != nil; tok = tok.parent {
		depth--
		wmes[depth] = tok.wme
	}
	return wmes
}
