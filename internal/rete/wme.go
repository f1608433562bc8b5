package rete

import (
	"strings"

	"github.com/roach88/rete/internal/ir"
)

// Field is a position in the WME tuple, resolved against the schema when a
// pattern is compiled.
type Field int

// WME is a working memory element: a fixed-arity tuple of values.
//
// Identity is the pointer. Two WMEs with equal fields are distinct facts
// and are retracted independently.
type WME struct {
	// ID is assigned by the network, increasing from 1.
	ID uint64

	// Fields holds one value per schema field.
	Fields []ir.IRValue

	amems  []AlphaID
	tokens []*Token
	live   bool
}

// Get returns the value at f.
func (w *WME) Get(f Field) ir.IRValue {
	return w.Fields[f]
}

// Live reports whether the WME is currently in working memory.
func (w *WME) Live() bool { return w.live }

func (w *WME) String() string {
	parts := make([]string, len(w.Fields))
	for i, v := range w.Fields {
		parts[i] = ir.Format(v)
	}
	return "(" + strings.Join(parts, " ") + ")"
}
