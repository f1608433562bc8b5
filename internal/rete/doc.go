// Package rete implements an incremental Rete match network.
//
// The network maintains, as facts (WMEs) are added and removed one at a
// time, the set of all consistent variable bindings that satisfy each
// registered production's conjunction of patterns.
//
// Structure:
//
//	root (beta memory, dummy token)
//	  └─ join(amem A) ─ beta memory ─ join(amem B) ─ terminal
//
// Nodes live in an arena and are addressed by NodeID. Alpha memories live in
// a second arena addressed by AlphaID. Parent/child edges are index lists, so
// the graph holds no pointer cycles between nodes.
//
// Propagation is synchronous and depth-first. Children are activated in
// registration order. Alpha memory successors are ordered descendants first
// so a WME that matches two conditions of one production is joined exactly
// once.
//
// Left/right unlinking is on by default (WithUnlinking(false) keeps every
// join attached to both inputs). Both modes deliver identical activation
// sequences; only the amount of wasted scanning differs.
//
// A Network is not safe for concurrent use. Callers serialize whole
// add/remove transactions (see internal/engine).
package rete
