package rete

import (
	"log/slog"

	"github.com/roach88/rete/internal/ir"
)

// Network is a Rete match network over WMEs of a fixed schema.
type Network struct {
	schema    ir.Schema
	unlinking bool
	logger    *slog.Logger

	nodes      []*node
	alphas     []*alphaMemory
	alphaIndex map[string]AlphaID
	dummy      *Token

	// topology is bumped on every structural edit and invalidates
	// memoized ancestor lookups.
	topology uint64

	nextWME uint64
	wmes    []*WME

	productions map[string]NodeID
	order       []string

	stats counters
}

// Option configures a Network.
type Option func(*Network)

// WithUnlinking turns left/right unlinking on or off. On by default.
func WithUnlinking(enabled bool) Option {
	return func(n *Network) {
		n.unlinking = enabled
	}
}

// WithLogger sets the logger used for structural changes.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(n *Network) {
		n.logger = l
	}
}

// New creates an empty network: a root beta memory holding the dummy token.
func New(schema ir.Schema, opts ...Option) (*Network, error) {
	if err := schema.Validate(); err != nil {
		return nil, newError(ErrCodeArity, NoNode, "%v", err)
	}
	net := &Network{
		schema:      append(ir.Schema(nil), schema...),
		unlinking:   true,
		logger:      slog.Default(),
		alphaIndex:  make(map[string]AlphaID),
		productions: make(map[string]NodeID),
		topology:    1,
	}
	for _, opt := range opts {
		opt(net)
	}

	root := net.newNode(KindBetaMemory, NoNode)
	net.dummy = &Token{node: root.id, binding: Binding{}}
	root.items = append(root.items, net.dummy)
	return net, nil
}

// Schema returns the field names of the network's WMEs.
func (net *Network) Schema() ir.Schema { return net.schema }

// Unlinking reports whether left/right unlinking is enabled.
func (net *Network) Unlinking() bool { return net.unlinking }

// Root returns the dummy token at the top of every token chain.
func (net *Network) Root() *Token { return net.dummy }

// AddWME asserts a new fact. The WME passes through alpha memories in
// creation order; each memory right-activates its successors before the
// next memory sees the WME.
func (net *Network) AddWME(fields ...ir.IRValue) (*WME, error) {
	if len(fields) != len(net.schema) {
		return nil, newError(ErrCodeArity, NoNode, "WME has %d fields, schema has %d", len(fields), len(net.schema))
	}
	vals := make([]ir.IRValue, len(fields))
	for i, v := range fields {
		if v == nil {
			v = ir.IRNull{}
		}
		vals[i] = v
	}

	net.nextWME++
	w := &WME{ID: net.nextWME, Fields: vals, live: true}
	net.wmes = append(net.wmes, w)

	for _, am := range net.alphas {
		if !am.dead && am.matches(w) {
			net.activateAlpha(am, w)
		}
	}
	return w, nil
}

// RemoveWME retracts a fact and every token built from it. Removing a WME
// that is not live is a no-op and returns false.
func (net *Network) RemoveWME(w *WME) bool {
	if w == nil || !w.live {
		return false
	}
	w.live = false
	net.wmes = removeItem(net.wmes, w)

	for _, id := range w.amems {
		net.deactivateAlpha(net.alphas[id], w)
	}
	w.amems = nil

	// A WME that passes two conditions of one chain appears in several
	// tokens; deleting one may or may not delete the others.
	for len(w.tokens) > 0 {
		net.deleteToken(w.tokens[0])
	}
	return true
}

// WMEs returns the live WMEs in assertion order.
func (net *Network) WMEs() []*WME {
	return append([]*WME(nil), net.wmes...)
}

// RebuildBinding recomputes a token's binding by walking its chain from the
// root and replaying each join's tests. The result always equals
// t.Binding().
func (net *Network) RebuildBinding(t *Token) Binding {
	var chain []*Token
	for tok := t; tok != nil && tok.wme != nil; tok = tok.parent {
		chain = append(chain, tok)
	}

	b := Binding{}
	for i := len(chain) - 1; i >= 0; i-- {
		tok := chain[i]
		join := net.nodes[net.nodes[tok.node].parent]
		for _, test := range join.tests {
			if _, ok := b[test.Var]; !ok {
				b[test.Var] = tok.wme.Get(test.Field)
			}
		}
	}
	return b
}
