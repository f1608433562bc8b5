package rete

import (
	"slices"
)

// AddBetaMemory attaches a beta memory under a join node, or returns the
// join's existing beta memory. A new memory is primed with the matches the
// join already produces.
func (net *Network) AddBetaMemory(parent NodeID) (NodeID, error) {
	p, err := net.lookup(parent)
	if err != nil {
		return NoNode, err
	}
	if p.kind != KindJoin {
		return NoNode, newError(ErrCodeWrongNodeKind, parent, "beta memory parent must be a join, got %s", p.kind)
	}
	for _, c := range p.children {
		if net.nodes[c].kind == KindBetaMemory {
			return c, nil
		}
	}

	bm := net.newNode(KindBetaMemory, parent)
	p.children = append(p.children, bm.id)
	net.updateFromAbove(p, bm)
	return bm.id, nil
}

// updateFromAbove primes a new child of join j with every match the join
// currently produces. Only the new child is activated.
func (net *Network) updateFromAbove(j, child *node) {
	p := net.nodes[j.parent]
	am := net.alphas[j.amem]
	for _, t := range slices.Clone(p.items) {
		for _, w := range am.items {
			if net.joinTest(j, t, w) {
				net.storeToken(child, t, w, makeBinding(j, t, w))
			}
		}
	}
}

// storeToken creates the token for (parent, w) in a beta memory or terminal
// and passes it on.
func (net *Network) storeToken(n *node, parent *Token, w *WME, b Binding) {
	t := &Token{
		parent:  parent,
		wme:     w,
		binding: b,
		node:    n.id,
	}
	n.items = append(n.items, t)
	parent.children = append(parent.children, t)
	w.tokens = append(w.tokens, t)

	if n.kind == KindTerminal {
		net.fire(n, t)
		return
	}
	for _, c := range slices.Clone(n.children) {
		net.leftActivate(net.nodes[c], t)
	}
}

// deleteToken removes t and everything built on it. Descendants go first so
// consumers see retractions deepest first. A beta memory left empty
// right-unlinks its linked children.
func (net *Network) deleteToken(t *Token) {
	for len(t.children) > 0 {
		net.deleteToken(t.children[0])
	}

	n := net.nodes[t.node]
	n.items = removeItem(n.items, t)
	if t.wme != nil {
		t.wme.tokens = removeItem(t.wme.tokens, t)
	}
	if t.parent != nil {
		t.parent.children = removeItem(t.parent.children, t)
	}

	switch n.kind {
	case KindTerminal:
		net.retract(n, t)
	case KindBetaMemory:
		if len(n.items) == 0 && net.unlinking {
			for _, c := range slices.Clone(n.children) {
				net.rightUnlink(net.nodes[c])
			}
		}
	}
}
