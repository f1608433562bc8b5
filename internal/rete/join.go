package rete

import (
	"slices"

	"github.com/roach88/rete/internal/ir"
)

// AddJoinNode attaches a join node under a beta memory, reading amem on its
// right input. A live join with the same parent, alpha memory and tests is
// shared instead of duplicated.
func (net *Network) AddJoinNode(parent NodeID, amemID AlphaID, tests []VarTest) (NodeID, error) {
	p, err := net.lookup(parent)
	if err != nil {
		return NoNode, err
	}
	if p.kind != KindBetaMemory {
		return NoNode, newError(ErrCodeWrongNodeKind, parent, "join parent must be a beta memory, got %s", p.kind)
	}
	am, err := net.alpha(amemID)
	if err != nil {
		return NoNode, err
	}
	for _, t := range tests {
		if err := net.checkField(t.Field); err != nil {
			return NoNode, err
		}
	}

	for _, c := range p.allChildren {
		child := net.nodes[c]
		if child.amem == amemID && slices.Equal(child.tests, tests) {
			return c, nil
		}
	}

	j := net.newNode(KindJoin, parent)
	j.amem = amemID
	j.tests = slices.Clone(tests)

	p.children = append(p.children, j.id)
	p.allChildren = append(p.allChildren, j.id)
	am.refs++
	net.insertSuccessor(am, j)

	if net.unlinking {
		if len(p.items) == 0 {
			net.rightUnlink(j)
		} else if len(am.items) == 0 {
			net.leftUnlink(j)
		}
	}
	return j.id, nil
}

// PerformJoinTest reports whether w is consistent with t under the join's
// tests: every variable already bound in t must equal the tested field.
// It is false when join is not a live join node.
func (net *Network) PerformJoinTest(join NodeID, t *Token, w *WME) bool {
	j, ok := net.liveJoin(join)
	if !ok {
		return false
	}
	return net.joinTest(j, t, w)
}

// MakeBinding extends t's binding with the variables the join binds for the
// first time from w. The parent binding is returned as-is when nothing new
// is bound, and nil when join is not a live join node.
func (net *Network) MakeBinding(join NodeID, t *Token, w *WME) Binding {
	j, ok := net.liveJoin(join)
	if !ok {
		return nil
	}
	return makeBinding(j, t, w)
}

func (net *Network) liveJoin(id NodeID) (*node, bool) {
	n, err := net.lookup(id)
	if err != nil || n.kind != KindJoin {
		return nil, false
	}
	return n, true
}

func (net *Network) joinTest(j *node, t *Token, w *WME) bool {
	net.countJoinTest()
	for _, test := range j.tests {
		bound, ok := t.binding[test.Var]
		if ok && !ir.Equal(bound, w.Get(test.Field)) {
			return false
		}
	}
	return true
}

func makeBinding(j *node, t *Token, w *WME) Binding {
	var b Binding
	for _, test := range j.tests {
		if _, ok := t.binding[test.Var]; ok {
			continue
		}
		if b == nil {
			b = make(Binding, len(t.binding)+len(j.tests))
			for k, v := range t.binding {
				b[k] = v
			}
		}
		b[test.Var] = w.Get(test.Field)
	}
	if b == nil {
		return t.binding
	}
	return b
}

// rightActivate handles a new WME in the join's alpha memory.
func (net *Network) rightActivate(j *node, w *WME) {
	net.countActivation("right")
	am := net.alphas[j.amem]
	p := net.nodes[j.parent]

	if net.unlinking && len(am.items) == 1 {
		net.relinkToBeta(j)
		if len(p.items) == 0 {
			net.rightUnlink(j)
			return
		}
	}

	for _, t := range p.items {
		if net.joinTest(j, t, w) {
			net.propagate(j, t, w, makeBinding(j, t, w))
		}
	}
}

// leftActivate handles a new token in the join's parent beta memory.
func (net *Network) leftActivate(j *node, t *Token) {
	net.countActivation("left")
	am := net.alphas[j.amem]
	p := net.nodes[j.parent]

	if net.unlinking && len(p.items) == 1 {
		net.relinkToAlpha(j)
		if len(am.items) == 0 {
			net.leftUnlink(j)
			return
		}
	}

	for _, w := range am.items {
		if net.joinTest(j, t, w) {
			net.propagate(j, t, w, makeBinding(j, t, w))
		}
	}
}

// propagate hands one successful join to every child in registration order.
func (net *Network) propagate(j *node, t *Token, w *WME, b Binding) {
	for _, c := range j.children {
		net.storeToken(net.nodes[c], t, w, b)
	}
}

// relinkToAlpha puts the join back into its alpha memory's successors, ahead
// of the nearest linked ancestor that reads the same memory.
func (net *Network) relinkToAlpha(j *node) {
	if !j.rightUnlinked {
		return
	}
	net.insertSuccessor(net.alphas[j.amem], j)
	j.rightUnlinked = false
	net.countLink("relink_alpha")
}

// insertSuccessor keeps successors in descending node ID order. Descendants
// always have larger IDs than their ancestors, so the position found never
// passes the nearest linked ancestor with the same memory.
func (net *Network) insertSuccessor(am *alphaMemory, j *node) {
	bound := len(am.successors)
	anc := net.NearestAncestorWithSameAmem(j.id)
	for anc != NoNode && net.nodes[anc].rightUnlinked {
		anc = net.NearestAncestorWithSameAmem(anc)
	}
	if anc != NoNode {
		if i := slices.Index(am.successors, anc); i >= 0 {
			bound = i
		}
	}

	pos := bound
	for i := 0; i < bound; i++ {
		if am.successors[i] < j.id {
			pos = i
			break
		}
	}
	am.successors = slices.Insert(am.successors, pos, j.id)
}

// relinkToBeta puts the join back into its parent's linked children, at its
// registration position.
func (net *Network) relinkToBeta(j *node) {
	if !j.leftUnlinked {
		return
	}
	p := net.nodes[j.parent]
	pos, _ := slices.BinarySearch(p.children, j.id)
	p.children = slices.Insert(p.children, pos, j.id)
	j.leftUnlinked = false
	net.countLink("relink_beta")
}

func (net *Network) leftUnlink(j *node) {
	if j.leftUnlinked {
		return
	}
	p := net.nodes[j.parent]
	p.children = removeItem(p.children, j.id)
	j.leftUnlinked = true
	net.countLink("left_unlink")
}

func (net *Network) rightUnlink(j *node) {
	if j.rightUnlinked {
		return
	}
	am := net.alphas[j.amem]
	am.successors = removeItem(am.successors, j.id)
	j.rightUnlinked = true
	net.countLink("right_unlink")
}
