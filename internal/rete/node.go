package rete

import "slices"

// NodeID addresses a node in the network arena. IDs are never reused.
type NodeID int

// AlphaID addresses an alpha memory in the network arena.
type AlphaID int

// NoNode is returned where a node lookup finds nothing.
const NoNode NodeID = -1

// RootID is the root beta memory that holds the dummy token.
const RootID NodeID = 0

// NodeKind identifies what a node in the beta network does.
type NodeKind uint8

const (
	KindBetaMemory NodeKind = iota + 1
	KindJoin
	KindTerminal
)

func (k NodeKind) String() string {
	switch k {
	case KindBetaMemory:
		return "beta"
	case KindJoin:
		return "join"
	case KindTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// VarTest requires the WME's Field to equal the token's binding of Var.
// When Var is not yet bound, the test passes and the join binds it.
type VarTest struct {
	Var   string
	Field Field
}

type node struct {
	id     NodeID
	kind   NodeKind
	parent NodeID
	dead   bool

	// children are the linked children, in registration order. For a join
	// these are its beta memory and terminals. For a beta memory these are
	// the join nodes currently attached on their left input.
	children []NodeID

	// allChildren holds every join child of a beta memory, linked or not.
	allChildren []NodeID

	// items holds the tokens of a beta memory or terminal.
	items []*Token

	// join fields
	amem          AlphaID
	tests         []VarTest
	leftUnlinked  bool // not in parent.children
	rightUnlinked bool // not in amem.successors

	// memoized NearestAncestorWithSameAmem, valid while ancestorAt
	// equals the network topology version
	ancestor   NodeID
	ancestorAt uint64

	// terminal fields
	rule     string
	consumer Consumer
}

func (n *node) isMemory() bool {
	return n.kind == KindBetaMemory || n.kind == KindTerminal
}

// newNode appends a node to the arena and bumps the topology version.
func (net *Network) newNode(kind NodeKind, parent NodeID) *node {
	n := &node{
		id:       NodeID(len(net.nodes)),
		kind:     kind,
		parent:   parent,
		amem:     -1,
		ancestor: NoNode,
	}
	net.nodes = append(net.nodes, n)
	net.topology++
	return n
}

// lookup returns the live node with the given ID.
func (net *Network) lookup(id NodeID) (*node, error) {
	if id < 0 || int(id) >= len(net.nodes) || net.nodes[id].dead {
		return nil, newError(ErrCodeUnknownNode, id, "no live node")
	}
	return net.nodes[id], nil
}

// NearestAncestorWithSameAmem walks up the beta network from a join node and
// returns the nearest ancestor join that reads the same alpha memory, or
// NoNode. The result is memoized until the next structural change.
func (net *Network) NearestAncestorWithSameAmem(id NodeID) NodeID {
	n, err := net.lookup(id)
	if err != nil || n.kind != KindJoin {
		return NoNode
	}
	if n.ancestorAt == net.topology {
		return n.ancestor
	}

	found := NoNode
	for cur := n.parent; cur != NoNode; cur = net.nodes[cur].parent {
		a := net.nodes[cur]
		if a.kind == KindJoin && a.amem == n.amem {
			found = a.id
			break
		}
	}
	n.ancestor = found
	n.ancestorAt = net.topology
	return found
}

// Kind returns the kind of a live node.
func (net *Network) Kind(id NodeID) (NodeKind, bool) {
	n, err := net.lookup(id)
	if err != nil {
		return 0, false
	}
	return n.kind, true
}

// Parent returns the parent of a live node, NoNode for the root.
func (net *Network) Parent(id NodeID) NodeID {
	n, err := net.lookup(id)
	if err != nil {
		return NoNode
	}
	return n.parent
}

// Children returns the children of a node in registration order,
// including join children that are currently unlinked.
func (net *Network) Children(id NodeID) []NodeID {
	n, err := net.lookup(id)
	if err != nil {
		return nil
	}
	if n.kind == KindBetaMemory {
		return slices.Clone(n.allChildren)
	}
	return slices.Clone(n.children)
}

// LinkedChildren returns the children that currently receive left
// activations from the node.
func (net *Network) LinkedChildren(id NodeID) []NodeID {
	n, err := net.lookup(id)
	if err != nil {
		return nil
	}
	return slices.Clone(n.children)
}

// Tokens returns the tokens held by a beta memory or terminal.
func (net *Network) Tokens(id NodeID) []*Token {
	n, err := net.lookup(id)
	if err != nil || !n.isMemory() {
		return nil
	}
	return slices.Clone(n.items)
}

// JoinState reports, for a join node, whether it is unlinked from its beta
// memory (left) and from its alpha memory (right).
func (net *Network) JoinState(id NodeID) (leftUnlinked, rightUnlinked bool) {
	n, err := net.lookup(id)
	if err != nil || n.kind != KindJoin {
		return false, false
	}
	return n.leftUnlinked, n.rightUnlinked
}
