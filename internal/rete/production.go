package rete

import (
	"slices"

	"github.com/roach88/rete/internal/ir"
)

// AddProduction compiles a rule into the chain
//
//	root -> J1 -> BM1 -> J2 -> ... -> Jn -> terminal
//
// sharing every alpha memory, join and beta memory that already exists with
// the same tests. The terminal is primed from current working memory, so c
// receives Activate for matches that already hold.
func (net *Network) AddProduction(rule ir.Rule, c Consumer) error {
	if err := rule.Validate(net.schema); err != nil {
		return newError(ErrCodeInvalidRule, NoNode, "%v", err)
	}
	if _, exists := net.productions[rule.Name]; exists {
		return newError(ErrCodeDuplicateProduction, NoNode, "production %q already exists", rule.Name)
	}

	compiled := make([]CompiledPattern, len(rule.Patterns))
	for i, p := range rule.Patterns {
		cp, err := CompilePattern(net.schema, p)
		if err != nil {
			return err
		}
		compiled[i] = cp
	}

	current := RootID
	var term NodeID
	for i, cp := range compiled {
		amem, err := net.AlphaMemory(cp.Constants, cp.Equalities)
		if err != nil {
			return err
		}
		join, err := net.AddJoinNode(current, amem, cp.Vars)
		if err != nil {
			return err
		}
		if i == len(compiled)-1 {
			term, err = net.AddTerminal(join, rule.Name, c)
		} else {
			current, err = net.AddBetaMemory(join)
		}
		if err != nil {
			return err
		}
	}

	net.productions[rule.Name] = term
	net.order = append(net.order, rule.Name)
	net.logger.Debug("production added",
		"rule", rule.Name,
		"patterns", len(rule.Patterns),
		"terminal", term,
		"nodes", net.liveNodes())
	return nil
}

// RemoveProduction deletes a production's terminal and every ancestor left
// without children. Its current matches are retracted through its consumer
// first. Alpha memories no other join reads are dropped.
func (net *Network) RemoveProduction(name string) error {
	term, ok := net.productions[name]
	if !ok {
		return newError(ErrCodeUnknownProduction, NoNode, "production %q not found", name)
	}
	delete(net.productions, name)
	net.order = removeItem(net.order, name)

	net.deleteNode(net.nodes[term])
	net.logger.Debug("production removed", "rule", name, "nodes", net.liveNodes())
	return nil
}

// Productions returns production names in the order they were added.
func (net *Network) Productions() []string {
	return slices.Clone(net.order)
}

// Terminal returns the terminal node of a production.
func (net *Network) Terminal(name string) (NodeID, bool) {
	id, ok := net.productions[name]
	return id, ok
}

// deleteNode removes n and then walks up deleting ancestors that no longer
// have children. The root is never deleted.
func (net *Network) deleteNode(n *node) {
	for len(n.items) > 0 {
		net.deleteToken(n.items[0])
	}

	p := net.nodes[n.parent]
	switch n.kind {
	case KindJoin:
		am := net.alphas[n.amem]
		if !n.rightUnlinked {
			am.successors = removeItem(am.successors, n.id)
		}
		if !n.leftUnlinked {
			p.children = removeItem(p.children, n.id)
		}
		p.allChildren = removeItem(p.allChildren, n.id)
		net.releaseAlpha(am)
	default:
		p.children = removeItem(p.children, n.id)
	}

	n.dead = true
	n.children = nil
	n.allChildren = nil
	net.topology++

	if p.id == RootID {
		return
	}
	if p.kind == KindJoin && len(p.children) == 0 {
		net.deleteNode(p)
	}
	if p.kind == KindBetaMemory && len(p.allChildren) == 0 {
		net.deleteNode(p)
	}
}

func (net *Network) liveNodes() int {
	count := 0
	for _, n := range net.nodes {
		if !n.dead {
			count++
		}
	}
	return count
}
