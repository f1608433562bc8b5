package rete

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/rete/internal/ir"
)

// WriteDot writes the live network in Graphviz dot format. Unlinked edges
// are drawn dashed.
func (net *Network) WriteDot(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "digraph rete {")
	fmt.Fprintln(bw, "  rankdir=TB;")

	for _, am := range net.alphas {
		if am.dead {
			continue
		}
		fmt.Fprintf(bw, "  a%d [shape=box, label=%q];\n", am.id, net.alphaLabel(am))
	}

	for _, n := range net.nodes {
		if n.dead {
			continue
		}
		fmt.Fprintf(bw, "  n%d [shape=%s, label=%q];\n", n.id, dotShape(n.kind), net.nodeLabel(n))
	}

	for _, n := range net.nodes {
		if n.dead || n.parent == NoNode {
			continue
		}
		style := "solid"
		if n.leftUnlinked {
			style = "dashed"
		}
		fmt.Fprintf(bw, "  n%d -> n%d [style=%s];\n", n.parent, n.id, style)
		if n.kind == KindJoin {
			style = "solid"
			if n.rightUnlinked {
				style = "dashed"
			}
			fmt.Fprintf(bw, "  a%d -> n%d [style=%s, color=blue];\n", n.amem, n.id, style)
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func dotShape(k NodeKind) string {
	switch k {
	case KindJoin:
		return "ellipse"
	case KindTerminal:
		return "doubleoctagon"
	default:
		return "box3d"
	}
}

func (net *Network) alphaLabel(am *alphaMemory) string {
	var parts []string
	for _, t := range am.tests {
		parts = append(parts, fmt.Sprintf("%s=%s", net.schema[t.Field], ir.Format(t.Value)))
	}
	for _, e := range am.eqs {
		parts = append(parts, fmt.Sprintf("%s==%s", net.schema[e.Left], net.schema[e.Right]))
	}
	if len(parts) == 0 {
		parts = append(parts, "*")
	}
	return fmt.Sprintf("alpha %d\n%s\n(%d)", am.id, strings.Join(parts, ", "), len(am.items))
}

func (net *Network) nodeLabel(n *node) string {
	switch n.kind {
	case KindJoin:
		var tests []string
		for _, t := range n.tests {
			tests = append(tests, fmt.Sprintf("?%s=%s", t.Var, net.schema[t.Field]))
		}
		return fmt.Sprintf("join %d\n%s", n.id, strings.Join(tests, ", "))
	case KindTerminal:
		return fmt.Sprintf("%s\n(%d)", n.rule, len(n.items))
	default:
		if n.id == RootID {
			return "root"
		}
		return fmt.Sprintf("beta %d\n(%d)", n.id, len(n.items))
	}
}
