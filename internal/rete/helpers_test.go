package rete

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/rete/internal/ir"
)

func str(s string) ir.IRValue { return ir.IRString(s) }
func num(n int64) ir.IRValue  { return ir.IRInt(n) }

func wild() ir.Term { return ir.Wildcard() }

func v(name string) ir.Term           { return ir.Variable(name) }
func c(val ir.IRValue) ir.Term        { return ir.Constant(val) }
func pat(terms ...ir.Term) ir.Pattern { return ir.Pattern{Terms: terms} }

func rule(name string, patterns ...ir.Pattern) ir.Rule {
	return ir.Rule{Name: name, Patterns: patterns}
}

func newNet(t *testing.T, opts ...Option) *Network {
	t.Helper()
	net, err := New(ir.DefaultSchema, opts...)
	require.NoError(t, err)
	return net
}

func mustAdd(t *testing.T, net *Network, fields ...ir.IRValue) *WME {
	t.Helper()
	w, err := net.AddWME(fields...)
	require.NoError(t, err)
	return w
}

func mustProduction(t *testing.T, net *Network, r ir.Rule, consumer Consumer) {
	t.Helper()
	require.NoError(t, net.AddProduction(r, consumer))
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
