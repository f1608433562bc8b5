package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaValidate(t *testing.T) {
	require.NoError(t, DefaultSchema.Validate())
	assert.Error(t, Schema{}.Validate())
	assert.Error(t, Schema{"id", "id"}.Validate())
	assert.Error(t, Schema{"id", ""}.Validate())

	i, ok := DefaultSchema.Index("value")
	assert.True(t, ok)
	assert.Equal(t, 2, i)
	_, ok = DefaultSchema.Index("missing")
	assert.False(t, ok)
}

func TestTermKinds(t *testing.T) {
	assert.True(t, Variable("x").IsVar())
	assert.True(t, Constant(IRString("red")).IsConst())
	assert.True(t, Wildcard().IsWildcard())
	assert.Equal(t, "?x", Variable("x").String())
	assert.Equal(t, `"red"`, Constant(IRString("red")).String())
	assert.Equal(t, "*", Wildcard().String())
}

func TestRuleVariables(t *testing.T) {
	r := Rule{Name: "r", Patterns: []Pattern{
		{Terms: []Term{Variable("x"), Constant(IRString("on")), Variable("y")}},
		{Terms: []Term{Variable("y"), Constant(IRString("color")), Variable("c")}},
		{Terms: []Term{Variable("x"), Wildcard(), Variable("x")}},
	}}
	assert.Equal(t, []string{"x", "y", "c"}, r.Variables())
	assert.Equal(t, []string{"x"}, r.Patterns[2].Variables())
}

func TestRuleValidate(t *testing.T) {
	ok := Rule{Name: "r", Patterns: []Pattern{{Terms: []Term{Wildcard(), Wildcard(), Wildcard()}}}}
	require.NoError(t, ok.Validate(DefaultSchema))

	short := Rule{Name: "r", Patterns: []Pattern{{Terms: []Term{Wildcard()}}}}
	err := short.Validate(DefaultSchema)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 terms")

	assert.Error(t, Rule{Patterns: ok.Patterns}.Validate(DefaultSchema))
	assert.Error(t, Rule{Name: "empty"}.Validate(DefaultSchema))
}
