package rete

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/rete/internal/ir"
)

// ConstantTest requires the WME's Field to equal Value.
type ConstantTest struct {
	Field Field
	Value ir.IRValue
}

// EqualityTest requires two fields of the same WME to be equal. It comes
// from a variable that appears twice in one pattern.
type EqualityTest struct {
	Left  Field
	Right Field
}

type alphaMemory struct {
	id    AlphaID
	key   string
	tests []ConstantTest
	eqs   []EqualityTest
	dead  bool
	refs  int

	items []*WME

	// successors are the joins right-activated by this memory,
	// descendants before ancestors.
	successors []NodeID
}

func (am *alphaMemory) matches(w *WME) bool {
	for _, t := range am.tests {
		if !ir.Equal(w.Get(t.Field), t.Value) {
			return false
		}
	}
	for _, e := range am.eqs {
		if !ir.Equal(w.Get(e.Left), w.Get(e.Right)) {
			return false
		}
	}
	return true
}

// alphaKey is the sharing key: two conditions with the same tests read the
// same alpha memory regardless of test order.
func alphaKey(tests []ConstantTest, eqs []EqualityTest) string {
	parts := make([]string, 0, len(tests)+len(eqs))
	for _, t := range tests {
		parts = append(parts, fmt.Sprintf("%d=%s", t.Field, ir.Format(t.Value)))
	}
	for _, e := range eqs {
		l, r := e.Left, e.Right
		if l > r {
			l, r = r, l
		}
		parts = append(parts, fmt.Sprintf("%d==%d", l, r))
	}
	slices.Sort(parts)
	return strings.Join(parts, ";")
}

// AlphaMemory returns the alpha memory for the given tests, creating it if no
// live memory has the same tests. A new memory is filled with every live WME
// that passes.
func (net *Network) AlphaMemory(tests []ConstantTest, eqs []EqualityTest) (AlphaID, error) {
	for _, t := range tests {
		if err := net.checkField(t.Field); err != nil {
			return -1, err
		}
	}
	for _, e := range eqs {
		if err := net.checkField(e.Left); err != nil {
			return -1, err
		}
		if err := net.checkField(e.Right); err != nil {
			return -1, err
		}
	}

	key := alphaKey(tests, eqs)
	if id, ok := net.alphaIndex[key]; ok {
		return id, nil
	}

	am := &alphaMemory{
		id:    AlphaID(len(net.alphas)),
		key:   key,
		tests: slices.Clone(tests),
		eqs:   slices.Clone(eqs),
	}
	net.alphas = append(net.alphas, am)
	net.alphaIndex[key] = am.id

	for _, w := range net.wmes {
		if am.matches(w) {
			am.items = append(am.items, w)
			w.amems = append(w.amems, am.id)
		}
	}
	return am.id, nil
}

func (net *Network) checkField(f Field) error {
	if f < 0 || int(f) >= len(net.schema) {
		return newError(ErrCodeBadField, NoNode, "field %d outside schema of %d fields", f, len(net.schema))
	}
	return nil
}

func (net *Network) alpha(id AlphaID) (*alphaMemory, error) {
	if id < 0 || int(id) >= len(net.alphas) || net.alphas[id].dead {
		return nil, newError(ErrCodeUnknownAlpha, NoNode, "no live alpha memory %d", id)
	}
	return net.alphas[id], nil
}

// AlphaItems returns the WMEs currently held by an alpha memory.
func (net *Network) AlphaItems(id AlphaID) []*WME {
	am, err := net.alpha(id)
	if err != nil {
		return nil
	}
	return slices.Clone(am.items)
}

// Successors returns the joins currently right-activated by an alpha memory,
// in activation order.
func (net *Network) Successors(id AlphaID) []NodeID {
	am, err := net.alpha(id)
	if err != nil {
		return nil
	}
	return slices.Clone(am.successors)
}

// activateAlpha adds w to am and right-activates its successors.
func (net *Network) activateAlpha(am *alphaMemory, w *WME) {
	am.items = append(am.items, w)
	w.amems = append(w.amems, am.id)

	for _, j := range slices.Clone(am.successors) {
		net.rightActivate(net.nodes[j], w)
	}
}

// deactivateAlpha removes w from am. An emptied memory left-unlinks its
// successors.
func (net *Network) deactivateAlpha(am *alphaMemory, w *WME) {
	am.items = removeItem(am.items, w)
	if len(am.items) == 0 && net.unlinking {
		for _, j := range slices.Clone(am.successors) {
			net.leftUnlink(net.nodes[j])
		}
	}
}

// releaseAlpha drops one reference and deletes the memory at zero.
func (net *Network) releaseAlpha(am *alphaMemory) {
	am.refs--
	if am.refs > 0 {
		return
	}
	for _, w := range am.items {
		w.amems = removeItem(w.amems, am.id)
	}
	am.items = nil
	am.dead = true
	delete(net.alphaIndex, am.key)
}

func removeItem[T comparable](items []T, item T) []T {
	if i := slices.Index(items, item); i >= 0 {
		return slices.Delete(items, i, i+1)
	}
	return items
}
