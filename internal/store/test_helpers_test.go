package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rete/internal/ir"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestFact(id string, seq int64, fields ...ir.IRValue) ir.FactRecord {
	return ir.FactRecord{
		ID:          id,
		Fields:      ir.IRArray(fields),
		AssertedSeq: seq,
	}
}

func createTestActivation(seq int64, rule string, kind ir.ActivationKind, factIDs ...string) ir.ActivationRecord {
	binding := ir.IRObject{"x": ir.IRInt(seq)}
	return ir.ActivationRecord{
		Seq:          seq,
		ActivationID: "act-" + rule,
		Rule:         rule,
		Kind:         kind,
		Binding:      binding,
		BindingHash:  ir.MustBindingHash(binding),
		FactIDs:      factIDs,
	}
}
