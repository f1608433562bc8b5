package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rete/internal/ir"
)

func TestWriteBatch_AssertWithActivations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	fact := createTestFact("f1", 1, ir.IRInt(1), ir.IRString("color"), ir.IRString("red"))
	err := s.WriteBatch(ctx, Batch{
		Assert:      &fact,
		Activations: []ir.ActivationRecord{createTestActivation(2, "red", ir.KindActivate, "f1")},
	})
	require.NoError(t, err)

	got, err := s.ReadFact(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.ID)
	assert.True(t, ir.Equal(fact.Fields, got.Fields))
	assert.True(t, got.Live())

	acts, err := s.ReadActivations(ctx)
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, ir.KindActivate, acts[0].Kind)
	assert.Equal(t, []string{"f1"}, acts[0].FactIDs)
	assert.True(t, ir.Equal(ir.IRObject{"x": ir.IRInt(2)}, acts[0].Binding))
}

func TestWriteBatch_CanonicalStorage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFact(ctx, createTestFact("f1", 1,
		ir.IRObject{"b": ir.IRInt(2), "a": ir.IRString("<&>")}, ir.IRString("attr"), ir.IRNull{})))

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT fields FROM facts WHERE id = 'f1'").Scan(&raw))
	assert.Equal(t, `[{"a":"<&>","b":2},"attr",null]`, raw)
}

func TestWriteFact_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	f := createTestFact("f1", 1, ir.IRInt(1))
	require.NoError(t, s.WriteFact(ctx, f))
	require.NoError(t, s.WriteFact(ctx, f))

	facts, err := s.ReadAllFacts(ctx)
	require.NoError(t, err)
	assert.Len(t, facts, 1)
}

func TestRetractFact(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFact(ctx, createTestFact("f1", 1, ir.IRInt(1))))
	require.NoError(t, s.WriteFact(ctx, createTestFact("f2", 2, ir.IRInt(2))))
	require.NoError(t, s.RetractFact(ctx, "f1", 3))

	live, err := s.ReadLiveFacts(ctx)
	require.NoError(t, err)
	require.Len(t, live, 1)
	assert.Equal(t, "f2", live[0].ID)

	f1, err := s.ReadFact(ctx, "f1")
	require.NoError(t, err)
	require.NotNil(t, f1.RetractedSeq)
	assert.Equal(t, int64(3), *f1.RetractedSeq)

	err = s.RetractFact(ctx, "f1", 4)
	assert.True(t, errors.Is(err, ErrFactNotFound), "double retraction: %v", err)
	err = s.RetractFact(ctx, "missing", 4)
	assert.True(t, errors.Is(err, ErrFactNotFound))
}

func TestWriteBatch_AtomicOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// Retraction of an unknown fact must roll back the activation too.
	err := s.WriteBatch(ctx, Batch{
		RetractID:   "missing",
		RetractSeq:  1,
		Activations: []ir.ActivationRecord{createTestActivation(2, "r", ir.KindRetract)},
	})
	require.Error(t, err)

	acts, err := s.ReadActivations(ctx)
	require.NoError(t, err)
	assert.Empty(t, acts)
}

func TestReadFact_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.ReadFact(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrFactNotFound))
}

func TestReadLiveFacts_DeterministicOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteFact(ctx, createTestFact("c", 3, ir.IRInt(3))))
	require.NoError(t, s.WriteFact(ctx, createTestFact("a", 1, ir.IRInt(1))))
	require.NoError(t, s.WriteFact(ctx, createTestFact("b", 2, ir.IRInt(2))))

	facts, err := s.ReadLiveFacts(ctx)
	require.NoError(t, err)
	ids := []string{facts[0].ID, facts[1].ID, facts[2].ID}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

// Facts sharing an asserted_seq are ordered by byte-wise id.
func TestReadFacts_TieBreakByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"b", "B", "a", "A"} {
		require.NoError(t, s.WriteFact(ctx, createTestFact(id, 1, ir.IRString(id))))
	}
	require.NoError(t, s.WriteFact(ctx, createTestFact("0", 2, ir.IRInt(0))))
	require.NoError(t, s.RetractFact(ctx, "a", 3))

	ids := func(facts []ir.FactRecord) []string {
		out := make([]string, len(facts))
		for i, f := range facts {
			out[i] = f.ID
		}
		return out
	}

	all, err := s.ReadAllFacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "a", "b", "0"}, ids(all))

	live, err := s.ReadLiveFacts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "b", "0"}, ids(live))
}

func TestReadActivationsForRule(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteBatch(ctx, Batch{Activations: []ir.ActivationRecord{
		createTestActivation(3, "b", ir.KindActivate),
		createTestActivation(1, "a", ir.KindActivate),
		createTestActivation(2, "a", ir.KindRetract),
	}}))

	acts, err := s.ReadActivationsForRule(ctx, "a")
	require.NoError(t, err)
	require.Len(t, acts, 2)
	assert.Equal(t, int64(1), acts[0].Seq)
	assert.Equal(t, ir.KindRetract, acts[1].Kind)

	all, err := s.ReadActivations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, []string{}, all[0].FactIDs)
}

func TestGetLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, seq)

	require.NoError(t, s.WriteFact(ctx, createTestFact("f1", 4, ir.IRInt(1))))
	require.NoError(t, s.WriteActivation(ctx, createTestActivation(5, "r", ir.KindActivate, "f1")))
	require.NoError(t, s.RetractFact(ctx, "f1", 9))

	seq, err = s.GetLastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), seq)
}

func TestMeta(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, ok, err := s.GetMeta(ctx, "rules_hash")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetMeta(ctx, "rules_hash", "abc"))
	require.NoError(t, s.SetMeta(ctx, "rules_hash", "def"))

	v, ok, err := s.GetMeta(ctx, "rules_hash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "def", v)
}
