package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rete/internal/ir"
	"github.com/roach88/rete/internal/rete"
	"github.com/roach88/rete/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	net, err := rete.New(ir.DefaultSchema)
	require.NoError(t, err)
	return New(net, opts...)
}

func fields(id int64, attr string, value ir.IRValue) ir.IRArray {
	return ir.IRArray{ir.IRInt(id), ir.IRString(attr), value}
}

// blockOnRed: (?b on ?x) (?x color "red")
func blockOnRed() ir.Rule {
	return ir.Rule{
		Name: "block-on-red",
		Patterns: []ir.Pattern{
			{Terms: []ir.Term{ir.Variable("b"), ir.Constant(ir.IRString("on")), ir.Variable("x")}},
			{Terms: []ir.Term{ir.Variable("x"), ir.Constant(ir.IRString("color")), ir.Constant(ir.IRString("red"))}},
		},
	}
}

func kinds(log []ir.ActivationRecord) []ir.ActivationKind {
	out := make([]ir.ActivationKind, len(log))
	for i, a := range log {
		out[i] = a.Kind
	}
	return out
}

func TestEngine_AssertActivates(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("f1", "f2")))
	require.NoError(t, e.AddRule(blockOnRed()))
	ctx := context.Background()

	id1, err := e.Assert(ctx, fields(1, "on", ir.IRInt(2)))
	require.NoError(t, err)
	assert.Equal(t, "f1", id1)
	assert.Empty(t, e.Log())

	id2, err := e.Assert(ctx, fields(2, "color", ir.IRString("red")))
	require.NoError(t, err)

	log := e.Log()
	require.Len(t, log, 1)
	act := log[0]
	assert.Equal(t, ir.KindActivate, act.Kind)
	assert.Equal(t, "block-on-red", act.Rule)
	assert.Equal(t, []string{id1, id2}, act.FactIDs)
	assert.True(t, ir.Equal(ir.IRObject{"b": ir.IRInt(1), "x": ir.IRInt(2)}, act.Binding))
	assert.Equal(t, int64(3), act.Seq, "activation is stamped after its assertion")

	wantID, err := ir.ActivationID("block-on-red", []string{"f1", "f2"})
	require.NoError(t, err)
	assert.Equal(t, wantID, act.ActivationID)
	assert.Equal(t, ir.MustBindingHash(act.Binding), act.BindingHash)

	matches := e.Matches("block-on-red")
	require.Len(t, matches, 1)
	assert.Equal(t, []string{"f1", "f2"}, matches[0].FactIDs)
}

func TestEngine_RetractWithdrawsMatch(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("f1", "f2")))
	require.NoError(t, e.AddRule(blockOnRed()))
	ctx := context.Background()

	_, err := e.Assert(ctx, fields(1, "on", ir.IRInt(2)))
	require.NoError(t, err)
	_, err = e.Assert(ctx, fields(2, "color", ir.IRString("red")))
	require.NoError(t, err)

	require.NoError(t, e.Retract(ctx, "f1"))

	log := e.Log()
	assert.Equal(t, []ir.ActivationKind{ir.KindActivate, ir.KindRetract}, kinds(log))
	assert.Equal(t, log[0].ActivationID, log[1].ActivationID)
	assert.Empty(t, e.Matches("block-on-red"))

	facts := e.Facts()
	require.Len(t, facts, 1)
	assert.Equal(t, "f2", facts[0].ID)
}

func TestEngine_RetractUnknown(t *testing.T) {
	e := newTestEngine(t)

	err := e.Retract(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsUnknownFact(err))
}

func TestEngine_AssertArity(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Assert(context.Background(), ir.IRArray{ir.IRInt(1)})
	require.Error(t, err)
	assert.True(t, rete.HasCode(err, rete.ErrCodeArity))
	assert.Zero(t, e.Clock().Current(), "rejected facts take no seq")
}

func TestEngine_DuplicateID(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("same", "same")))
	ctx := context.Background()

	_, err := e.Assert(ctx, fields(1, "a", ir.IRInt(1)))
	require.NoError(t, err)
	_, err = e.Assert(ctx, fields(2, "a", ir.IRInt(2)))
	assert.True(t, HasCode(err, ErrCodeDuplicateFact))
	assert.Equal(t, int64(1), e.Clock().Current(), "rejected duplicate takes no seq")
	assert.Len(t, e.Facts(), 1)
}

func TestEngine_DuplicateLeavesNoSeqGap(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("f1", "f1", "f2")))
	ctx := context.Background()

	_, err := e.Assert(ctx, fields(1, "a", ir.IRInt(1)))
	require.NoError(t, err)
	_, err = e.Assert(ctx, fields(2, "a", ir.IRInt(2)))
	require.True(t, HasCode(err, ErrCodeDuplicateFact))
	_, err = e.Assert(ctx, fields(3, "a", ir.IRInt(3)))
	require.NoError(t, err)

	facts := e.Facts()
	require.Len(t, facts, 2)
	assert.Equal(t, []int64{1, 2}, []int64{facts[0].AssertedSeq, facts[1].AssertedSeq})
}

func TestEngine_CancelledContext(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Assert(ctx, fields(1, "a", ir.IRInt(1)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, e.Facts())
}

func TestEngine_AddRulePrimesExistingFacts(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("f1", "f2")))
	ctx := context.Background()

	_, err := e.Assert(ctx, fields(1, "on", ir.IRInt(2)))
	require.NoError(t, err)
	_, err = e.Assert(ctx, fields(2, "color", ir.IRString("red")))
	require.NoError(t, err)

	require.NoError(t, e.AddRule(blockOnRed()))
	assert.Len(t, e.Matches("block-on-red"), 1)
	assert.Equal(t, []ir.ActivationKind{ir.KindActivate}, kinds(e.Log()))

	require.NoError(t, e.RemoveRule("block-on-red"))
	assert.Equal(t, []ir.ActivationKind{ir.KindActivate, ir.KindRetract}, kinds(e.Log()))
	assert.Error(t, e.RemoveRule("block-on-red"))
}

func TestEngine_JournalAndRestore(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()

	e := newTestEngine(t, WithStore(s))
	require.NoError(t, e.AddRule(blockOnRed()))

	onID, err := e.Assert(ctx, fields(1, "on", ir.IRInt(2)))
	require.NoError(t, err)
	_, err = e.Assert(ctx, fields(2, "color", ir.IRString("red")))
	require.NoError(t, err)
	tmpID, err := e.Assert(ctx, fields(3, "on", ir.IRInt(2)))
	require.NoError(t, err)
	require.NoError(t, e.Retract(ctx, tmpID))

	journaled, err := s.ReadActivations(ctx)
	require.NoError(t, err)
	assert.Equal(t, e.Log(), journaled)
	require.NoError(t, s.Close())

	// Reopen and restore into a fresh network.
	s2, err := store.Open(path)
	require.NoError(t, err)
	defer s2.Close()

	restored := newTestEngine(t, WithStore(s2))
	require.NoError(t, restored.AddRule(blockOnRed()))
	require.NoError(t, restored.Restore(ctx))

	assert.Equal(t, e.Facts(), restored.Facts())
	assert.Equal(t, e.Matches("block-on-red"), restored.Matches("block-on-red"))
	assert.Equal(t, e.Log(), restored.Log())
	assert.Equal(t, e.Clock().Current(), restored.Clock().Current())

	// Restore must not re-journal the rebuilt matches.
	again, err := s2.ReadActivations(ctx)
	require.NoError(t, err)
	assert.Len(t, again, len(journaled))

	// New work continues the journal.
	require.NoError(t, restored.Retract(ctx, onID))
	last := restored.Log()[len(restored.Log())-1]
	assert.Equal(t, ir.KindRetract, last.Kind)
	assert.Greater(t, last.Seq, e.Clock().Current())
}

func TestEngine_RestoreVersionMismatch(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SetMeta(ctx, metaIRVersion, "0"))

	e := newTestEngine(t, WithStore(s))
	err := e.Restore(ctx)
	assert.True(t, HasCode(err, ErrCodeVersionMismatch))
}

func TestEngine_RunProcessesEventsInOrder(t *testing.T) {
	e := newTestEngine(t, WithIDGenerator(NewFixedGenerator("f1", "f2")))
	require.NoError(t, e.AddRule(blockOnRed()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	var mu sync.Mutex
	var results []string
	record := func(id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			results = append(results, "error")
			return
		}
		results = append(results, id)
	}

	ev := AssertEvent(fields(1, "on", ir.IRInt(2))...)
	ev.Done = record
	require.True(t, e.Enqueue(ev))
	ev = AssertEvent(fields(2, "color", ir.IRString("red"))...)
	ev.Done = record
	require.True(t, e.Enqueue(ev))
	ev = RetractEvent("missing")
	ev.Done = record
	require.True(t, e.Enqueue(ev))
	ev = RetractEvent("f1")
	ev.Done = record
	require.True(t, e.Enqueue(ev))

	e.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}

	assert.Equal(t, []string{"f1", "f2", "error", "f1"}, results)
	assert.Equal(t, []ir.ActivationKind{ir.KindActivate, ir.KindRetract}, kinds(e.Log()))
	assert.False(t, e.Enqueue(RetractEvent("f2")), "stopped engine rejects events")
}

func TestEngine_RunStopsOnCancel(t *testing.T) {
	e := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestEngine_RestoreStampsVersions(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, newTestEngine(t, WithStore(s)).Restore(ctx))

	v, ok, err := s.GetMeta(ctx, metaIRVersion)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ir.IRVersion, v)

	v, ok, err = s.GetMeta(ctx, metaEngineVersion)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ir.EngineVersion, v)
}
