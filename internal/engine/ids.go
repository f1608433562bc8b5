package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/rete/internal/ir"
)

// IDGenerator assigns fact IDs. Implementations may ignore their arguments.
type IDGenerator interface {
	NewID(fields ir.IRArray, seq int64) string
}

// ContentIDGenerator derives the fact ID from the fact's fields and its
// assertion seq, so a replayed journal produces the same IDs.
//
// This is the default generator.
type ContentIDGenerator struct{}

// NewID returns ir.FactID(fields, seq).
func (ContentIDGenerator) NewID(fields ir.IRArray, seq int64) string {
	id, err := ir.FactID(fields, seq)
	if err != nil {
		// Fields were already accepted by the network; canonical encoding of
		// IR values cannot fail.
		panic("engine: fact id: " + err.Error())
	}
	return id
}

// UUIDv7Generator generates time-sortable UUIDv7 fact IDs.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// NewID creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) NewID(ir.IRArray, int64) string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined fact IDs for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewID returns the next predetermined ID.
//
// Panics if all IDs have been consumed, which means the test asserted more
// facts than it configured.
func (g *FixedGenerator) NewID(ir.IRArray, int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
