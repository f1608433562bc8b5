package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/rete/internal/ir"
)

// SequentialIDs hands out readable fact IDs: prefix-1, prefix-2, ...
//
// Satisfies engine.IDGenerator. Golden traces use it so IDs do not depend on
// field content.
type SequentialIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDs creates a generator. An empty prefix means "f".
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "f"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID returns the next ID. The arguments are ignored.
func (g *SequentialIDs) NewID(ir.IRArray, int64) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
