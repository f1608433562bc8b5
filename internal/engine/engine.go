package engine

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/rete/internal/ir"
	"github.com/roach88/rete/internal/rete"
	"github.com/roach88/rete/internal/store"
)

// Engine owns the working memory of one Rete network.
//
// Thread-safety model:
//   - Assert, Retract, AddRule, RemoveRule: safe from any goroutine,
//     serialized by the engine mutex
//   - Enqueue(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - Every live fact ID maps to exactly one live WME
//   - The activation log is in seq order
type Engine struct {
	mu     sync.Mutex
	net    *rete.Network
	store  *store.Store
	clock  SeqClock
	ids    IDGenerator
	logger *slog.Logger
	queue  *eventQueue

	facts map[string]*fact
	byWME map[uint64]string

	// incoming is the ID of the fact being asserted. Its WME is not in byWME
	// until AddWME returns, but activations fire during AddWME.
	incoming string

	restoring bool
	pending   []ir.ActivationRecord
	log       []ir.ActivationRecord
}

type fact struct {
	wme    *rete.WME
	record ir.FactRecord
}

// Match is a current match of a rule, expressed in fact IDs.
type Match struct {
	Rule    string
	Binding ir.IRObject
	FactIDs []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithStore journals facts and activations to s.
func WithStore(s *store.Store) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithIDGenerator sets the fact ID generator. Default: ContentIDGenerator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) {
		e.ids = g
	}
}

// WithClock sets the logical clock. Default: NewClock(). The engine must be
// the only caller of c.Next.
func WithClock(c SeqClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// New creates an engine over net. The network should not be modified
// except through the engine afterwards.
func New(net *rete.Network, opts ...Option) *Engine {
	e := &Engine{
		net:    net,
		clock:  NewClock(),
		ids:    ContentIDGenerator{},
		logger: slog.Default(),
		queue:  newEventQueue(),
		facts:  make(map[string]*fact),
		byWME:  make(map[uint64]string),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Network returns the underlying network for inspection.
func (e *Engine) Network() *rete.Network {
	return e.net
}

// Clock returns the engine clock.
func (e *Engine) Clock() SeqClock {
	return e.clock
}

// AddRule registers a production for rule. Matches against facts already in
// working memory are activated and journaled immediately.
func (e *Engine) AddRule(rule ir.Rule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.net.AddProduction(rule, journal{e}); err != nil {
		e.pending = nil
		return fmt.Errorf("add rule %s: %w", rule.Name, err)
	}
	e.logger.Info("rule added", "rule", rule.Name, "primed", len(e.pending))
	return e.commit(context.Background(), store.Batch{})
}

// RemoveRule removes a production. Its current matches are retracted and
// journaled.
func (e *Engine) RemoveRule(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.net.RemoveProduction(name); err != nil {
		return fmt.Errorf("remove rule %s: %w", name, err)
	}
	e.logger.Info("rule removed", "rule", name, "retracted", len(e.pending))
	return e.commit(context.Background(), store.Batch{})
}

// Assert adds a fact to working memory and returns its ID.
//
// The whole propagation runs before Assert returns. Cancellation of ctx is
// checked before the transaction starts only.
func (e *Engine) Assert(ctx context.Context, fields ir.IRArray) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(fields) != len(e.net.Schema()) {
		return "", &rete.NetworkError{
			Code:    rete.ErrCodeArity,
			Message: fmt.Sprintf("fact has %d fields, schema has %d", len(fields), len(e.net.Schema())),
			Node:    rete.NoNode,
		}
	}
	fields = normalize(fields)

	// Rejected assertions take no seq: the ID is derived from the seq the
	// clock will issue next, and the clock only advances once it is accepted.
	seq := e.clock.Current() + 1
	id := e.ids.NewID(fields, seq)
	if _, exists := e.facts[id]; exists {
		return "", &RuntimeError{
			Code:    ErrCodeDuplicateFact,
			Message: "generated fact id is already live",
			FactID:  id,
		}
	}
	e.clock.Next()

	e.incoming = id
	w, err := e.net.AddWME(fields...)
	e.incoming = ""
	if err != nil {
		e.pending = nil
		return "", fmt.Errorf("assert: %w", err)
	}

	rec := ir.FactRecord{ID: id, Fields: fields, AssertedSeq: seq}
	e.facts[id] = &fact{wme: w, record: rec}
	e.byWME[w.ID] = id

	e.logger.Debug("fact asserted",
		"id", id,
		"seq", seq,
		"wme", w.String(),
		"activations", len(e.pending),
	)

	return id, e.commit(ctx, store.Batch{Assert: &rec})
}

// Retract removes a fact from working memory. Every match built from it is
// retracted before Retract returns.
func (e *Engine) Retract(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.facts[id]
	if !ok {
		return newUnknownFactError(id)
	}

	seq := e.clock.Next()
	e.net.RemoveWME(f.wme)
	delete(e.facts, id)
	delete(e.byWME, f.wme.ID)

	e.logger.Debug("fact retracted",
		"id", id,
		"seq", seq,
		"retractions", len(e.pending),
	)

	return e.commit(ctx, store.Batch{RetractID: id, RetractSeq: seq})
}

// commit moves pending activations into the log and journals b with them.
// The in-memory state has already changed; a journal failure is returned
// but not rolled back.
func (e *Engine) commit(ctx context.Context, b store.Batch) error {
	pending := e.pending
	e.pending = nil
	e.log = append(e.log, pending...)

	if e.store == nil {
		return nil
	}
	if b.Assert == nil && b.RetractID == "" && len(pending) == 0 {
		return nil
	}

	b.Activations = pending
	if err := e.store.WriteBatch(context.WithoutCancel(ctx), b); err != nil {
		e.logger.Error("journal write failed", "error", err)
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// Facts returns the live facts in assertion order.
func (e *Engine) Facts() []ir.FactRecord {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ir.FactRecord, 0, len(e.facts))
	for _, f := range e.facts {
		out = append(out, f.record)
	}
	slices.SortFunc(out, func(a, b ir.FactRecord) int {
		return cmp.Compare(a.AssertedSeq, b.AssertedSeq)
	})
	return out
}

// Fact returns a live fact by ID.
func (e *Engine) Fact(id string) (ir.FactRecord, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.facts[id]
	if !ok {
		return ir.FactRecord{}, false
	}
	return f.record, true
}

// Matches returns the current matches of a rule in token order.
func (e *Engine) Matches(rule string) []Match {
	e.mu.Lock()
	defer e.mu.Unlock()

	ms := e.net.Matches(rule)
	out := make([]Match, len(ms))
	for i, m := range ms {
		out[i] = Match{
			Rule:    m.Rule,
			Binding: m.Binding.Object(),
			FactIDs: e.factIDs(m.WMEs),
		}
	}
	return out
}

// Log returns every activation and retraction seen so far, in seq order.
func (e *Engine) Log() []ir.ActivationRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.log)
}

func (e *Engine) factIDs(ws []*rete.WME) []string {
	ids := make([]string, len(ws))
	for i, w := range ws {
		id, ok := e.byWME[w.ID]
		if !ok {
			id = e.incoming
		}
		ids[i] = id
	}
	return ids
}

// record turns a terminal callback into a pending activation record.
func (e *Engine) record(kind ir.ActivationKind, m rete.Match) {
	if e.restoring {
		return
	}

	factIDs := e.factIDs(m.WMEs)
	binding := m.Binding.Object()
	actID, err := ir.ActivationID(m.Rule, factIDs)
	if err != nil {
		e.logger.Error("activation id", "rule", m.Rule, "error", err)
		return
	}
	hash, err := ir.BindingHash(binding)
	if err != nil {
		e.logger.Error("binding hash", "rule", m.Rule, "error", err)
		return
	}

	rec := ir.ActivationRecord{
		Seq:          e.clock.Next(),
		ActivationID: actID,
		Rule:         m.Rule,
		Kind:         kind,
		Binding:      binding,
		BindingHash:  hash,
		FactIDs:      factIDs,
	}
	e.logger.Debug("activation",
		"seq", rec.Seq,
		"rule", rec.Rule,
		"kind", rec.Kind,
		"facts", rec.FactIDs,
	)
	e.pending = append(e.pending, rec)
}

// journal is the consumer attached to every production the engine adds.
type journal struct {
	e *Engine
}

func (j journal) Activate(m rete.Match) { j.e.record(ir.KindActivate, m) }
func (j journal) Retract(m rete.Match)  { j.e.record(ir.KindRetract, m) }

func normalize(fields ir.IRArray) ir.IRArray {
	out := make(ir.IRArray, len(fields))
	for i, v := range fields {
		if v == nil {
			v = ir.IRNull{}
		}
		out[i] = v
	}
	return out
}

// Enqueue submits an event for processing by the Run loop.
// Thread-safe: may be called from any goroutine.
//
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// Run drains the event queue until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a failed event is logged with its context and processing
// continues with the next event.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			e.processEvent(ctx, event)
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.drained() {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue. Run returns once the queue is drained.
func (e *Engine) Stop() {
	e.queue.Close()
}

func (e *Engine) processEvent(ctx context.Context, ev Event) {
	var (
		id  string
		err error
	)
	switch ev.Type {
	case EventTypeAssert:
		id, err = e.Assert(ctx, ev.Fields)
	case EventTypeRetract:
		id = ev.FactID
		err = e.Retract(ctx, ev.FactID)
	default:
		err = fmt.Errorf("unknown event type: %d", ev.Type)
	}

	if err != nil {
		logEventError(e.logger, ev, err)
	}
	if ev.Done != nil {
		ev.Done(id, err)
	}
}

func logEventError(l *slog.Logger, ev Event, err error) {
	switch ev.Type {
	case EventTypeAssert:
		l.Error("assert failed",
			"fields", ir.Format(ev.Fields),
			"error", err,
		)
	case EventTypeRetract:
		l.Error("retract failed",
			"fact", ev.FactID,
			"error", err,
		)
	default:
		l.Error("event failed", "type", ev.Type, "error", err)
	}
}
