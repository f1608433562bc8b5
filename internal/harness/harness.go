package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rete/internal/compiler"
	"github.com/roach88/rete/internal/engine"
	"github.com/roach88/rete/internal/ir"
	"github.com/roach88/rete/internal/rete"
	"github.com/roach88/rete/internal/store"
	"github.com/roach88/rete/internal/testutil"
)

// Harness is the test execution engine for one scenario run.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	rules  []ir.Rule

	// labels maps step labels to fact IDs; names is the reverse.
	labels map[string]string
	names  map[string]string
}

// Option configures a run.
type Option func(*config)

type config struct {
	unlinking *bool
	logger    *slog.Logger
}

// WithUnlinking forces left/right unlinking on or off, overriding the
// scenario.
func WithUnlinking(enabled bool) Option {
	return func(c *config) {
		c.unlinking = &enabled
	}
}

// WithLogger routes engine and network logs to l. Default: discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Compile and validate the rule files
// 2. Build the network and register every rule
// 3. Apply steps, one transaction each
// 4. Collect the trace and final matches, check them against the journal
// 5. Evaluate assertions
//
// A returned error means the scenario could not be run at all. Step and
// assertion failures are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := config{
		unlinking: scenario.Unlinking,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	unlinking := cfg.unlinking == nil || *cfg.unlinking

	rs, err := compiler.LoadFiles(scenario.Rules...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile rules: %w", err)
	}
	if verrs := compiler.Validate(rs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, fmt.Errorf("invalid rules: %w", errors.Join(errs...))
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	net, err := rete.New(rs.Schema,
		rete.WithUnlinking(unlinking),
		rete.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build network: %w", err)
	}

	eng := engine.New(net,
		engine.WithStore(st),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithIDGenerator(testutil.NewSequentialIDs("f")),
		engine.WithLogger(cfg.logger),
	)
	for _, rule := range rs.Rules {
		if err := eng.AddRule(rule); err != nil {
			return nil, fmt.Errorf("failed to add rule: %w", err)
		}
	}

	h := &Harness{
		store:  st,
		engine: eng,
		rules:  rs.Rules,
		labels: make(map[string]string),
		names:  make(map[string]string),
	}

	ctx := context.Background()
	result := NewResult()
	h.executeSteps(ctx, scenario.Steps, result)

	if err := h.collect(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// executeSteps applies each step. A failing step is recorded and the run
// continues.
func (h *Harness) executeSteps(ctx context.Context, steps []Step, result *Result) {
	for i, step := range steps {
		if err := h.executeStep(ctx, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d]: %v", i, err))
		}
	}
}

func (h *Harness) executeStep(ctx context.Context, step Step) error {
	if step.Retract != "" {
		id, ok := h.labels[step.Retract]
		if !ok {
			id = step.Retract
		}
		return h.engine.Retract(ctx, id)
	}

	fields := make(ir.IRArray, len(step.Assert))
	for i, raw := range step.Assert {
		v, err := ir.FromAny(raw)
		if err != nil {
			return fmt.Errorf("assert[%d]: %w", i, err)
		}
		fields[i] = v
	}

	id, err := h.engine.Assert(ctx, fields)
	if err != nil {
		return err
	}
	if step.As != "" {
		h.labels[step.As] = id
		h.names[id] = step.As
	}
	return nil
}

// collect fills the trace and final matches. The journal must hold exactly
// the engine's activation log.
func (h *Harness) collect(ctx context.Context, result *Result) error {
	log := h.engine.Log()
	for _, act := range log {
		result.Trace = append(result.Trace, TraceEvent{
			Seq:     act.Seq,
			Kind:    string(act.Kind),
			Rule:    act.Rule,
			Binding: act.Binding,
			Facts:   h.display(act.FactIDs),
		})
	}

	for _, rule := range h.rules {
		views := []MatchView{}
		for _, m := range h.engine.Matches(rule.Name) {
			views = append(views, MatchView{Binding: m.Binding, Facts: h.display(m.FactIDs)})
		}
		result.Matches[rule.Name] = views
	}

	journaled, err := h.store.ReadActivations(ctx)
	if err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if len(journaled) != len(log) {
		result.AddError(fmt.Sprintf("journal has %d activations, engine logged %d", len(journaled), len(log)))
		return nil
	}
	for i := range log {
		if journaled[i].Seq != log[i].Seq || journaled[i].ActivationID != log[i].ActivationID {
			result.AddError(fmt.Sprintf("journal diverges from engine log at seq %d", log[i].Seq))
			return nil
		}
	}
	return nil
}

func (h *Harness) display(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		if name, ok := h.names[id]; ok {
			out[i] = name
			continue
		}
		out[i] = id
	}
	return out
}
