package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/rete/internal/compiler"
	"github.com/roach88/rete/internal/engine"
	"github.com/roach88/rete/internal/harness"
	"github.com/roach88/rete/internal/ir"
	"github.com/roach88/rete/internal/rete"
	"github.com/roach88/rete/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Facts    string
	Database string
	NoUnlink bool
	IDs      string // "content" | "uuid"

	// IDGenerator overrides the --ids flag (for testing).
	IDGenerator engine.IDGenerator
}

// ActivationView is one activation log entry as the CLI prints it.
type ActivationView struct {
	Seq     int64       `json:"seq"`
	Kind    string      `json:"kind"`
	Rule    string      `json:"rule"`
	Binding ir.IRObject `json:"binding"`
	Facts   []string    `json:"facts"`
}

// RunResult is the output of the run command.
type RunResult struct {
	Facts       int                            `json:"facts"`
	Activations []ActivationView               `json:"activations"`
	Matches     map[string][]harness.MatchView `json:"matches"`
	Stats       rete.Stats                     `json:"stats"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <rules-dir>",
		Short: "Apply a facts file to the rules and report matches",
		Long: `Build the network for the rules in a directory, apply the asserts and
retracts of a facts file in order, and print every activation and
retraction followed by the final matches.

The facts file is a YAML list of steps, the same shape as scenario steps:

  - assert: [1, "on", 2]
    as: b1-on-b2
  - retract: b1-on-b2

With --db the facts and activations are journaled to SQLite. An existing
journal is restored first, so runs accumulate.

Example:
  rete run ./rules --facts facts.yaml
  rete run ./rules --facts facts.yaml --db ./rete.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacts(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Facts, "facts", "", "path to YAML facts file (required)")
	_ = cmd.MarkFlagRequired("facts")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal")
	cmd.Flags().BoolVar(&opts.NoUnlink, "no-unlink", false, "disable left/right unlinking")
	cmd.Flags().StringVar(&opts.IDs, "ids", "content", "fact id scheme (content|uuid)")

	return cmd
}

func runFacts(opts *RunOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return failLoad(formatter, err)
	}
	steps, err := ReadFactsFile(opts.Facts)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeFactsInvalid, "failed to read facts", err)
	}

	ids, err := opts.idGenerator()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "invalid --ids", err)
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	eng, err := buildEngine(loaded.Rules, !opts.NoUnlink, st, ids, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to build network", err)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if st != nil {
		if err := eng.Restore(ctx); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to restore journal", err)
		}
		formatter.VerboseLog("Restored %d fact(s) from %s", len(eng.Facts()), opts.Database)
	}
	before := len(eng.Log())

	if err := applySteps(ctx, eng, steps, logger); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeStepFailed, "step failed", err)
	}

	result := RunResult{
		Facts:       len(eng.Facts()),
		Activations: activationViews(eng.Log()[before:]),
		Matches:     matchViews(eng, loaded.Rules.Rules),
		Stats:       eng.Network().Stats(),
	}
	if opts.Format == FormatJSON {
		return formatter.Success(result)
	}
	outputRunText(formatter, result, loaded.Rules.Rules)
	return nil
}

func (o *RunOptions) idGenerator() (engine.IDGenerator, error) {
	if o.IDGenerator != nil {
		return o.IDGenerator, nil
	}
	switch o.IDs {
	case "", "content":
		return engine.ContentIDGenerator{}, nil
	case "uuid":
		return engine.UUIDv7Generator{}, nil
	default:
		return nil, fmt.Errorf("unknown id scheme %q", o.IDs)
	}
}

// ReadFactsFile reads a YAML list of steps.
func ReadFactsFile(path string) ([]harness.Step, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var steps []harness.Step
	if err := dec.Decode(&steps); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	for i, s := range steps {
		if (s.Assert == nil) == (s.Retract == "") {
			return nil, fmt.Errorf("step %d: exactly one of assert and retract is required", i)
		}
	}
	return steps, nil
}

// buildEngine builds a network for rs and registers every rule.
func buildEngine(rs *compiler.Ruleset, unlinking bool, st *store.Store, ids engine.IDGenerator, logger *slog.Logger) (*engine.Engine, error) {
	if verrs := compiler.Validate(rs); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, ve := range verrs {
			errs[i] = ve
		}
		return nil, errors.Join(errs...)
	}

	net, err := rete.New(rs.Schema,
		rete.WithUnlinking(unlinking),
		rete.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{engine.WithLogger(logger)}
	if st != nil {
		opts = append(opts, engine.WithStore(st))
	}
	if ids != nil {
		opts = append(opts, engine.WithIDGenerator(ids))
	}
	eng := engine.New(net, opts...)

	for _, rule := range rs.Rules {
		if err := eng.AddRule(rule); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

// applySteps feeds steps through the engine's event loop one at a time.
// Labels given with "as" can be retracted by name later in the file.
func applySteps(ctx context.Context, eng *engine.Engine, steps []harness.Step, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopDone := make(chan error, 1)
	go func() { loopDone <- eng.Run(runCtx) }()

	labels := make(map[string]string)
	type outcome struct {
		id  string
		err error
	}
	results := make(chan outcome, 1)
	done := func(id string, err error) { results <- outcome{id, err} }

	var stepErr error
	for i, step := range steps {
		var ev engine.Event
		if step.Retract != "" {
			id, ok := labels[step.Retract]
			if !ok {
				id = step.Retract
			}
			ev = engine.RetractEvent(id)
		} else {
			fields, err := stepFields(step.Assert)
			if err != nil {
				stepErr = fmt.Errorf("step %d: %w", i, err)
				break
			}
			ev = engine.AssertEvent(fields...)
		}
		ev.Done = done

		if !eng.Enqueue(ev) {
			stepErr = errors.New("engine stopped")
			break
		}

		var res outcome
		select {
		case res = <-results:
		case <-ctx.Done():
			stepErr = ctx.Err()
		}
		if stepErr != nil {
			break
		}
		if res.err != nil {
			stepErr = fmt.Errorf("step %d: %w", i, res.err)
			break
		}
		if step.As != "" {
			labels[step.As] = res.id
		}
		logger.Debug("step applied", "step", i, "fact", res.id)
	}

	eng.Stop()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return stepErr
}

func stepFields(values []any) (ir.IRArray, error) {
	fields := make(ir.IRArray, len(values))
	for i, v := range values {
		irv, err := ir.FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %d: %w", i, err)
		}
		fields[i] = irv
	}
	return fields, nil
}

// signalContext cancels on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func activationViews(log []ir.ActivationRecord) []ActivationView {
	out := make([]ActivationView, len(log))
	for i, a := range log {
		out[i] = ActivationView{
			Seq:     a.Seq,
			Kind:    string(a.Kind),
			Rule:    a.Rule,
			Binding: a.Binding,
			Facts:   a.FactIDs,
		}
	}
	return out
}

func matchViews(eng *engine.Engine, rules []ir.Rule) map[string][]harness.MatchView {
	out := make(map[string][]harness.MatchView, len(rules))
	for _, rule := range rules {
		views := []harness.MatchView{}
		for _, m := range eng.Matches(rule.Name) {
			views = append(views, harness.MatchView{Binding: m.Binding, Facts: m.FactIDs})
		}
		out[rule.Name] = views
	}
	return out
}

func outputRunText(formatter *OutputFormatter, result RunResult, rules []ir.Rule) {
	w := formatter.Writer

	for _, a := range result.Activations {
		sign := "+"
		if a.Kind == string(ir.KindRetract) {
			sign = "-"
		}
		fmt.Fprintf(w, "%4d %s %s %s %v\n", a.Seq, sign, a.Rule, ir.Format(a.Binding), a.Facts)
	}
	if len(result.Activations) > 0 {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Facts: %d\n", result.Facts)
	for _, rule := range rules {
		ms := result.Matches[rule.Name]
		fmt.Fprintf(w, "%s: %d match(es)\n", rule.Name, len(ms))
		for _, m := range ms {
			fmt.Fprintf(w, "  %s %v\n", ir.Format(m.Binding), m.Facts)
		}
	}

	formatter.VerboseLog("Network: %d node(s), %d alpha memories, %d token(s), %d join test(s)",
		result.Stats.Nodes, result.Stats.AlphaMemories, result.Stats.Tokens, result.Stats.JoinTests)
}

// failLoad reports a LoadRules error as a command error.
func failLoad(formatter *OutputFormatter, err error) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
		return NewExitError(ExitCommandError, loadErr.Error())
	}
	return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to load rules", err)
}
