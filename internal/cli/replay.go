package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/rete/internal/engine"
	"github.com/roach88/rete/internal/ir"
	"github.com/roach88/rete/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	NoUnlink bool
}

// ReplayRuleResult compares one rule's journal against the rebuilt network.
type ReplayRuleResult struct {
	Rule        string   `json:"rule"`
	Activations int      `json:"activations"`
	Retractions int      `json:"retractions"`
	Open        int      `json:"open"`
	Missing     []string `json:"missing,omitempty"`    // open in the journal, absent after restore
	Unexpected  []string `json:"unexpected,omitempty"` // present after restore, never journaled
	Consistent  bool     `json:"consistent"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Facts         int                `json:"facts"`
	LastSeq       int64              `json:"last_seq"`
	Rules         []ReplayRuleResult `json:"rules"`
	AllConsistent bool               `json:"all_consistent"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <rules-dir>",
		Short: "Rebuild a journal and verify its matches",
		Long: `Restore the live facts of a journal into a fresh network built from the
rules in a directory, then check that the matches the network derives
are exactly the activations the journal still has open.

Exit codes:
  0 - Journal and network agree
  1 - Mismatch (missing or unexpected matches)
  2 - Command error (database not found, etc.)

Examples:
  rete replay ./rules --db ./rete.db
  rete replay ./rules --db ./rete.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().BoolVar(&opts.NoUnlink, "no-unlink", false, "disable left/right unlinking")

	return cmd
}

func runReplay(opts *ReplayOptions, rulesDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := opts.logger()

	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "database not found", err)
	}

	loaded, err := LoadRules(rulesDir)
	if err != nil {
		return failLoad(formatter, err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to open database", err)
	}
	defer st.Close()

	eng, err := buildEngine(loaded.Rules, !opts.NoUnlink, st, nil, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, "failed to build network", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := eng.Restore(ctx); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, "failed to restore journal", err)
	}

	names := make([]string, len(loaded.Rules.Rules))
	for i, r := range loaded.Rules.Rules {
		names[i] = r.Name
	}
	result := compareJournal(eng, names)
	result.Facts = len(eng.Facts())
	result.LastSeq = eng.Clock().Current()

	if opts.Format == FormatJSON {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result, opts.Verbose)
}

// compareJournal folds the activation log into the set of open activations
// per rule and compares it with the matches of the rebuilt network.
// Journaled rules that are no longer defined are reported as well.
func compareJournal(eng *engine.Engine, rules []string) ReplayResult {
	type tally struct {
		activations, retractions int
		open                     map[string]bool
	}
	byRule := make(map[string]*tally)
	get := func(rule string) *tally {
		t, ok := byRule[rule]
		if !ok {
			t = &tally{open: make(map[string]bool)}
			byRule[rule] = t
		}
		return t
	}

	for _, a := range eng.Log() {
		t := get(a.Rule)
		switch a.Kind {
		case ir.KindActivate:
			t.activations++
			t.open[a.ActivationID] = true
		case ir.KindRetract:
			t.retractions++
			delete(t.open, a.ActivationID)
		}
	}

	order := slices.Clone(rules)
	for rule := range byRule {
		if !slices.Contains(order, rule) {
			order = append(order, rule)
		}
	}

	result := ReplayResult{AllConsistent: true}
	for _, rule := range order {
		t := get(rule)
		live := make(map[string]bool)
		for _, m := range eng.Matches(rule) {
			id, err := ir.ActivationID(rule, m.FactIDs)
			if err != nil {
				continue
			}
			live[id] = true
		}

		rr := ReplayRuleResult{
			Rule:        rule,
			Activations: t.activations,
			Retractions: t.retractions,
			Open:        len(t.open),
		}
		for id := range t.open {
			if !live[id] {
				rr.Missing = append(rr.Missing, id)
			}
		}
		for id := range live {
			if !t.open[id] {
				rr.Unexpected = append(rr.Unexpected, id)
			}
		}
		slices.Sort(rr.Missing)
		slices.Sort(rr.Unexpected)
		rr.Consistent = len(rr.Missing) == 0 && len(rr.Unexpected) == 0
		if !rr.Consistent {
			result.AllConsistent = false
		}
		result.Rules = append(result.Rules, rr)
	}
	return result
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllConsistent {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeReplayMismatch,
			Message: "journal does not match the rebuilt network",
		}
	}

	encoder := json.NewEncoder(formatter.Writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.AllConsistent {
		return NewExitError(ExitFailure, "replay verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult, verbose bool) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Replay Summary: %d fact(s), last seq %d\n", result.Facts, result.LastSeq)
	fmt.Fprintln(w)

	for _, r := range result.Rules {
		status := "✓"
		if !r.Consistent {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Rule: %s\n", status, r.Rule)
		fmt.Fprintf(w, "  Open: %d\n", r.Open)
		if verbose {
			fmt.Fprintf(w, "  Activations: %d\n", r.Activations)
			fmt.Fprintf(w, "  Retractions: %d\n", r.Retractions)
		}
		for _, id := range r.Missing {
			fmt.Fprintf(w, "  missing: %s\n", id)
		}
		for _, id := range r.Unexpected {
			fmt.Fprintf(w, "  unexpected: %s\n", id)
		}
		fmt.Fprintln(w)
	}

	if result.AllConsistent {
		fmt.Fprintln(w, "✓ Journal verified")
		return nil
	}

	fmt.Fprintln(w, "✗ Replay verification failed")
	return NewExitError(ExitFailure, "replay verification failed")
}
