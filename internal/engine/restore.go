package engine

import (
	"context"
	"fmt"

	"github.com/roach88/rete/internal/ir"
)

const (
	metaIRVersion     = "ir_version"
	metaEngineVersion = "engine_version"
)

// Restore rebuilds working memory from the journal.
//
// Live facts are re-asserted in asserted_seq order with their journaled IDs.
// Activations caused by the re-assertion are not journaled again; the
// journaled history is loaded into the log instead. The clock resumes after
// the highest journaled seq.
//
// Rules should be added before Restore so their matches are rebuilt. Restore
// on an engine without a store is a no-op.
func (e *Engine) Restore(ctx context.Context) error {
	if e.store == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkVersion(ctx); err != nil {
		return err
	}

	facts, err := e.store.ReadLiveFacts(ctx)
	if err != nil {
		return fmt.Errorf("restore facts: %w", err)
	}
	history, err := e.store.ReadActivations(ctx)
	if err != nil {
		return fmt.Errorf("restore activations: %w", err)
	}
	last, err := e.store.GetLastSeq(ctx)
	if err != nil {
		return fmt.Errorf("restore clock: %w", err)
	}

	e.restoring = true
	defer func() { e.restoring = false }()

	restored := 0
	for _, rec := range facts {
		if _, exists := e.facts[rec.ID]; exists {
			continue
		}
		w, err := e.net.AddWME(rec.Fields...)
		if err != nil {
			return fmt.Errorf("restore fact %s: %w", rec.ID, err)
		}
		e.facts[rec.ID] = &fact{wme: w, record: rec}
		e.byWME[w.ID] = rec.ID
		restored++
	}

	e.log = append(history, e.log...)
	e.clock.Resume(last)

	e.logger.Info("working memory restored",
		"facts", restored,
		"activations", len(history),
		"seq", last,
	)
	return nil
}

// checkVersion refuses a journal written with a different IR version and
// stamps a fresh one.
func (e *Engine) checkVersion(ctx context.Context) error {
	v, ok, err := e.store.GetMeta(ctx, metaIRVersion)
	if err != nil {
		return fmt.Errorf("read journal version: %w", err)
	}
	if ok && v != ir.IRVersion {
		return &RuntimeError{
			Code:    ErrCodeVersionMismatch,
			Message: fmt.Sprintf("journal ir version %s, engine ir version %s", v, ir.IRVersion),
		}
	}
	if !ok {
		if err := e.store.SetMeta(ctx, metaIRVersion, ir.IRVersion); err != nil {
			return fmt.Errorf("stamp journal version: %w", err)
		}
	}
	// The engine version is informational: the last engine to open the
	// journal.
	if err := e.store.SetMeta(ctx, metaEngineVersion, ir.EngineVersion); err != nil {
		return fmt.Errorf("stamp engine version: %w", err)
	}
	return nil
}
