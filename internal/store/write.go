package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rete/internal/ir"
)

// ErrFactNotFound is returned when a retraction names a fact that is not
// live in the journal.
var ErrFactNotFound = errors.New("fact not found")

// Batch is the journal entry for one engine transaction: at most one fact
// change plus the activations it caused, written atomically.
type Batch struct {
	// Assert is the fact added by this transaction, if any.
	Assert *ir.FactRecord

	// RetractID names the fact removed by this transaction, if any.
	RetractID  string
	RetractSeq int64

	Activations []ir.ActivationRecord
}

// WriteBatch writes a transaction in a single SQLite transaction.
// Asserting an existing fact ID is a no-op (idempotent replay); retracting a
// fact that is unknown or already retracted returns ErrFactNotFound and
// writes nothing.
func (s *Store) WriteBatch(ctx context.Context, b Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write batch: begin tx: %w", err)
	}
	defer tx.Rollback()

	if b.Assert != nil {
		if err := insertFact(ctx, tx, *b.Assert); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	if b.RetractID != "" {
		if err := retractFact(ctx, tx, b.RetractID, b.RetractSeq); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}
	for _, act := range b.Activations {
		if err := insertActivation(ctx, tx, act); err != nil {
			return fmt.Errorf("write batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write batch: commit: %w", err)
	}
	return nil
}

// WriteFact inserts a fact record.
// Uses ON CONFLICT(id) DO NOTHING - duplicate IDs are silently ignored.
func (s *Store) WriteFact(ctx context.Context, f ir.FactRecord) error {
	return s.WriteBatch(ctx, Batch{Assert: &f})
}

// RetractFact marks a live fact retracted at seq.
func (s *Store) RetractFact(ctx context.Context, id string, seq int64) error {
	return s.WriteBatch(ctx, Batch{RetractID: id, RetractSeq: seq})
}

// WriteActivation inserts one activation record.
func (s *Store) WriteActivation(ctx context.Context, act ir.ActivationRecord) error {
	return s.WriteBatch(ctx, Batch{Activations: []ir.ActivationRecord{act}})
}

// SetMeta stores a key/value pair, replacing any previous value.
func (s *Store) SetMeta(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("set meta %q: %w", key, err)
	}
	return nil
}

func insertFact(ctx context.Context, tx *sql.Tx, f ir.FactRecord) error {
	fieldsJSON, err := marshalFields(f.Fields)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO facts (id, fields, asserted_seq, retracted_seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, f.ID, fieldsJSON, f.AssertedSeq, f.RetractedSeq)
	if err != nil {
		return fmt.Errorf("insert fact %s: %w", f.ID, err)
	}
	return nil
}

func retractFact(ctx context.Context, tx *sql.Tx, id string, seq int64) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE facts SET retracted_seq = ?
		WHERE id = ? AND retracted_seq IS NULL
	`, seq, id)
	if err != nil {
		return fmt.Errorf("retract fact %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("retract fact %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("retract fact %s: %w", id, ErrFactNotFound)
	}
	return nil
}

func insertActivation(ctx context.Context, tx *sql.Tx, act ir.ActivationRecord) error {
	bindingJSON, err := marshalBinding(act.Binding)
	if err != nil {
		return err
	}
	factIDsJSON, err := marshalFactIDs(act.FactIDs)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO activations
		(seq, activation_id, rule, kind, binding, binding_hash, fact_ids)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		act.Seq,
		act.ActivationID,
		act.Rule,
		string(act.Kind),
		bindingJSON,
		act.BindingHash,
		factIDsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert activation seq=%d: %w", act.Seq, err)
	}
	return nil
}
