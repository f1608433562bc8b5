package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rete/internal/ir"
)

// ReadFact returns a single fact by ID.
func (s *Store) ReadFact(ctx context.Context, id string) (ir.FactRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, fields, asserted_seq, retracted_seq
		FROM facts WHERE id = ?
	`, id)
	f, err := scanFact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.FactRecord{}, fmt.Errorf("read fact %s: %w", id, ErrFactNotFound)
	}
	return f, err
}

// ReadLiveFacts returns facts that have not been retracted, in assertion
// order. This is the working memory to rebuild on restart.
func (s *Store) ReadLiveFacts(ctx context.Context) ([]ir.FactRecord, error) {
	return s.queryFacts(ctx, `
		SELECT id, fields, asserted_seq, retracted_seq
		FROM facts
		WHERE retracted_seq IS NULL
		ORDER BY asserted_seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadAllFacts returns every fact ever asserted, in assertion order.
func (s *Store) ReadAllFacts(ctx context.Context) ([]ir.FactRecord, error) {
	return s.queryFacts(ctx, `
		SELECT id, fields, asserted_seq, retracted_seq
		FROM facts
		ORDER BY asserted_seq ASC, id COLLATE BINARY ASC
	`)
}

// ReadActivations returns every journaled activation in seq order.
func (s *Store) ReadActivations(ctx context.Context) ([]ir.ActivationRecord, error) {
	return s.queryActivations(ctx, `
		SELECT seq, activation_id, rule, kind, binding, binding_hash, fact_ids
		FROM activations
		ORDER BY seq ASC
	`)
}

// ReadActivationsForRule returns one rule's activations in seq order.
func (s *Store) ReadActivationsForRule(ctx context.Context, rule string) ([]ir.ActivationRecord, error) {
	return s.queryActivations(ctx, `
		SELECT seq, activation_id, rule, kind, binding, binding_hash, fact_ids
		FROM activations
		WHERE rule = ?
		ORDER BY seq ASC
	`, rule)
}

// GetLastSeq returns the highest seq used anywhere in the journal.
// Used on restart to resume the logical clock.
func (s *Store) GetLastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			(SELECT COALESCE(MAX(asserted_seq), 0) FROM facts),
			(SELECT COALESCE(MAX(retracted_seq), 0) FROM facts),
			(SELECT COALESCE(MAX(seq), 0) FROM activations)
		)
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// GetMeta returns a stored value, or "" and false when the key is unset.
func (s *Store) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get meta %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) queryFacts(ctx context.Context, query string, args ...any) ([]ir.FactRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []ir.FactRecord{}
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

func (s *Store) queryActivations(ctx context.Context, query string, args ...any) ([]ir.ActivationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activations: %w", err)
	}
	defer rows.Close()

	acts := []ir.ActivationRecord{}
	for rows.Next() {
		act, err := scanActivation(rows)
		if err != nil {
			return nil, err
		}
		acts = append(acts, act)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activations: %w", err)
	}
	return acts, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanFact(sc scanner) (ir.FactRecord, error) {
	var f ir.FactRecord
	var fieldsJSON string
	var retracted sql.NullInt64

	if err := sc.Scan(&f.ID, &fieldsJSON, &f.AssertedSeq, &retracted); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ir.FactRecord{}, err
		}
		return ir.FactRecord{}, fmt.Errorf("scan fact: %w", err)
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return ir.FactRecord{}, err
	}
	f.Fields = fields
	if retracted.Valid {
		seq := retracted.Int64
		f.RetractedSeq = &seq
	}
	return f, nil
}

func scanActivation(sc scanner) (ir.ActivationRecord, error) {
	var act ir.ActivationRecord
	var kind, bindingJSON, factIDsJSON string

	if err := sc.Scan(
		&act.Seq, &act.ActivationID, &act.Rule, &kind,
		&bindingJSON, &act.BindingHash, &factIDsJSON,
	); err != nil {
		return ir.ActivationRecord{}, fmt.Errorf("scan activation: %w", err)
	}
	act.Kind = ir.ActivationKind(kind)

	binding, err := unmarshalBinding(bindingJSON)
	if err != nil {
		return ir.ActivationRecord{}, err
	}
	act.Binding = binding

	ids, err := unmarshalFactIDs(factIDsJSON)
	if err != nil {
		return ir.ActivationRecord{}, err
	}
	act.FactIDs = ids
	return act, nil
}
