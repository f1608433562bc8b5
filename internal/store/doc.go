// Package store provides the SQLite journal for the rete engine.
//
// The journal is append-mostly:
//   - facts: every asserted fact, with the seq it was asserted at and,
//     once retracted, the seq it was retracted at
//   - activations: every terminal event (activate or retract), keyed by seq
//   - meta: the IR and engine versions that last opened the journal
//
// All ordering uses seq INTEGER (logical clock), NEVER timestamps. Queries
// order by seq, then by id with COLLATE BINARY, so reads are identical across runs.
//
// Facts, bindings and fact ID lists are stored as canonical JSON
// (ir.MarshalCanonical).
//
// Connections run in WAL mode with synchronous=NORMAL and a 5s busy
// timeout. Schema changes are migrations keyed by PRAGMA user_version.
package store
