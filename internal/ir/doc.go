// Package ir provides the shared value and rule descriptor types.
//
// Every other internal package imports ir; ir imports nothing internal.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64 (IRInt)
//   - Value equality is structural (Equal), never Go interface equality
//   - Canonical JSON (MarshalCanonical) is the only encoding used for hashing
//     and for the journal, so traces replay byte-for-byte
//   - Logical clocks (seq) only, never wall-clock timestamps
package ir
