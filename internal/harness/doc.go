// Package harness runs conformance scenarios against the engine.
//
// A scenario is a YAML file naming CUE rule files, a list of assert and
// retract steps, and assertions over the result:
//
//	name: blocks-on-red
//	description: a block on a red block matches until the red fact goes
//	rules: [../rules/blocks.cue]
//	steps:
//	  - assert: [1, on, 2]
//	    as: b1-on-b2
//	  - assert: [2, color, red]
//	    as: b2-red
//	  - retract: b2-red
//	assertions:
//	  - type: trace_count
//	    rule: block-on-red
//	    count: 2
//
// Each run uses a fresh network, an in-memory journal, a deterministic clock
// and sequential fact IDs, so the same scenario always yields the same trace.
// RunWithGolden compares that trace with testdata/golden/<name>.golden.
//
// Run it with WithUnlinking(true) and WithUnlinking(false) to compare the linked and
// always-linked networks; their traces are identical.
package harness
