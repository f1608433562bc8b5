// Package engine owns working memory for a Rete network.
//
// The engine assigns fact IDs, stamps every assertion, retraction and
// activation with a logical clock, and journals them to the store. Facts can
// be submitted synchronously (Assert, Retract) or through the event queue
// drained by Run.
//
// Single-Writer Event Loop:
// The network is not safe for concurrent use. Every transaction (one
// assertion or one retraction with all of its propagation) runs under the
// engine mutex, so Run, Assert and Retract may be mixed freely. Cancellation
// is only checked between transactions; a transaction that has started
// always completes.
//
// Logical Clock:
// Sequence numbers come from Clock.Next(). Wall-clock time is never used for
// ordering. An assertion takes its seq before the activations it causes, so
// the journal reads in causal order.
package engine
