// Package processor implements a unidirectional state container.
//
// A Processor accepts external actions, transforms each into a private
// action, and reduces the private action into its state. A reduce step may
// return an effect; every value the effect produces is reduced in turn, so
// effects can chain further effects until a reducer returns nil.
//
// ARCHITECTURE:
//
// Dispatch lock:
// Every reduce step runs while holding one per-Processor mutex. Send reduces
// on the caller's goroutine; effect outputs are reduced on the Processor's
// mailbox goroutine. Mutation steps therefore never interleave, while
// ordering between different sources stays unspecified.
//
// Effect lifecycle:
//  1. Reduce returns an effect
//  2. The Processor mints a fresh id and wraps the effect with Cancellable,
//     registering it in the cancellation registry synchronously
//  3. The producer runs on its own goroutine
//  4. Each emitted value is queued to the mailbox, which re-checks the
//     registration under the dispatch lock before reducing it
//  5. On completion or cancellation the registration is removed
//
// Because step 4 re-checks registration, CancelAll and auto-cancel are hard
// cut-offs: once they return, no value from a canceled effect reaches Reduce,
// even if the producer emitted it before noticing cancellation.
//
// Observation:
// State returns the latest state, Select projects a field of it, and Observe
// streams every state in order. None of them dispatch.
package processor
