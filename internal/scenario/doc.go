// Package scenario runs scripted processor sessions against the demo domains.
//
// A scenario names a domain, sends a list of actions, waits for effects to
// settle, and checks the final projected state, the number of registered
// effects, and assertions over the event trace. Scenario files are YAML
// (decoded strictly) or CUE (unified with an embedded schema).
//
// Runs are deterministic: effect ids come from a sequential generator and the
// Processor id is fixed, so a settled run can be compared byte for byte with a
// golden trace via RunWithGolden.
package scenario
