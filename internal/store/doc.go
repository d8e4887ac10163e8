// Package store provides SQLite-backed durable storage for processor traces.
//
// Every event a Processor reports through its Observer is appended as one
// row keyed by (processor_id, seq). Seq is the Processor's logical clock, so
// a stored trace reads back in dispatch order regardless of wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
