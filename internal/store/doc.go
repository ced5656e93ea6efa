// Package store provides SQLite-backed durable storage for compiled
// decoding models and the solver failures captured while decoding.
//
// A captured failure holds everything needed to re-run the solve offline:
// the model fingerprint (which resolves to the stored initializer), the
// solver configuration and the shot's syndrome.
//
// # Ordering
//
// Records are stamped with a logical seq from the store's Clock, never a
// timestamp. Reads order by seq ASC, id ASC COLLATE BINARY so that listings
// are identical across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Model fingerprints are computed by internal/ir from canonical JSON.
package store
