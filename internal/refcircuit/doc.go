// Package refcircuit gives every instruction and every measurement outcome
// of a circuit a stable, identity-based handle.
//
// The native circuit format addresses measurements by position-relative
// lookback (rec[-k]); inserting or deleting an instruction silently changes
// what every later lookback means. A reference circuit instead stores each
// measurement as a RecID allocated in an Arena, owned by the instruction
// that produced it, so instructions can be removed, replaced or cloned
// without re-addressing anything by hand.
//
// Identity rules:
//   - An InstrID or RecID is only meaningful together with its Arena.
//     Two handles are equal iff they are the same index in the same arena;
//     two structurally identical instructions are still distinct.
//   - Instructions are immutable once allocated. Their measurement handles
//     are allocated together with them and frozen.
//   - Circuits are immutable. Every transformation (Clone, RemoveNoiseChannels,
//     Slice, Concat) returns a new Circuit sharing the arena.
//
// Construction is a single append-only pass through a Builder, which only
// accepts references to measurements produced earlier in the same pass.
//
// Thread-safety: an Arena is safe for concurrent allocation. A built Circuit
// is read-only; its derived maps are computed once on first access and are
// safe to share between goroutines.
package refcircuit
