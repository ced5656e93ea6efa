// Package decoder is the entrypoint a benchmarking harness drives.
//
// A Decoder compiles either a native error model (static decoding) or a
// circuit (heralded decoding) into a Compiled model, caching compiled
// models by source. A Compiled model decodes bit-packed detection records
// into bit-packed observable predictions, in memory across a pool of
// workers or streamed through files.
//
// Each shot runs syndrome derivation, one solve, subgraph readback,
// prediction and solver reset. A shot the solver cannot decode becomes a
// SolverFailure: it is recorded for offline replay when a FailureRecorder
// is configured, then either aborts the batch (FailureRaise) or is replaced
// by a uniformly random prediction (FailureRandom).
package decoder
