// Package native implements the position-relative circuit text format.
//
// A native circuit addresses measurement outcomes by lookback offset
// (rec[-1] is the most recent measurement) and may contain REPEAT blocks.
// This package parses and prints that format, expands repeated structure,
// and knows how many measurement outcomes each instruction produces.
//
// Line format:
//
//	NAME[tag](arg, arg, ...) target target ...
//	REPEAT count {
//	    ...
//	}
//
// Targets are qubit indices (optionally inverted with '!'), measurement
// lookbacks (rec[-k]), Pauli terms (X3, Y0, Z7) and the MPP combiner '*'.
//
// Package native is a leaf: it imports nothing internal.
package native
