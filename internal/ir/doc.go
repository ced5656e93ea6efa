// Package ir provides the canonical encoding used to identify decoding
// models and syndromes across runs.
//
// This package is a leaf: it imports nothing internal. Callers describe
// what they want identified as a Value tree and hash it with a domain.
//
// Key design constraints:
//   - NO float values in the canonical form; probabilities and weights are
//     carried as shortest round-trip decimal strings (Float)
//   - strings are NFC normalized at serialization time
//   - object keys are ordered by UTF-16 code units (RFC 8785)
package ir
