// Package harness runs decoding scenarios: a circuit or error model, a list
// of shots with expected predictions, and assertions on the compiled model.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: erasure_chain
//	description: "A heralded erasure cancels the boundary correction"
//	circuit: erasure_chain.stim   # or circuit_text, model, model_text
//	config: decoder.cue           # optional, CUE decoder configuration
//	shots:
//	  - name: flip on qubit 2
//	    detectors: [2]
//	    expect:
//	      observables: [0]
//	  - name: lone defect
//	    detectors: [0]
//	    expect:
//	      failure: INFEASIBLE
//	assertions:
//	  - type: model
//	    kind: heralded
//	    num_heralds: 1
//	  - type: herald_edge
//	    herald: 0
//	    detectors: [2]
//
// Paths are relative to the scenario file.
//
// # Assertion Types
//
//   - model: checks kind and detector, observable, edge and herald counts
//   - edge: the decoding graph has an edge on exactly these detectors
//   - herald_edge: the herald changes the edge on exactly these detectors
//   - failures_recorded: number of solver failures captured in the store
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory store with sequential failure ids, so
// the result snapshot is identical across runs and can be compared against
// golden files with RunWithGolden.
package harness
