package native

// Kind classifies what an instruction does.
type Kind uint8

const (
	KindAnnotation Kind = iota
	KindGate1
	KindGate2
	KindNoise
	KindHeraldedNoise
	KindMeasurement
	KindPairMeasurement
	KindProductMeasurement
	KindReset
	KindMeasureReset
	KindDetector
	KindObservable
)

// Gate describes a known instruction name.
type Gate struct {
	Name    string
	Kind    Kind
	MinArgs int
	MaxArgs int // -1 means unbounded
}

var gates = map[string]Gate{}

func register(kind Kind, minArgs, maxArgs int, names ...string) {
	for _, name := range names {
		gates[name] = Gate{Name: name, Kind: kind, MinArgs: minArgs, MaxArgs: maxArgs}
	}
}

func init() {
	register(KindAnnotation, 0, -1, "QUBIT_COORDS", "SHIFT_COORDS")
	register(KindAnnotation, 0, 0, "TICK")

	register(KindGate1, 0, 0,
		"I", "X", "Y", "Z", "H", "H_XY", "H_YZ", "H_XZ",
		"S", "S_DAG", "SQRT_Z", "SQRT_Z_DAG",
		"SQRT_X", "SQRT_X_DAG", "SQRT_Y", "SQRT_Y_DAG")
	register(KindGate2, 0, 0,
		"CX", "CNOT", "ZCX", "CY", "ZCY", "CZ", "ZCZ", "SWAP")

	register(KindNoise, 1, 1,
		"X_ERROR", "Y_ERROR", "Z_ERROR", "DEPOLARIZE1", "DEPOLARIZE2",
		"E", "CORRELATED_ERROR", "ELSE_CORRELATED_ERROR")
	register(KindNoise, 3, 3, "PAULI_CHANNEL_1")
	register(KindNoise, 15, 15, "PAULI_CHANNEL_2")

	register(KindHeraldedNoise, 1, 1, "HERALDED_ERASE")
	register(KindHeraldedNoise, 4, 4, "HERALDED_PAULI_CHANNEL_1")

	register(KindMeasurement, 0, 1, "M", "MZ", "MX", "MY")
	register(KindPairMeasurement, 0, 1, "MXX", "MYY", "MZZ")
	register(KindProductMeasurement, 0, 1, "MPP")
	register(KindReset, 0, 0, "R", "RZ", "RX", "RY")
	register(KindMeasureReset, 0, 1, "MR", "MRZ", "MRX", "MRY")

	register(KindDetector, 0, -1, "DETECTOR")
	register(KindObservable, 1, 1, "OBSERVABLE_INCLUDE")
}

// LookupGate returns the gate description for name.
func LookupGate(name string) (Gate, bool) {
	g, ok := gates[name]
	return g, ok
}

// noiseChannels is the set of instructions that inject noise.
var noiseChannels = map[string]bool{
	"CORRELATED_ERROR":         true,
	"DEPOLARIZE1":              true,
	"DEPOLARIZE2":              true,
	"E":                        true,
	"ELSE_CORRELATED_ERROR":    true,
	"HERALDED_ERASE":           true,
	"HERALDED_PAULI_CHANNEL_1": true,
	"PAULI_CHANNEL_1":          true,
	"PAULI_CHANNEL_2":          true,
	"X_ERROR":                  true,
	"Y_ERROR":                  true,
	"Z_ERROR":                  true,
}

// IsNoiseChannel reports whether name is a noise-emitting instruction.
//
// NOTE: measurement flip probabilities (M(0.01)) are noise too, but the
// instruction is a measurement first; it is not classified here.
func IsNoiseChannel(name string) bool {
	return noiseChannels[name]
}

// IsHeralded reports whether name is a heralded noise channel.
func IsHeralded(name string) bool {
	g, ok := gates[name]
	return ok && g.Kind == KindHeraldedNoise
}

// MeasurementCount returns how many measurement outcomes an instruction
// with the given name and targets produces. Unknown names produce zero.
func MeasurementCount(name string, targets []Target) int {
	g, ok := gates[name]
	if !ok {
		return 0
	}
	switch g.Kind {
	case KindMeasurement, KindMeasureReset, KindHeraldedNoise:
		return len(targets)
	case KindPairMeasurement:
		return len(targets) / 2
	case KindProductMeasurement:
		n := 0
		joined := false
		for _, t := range targets {
			if t.Kind == TargetCombiner {
				joined = true
				continue
			}
			if !joined {
				n++
			}
			joined = false
		}
		return n
	default:
		return 0
	}
}
