package frame

import "github.com/roach88/hyperdem/internal/native"

// pauli is a single-qubit Pauli up to phase: X = (1,0), Z = (0,1), Y = (1,1).
type pauli struct {
	x, z bool
}

var (
	pauliI = pauli{}
	pauliX = pauli{x: true}
	pauliY = pauli{x: true, z: true}
	pauliZ = pauli{z: true}
)

// pauliOrder indexes I, X, Y, Z the way channel arguments are ordered.
var pauliOrder = [4]pauli{pauliI, pauliX, pauliY, pauliZ}

func pauliOf(b byte) pauli {
	switch b {
	case 'X':
		return pauliX
	case 'Y':
		return pauliY
	default:
		return pauliZ
	}
}

func (p pauli) isIdentity() bool {
	return !p.x && !p.z
}

// frame is a sparse Pauli frame keyed by qubit.
type frame map[int]pauli

func (f frame) get(q int) pauli {
	return f[q]
}

func (f frame) set(q int, p pauli) {
	if p.isIdentity() {
		delete(f, q)
		return
	}
	f[q] = p
}

func (f frame) mul(q int, p pauli) {
	cur := f[q]
	f.set(q, pauli{x: cur.x != p.x, z: cur.z != p.z})
}

// single-qubit Clifford conjugation rules, up to sign.
var gate1Rules = map[string]func(pauli) pauli{
	"I": identityRule, "X": identityRule, "Y": identityRule, "Z": identityRule,

	"H":          swapRule,
	"H_XZ":       swapRule,
	"SQRT_Y":     swapRule,
	"SQRT_Y_DAG": swapRule,

	"S":          func(p pauli) pauli { return pauli{x: p.x, z: p.z != p.x} },
	"S_DAG":      func(p pauli) pauli { return pauli{x: p.x, z: p.z != p.x} },
	"SQRT_Z":     func(p pauli) pauli { return pauli{x: p.x, z: p.z != p.x} },
	"SQRT_Z_DAG": func(p pauli) pauli { return pauli{x: p.x, z: p.z != p.x} },
	"H_XY":       func(p pauli) pauli { return pauli{x: p.x, z: p.z != p.x} },

	"SQRT_X":     func(p pauli) pauli { return pauli{x: p.x != p.z, z: p.z} },
	"SQRT_X_DAG": func(p pauli) pauli { return pauli{x: p.x != p.z, z: p.z} },
	"H_YZ":       func(p pauli) pauli { return pauli{x: p.x != p.z, z: p.z} },
}

func identityRule(p pauli) pauli { return p }
func swapRule(p pauli) pauli     { return pauli{x: p.z, z: p.x} }

// two-qubit Clifford conjugation rules on (control, target), up to sign.
var gate2Rules = map[string]func(c, t pauli) (pauli, pauli){
	"CX":   cxRule,
	"CNOT": cxRule,
	"ZCX":  cxRule,
	"CZ":   czRule,
	"ZCZ":  czRule,
	"CY":   cyRule,
	"ZCY":  cyRule,
	"SWAP": func(c, t pauli) (pauli, pauli) { return t, c },
}

func cxRule(c, t pauli) (pauli, pauli) {
	return pauli{x: c.x, z: c.z != t.z}, pauli{x: t.x != c.x, z: t.z}
}

func czRule(c, t pauli) (pauli, pauli) {
	return pauli{x: c.x, z: c.z != t.x}, pauli{x: t.x, z: t.z != c.x}
}

func cyRule(c, t pauli) (pauli, pauli) {
	return pauli{x: c.x, z: c.z != (t.x != t.z)}, pauli{x: t.x != c.x, z: t.z != c.x}
}

// basis returns the Pauli a measurement or reset of this name is diagonal in.
func basis(name string) pauli {
	switch name {
	case "MX", "RX", "MRX":
		return pauliX
	case "MY", "RY", "MRY":
		return pauliY
	default:
		return pauliZ
	}
}

// anticommutes reports whether a and b anticommute.
func anticommutes(a, b pauli) bool {
	return (a.x && b.z) != (a.z && b.x)
}

// supported reports whether the analyzer can propagate through kind/name.
func supported(g native.Gate) bool {
	switch g.Kind {
	case native.KindGate1:
		_, ok := gate1Rules[g.Name]
		return ok
	case native.KindGate2:
		_, ok := gate2Rules[g.Name]
		return ok
	case native.KindPairMeasurement, native.KindProductMeasurement:
		return false
	default:
		return true
	}
}
