package solver

import "math/bits"

// bitset is a fixed-width GF(2) vector.
type bitset []uint64

func newBitset(n int) bitset {
	return make(bitset, (n+63)/64)
}

func (b bitset) get(i int) bool {
	return b[i/64]&(1<<uint(i%64)) != 0
}

func (b bitset) set(i int) {
	b[i/64] |= 1 << uint(i%64)
}

func (b bitset) flip(i int) {
	b[i/64] ^= 1 << uint(i%64)
}

func (b bitset) xor(o bitset) {
	for i := range b {
		b[i] ^= o[i]
	}
}

// dot returns the parity of b AND o.
func (b bitset) dot(o bitset) bool {
	var acc uint64
	for i := range b {
		acc ^= b[i] & o[i]
	}
	return bits.OnesCount64(acc)%2 == 1
}

func (b bitset) clone() bitset {
	out := make(bitset, len(b))
	copy(out, b)
	return out
}

// each calls fn for every set bit in ascending order.
func (b bitset) each(fn func(i int)) {
	for w, word := range b {
		for word != 0 {
			t := bits.TrailingZeros64(word)
			fn(w*64 + t)
			word &= word - 1
		}
	}
}

// lowestDiff returns the smallest index where b and o differ, or -1.
func (b bitset) lowestDiff(o bitset) int {
	for w := range b {
		if d := b[w] ^ o[w]; d != 0 {
			return w*64 + bits.TrailingZeros64(d)
		}
	}
	return -1
}
