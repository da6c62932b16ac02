package bits

import "math/bits"

// Mask is a fixed length per-row admission vector.
// Bits beyond Len() are always kept clear so word level ops stay exact.
type Mask struct {
	words []uint64
	n     int
}

func NewMask(n int) *Mask {
	m := &Mask{}
	m.Reset(n)
	return m
}

// Reset clears the mask and changes its length, reusing storage when possible.
func (m *Mask) Reset(n int) {
	need := (n + 63) >> 6
	if cap(m.words) < need {
		m.words = make([]uint64, need)
	} else {
		m.words = m.words[:need]
		clear(m.words)
	}
	m.n = n
}

func (m *Mask) Len() int {
	return m.n
}

func (m *Mask) Set(bit int, v bool) {
	word := bit >> 6
	mask := uint64(1) << (bit & 63)
	if v {
		m.words[word] |= mask
	} else {
		m.words[word] &^= mask
	}
}

func (m *Mask) Get(bit int) bool {
	return (m.words[bit>>6]>>(bit&63))&1 == 1
}

// SetByteAligned stores 8 packed results starting at row, which must be a multiple of 8.
// Bits past Len() are dropped.
func (m *Mask) SetByteAligned(row int, packed byte) {
	if rem := m.n - row; rem < 8 {
		packed &= byte(1<<rem) - 1
	}
	word := row >> 6
	shift := uint(row & 63)
	m.words[word] = m.words[word]&^(uint64(0xff)<<shift) | uint64(packed)<<shift
}

func (m *Mask) SetAll() {
	for i := range m.words {
		m.words[i] = ^uint64(0)
	}
	m.trimTail()
}

func (m *Mask) ClearAll() {
	clear(m.words)
}

func (m *Mask) trimTail() {
	if tail := m.n & 63; tail != 0 {
		m.words[len(m.words)-1] &= uint64(1)<<tail - 1
	}
}

func (m *Mask) IsNone() bool {
	for _, w := range m.words {
		if w != 0 {
			return false
		}
	}
	return true
}

func (m *Mask) IsAll() bool {
	return m.Count() == m.n
}

func (m *Mask) Count() int {
	c := 0
	for _, w := range m.words {
		c += bits.OnesCount64(w)
	}
	return c
}

// And narrows m to rows admitted by both masks. Lengths must match.
func (m *Mask) And(other *Mask) {
	if other.n != m.n {
		panic("mask length mismatch")
	}
	for i := range m.words {
		m.words[i] &= other.words[i]
	}
}

func (m *Mask) Or(other *Mask) {
	if other.n != m.n {
		panic("mask length mismatch")
	}
	for i := range m.words {
		m.words[i] |= other.words[i]
	}
}

// NextSet returns the first admitted row at or after from, or -1.
func (m *Mask) NextSet(from int) int {
	if from >= m.n {
		return -1
	}
	wi := from >> 6
	w := m.words[wi] &^ (uint64(1)<<(from&63) - 1)
	for {
		if w != 0 {
			return wi<<6 + bits.TrailingZeros64(w)
		}
		wi++
		if wi >= len(m.words) {
			return -1
		}
		w = m.words[wi]
	}
}

func (m *Mask) Bools() []bool {
	out := make([]bool, m.n)
	for i := range out {
		out[i] = m.Get(i)
	}
	return out
}
