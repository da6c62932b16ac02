package bits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskSetGet(t *testing.T) {
	m := NewMask(130)
	require.True(t, m.IsNone())

	m.Set(0, true)
	m.Set(64, true)
	m.Set(129, true)

	assert.True(t, m.Get(0))
	assert.True(t, m.Get(64))
	assert.True(t, m.Get(129))
	assert.False(t, m.Get(1))
	assert.Equal(t, 3, m.Count())

	m.Set(64, false)
	assert.False(t, m.Get(64))
	assert.Equal(t, 2, m.Count())
}

func TestMaskSetByteAlignedDropsTail(t *testing.T) {
	m := NewMask(12)

	m.SetByteAligned(0, 0b1010_0101)
	m.SetByteAligned(8, 0xff)

	assert.Equal(t, []bool{
		true, false, true, false, false, true, false, true,
		true, true, true, true,
	}, m.Bools())

	// bits past Len never count
	assert.Equal(t, 8, m.Count())

	m.SetByteAligned(8, 0)
	assert.Equal(t, 4, m.Count())
}

func TestMaskAndOr(t *testing.T) {
	every := func(step int) *Mask {
		m := NewMask(70)
		for i := 0; i < 70; i += step {
			m.Set(i, true)
		}
		return m
	}

	a := every(2)

	and := every(2)
	and.And(every(3))

	or := every(2)
	or.Or(every(3))

	for i := 0; i < 70; i++ {
		if and.Get(i) != (i%6 == 0) {
			t.Errorf("Expected and bit %d to be %v", i, i%6 == 0)
		}
		if or.Get(i) != (i%2 == 0 || i%3 == 0) {
			t.Errorf("Expected or bit %d to be %v", i, i%2 == 0 || i%3 == 0)
		}
	}

	assert.Panics(t, func() { a.And(NewMask(71)) })
}

func TestMaskSetAllAndReset(t *testing.T) {
	m := NewMask(67)
	m.SetAll()

	assert.True(t, m.IsAll())
	assert.Equal(t, 67, m.Count())

	m.Reset(10)
	assert.Equal(t, 10, m.Len())
	assert.True(t, m.IsNone())
}

func TestMaskNextSet(t *testing.T) {
	m := NewMask(200)
	m.Set(3, true)
	m.Set(64, true)
	m.Set(199, true)

	assert.Equal(t, 3, m.NextSet(0))
	assert.Equal(t, 3, m.NextSet(3))
	assert.Equal(t, 64, m.NextSet(4))
	assert.Equal(t, 199, m.NextSet(65))
	assert.Equal(t, -1, m.NextSet(200))
}

func BenchmarkMaskAnd(b *testing.B) {
	x := NewMask(2048)
	y := NewMask(2048)
	y.SetAll()

	for b.Loop() {
		x.And(y)
	}
}
