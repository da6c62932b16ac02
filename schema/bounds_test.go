package schema

import (
	"bytes"
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/dot5enko/simple-column-scan/bits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func BenchmarkMinMaxRand(b *testing.B) {

	size := 40000

	input := make([]int64, size)

	for i := 0; i < size; i++ {
		input[i] = rand.Int63n(50000)
	}

	var result Bounds

	for b.Loop() {
		result = GetMaxMinBounds(input)
	}

	b.Logf("min : %d, max : %d", result.Min, result.Max)
}

func TestMinMax(t *testing.T) {
	input := []int16{0, 7000, 1, 2, 3, 4, 5, 6, -12}

	result := GetMaxMinBounds(input)
	assert.True(t, result.HasStats)
	assert.Equal(t, int64(-12), result.Min)
	assert.Equal(t, int64(7000), result.Max)

	assert.False(t, GetMaxMinBounds([]int32{}).HasStats)
}

func TestMinMaxBytes(t *testing.T) {
	result := GetMaxMinBytesBounds([][]byte{[]byte("kiwi"), []byte("apple"), []byte("pear"), []byte("")})
	assert.Equal(t, []byte(""), result.MinBytes)
	assert.Equal(t, []byte("pear"), result.MaxBytes)

	assert.True(t, result.ContainsBytes([]byte("banana")))
	assert.False(t, result.ContainsBytes([]byte("plum")))
}

func TestMorph(t *testing.T) {
	var b Bounds
	assert.False(t, b.Morph(Bounds{}))

	assert.True(t, b.Morph(NewBounds(5, 10)))
	assert.False(t, b.Morph(NewBounds(6, 9)))
	assert.True(t, b.Morph(NewBounds(-1, 7)))

	assert.Equal(t, NewBounds(-1, 10), b)
	assert.True(t, b.Contains(0))
	assert.False(t, b.Contains(11))
}

func TestBoundsCodec(t *testing.T) {
	cases := []struct {
		typ    FieldType
		bounds Bounds
	}{
		{Int64FieldType, NewBounds(-5, 1<<40)},
		{DateFieldType, NewBounds(18262, 20000)},
		{BytesFieldType, NewBytesBounds([]byte("a"), []byte("zz"))},
		{Int32FieldType, Bounds{}},
	}

	bw := bits.NewEncodeBuffer(make([]byte, 8), binary.LittleEndian)
	bw.EnableGrowing()

	for _, c := range cases {
		_, err := c.bounds.WriteTo(&bw, c.typ)
		require.NoError(t, err)
	}

	reader := bits.NewReader(bytes.NewReader(bw.Bytes()), binary.LittleEndian)
	for _, c := range cases {
		var got Bounds
		require.NoError(t, got.FromBytes(reader, c.typ))
		assert.Equal(t, c.bounds, got, c.typ.String())
	}

	assert.Equal(t, bw.Position(), reader.Position())
}
