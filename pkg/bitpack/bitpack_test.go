package bitpack

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_MSBFirst(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.Write(0b101, 3))
	require.NoError(t, w.Write(0b1, 1))
	w.Flush()

	require.Len(t, w.Words(), 1)
	assert.Equal(t, uint32(0b1011)<<28, w.Words()[0])
}

func TestWriter_SplitsAcrossWords(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.Write(0, 30))
	require.NoError(t, w.Write(0xF, 4)) // two bits land in each word
	w.Flush()

	require.Len(t, w.Words(), 2)
	assert.Equal(t, uint32(0b11), w.Words()[0])
	assert.Equal(t, uint32(0b11)<<30, w.Words()[1])
	assert.Equal(t, uint64(64), w.BitLen())
}

func TestWriter_FullWord(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.Write(0xDEADBEEF, 32))
	require.NoError(t, w.Write(0x12345678, 32))
	assert.Equal(t, []uint32{0xDEADBEEF, 0x12345678}, w.Words())

	// Nothing pending, so Flush must not add a word.
	w.Flush()
	assert.Len(t, w.Words(), 2)
}

func TestWriter_MasksHighBits(t *testing.T) {
	w := NewWriter(0)
	require.NoError(t, w.Write(0xFF, 4))
	w.Flush()
	assert.Equal(t, uint32(0xF)<<28, w.Words()[0])
}

func TestWriter_InvalidWidth(t *testing.T) {
	w := NewWriter(0)
	for _, bits := range []int{0, -1, 33} {
		err := w.Write(1, bits)
		assert.True(t, errors.Is(err, ErrInvalidWidth), "width %d", bits)
	}
}

func TestRoundTrip_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	type field struct {
		value uint32
		bits  int
	}
	fields := make([]field, 5000)
	w := NewWriter(0)
	for i := range fields {
		bits := rng.Intn(32) + 1
		v := rng.Uint32() & uint32(mask(bits))
		fields[i] = field{v, bits}
		require.NoError(t, w.Write(v, bits))
	}
	w.Flush()

	r := NewReader(w.Words())
	for i, f := range fields {
		got, err := r.Read(f.bits)
		require.NoError(t, err, "field %d", i)
		require.Equal(t, f.value, got, "field %d (%d bits)", i, f.bits)
	}
	assert.Less(t, r.Remaining(), uint64(32))
}

func TestReader_OutOfData(t *testing.T) {
	r := NewReader([]uint32{0xFFFFFFFF})
	_, err := r.Read(30)
	require.NoError(t, err)

	_, err = r.Read(3)
	assert.True(t, errors.Is(err, ErrOutOfData))
	// A failed read leaves the cursor where it was.
	assert.Equal(t, uint64(30), r.Pos())

	got, err := r.Read(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b11), got)
}

func TestReader_Seek(t *testing.T) {
	w := NewWriter(0)
	for i := 0; i < 10; i++ {
		require.NoError(t, w.Write(uint32(i), 5))
	}
	w.Flush()

	r := NewReader(w.Words())
	require.NoError(t, r.Seek(7*5))
	got, err := r.Read(5)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got)

	assert.True(t, errors.Is(r.Seek(r.Len()+1), ErrOutOfData))
}

func TestSignExtend(t *testing.T) {
	tests := []struct {
		value uint32
		bits  int
		want  int32
	}{
		{0b0, 1, 0},
		{0b1, 1, -1},
		{0b011, 3, 3},
		{0b100, 3, -4},
		{0b111, 3, -1},
		{0x7F, 8, 127},
		{0x80, 8, -128},
		{0xFF, 8, -1},
		{0xFFFFFFFF, 32, -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignExtend(tt.value, tt.bits), "SignExtend(%b, %d)", tt.value, tt.bits)
	}
}

func TestTruncateSignExtendRoundTrip(t *testing.T) {
	for bits := 2; bits <= 8; bits++ {
		limit := int32(1)<<uint(bits-1) - 1
		for v := -limit; v <= limit; v++ {
			require.Equal(t, v, SignExtend(Truncate(v, bits), bits), "v=%d bits=%d", v, bits)
		}
	}
}

func TestSignedWidth(t *testing.T) {
	tests := []struct {
		maxAbs uint32
		want   int
	}{
		{0, 1},
		{1, 2},
		{2, 3},
		{3, 3},
		{4, 4},
		{7, 4},
		{8, 5},
		{127, 8},
		{128, 9},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SignedWidth(tt.maxAbs), "SignedWidth(%d)", tt.maxAbs)
	}
}
