package rat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/ratkit/pkg/math"
)

// exampleAnimation is the two-vertex, three-frame example with one
// degenerate triangle.
func exampleAnimation(t *testing.T, texture string) *Animation {
	t.Helper()
	frames := [][]QVec3{
		{{0, 0, 0}, {10, 10, 10}},
		{{0, 0, 0}, {12, 12, 12}},
		{{0, 0, 0}, {14, 14, 14}},
	}
	b := identityBounds
	a, err := Compress(floatFrames(frames), Topology{
		Indices: []uint32{0, 1, 1},
		UVs:     []math.Vec2{{X: 0.25, Y: 0.75}, {X: 1, Y: 0}},
	}, CompressOptions{Bounds: &b, TextureFilename: texture})
	require.NoError(t, err)
	return a
}

func TestLayout_V1Offsets(t *testing.T) {
	a := exampleAnimation(t, "")
	data, err := Encode(a)
	require.NoError(t, err)

	h, err := ParseHeader(data)
	require.NoError(t, err)

	assert.Equal(t, MagicV1, h.Magic)
	assert.Equal(t, uint32(64), h.UVOffset)
	assert.Equal(t, uint32(64+2*8), h.ColorOffset)
	assert.Equal(t, uint32(80+2*16), h.IndicesOffset)
	assert.Equal(t, uint32(112+3*2), h.BitWidthsOffset)
	assert.Equal(t, uint32(118+2*3), h.FirstFrameOffset())
	assert.Equal(t, uint32(124+2*3), h.DeltaOffset)
	assert.Len(t, data, 130+4*len(a.Deltas))

	// Magic reads "RAT1" in file order.
	assert.Equal(t, []byte("RAT1"), data[:4])
}

func TestLayout_V2Offsets(t *testing.T) {
	a := exampleAnimation(t, "t.png")
	data, err := Encode(a)
	require.NoError(t, err)

	h, err := ParseHeader(data)
	require.NoError(t, err)

	assert.Equal(t, MagicV2, h.Magic)
	assert.Equal(t, []byte("RAT2"), data[:4])
	assert.Equal(t, uint32(76), h.UVOffset)
	assert.Equal(t, uint32(92), h.ColorOffset)
	assert.Equal(t, uint32(124), h.IndicesOffset)
	assert.Equal(t, uint32(130), h.BitWidthsOffset)
	assert.Equal(t, uint32(136), h.FirstFrameOffset())
	assert.Equal(t, uint32(142), h.TextureFilenameOffset)
	assert.Equal(t, uint32(5), h.TextureFilenameLength)
	assert.Equal(t, uint32(147), h.DeltaOffset)
	assert.Equal(t, "t.png", string(data[142:147]))
}

func TestEncode_HeaderFieldOrder(t *testing.T) {
	a := exampleAnimation(t, "")
	data, err := Encode(a)
	require.NoError(t, err)

	u32 := func(off int) uint32 { return binary.LittleEndian.Uint32(data[off:]) }
	assert.Equal(t, uint32(2), u32(4), "vertex_count")
	assert.Equal(t, uint32(3), u32(8), "frame_count")
	assert.Equal(t, uint32(3), u32(12), "index_count")
	assert.Equal(t, uint32(64), u32(16), "uv_offset")
	assert.Equal(t, uint32(80), u32(20), "color_offset")
	assert.Equal(t, uint32(112), u32(24), "indices_offset")
	assert.Equal(t, uint32(130), u32(28), "delta_offset")
	assert.Equal(t, uint32(118), u32(32), "bit_widths_offset")
	assert.Equal(t, uint32(0x437f0000), u32(48), "max_x = 255.0")
	assert.Equal(t, make([]byte, 4), data[60:64], "reserved")

	// Bit widths are three parallel arrays, then the first frame.
	assert.Equal(t, []byte{1, 3, 1, 3, 1, 3}, data[118:124])
	assert.Equal(t, []byte{0, 0, 0, 10, 10, 10}, data[124:130])
}

func TestEncode_DeltaWordLayout(t *testing.T) {
	a := exampleAnimation(t, "")
	// Frame 1: v0 0,0,0 in 1 bit each; v1 +2,+2,+2 in 3 bits each.
	// Frame 2: same again. 000 010 010 010 000 010 010 010, then padding.
	want := uint32(0b000_010_010_010_000_010_010_010) << (32 - 24)
	require.Len(t, a.Deltas, 1)
	assert.Equal(t, want, a.Deltas[0])
}

func TestRoundTrip_Versions(t *testing.T) {
	for _, texture := range []string{"", "textures/hero_diffuse.png", "ünïcødé.png"} {
		t.Run(texture, func(t *testing.T) {
			a := exampleAnimation(t, texture)
			data, err := Encode(a)
			require.NoError(t, err)

			got, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, a, got)
		})
	}
}

func TestRoundTrip_LargeRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	q := randomWalk(rng, 12, 300, 20)
	b := identityBounds
	a, err := Compress(floatFrames(q), Topology{Indices: triangleFan(300)}, CompressOptions{Bounds: &b})
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := WriteTo(&buf, a)
	require.NoError(t, err)
	size, err := EncodedSize(a)
	require.NoError(t, err)
	assert.Equal(t, int64(size), n)

	got, err := Parse(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, q, decodeAll(t, got))
}

func TestParse_InvalidMagic(t *testing.T) {
	data, err := Encode(exampleAnimation(t, ""))
	require.NoError(t, err)
	copy(data, "RAT3")

	_, err = Parse(data)
	assert.True(t, errors.Is(err, ErrInvalidMagic), "got %v", err)
}

func TestParse_Truncated(t *testing.T) {
	v1, err := Encode(exampleAnimation(t, ""))
	require.NoError(t, err)
	v2, err := Encode(exampleAnimation(t, "t.png"))
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"partial magic", v1[:3]},
		{"v1 header cut", v1[:HeaderSizeV1-1]},
		{"v2 header cut", v2[:HeaderSizeV2-1]},
		{"v1 sections cut", v1[:100]},
		{"v2 texture cut", v2[:145]},
		{"partial delta word", v1[:len(v1)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			assert.True(t, errors.Is(err, ErrTruncatedData), "got %v", err)
		})
	}
}

func TestParse_CorruptHeader(t *testing.T) {
	data, err := Encode(exampleAnimation(t, ""))
	require.NoError(t, err)

	tests := []struct {
		name   string
		offset int
		value  uint32
	}{
		{"zero vertices", 4, 0},
		{"too many vertices", 4, MaxVertices + 1},
		{"zero frames", 8, 0},
		{"non-triangle index count", 12, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bad := append([]byte(nil), data...)
			binary.LittleEndian.PutUint32(bad[tt.offset:], tt.value)
			_, err := Parse(bad)
			assert.True(t, errors.Is(err, ErrCorruptHeader), "got %v", err)
		})
	}

	t.Run("bit width zero", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[118] = 0
		_, err := Parse(bad)
		assert.True(t, errors.Is(err, ErrCorruptHeader), "got %v", err)
	})
}

func TestEncode_RejectsInvalid(t *testing.T) {
	a := exampleAnimation(t, "")
	a.Indices = append(a.Indices, 0)
	_, err := Encode(a)
	assert.True(t, errors.Is(err, ErrNotTriangulated), "got %v", err)
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	a := exampleAnimation(t, "t.png")
	paths, err := Write(a, filepath.Join(dir, "anim.rat"), WriteOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "anim.rat")}, paths)

	got, err := ReadFile(paths[0])
	require.NoError(t, err)
	assert.Equal(t, a, got)

	_, err = ReadFile(filepath.Join(dir, "missing.rat"))
	assert.Error(t, err)
}

func TestInspect(t *testing.T) {
	a := exampleAnimation(t, "t.png")
	data, err := Encode(a)
	require.NoError(t, err)

	info, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, V2, info.Version)
	assert.Equal(t, len(data), info.FileSize)
	assert.Equal(t, 147, info.StaticSize)
	assert.Equal(t, 4*len(a.Deltas), info.DeltaBytes)
	assert.Equal(t, a.Bounds, info.Header.Bounds())
}
