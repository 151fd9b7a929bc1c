package rat

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Faultbox/ratkit/pkg/math"
)

// identityBounds makes quantization the identity on integers 0..255.
var identityBounds = Bounds{
	Min: math.Vec3{X: 0, Y: 0, Z: 0},
	Max: math.Vec3{X: 255, Y: 255, Z: 255},
}

// floatFrames converts quantized frames to floats that quantize back to
// the same values under identityBounds.
func floatFrames(q [][]QVec3) [][]math.Vec3 {
	out := make([][]math.Vec3, len(q))
	for f, frame := range q {
		out[f] = make([]math.Vec3, len(frame))
		for v, p := range frame {
			out[f][v] = math.Vec3{X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z)}
		}
	}
	return out
}

// randomWalk returns frames where each vertex moves by at most step per
// axis per frame, staying inside 0..255.
func randomWalk(rng *rand.Rand, frames, vertices, step int) [][]QVec3 {
	out := make([][]QVec3, frames)
	out[0] = make([]QVec3, vertices)
	for v := range out[0] {
		out[0][v] = QVec3{uint8(rng.Intn(256)), uint8(rng.Intn(256)), uint8(rng.Intn(256))}
	}
	move := func(c uint8) uint8 {
		n := int(c) + rng.Intn(2*step+1) - step
		if n < 0 {
			n = 0
		}
		if n > 255 {
			n = 255
		}
		return uint8(n)
	}
	for f := 1; f < frames; f++ {
		out[f] = make([]QVec3, vertices)
		for v, p := range out[f-1] {
			out[f][v] = QVec3{move(p.X), move(p.Y), move(p.Z)}
		}
	}
	return out
}

// compressQuantized compresses frames given directly in quantized space.
func compressQuantized(t *testing.T, q [][]QVec3, opts CompressOptions) *Animation {
	t.Helper()
	b := identityBounds
	opts.Bounds = &b
	a, err := Compress(floatFrames(q), Topology{}, opts)
	require.NoError(t, err)
	return a
}

// decodeAll returns the quantized positions of every frame of a.
func decodeAll(t *testing.T, a *Animation) [][]QVec3 {
	t.Helper()
	d := NewDecoder(a)
	out := make([][]QVec3, a.FrameCount)
	for f := uint32(0); f < a.FrameCount; f++ {
		require.NoError(t, d.DecompressTo(f), "frame %d", f)
		out[f] = append([]QVec3(nil), d.Quantized()...)
	}
	return out
}

// triangleFan returns a valid triangle list over n vertices.
func triangleFan(n int) []uint32 {
	var idx []uint32
	for i := 1; i+1 < n; i++ {
		idx = append(idx, 0, uint32(i), uint32(i+1))
	}
	return idx
}
