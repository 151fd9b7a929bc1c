package rat

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/ratkit/pkg/bitpack"
)

// DeltaResult is the output of EncodeDeltas.
type DeltaResult struct {
	BitWidths [3][]uint8 // per axis, per vertex
	Deltas    []uint32   // flushed delta stream

	// ClampedDeltas counts deltas that did not fit their capped width and
	// were diffused into later frames. Always zero in natural mode.
	ClampedDeltas int

	// FinalError is the largest |target - reconstructed| over all
	// vertices and axes at the last frame, in quantized units.
	FinalError float32
}

// wrapDelta returns the difference b-a on the 256-value ring, in -128..127.
// The decoder adds deltas with byte wraparound, so this is lossless.
func wrapDelta(a, b uint8) int32 {
	return int32(int8(b - a))
}

func signedLimit(width int) int32 {
	return int32(1)<<uint(width-1) - 1
}

// EncodeDeltas chooses a bit width per vertex and axis and packs the deltas
// of frames 1..n-1. maxBits 0 selects natural mode (lossless on quantized
// positions); 1..8 caps every width and diffuses the clamped remainder
// into later frames.
func EncodeDeltas(frames [][]QVec3, maxBits uint8) (*DeltaResult, error) {
	if len(frames) == 0 {
		return nil, ErrNoFrames
	}
	vertexCount := len(frames[0])
	if vertexCount == 0 {
		return nil, ErrNoVertices
	}
	for f, frame := range frames {
		if len(frame) != vertexCount {
			return nil, fmt.Errorf("%w: frame %d has %d vertices, frame 0 has %d",
				ErrVertexCountMismatch, f, len(frame), vertexCount)
		}
	}
	if maxBits > MaxBitWidth {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidBitCap, maxBits)
	}

	res := &DeltaResult{}
	for axis := range res.BitWidths {
		res.BitWidths[axis] = make([]uint8, vertexCount)
	}

	bounded := maxBits > 0
	for v := 0; v < vertexCount; v++ {
		for axis := 0; axis < 3; axis++ {
			var maxAbs int32
			for f := 1; f < len(frames); f++ {
				prev, cur := frames[f-1][v].Axis(axis), frames[f][v].Axis(axis)
				var d int32
				if bounded {
					d = int32(cur) - int32(prev)
				} else {
					d = wrapDelta(prev, cur)
				}
				if d < 0 {
					d = -d
				}
				if d > maxAbs {
					maxAbs = d
				}
			}
			width := bitpack.SignedWidth(uint32(maxAbs))
			if width > MaxBitWidth {
				// Only -128 needs a ninth bit, and it wraps to the same
				// byte as +128 in eight.
				width = MaxBitWidth
			}
			if bounded && width > int(maxBits) {
				width = int(maxBits)
			}
			res.BitWidths[axis][v] = uint8(width)
		}
	}

	var bitsPerFrame uint64
	for axis := 0; axis < 3; axis++ {
		for _, w := range res.BitWidths[axis] {
			bitsPerFrame += uint64(w)
		}
	}
	totalWords := int((bitsPerFrame*uint64(len(frames)-1) + 31) / 32)
	w := bitpack.NewWriter(totalWords)

	if bounded {
		if err := encodeBounded(frames, res, w); err != nil {
			return nil, err
		}
	} else {
		for f := 1; f < len(frames); f++ {
			for v := 0; v < vertexCount; v++ {
				for axis := 0; axis < 3; axis++ {
					d := wrapDelta(frames[f-1][v].Axis(axis), frames[f][v].Axis(axis))
					width := int(res.BitWidths[axis][v])
					if err := w.Write(bitpack.Truncate(d, width), width); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	w.Flush()
	res.Deltas = w.Words()
	return res, nil
}

// encodeBounded writes the deltas with error diffusion. For every vertex
// and axis it tracks the position the decoder will reconstruct and a carry
// holding the part of the path not yet reached, so that
// actual + carry == target after every frame.
func encodeBounded(frames [][]QVec3, res *DeltaResult, w *bitpack.Writer) error {
	vertexCount := len(frames[0])
	actual := make([][3]float32, vertexCount)
	carry := make([][3]float32, vertexCount)
	for v, q := range frames[0] {
		for axis := 0; axis < 3; axis++ {
			actual[v][axis] = float32(q.Axis(axis))
		}
	}

	for f := 1; f < len(frames); f++ {
		for v := 0; v < vertexCount; v++ {
			for axis := 0; axis < 3; axis++ {
				width := int(res.BitWidths[axis][v])
				limit := float32(signedLimit(width))

				trueDelta := float32(frames[f][v].Axis(axis)) - float32(frames[f-1][v].Axis(axis))
				intended := trueDelta + carry[v][axis]
				rounded := math32.Round(intended)
				encoded := math32.Max(-limit, math32.Min(limit, rounded))
				if encoded != rounded {
					res.ClampedDeltas++
				}
				carry[v][axis] = intended - encoded
				actual[v][axis] += encoded

				if err := w.Write(bitpack.Truncate(int32(encoded), width), width); err != nil {
					return err
				}
			}
		}
	}

	last := frames[len(frames)-1]
	for v := 0; v < vertexCount; v++ {
		for axis := 0; axis < 3; axis++ {
			e := math32.Abs(float32(last[v].Axis(axis)) - actual[v][axis])
			if e > res.FinalError {
				res.FinalError = e
			}
		}
	}
	return nil
}
