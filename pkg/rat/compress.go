package rat

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/ratkit/pkg/math"
)

// Topology is the static mesh data shared by every frame.
type Topology struct {
	Indices []uint32    // triangle list; each index must be < vertex count
	UVs     []math.Vec2 // one per vertex, or empty for (0,0)
	Colors  []Color     // one per vertex, or empty for opaque white
}

// CompressOptions controls Compress. The zero value selects natural mode,
// computed bounds and the V1 layout.
type CompressOptions struct {
	// Bounds overrides the computed bounding box. Positions outside it
	// clamp to its faces.
	Bounds *Bounds

	// MaxBitsPerAxis caps every delta width (1-8). Zero means no cap.
	MaxBitsPerAxis uint8

	// TextureFilename is stored in the file and selects the V2 layout.
	TextureFilename string

	// Logger receives precision warnings. Nil discards them.
	Logger *zap.Logger
}

// Compress quantizes and delta-encodes frames into an Animation. Every
// frame must hold the same number of vertices. All input problems are
// reported before any work is done.
func Compress(frames [][]math.Vec3, topo Topology, opts CompressOptions) (*Animation, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	if err := validateInput(frames, topo, opts); err != nil {
		return nil, err
	}
	vertexCount := len(frames[0])

	bounds := ComputeBounds(frames)
	if opts.Bounds != nil {
		bounds = *opts.Bounds
	}
	for axis, flat := range bounds.FlatAxes() {
		if flat {
			log.Info("flat bounding box axis, quantizing to a single value",
				zap.Int("axis", axis),
				zap.Float32("value", bounds.Min.Axis(axis)))
		}
	}

	quantized := bounds.QuantizeFrames(frames)
	deltas, err := EncodeDeltas(quantized, opts.MaxBitsPerAxis)
	if err != nil {
		return nil, err
	}
	if deltas.ClampedDeltas > 0 {
		log.Warn("deltas clamped to bit width cap",
			zap.Int("clamped", deltas.ClampedDeltas),
			zap.Uint8("max_bits", opts.MaxBitsPerAxis),
			zap.Float32("final_error", deltas.FinalError))
	}

	anim := &Animation{
		VertexCount:     uint32(vertexCount),
		FrameCount:      uint32(len(frames)),
		Bounds:          bounds,
		UVs:             make([]math.Vec2, vertexCount),
		Colors:          make([]Color, vertexCount),
		Indices:         make([]uint16, len(topo.Indices)),
		FirstFrame:      quantized[0],
		BitWidthsX:      deltas.BitWidths[0],
		BitWidthsY:      deltas.BitWidths[1],
		BitWidthsZ:      deltas.BitWidths[2],
		Deltas:          deltas.Deltas,
		TextureFilename: opts.TextureFilename,
	}
	copy(anim.UVs, topo.UVs)
	if len(topo.Colors) > 0 {
		copy(anim.Colors, topo.Colors)
	} else {
		for i := range anim.Colors {
			anim.Colors[i] = White
		}
	}
	for i, idx := range topo.Indices {
		anim.Indices[i] = uint16(idx)
	}

	log.Debug("compressed animation",
		zap.Uint32("vertices", anim.VertexCount),
		zap.Uint32("frames", anim.FrameCount),
		zap.Int("indices", len(anim.Indices)),
		zap.Uint64("bits_per_frame", anim.BitsPerFrame()),
		zap.Int("delta_words", len(anim.Deltas)),
		zap.Stringer("version", anim.Version()))

	return anim, nil
}

func validateInput(frames [][]math.Vec3, topo Topology, opts CompressOptions) error {
	if len(frames) == 0 {
		return ErrNoFrames
	}
	vertexCount := len(frames[0])
	if vertexCount == 0 {
		return ErrNoVertices
	}
	if vertexCount > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, vertexCount)
	}
	for f, frame := range frames {
		if len(frame) != vertexCount {
			return fmt.Errorf("%w: frame %d has %d vertices, frame 0 has %d",
				ErrVertexCountMismatch, f, len(frame), vertexCount)
		}
		for v, p := range frame {
			if !p.IsFinite() {
				return fmt.Errorf("%w: frame %d vertex %d is %v", ErrNonFinitePosition, f, v, p)
			}
		}
	}

	if len(topo.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrNotTriangulated, len(topo.Indices))
	}
	for i, idx := range topo.Indices {
		if idx >= MaxVertices {
			return fmt.Errorf("%w: index %d is %d, limit is %d", ErrTooManyVertices, i, idx, MaxVertices-1)
		}
		if int(idx) >= vertexCount {
			return fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, idx, vertexCount)
		}
	}
	if n := len(topo.UVs); n != 0 && n != vertexCount {
		return fmt.Errorf("%w: %d uvs for %d vertices", ErrAttributeMismatch, n, vertexCount)
	}
	if n := len(topo.Colors); n != 0 && n != vertexCount {
		return fmt.Errorf("%w: %d colors for %d vertices", ErrAttributeMismatch, n, vertexCount)
	}

	if opts.MaxBitsPerAxis > MaxBitWidth {
		return fmt.Errorf("%w: got %d", ErrInvalidBitCap, opts.MaxBitsPerAxis)
	}
	if opts.Bounds != nil {
		if err := opts.Bounds.validate(); err != nil {
			return err
		}
	}
	return nil
}
