package rat

import (
	"fmt"
	"unicode/utf8"

	"github.com/Faultbox/ratkit/pkg/math"
)

// Version identifies the on-disk layout.
type Version uint8

const (
	V1 Version = 1 // no texture reference
	V2 Version = 2 // texture filename section
)

// String returns "RAT1" or "RAT2".
func (v Version) String() string {
	switch v {
	case V1, V2:
		return fmt.Sprintf("RAT%d", v)
	default:
		return fmt.Sprintf("Unknown(%d)", v)
	}
}

// Magic returns the magic number written for this version.
func (v Version) Magic() uint32 {
	if v == V2 {
		return MagicV2
	}
	return MagicV1
}

// QVec3 is a vertex position quantized to one byte per axis.
type QVec3 struct {
	X, Y, Z uint8
}

// Axis returns component i (0=X, 1=Y, 2=Z).
func (q QVec3) Axis(i int) uint8 {
	switch i {
	case 0:
		return q.X
	case 1:
		return q.Y
	default:
		return q.Z
	}
}

// Color is a per-vertex RGBA color.
type Color struct {
	R, G, B, A float32
}

// White is the color assigned to vertices without one.
var White = Color{1, 1, 1, 1}

// Animation is one compressed vertex animation, the in-memory form of a
// RAT file.
type Animation struct {
	VertexCount uint32
	FrameCount  uint32
	Bounds      Bounds

	UVs     []math.Vec2 // one per vertex, shared by all frames
	Colors  []Color     // one per vertex, shared by all frames
	Indices []uint16    // triangle list

	FirstFrame []QVec3 // frame 0, the only full frame stored

	// Signed delta width per vertex, one slice per axis.
	BitWidthsX []uint8
	BitWidthsY []uint8
	BitWidthsZ []uint8

	// Deltas holds frames 1..FrameCount-1: for each frame, for each vertex,
	// the x, y and z deltas in that vertex's widths.
	Deltas []uint32

	// TextureFilename selects the V2 layout when non-empty.
	TextureFilename string
}

// IndexCount returns the number of triangle indices.
func (a *Animation) IndexCount() uint32 {
	return uint32(len(a.Indices))
}

// Version returns the layout the animation will be written in.
func (a *Animation) Version() Version {
	if a.TextureFilename != "" {
		return V2
	}
	return V1
}

// BitWidth returns the delta width of vertex v on the given axis.
func (a *Animation) BitWidth(v, axis int) int {
	switch axis {
	case 0:
		return int(a.BitWidthsX[v])
	case 1:
		return int(a.BitWidthsY[v])
	default:
		return int(a.BitWidthsZ[v])
	}
}

// BitsPerFrame returns the number of delta bits one frame transition uses.
func (a *Animation) BitsPerFrame() uint64 {
	var total uint64
	for v := 0; v < int(a.VertexCount); v++ {
		total += uint64(a.BitWidthsX[v]) + uint64(a.BitWidthsY[v]) + uint64(a.BitWidthsZ[v])
	}
	return total
}

// Validate checks the structural invariants of the animation.
func (a *Animation) Validate() error {
	if a.VertexCount == 0 {
		return ErrNoVertices
	}
	if a.VertexCount > MaxVertices {
		return fmt.Errorf("%w: %d", ErrTooManyVertices, a.VertexCount)
	}
	if a.FrameCount == 0 {
		return ErrNoFrames
	}
	n := int(a.VertexCount)
	for _, s := range []struct {
		name string
		len  int
	}{
		{"uvs", len(a.UVs)},
		{"colors", len(a.Colors)},
		{"first frame", len(a.FirstFrame)},
		{"bit widths x", len(a.BitWidthsX)},
		{"bit widths y", len(a.BitWidthsY)},
		{"bit widths z", len(a.BitWidthsZ)},
	} {
		if s.len != n {
			return fmt.Errorf("%w: %s has %d entries, want %d", ErrAttributeMismatch, s.name, s.len, n)
		}
	}
	if len(a.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d indices", ErrNotTriangulated, len(a.Indices))
	}
	for i, idx := range a.Indices {
		if uint32(idx) >= a.VertexCount {
			return fmt.Errorf("%w: index %d is %d, vertex count %d", ErrIndexOutOfRange, i, idx, a.VertexCount)
		}
	}
	for v := 0; v < n; v++ {
		for axis := 0; axis < 3; axis++ {
			if w := a.BitWidth(v, axis); w < 1 || w > MaxBitWidth {
				return fmt.Errorf("%w: vertex %d axis %d has bit width %d", ErrCorruptHeader, v, axis, w)
			}
		}
	}
	if err := a.Bounds.validate(); err != nil {
		return err
	}
	if !utf8.ValidString(a.TextureFilename) {
		return fmt.Errorf("%w: texture filename is not valid UTF-8", ErrAttributeMismatch)
	}
	return nil
}

// Clone returns a deep copy of the animation.
func (a *Animation) Clone() *Animation {
	c := *a
	c.UVs = append([]math.Vec2(nil), a.UVs...)
	c.Colors = append([]Color(nil), a.Colors...)
	c.Indices = append([]uint16(nil), a.Indices...)
	c.FirstFrame = append([]QVec3(nil), a.FirstFrame...)
	c.BitWidthsX = append([]uint8(nil), a.BitWidthsX...)
	c.BitWidthsY = append([]uint8(nil), a.BitWidthsY...)
	c.BitWidthsZ = append([]uint8(nil), a.BitWidthsZ...)
	c.Deltas = append([]uint32(nil), a.Deltas...)
	return &c
}
