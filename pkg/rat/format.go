package rat

import (
	"fmt"
	stdmath "math"

	"github.com/Faultbox/ratkit/pkg/math"
)

// Section sizes per element, in bytes.
const (
	uvSize         = 2 * 4
	colorSize      = 4 * 4
	indexSize      = 2
	bitWidthsSize  = 3 // one byte per axis
	firstFrameSize = 3
	wordSize       = 4
)

// Header is the fixed-size header at the start of every RAT file.
// TextureFilenameOffset and TextureFilenameLength exist only in V2.
type Header struct {
	Magic       uint32
	VertexCount uint32
	FrameCount  uint32
	IndexCount  uint32

	UVOffset        uint32
	ColorOffset     uint32
	IndicesOffset   uint32
	DeltaOffset     uint32
	BitWidthsOffset uint32

	TextureFilenameOffset uint32
	TextureFilenameLength uint32

	Min, Max math.Vec3
}

// Version returns the layout implied by the magic.
func (h *Header) Version() (Version, error) {
	switch h.Magic {
	case MagicV1:
		return V1, nil
	case MagicV2:
		return V2, nil
	default:
		return 0, fmt.Errorf("%w: 0x%08x", ErrInvalidMagic, h.Magic)
	}
}

// FirstFrameOffset returns where the quantized first frame starts. The
// header has no field for it; it follows the bit width arrays.
func (h *Header) FirstFrameOffset() uint32 {
	return h.BitWidthsOffset + h.VertexCount*bitWidthsSize
}

// Bounds returns the bounding box stored in the header.
func (h *Header) Bounds() Bounds {
	return Bounds{Min: h.Min, Max: h.Max}
}

// HeaderSize returns the header size of a layout version.
func HeaderSize(v Version) int {
	if v == V2 {
		return HeaderSizeV2
	}
	return HeaderSizeV1
}

// layoutFor computes the header for a, placing every section directly
// after the previous one in the fixed order
// header, uv, color, indices, bit widths, first frame, [texture], deltas.
func layoutFor(a *Animation) (Header, error) {
	version := a.Version()
	h := Header{
		Magic:       version.Magic(),
		VertexCount: a.VertexCount,
		FrameCount:  a.FrameCount,
		IndexCount:  a.IndexCount(),
		Min:         a.Bounds.Min,
		Max:         a.Bounds.Max,
	}

	vc := uint64(a.VertexCount)
	off := uint64(HeaderSize(version))
	next := func(size uint64) uint32 {
		start := off
		off += size
		return uint32(start)
	}

	h.UVOffset = next(vc * uvSize)
	h.ColorOffset = next(vc * colorSize)
	h.IndicesOffset = next(uint64(len(a.Indices)) * indexSize)
	h.BitWidthsOffset = next(vc * bitWidthsSize)
	next(vc * firstFrameSize)
	if version == V2 {
		h.TextureFilenameLength = uint32(len(a.TextureFilename))
		h.TextureFilenameOffset = next(uint64(len(a.TextureFilename)))
	}
	h.DeltaOffset = next(uint64(len(a.Deltas)) * wordSize)

	if off > stdmath.MaxUint32 {
		return Header{}, fmt.Errorf("%w: file would be %d bytes", ErrCorruptHeader, off)
	}
	return h, nil
}

// StaticSize returns the bytes a file for a needs before the delta
// stream: the header plus every fixed section.
func StaticSize(a *Animation) (int, error) {
	h, err := layoutFor(a)
	if err != nil {
		return 0, err
	}
	return int(h.DeltaOffset), nil
}

// EncodedSize returns the total file size of a.
func EncodedSize(a *Animation) (int, error) {
	static, err := StaticSize(a)
	if err != nil {
		return 0, err
	}
	return static + len(a.Deltas)*wordSize, nil
}
