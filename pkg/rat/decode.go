package rat

import (
	"fmt"
	stdmath "math"
	"os"

	"github.com/Faultbox/ratkit/pkg/math"
)

// decoder reads little-endian fields from a byte slice.
type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) need(n int) error {
	if d.pos+n > len(d.data) {
		return fmt.Errorf("%w: need %d bytes at offset %d, file has %d",
			ErrTruncatedData, n, d.pos, len(d.data))
	}
	return nil
}

func (d *decoder) u32() uint32 {
	v := le.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

func (d *decoder) f32() float32 {
	return stdmath.Float32frombits(d.u32())
}

// section returns data[offset:offset+size] after checking it is in range.
func (d *decoder) section(name string, offset uint32, size uint64) ([]byte, error) {
	end := uint64(offset) + size
	if end > uint64(len(d.data)) {
		return nil, fmt.Errorf("%w: %s section [%d, %d) past end of %d-byte file",
			ErrTruncatedData, name, offset, end, len(d.data))
	}
	return d.data[offset:end], nil
}

// ParseHeader decodes the header at the start of data.
func ParseHeader(data []byte) (*Header, error) {
	d := &decoder{data: data}
	if err := d.need(4); err != nil {
		return nil, err
	}
	h := &Header{Magic: d.u32()}
	version, err := h.Version()
	if err != nil {
		return nil, err
	}
	d.pos = 0
	if err := d.need(HeaderSize(version)); err != nil {
		return nil, err
	}

	d.pos = 4
	h.VertexCount = d.u32()
	h.FrameCount = d.u32()
	h.IndexCount = d.u32()
	h.UVOffset = d.u32()
	h.ColorOffset = d.u32()
	h.IndicesOffset = d.u32()
	h.DeltaOffset = d.u32()
	h.BitWidthsOffset = d.u32()
	if version == V2 {
		h.TextureFilenameOffset = d.u32()
		h.TextureFilenameLength = d.u32()
	}
	h.Min = math.Vec3{X: d.f32(), Y: d.f32(), Z: d.f32()}
	h.Max = math.Vec3{X: d.f32(), Y: d.f32(), Z: d.f32()}

	switch {
	case h.VertexCount == 0:
		return nil, fmt.Errorf("%w: zero vertices", ErrCorruptHeader)
	case h.VertexCount > MaxVertices:
		return nil, fmt.Errorf("%w: %d vertices", ErrCorruptHeader, h.VertexCount)
	case h.FrameCount == 0:
		return nil, fmt.Errorf("%w: zero frames", ErrCorruptHeader)
	case h.IndexCount%3 != 0:
		return nil, fmt.Errorf("%w: %d indices is not a triangle list", ErrCorruptHeader, h.IndexCount)
	}
	return h, nil
}

// Parse decodes a RAT file of either version.
func Parse(data []byte) (*Animation, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	version, _ := h.Version()
	d := &decoder{data: data}
	vc := uint64(h.VertexCount)

	if uint64(h.DeltaOffset) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: delta offset %d past end of %d-byte file",
			ErrTruncatedData, h.DeltaOffset, len(data))
	}
	if (len(data)-int(h.DeltaOffset))%wordSize != 0 {
		return nil, fmt.Errorf("%w: delta section is %d bytes, not whole words",
			ErrTruncatedData, len(data)-int(h.DeltaOffset))
	}

	a := &Animation{
		VertexCount: h.VertexCount,
		FrameCount:  h.FrameCount,
		Bounds:      h.Bounds(),
	}

	uvs, err := d.section("uv", h.UVOffset, vc*uvSize)
	if err != nil {
		return nil, err
	}
	a.UVs = make([]math.Vec2, vc)
	for i := range a.UVs {
		b := uvs[i*uvSize:]
		a.UVs[i] = math.Vec2{
			X: stdmath.Float32frombits(le.Uint32(b)),
			Y: stdmath.Float32frombits(le.Uint32(b[4:])),
		}
	}

	colors, err := d.section("color", h.ColorOffset, vc*colorSize)
	if err != nil {
		return nil, err
	}
	a.Colors = make([]Color, vc)
	for i := range a.Colors {
		b := colors[i*colorSize:]
		a.Colors[i] = Color{
			R: stdmath.Float32frombits(le.Uint32(b)),
			G: stdmath.Float32frombits(le.Uint32(b[4:])),
			B: stdmath.Float32frombits(le.Uint32(b[8:])),
			A: stdmath.Float32frombits(le.Uint32(b[12:])),
		}
	}

	indices, err := d.section("indices", h.IndicesOffset, uint64(h.IndexCount)*indexSize)
	if err != nil {
		return nil, err
	}
	a.Indices = make([]uint16, h.IndexCount)
	for i := range a.Indices {
		a.Indices[i] = le.Uint16(indices[i*indexSize:])
	}

	widths, err := d.section("bit widths", h.BitWidthsOffset, vc*bitWidthsSize)
	if err != nil {
		return nil, err
	}
	a.BitWidthsX = append([]uint8(nil), widths[:vc]...)
	a.BitWidthsY = append([]uint8(nil), widths[vc:2*vc]...)
	a.BitWidthsZ = append([]uint8(nil), widths[2*vc:]...)

	first, err := d.section("first frame", h.FirstFrameOffset(), vc*firstFrameSize)
	if err != nil {
		return nil, err
	}
	a.FirstFrame = make([]QVec3, vc)
	for i := range a.FirstFrame {
		b := first[i*firstFrameSize:]
		a.FirstFrame[i] = QVec3{b[0], b[1], b[2]}
	}

	if version == V2 {
		name, err := d.section("texture filename", h.TextureFilenameOffset, uint64(h.TextureFilenameLength))
		if err != nil {
			return nil, err
		}
		a.TextureFilename = string(name)
	}

	deltas := data[h.DeltaOffset:]
	a.Deltas = make([]uint32, len(deltas)/wordSize)
	for i := range a.Deltas {
		a.Deltas[i] = le.Uint32(deltas[i*wordSize:])
	}

	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptHeader, err)
	}
	return a, nil
}

// ReadFile parses a RAT file from disk.
func ReadFile(path string) (*Animation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading RAT file: %w", err)
	}
	a, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return a, nil
}

// FileInfo summarizes a RAT file without decoding its sections.
type FileInfo struct {
	Header     Header
	Version    Version
	FileSize   int
	StaticSize int // header plus every section before the delta stream
	DeltaBytes int
}

// Inspect decodes the header of data and reports section sizes.
func Inspect(data []byte) (*FileInfo, error) {
	h, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	version, _ := h.Version()
	if int(h.DeltaOffset) > len(data) {
		return nil, fmt.Errorf("%w: delta offset %d past end of %d-byte file",
			ErrTruncatedData, h.DeltaOffset, len(data))
	}
	return &FileInfo{
		Header:     *h,
		Version:    version,
		FileSize:   len(data),
		StaticSize: int(h.DeltaOffset),
		DeltaBytes: len(data) - int(h.DeltaOffset),
	}, nil
}
