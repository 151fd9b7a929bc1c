package rat

import (
	"encoding/binary"
	"fmt"
	"io"
	stdmath "math"
)

var le = binary.LittleEndian

// encoder appends little-endian fields to a byte slice in call order.
type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)    { e.buf = append(e.buf, v) }
func (e *encoder) u16(v uint16)  { e.buf = le.AppendUint16(e.buf, v) }
func (e *encoder) u32(v uint32)  { e.buf = le.AppendUint32(e.buf, v) }
func (e *encoder) f32(v float32) { e.buf = le.AppendUint32(e.buf, stdmath.Float32bits(v)) }
func (e *encoder) raw(b []byte)  { e.buf = append(e.buf, b...) }
func (e *encoder) zero(n int)    { e.buf = append(e.buf, make([]byte, n)...) }

func (e *encoder) header(h *Header, v Version) {
	e.u32(h.Magic)
	e.u32(h.VertexCount)
	e.u32(h.FrameCount)
	e.u32(h.IndexCount)
	e.u32(h.UVOffset)
	e.u32(h.ColorOffset)
	e.u32(h.IndicesOffset)
	e.u32(h.DeltaOffset)
	e.u32(h.BitWidthsOffset)
	if v == V2 {
		e.u32(h.TextureFilenameOffset)
		e.u32(h.TextureFilenameLength)
	}
	e.f32(h.Min.X)
	e.f32(h.Min.Y)
	e.f32(h.Min.Z)
	e.f32(h.Max.X)
	e.f32(h.Max.Y)
	e.f32(h.Max.Z)
	if v == V2 {
		e.zero(8)
	} else {
		e.zero(4)
	}
}

// Encode serializes a. The layout is V2 when a has a texture filename and
// V1 otherwise.
func Encode(a *Animation) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, fmt.Errorf("encoding RAT: %w", err)
	}
	h, err := layoutFor(a)
	if err != nil {
		return nil, err
	}
	version := a.Version()

	e := &encoder{buf: make([]byte, 0, int(h.DeltaOffset)+len(a.Deltas)*wordSize)}
	e.header(&h, version)
	for _, uv := range a.UVs {
		e.f32(uv.X)
		e.f32(uv.Y)
	}
	for _, c := range a.Colors {
		e.f32(c.R)
		e.f32(c.G)
		e.f32(c.B)
		e.f32(c.A)
	}
	for _, idx := range a.Indices {
		e.u16(idx)
	}
	e.raw(a.BitWidthsX)
	e.raw(a.BitWidthsY)
	e.raw(a.BitWidthsZ)
	for _, q := range a.FirstFrame {
		e.u8(q.X)
		e.u8(q.Y)
		e.u8(q.Z)
	}
	if version == V2 {
		e.raw([]byte(a.TextureFilename))
	}
	if len(e.buf) != int(h.DeltaOffset) {
		return nil, fmt.Errorf("%w: static sections end at %d, delta offset is %d",
			ErrCorruptHeader, len(e.buf), h.DeltaOffset)
	}
	for _, w := range a.Deltas {
		e.u32(w)
	}
	return e.buf, nil
}

// WriteTo writes the encoded form of a to w.
func WriteTo(w io.Writer, a *Animation) (int64, error) {
	data, err := Encode(a)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}
