package rat

import (
	"fmt"

	"github.com/Faultbox/ratkit/pkg/bitpack"
	"github.com/Faultbox/ratkit/pkg/math"
)

// Decoder replays the delta stream of one animation forward from frame 0.
// It holds the quantized positions of the current frame and mutates them
// in place; backward seeks restart from frame 0. A Decoder must not be
// shared between goroutines.
type Decoder struct {
	anim         *Animation
	reader       *bitpack.Reader
	positions    []QVec3
	frame        uint32
	ready        bool
	bitsPerFrame uint64
}

// NewDecoder returns a decoder for a. Nothing is decoded until the first
// DecompressTo call.
func NewDecoder(a *Animation) *Decoder {
	return &Decoder{
		anim:         a,
		reader:       bitpack.NewReader(a.Deltas),
		positions:    make([]QVec3, a.VertexCount),
		bitsPerFrame: a.BitsPerFrame(),
	}
}

func (d *Decoder) reset() {
	copy(d.positions, d.anim.FirstFrame)
	d.frame = 0
	d.ready = true
}

// DecompressTo advances the decoder to frame. Frames past the end clamp to
// the last frame. Positions wrap modulo 256 when a delta crosses the ends
// of the quantized range. If the stream runs out the decoder is reset and
// ErrStreamExhausted is returned.
func (d *Decoder) DecompressTo(frame uint32) error {
	if d.anim.FrameCount == 0 {
		return ErrNoFrames
	}
	if frame >= d.anim.FrameCount {
		frame = d.anim.FrameCount - 1
	}
	if d.ready && frame == d.frame {
		return nil
	}
	if !d.ready || frame < d.frame {
		d.reset()
	}

	// Every frame costs the same number of bits, so the start of frame
	// d.frame+1 is a direct multiple.
	if err := d.reader.Seek(uint64(d.frame) * d.bitsPerFrame); err != nil {
		d.ready = false
		return fmt.Errorf("%w: frame %d starts past the end: %w", ErrStreamExhausted, d.frame+1, err)
	}

	for f := d.frame + 1; f <= frame; f++ {
		for v := range d.positions {
			p := &d.positions[v]
			dx, err := d.readDelta(v, 0)
			if err != nil {
				return d.fail(f, err)
			}
			dy, err := d.readDelta(v, 1)
			if err != nil {
				return d.fail(f, err)
			}
			dz, err := d.readDelta(v, 2)
			if err != nil {
				return d.fail(f, err)
			}
			p.X = uint8(int32(p.X) + dx)
			p.Y = uint8(int32(p.Y) + dy)
			p.Z = uint8(int32(p.Z) + dz)
		}
		d.frame = f
	}
	return nil
}

func (d *Decoder) readDelta(v, axis int) (int32, error) {
	width := d.anim.BitWidth(v, axis)
	raw, err := d.reader.Read(width)
	if err != nil {
		return 0, err
	}
	return bitpack.SignExtend(raw, width), nil
}

func (d *Decoder) fail(frame uint32, err error) error {
	d.ready = false
	return fmt.Errorf("%w: decoding frame %d of %d: %w", ErrStreamExhausted, frame, d.anim.FrameCount, err)
}

// Frame returns the frame the decoder is positioned at.
func (d *Decoder) Frame() uint32 {
	return d.frame
}

// Quantized returns the current quantized positions. The slice is reused
// by later DecompressTo calls.
func (d *Decoder) Quantized() []QVec3 {
	return d.positions
}

// Positions dequantizes the current frame into a new slice.
func (d *Decoder) Positions() []math.Vec3 {
	return d.anim.Bounds.DequantizeFrame(d.positions)
}

// DecodeFrame decodes one frame of a from scratch.
func DecodeFrame(a *Animation, frame uint32) ([]math.Vec3, error) {
	d := NewDecoder(a)
	if err := d.DecompressTo(frame); err != nil {
		return nil, err
	}
	return d.Positions(), nil
}
