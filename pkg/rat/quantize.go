package rat

import (
	"fmt"

	"github.com/chewxy/math32"

	"github.com/Faultbox/ratkit/pkg/math"
)

// quantLevels is the largest quantized value per axis.
const quantLevels = 255

// Bounds is the axis-aligned box all positions of an animation lie in.
type Bounds struct {
	Min, Max math.Vec3
}

// ComputeBounds returns the component-wise min/max over every vertex of
// every frame.
func ComputeBounds(frames [][]math.Vec3) Bounds {
	var b Bounds
	first := true
	for _, frame := range frames {
		for _, p := range frame {
			if first {
				b.Min, b.Max = p, p
				first = false
				continue
			}
			b.Min = b.Min.Min(p)
			b.Max = b.Max.Max(p)
		}
	}
	return b
}

// Range returns the per-axis extent used for quantization. A zero-width
// axis reports 1 so it quantizes to a single value.
func (b Bounds) Range() math.Vec3 {
	r := b.Max.Sub(b.Min)
	for axis := 0; axis < 3; axis++ {
		if r.Axis(axis) <= 0 {
			r = r.WithAxis(axis, 1)
		}
	}
	return r
}

// FlatAxes reports which axes have zero extent.
func (b Bounds) FlatAxes() [3]bool {
	var flat [3]bool
	for axis := 0; axis < 3; axis++ {
		flat[axis] = b.Max.Axis(axis) == b.Min.Axis(axis)
	}
	return flat
}

func (b Bounds) validate() error {
	if !b.Min.IsFinite() || !b.Max.IsFinite() {
		return fmt.Errorf("%w: non-finite bounds %v..%v", ErrInvalidBounds, b.Min, b.Max)
	}
	for axis := 0; axis < 3; axis++ {
		if b.Max.Axis(axis) < b.Min.Axis(axis) {
			return fmt.Errorf("%w: max < min on axis %d", ErrInvalidBounds, axis)
		}
	}
	return nil
}

func quantizeAxis(value, min, rng float32) uint8 {
	q := math32.Round(quantLevels * (value - min) / rng)
	return uint8(math32.Max(0, math32.Min(quantLevels, q)))
}

func dequantizeAxis(q uint8, min, rng float32) float32 {
	return min + (float32(q)/quantLevels)*rng
}

// Quantize maps p into the box, one byte per axis. Values outside the box
// clamp to its faces.
func (b Bounds) Quantize(p math.Vec3) QVec3 {
	r := b.Range()
	return QVec3{
		X: quantizeAxis(p.X, b.Min.X, r.X),
		Y: quantizeAxis(p.Y, b.Min.Y, r.Y),
		Z: quantizeAxis(p.Z, b.Min.Z, r.Z),
	}
}

// Dequantize maps q back into the box.
func (b Bounds) Dequantize(q QVec3) math.Vec3 {
	r := b.Range()
	return math.Vec3{
		X: dequantizeAxis(q.X, b.Min.X, r.X),
		Y: dequantizeAxis(q.Y, b.Min.Y, r.Y),
		Z: dequantizeAxis(q.Z, b.Min.Z, r.Z),
	}
}

// QuantizeFrames quantizes every frame against b.
func (b Bounds) QuantizeFrames(frames [][]math.Vec3) [][]QVec3 {
	out := make([][]QVec3, len(frames))
	for f, frame := range frames {
		q := make([]QVec3, len(frame))
		for v, p := range frame {
			q[v] = b.Quantize(p)
		}
		out[f] = q
	}
	return out
}

// DequantizeFrame dequantizes one frame against b.
func (b Bounds) DequantizeFrame(frame []QVec3) []math.Vec3 {
	out := make([]math.Vec3, len(frame))
	for v, q := range frame {
		out[v] = b.Dequantize(q)
	}
	return out
}
