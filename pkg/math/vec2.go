package math

// Vec2 is a 2D vector. UV coordinates use X for U and Y for V.
type Vec2 struct {
	X, Y float32
}

// IsFinite reports whether neither component is NaN or infinite.
func (v Vec2) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}
