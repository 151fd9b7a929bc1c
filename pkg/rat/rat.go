// Package rat implements the RAT vertex-animation format.
//
// A RAT file stores one animated triangle mesh: static topology (UVs,
// colors, indices), the first frame quantized to 8 bits per axis inside a
// bounding box, and a packed stream of per-vertex deltas for every later
// frame. Each vertex/axis pair has a fixed signed bit width (1-8) for the
// whole animation.
//
// Two layouts exist. V1 ("RAT1") carries no texture reference; V2 ("RAT2")
// adds a texture filename section. Both are little-endian with no padding.
package rat

import "errors"

// File magics.
const (
	MagicV1 uint32 = 0x31544152 // "RAT1"
	MagicV2 uint32 = 0x32544152 // "RAT2"
)

// Header sizes in bytes.
const (
	HeaderSizeV1 = 64
	HeaderSizeV2 = 76
)

// Limits of the format.
const (
	MaxVertices = 65535 // indices are uint16
	MaxBitWidth = 8
	Extension   = ".rat"
)

// Format errors, returned when parsing a file.
var (
	ErrInvalidMagic       = errors.New("invalid RAT magic")
	ErrTruncatedData      = errors.New("truncated RAT data")
	ErrUnsupportedVersion = errors.New("unsupported RAT version")
	ErrCorruptHeader      = errors.New("corrupt RAT header")
)

// Configuration errors, returned before any output is produced.
var (
	ErrNoFrames            = errors.New("animation has no frames")
	ErrNoVertices          = errors.New("animation has no vertices")
	ErrTooManyVertices     = errors.New("vertex count exceeds 65535")
	ErrVertexCountMismatch = errors.New("frames have different vertex counts")
	ErrNotTriangulated     = errors.New("index count is not a multiple of 3")
	ErrIndexOutOfRange     = errors.New("mesh index out of range")
	ErrInvalidBitCap       = errors.New("max bits per axis must be between 1 and 8")
	ErrInvalidBounds       = errors.New("invalid bounding box")
	ErrNonFinitePosition   = errors.New("vertex position is not finite")
	ErrAttributeMismatch   = errors.New("vertex attribute count mismatch")
	ErrChunkBudget         = errors.New("static sections exceed the file size budget")
	ErrNoParts             = errors.New("no chunk files to join")
	ErrPartMismatch        = errors.New("chunk files do not belong to the same animation")
)

// Decode errors.
var (
	ErrStreamExhausted = errors.New("delta stream ends before requested frame")
)
