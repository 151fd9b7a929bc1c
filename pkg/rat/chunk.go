package rat

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// WriteOptions controls Write.
type WriteOptions struct {
	// MaxFileSizeKB bounds every output file. Zero or less writes a single
	// file of any size.
	MaxFileSizeKB int

	// Logger receives one entry per file written. Nil discards them.
	Logger *zap.Logger
}

// Split partitions the delta stream of a across files of at most
// maxFileSizeKB kilobytes. Every part repeats the static sections of a
// and carries a contiguous run of delta words; concatenating the runs in
// order gives back a.Deltas. A part declares ceil(words/vertices) frames.
//
// The static sections must fit in the budget on their own, otherwise
// ErrChunkBudget is returned.
func Split(a *Animation, maxFileSizeKB int) ([]*Animation, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if maxFileSizeKB <= 0 {
		return []*Animation{a}, nil
	}

	budget := maxFileSizeKB * 1024
	static, err := StaticSize(a)
	if err != nil {
		return nil, err
	}
	if static > budget {
		return nil, fmt.Errorf("%w: static sections need %d bytes, budget is %d (%d KB)",
			ErrChunkBudget, static, budget, maxFileSizeKB)
	}
	if a.FrameCount <= 1 || len(a.Deltas) == 0 {
		return []*Animation{a}, nil
	}

	wordsPerFile := (budget - static) / wordSize
	if len(a.Deltas) <= wordsPerFile {
		return []*Animation{a}, nil
	}
	if wordsPerFile == 0 {
		return nil, fmt.Errorf("%w: static sections need %d bytes, leaving no room for deltas in %d",
			ErrChunkBudget, static, budget)
	}

	var parts []*Animation
	for start := 0; start < len(a.Deltas); start += wordsPerFile {
		end := start + wordsPerFile
		if end > len(a.Deltas) {
			end = len(a.Deltas)
		}
		words := end - start
		part := *a
		part.Deltas = append([]uint32(nil), a.Deltas[start:end]...)
		part.FrameCount = uint32((words + int(a.VertexCount) - 1) / int(a.VertexCount))
		parts = append(parts, &part)
	}
	return parts, nil
}

// PartPaths returns the output paths for n parts of path: "base.rat" for
// one part and "base_partNNofMM.rat" otherwise.
func PartPaths(path string, n int) []string {
	base := path
	if strings.EqualFold(filepath.Ext(path), Extension) {
		base = strings.TrimSuffix(path, filepath.Ext(path))
	}
	if n <= 1 {
		return []string{base + Extension}
	}
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s_part%02dof%02d%s", base, i+1, n, Extension)
	}
	return paths
}

// Write encodes a and writes it to one or more files named after path,
// splitting as configured. Every part is encoded before the first file is
// created. It returns the paths written, in part order.
func Write(a *Animation, path string, opts WriteOptions) ([]string, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	parts, err := Split(a, opts.MaxFileSizeKB)
	if err != nil {
		return nil, err
	}
	encoded := make([][]byte, len(parts))
	for i, p := range parts {
		if encoded[i], err = Encode(p); err != nil {
			return nil, fmt.Errorf("encoding part %d: %w", i+1, err)
		}
	}

	paths := PartPaths(path, len(parts))
	if err := os.MkdirAll(filepath.Dir(paths[0]), 0755); err != nil {
		return nil, err
	}
	for i, data := range encoded {
		if err := os.WriteFile(paths[i], data, 0644); err != nil {
			return paths[:i], fmt.Errorf("writing %s: %w", paths[i], err)
		}
		log.Info("wrote RAT file",
			zap.String("path", paths[i]),
			zap.Int("bytes", len(data)),
			zap.Uint32("frames", parts[i].FrameCount),
			zap.Stringer("version", parts[i].Version()))
	}
	return paths, nil
}

// Join concatenates the delta streams of parts, in order, into one
// animation. frameCount is the frame count of the result; zero derives it
// from the stream length, which may count trailing padding bits as extra
// motionless frames.
func Join(parts []*Animation, frameCount uint32) (*Animation, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	first := parts[0]
	total := 0
	for i, p := range parts {
		if err := samePart(first, p); err != nil {
			return nil, fmt.Errorf("%w: part %d: %s", ErrPartMismatch, i+1, err)
		}
		total += len(p.Deltas)
	}

	joined := first.Clone()
	joined.Deltas = make([]uint32, 0, total)
	for _, p := range parts {
		joined.Deltas = append(joined.Deltas, p.Deltas...)
	}

	if frameCount == 0 {
		frameCount = 1
		if bpf := joined.BitsPerFrame(); bpf > 0 {
			frameCount += uint32(uint64(len(joined.Deltas)) * 32 / bpf)
		}
	}
	joined.FrameCount = frameCount
	return joined, nil
}

func samePart(a, b *Animation) error {
	switch {
	case a.VertexCount != b.VertexCount:
		return fmt.Errorf("vertex count %d != %d", b.VertexCount, a.VertexCount)
	case a.Bounds != b.Bounds:
		return fmt.Errorf("bounds differ")
	case a.TextureFilename != b.TextureFilename:
		return fmt.Errorf("texture %q != %q", b.TextureFilename, a.TextureFilename)
	case len(a.Indices) != len(b.Indices):
		return fmt.Errorf("index count %d != %d", len(b.Indices), len(a.Indices))
	case !bytes.Equal(a.BitWidthsX, b.BitWidthsX),
		!bytes.Equal(a.BitWidthsY, b.BitWidthsY),
		!bytes.Equal(a.BitWidthsZ, b.BitWidthsZ):
		return fmt.Errorf("bit widths differ")
	}
	for i := range a.FirstFrame {
		if a.FirstFrame[i] != b.FirstFrame[i] {
			return fmt.Errorf("first frame differs at vertex %d", i)
		}
	}
	return nil
}

var partPattern = regexp.MustCompile(`^(.*)_part(\d+)of(\d+)\.rat$`)

// DiscoverParts returns every part path of the animation path belongs to.
// A plain "base.rat" is its own single part.
func DiscoverParts(path string) ([]string, error) {
	m := partPattern.FindStringSubmatch(path)
	if m == nil {
		return []string{path}, nil
	}
	n, err := strconv.Atoi(m[3])
	if err != nil || n < 1 {
		return nil, fmt.Errorf("bad part count in %s", path)
	}
	paths := PartPaths(m[1]+Extension, n)
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("missing part: %w", err)
		}
	}
	return paths, nil
}

// ReadParts reads and joins chunk files in the given order. See Join for
// frameCount.
func ReadParts(paths []string, frameCount uint32) (*Animation, error) {
	parts := make([]*Animation, 0, len(paths))
	for _, p := range paths {
		a, err := ReadFile(p)
		if err != nil {
			return nil, err
		}
		parts = append(parts, a)
	}
	return Join(parts, frameCount)
}
