// Package bitpack packs fixed-width bit fields into 32-bit words.
//
// Fields are stored most-significant-bit first with no alignment between
// them; a field that does not fit in the remainder of the current word is
// split across the word boundary.
package bitpack

import (
	"errors"
	"fmt"
)

// MaxWidth is the widest field that can be written or read in one call.
const MaxWidth = 32

var (
	ErrInvalidWidth = errors.New("bit width must be between 1 and 32")
	ErrOutOfData    = errors.New("read past end of bit stream")
)

func mask(bits int) uint64 {
	return (uint64(1) << uint(bits)) - 1
}

func checkWidth(bits int) error {
	if bits < 1 || bits > MaxWidth {
		return fmt.Errorf("%w: got %d", ErrInvalidWidth, bits)
	}
	return nil
}

// Writer accumulates bit fields into a growing word slice.
type Writer struct {
	words []uint32
	cur   uint32
	used  int // bits filled in cur
}

// NewWriter returns an empty writer. sizeHint is the expected number of
// words and may be zero.
func NewWriter(sizeHint int) *Writer {
	return &Writer{words: make([]uint32, 0, sizeHint)}
}

// Write appends the low bits of value.
func (w *Writer) Write(value uint32, bits int) error {
	if err := checkWidth(bits); err != nil {
		return err
	}
	v := uint64(value) & mask(bits)

	for bits > 0 {
		free := 32 - w.used
		if bits <= free {
			w.cur |= uint32(v << uint(free-bits))
			w.used += bits
			if w.used == 32 {
				w.words = append(w.words, w.cur)
				w.cur, w.used = 0, 0
			}
			return nil
		}
		// Top part fills the current word, the rest carries over.
		w.cur |= uint32(v >> uint(bits-free))
		w.words = append(w.words, w.cur)
		w.cur, w.used = 0, 0
		bits -= free
		v &= mask(bits)
	}
	return nil
}

// Flush pads the pending partial word with zero bits and appends it.
func (w *Writer) Flush() {
	if w.used > 0 {
		w.words = append(w.words, w.cur)
		w.cur, w.used = 0, 0
	}
}

// BitLen returns the number of bits written so far, including pending bits.
func (w *Writer) BitLen() uint64 {
	return uint64(len(w.words))*32 + uint64(w.used)
}

// Words returns the completed words. Call Flush first to include a
// trailing partial word.
func (w *Writer) Words() []uint32 {
	return w.words
}

// Reader consumes bit fields from a word slice.
type Reader struct {
	words []uint32
	pos   uint64
}

// NewReader returns a reader positioned at bit 0 of words.
func NewReader(words []uint32) *Reader {
	return &Reader{words: words}
}

// Read consumes the next bits-wide field.
func (r *Reader) Read(bits int) (uint32, error) {
	if err := checkWidth(bits); err != nil {
		return 0, err
	}
	if uint64(bits) > r.Remaining() {
		return 0, fmt.Errorf("%w: need %d bits at offset %d, have %d",
			ErrOutOfData, bits, r.pos, r.Remaining())
	}

	var result uint64
	for bits > 0 {
		word := uint64(r.words[r.pos>>5])
		avail := 32 - int(r.pos&31)
		take := bits
		if take > avail {
			take = avail
		}
		chunk := (word >> uint(avail-take)) & mask(take)
		result = result<<uint(take) | chunk
		r.pos += uint64(take)
		bits -= take
	}
	return uint32(result), nil
}

// Seek moves the cursor to an absolute bit offset.
func (r *Reader) Seek(bit uint64) error {
	if bit > r.Len() {
		return fmt.Errorf("%w: seek to bit %d of %d", ErrOutOfData, bit, r.Len())
	}
	r.pos = bit
	return nil
}

// Pos returns the current bit offset.
func (r *Reader) Pos() uint64 { return r.pos }

// Len returns the total number of bits in the underlying words.
func (r *Reader) Len() uint64 { return uint64(len(r.words)) * 32 }

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() uint64 { return r.Len() - r.pos }

// Truncate returns the two's-complement bit pattern of v cut to bits.
func Truncate(v int32, bits int) uint32 {
	return uint32(uint64(uint32(v)) & mask(bits))
}

// SignExtend interprets the low bits of v as a two's-complement number.
func SignExtend(v uint32, bits int) int32 {
	if bits <= 0 {
		return 0
	}
	if bits >= 32 {
		return int32(v)
	}
	shift := uint(32 - bits)
	return int32(v<<shift) >> shift
}

// SignedWidth returns the smallest width b in 1..32 such that
// 2^(b-1)-1 >= maxAbs.
func SignedWidth(maxAbs uint32) int {
	b := 1
	for b < MaxWidth && (uint64(1)<<uint(b-1))-1 < uint64(maxAbs) {
		b++
	}
	return b
}
