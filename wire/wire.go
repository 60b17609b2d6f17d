// Package wire implements the little-endian binary stream format used by
// script resource blobs and serialized world sections. Strings are
// null-terminated; integers are fixed width.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrShortBuffer    = errors.New("wire: read past end of buffer")
	ErrMissingNul     = errors.New("wire: unterminated string")
	ErrCountTooLarge  = errors.New("wire: count exceeds remaining buffer")
	ErrInvalidVersion = errors.New("wire: unsupported version")
)

// Writer accumulates a wire-format blob in memory.
type Writer struct {
	buf bytes.Buffer
}

func (w *Writer) WriteU8(v uint8) {
	w.buf.WriteByte(v)
}

func (w *Writer) WriteU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) WriteU64(v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	w.buf.Write(tmp[:])
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

// WriteString writes the string bytes followed by a null terminator.
func (w *Writer) WriteString(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte(0)
}

// WriteRaw appends bytes with no framing. Used for trailing payloads that run
// to the end of the blob.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

// Reader decodes a wire-format blob. Every read is bounds checked; a
// malformed blob yields an error instead of garbage.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) ReadU8() (uint8, error) {
	if r.Remaining() < 1 {
		return 0, ErrShortBuffer
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) ReadU32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) ReadU64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrShortBuffer
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// ReadString reads up to the next null terminator.
func (r *Reader) ReadString() (string, error) {
	idx := bytes.IndexByte(r.data[r.pos:], 0)
	if idx < 0 {
		return "", ErrMissingNul
	}
	s := string(r.data[r.pos : r.pos+idx])
	r.pos += idx + 1
	return s, nil
}

// ReadCount reads a u32 count and validates it against the remaining buffer,
// assuming each counted element occupies at least minElemSize bytes.
func (r *Reader) ReadCount(minElemSize int) (uint32, error) {
	n, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	if minElemSize > 0 && int(n) > r.Remaining()/minElemSize {
		return 0, fmt.Errorf("%w: count %d, %d bytes left", ErrCountTooLarge, n, r.Remaining())
	}
	return n, nil
}

// Tail returns all remaining bytes and consumes them.
func (r *Reader) Tail() []byte {
	t := r.data[r.pos:]
	r.pos = len(r.data)
	return t
}
