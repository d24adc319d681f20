// Package formats provides parsers for Final Fantasy XVI stage file formats.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Shared reader errors.
var (
	ErrTruncatedData   = errors.New("read past end of data")
	ErrUnalignedTable  = errors.New("string table origin not 16-byte aligned")
	ErrDanglingPointer = errors.New("string pointer outside file bounds")
)

// stringTableAlignment is the required byte alignment of a string table
// origin within a file.
const stringTableAlignment = 16

// Align rounds pos up to the next multiple of alignment.
func Align(pos, alignment int) int {
	return pos + ((-pos%alignment + alignment) % alignment)
}

// Reader provides bounds-checked fixed-width reads over an in-memory file.
// Reads never modify the underlying buffer.
type Reader struct {
	data []byte
}

// NewReader wraps raw file bytes in a Reader.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total byte length of the underlying data.
func (r *Reader) Len() int {
	return len(r.data)
}

// Bytes returns a sub-slice of the underlying data. The returned slice
// aliases the buffer and must not be modified.
func (r *Reader) Bytes(off, n int) ([]byte, error) {
	if err := r.check(off, n); err != nil {
		return nil, err
	}
	return r.data[off : off+n], nil
}

// Uint16 reads a little-endian uint16 at off.
func (r *Reader) Uint16(off int) (uint16, error) {
	if err := r.check(off, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(r.data[off:]), nil
}

// Uint32 reads a little-endian uint32 at off.
func (r *Reader) Uint32(off int) (uint32, error) {
	if err := r.check(off, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(r.data[off:]), nil
}

// Int16 reads a little-endian int16 at off.
func (r *Reader) Int16(off int) (int16, error) {
	v, err := r.Uint16(off)
	return int16(v), err
}

// Int32 reads a little-endian int32 at off.
func (r *Reader) Int32(off int) (int32, error) {
	v, err := r.Uint32(off)
	return int32(v), err
}

// Float32 reads a little-endian float32 at off.
func (r *Reader) Float32(off int) (float32, error) {
	v, err := r.Uint32(off)
	return math.Float32frombits(v), err
}

// Float64 reads a little-endian float64 at off.
func (r *Reader) Float64(off int) (float64, error) {
	if err := r.check(off, 8); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(r.data[off:])), nil
}

func (r *Reader) check(off, n int) error {
	if off < 0 || n < 0 || off+n > len(r.data) {
		return fmt.Errorf("%w: offset 0x%X width %d, file is %d bytes", ErrTruncatedData, off, n, len(r.data))
	}
	return nil
}

// CString reads the null-terminated string starting at the absolute
// offset abs.
func (r *Reader) CString(abs int) (string, error) {
	if abs < 0 || abs >= len(r.data) {
		return "", fmt.Errorf("%w: string at 0x%X, file is %d bytes", ErrDanglingPointer, abs, len(r.data))
	}
	data := r.data[abs:]
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		return string(data[:idx]), nil
	}
	return string(data), nil
}

// StringTable resolves null-terminated strings addressed by byte offsets
// relative to the table origin.
type StringTable struct {
	r      *Reader
	origin int
}

// NewStringTable creates a string table rooted at origin within r.
// The origin must be 16-byte aligned and inside the file; pointer
// resolution is relative to it, never to the file start.
func NewStringTable(r *Reader, origin int) (*StringTable, error) {
	if origin%stringTableAlignment != 0 {
		return nil, fmt.Errorf("%w: origin 0x%X", ErrUnalignedTable, origin)
	}
	if origin < 0 || origin > r.Len() {
		return nil, fmt.Errorf("%w: table origin 0x%X, file is %d bytes", ErrDanglingPointer, origin, r.Len())
	}
	return &StringTable{r: r, origin: origin}, nil
}

// Origin returns the table origin as an absolute file offset.
func (t *StringTable) Origin() int {
	return t.origin
}

// CString resolves the null-terminated string at origin+ptr.
func (t *StringTable) CString(ptr uint32) (string, error) {
	abs := t.origin + int(ptr)
	if abs < 0 || abs >= t.r.Len() {
		return "", fmt.Errorf("%w: pointer 0x%X resolves to 0x%X, file is %d bytes", ErrDanglingPointer, ptr, abs, t.r.Len())
	}
	data := t.r.data[abs:]
	if idx := bytes.IndexByte(data, 0); idx >= 0 {
		return string(data[:idx]), nil
	}
	return string(data), nil
}
