package decoder

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteReader is a bounds-checked little-endian cursor over a raw buffer.
// Every fixed-offset field access in the binary decoder goes through it; a
// read past the end returns ErrBufferTooShort instead of panicking.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *byteReader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *byteReader) need(n int) error {
	if r.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrBufferTooShort, n, r.off, r.Remaining())
	}
	return nil
}

// Bytes reads n raw bytes.
func (r *byteReader) Bytes(n int) ([]byte, error) {
	if err := r.need(n); err != nil {
		return nil, err
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

// CString reads a fixed-width field and trims everything from the first NUL.
func (r *byteReader) CString(width int) (string, error) {
	b, err := r.Bytes(width)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

func (r *byteReader) ReadU8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.buf[r.off]
	r.off++
	return v, nil
}

func (r *byteReader) ReadU16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *byteReader) ReadU32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

// Skip advances the cursor without reading.
func (r *byteReader) Skip(n int) error {
	if err := r.need(n); err != nil {
		return err
	}
	r.off += n
	return nil
}
