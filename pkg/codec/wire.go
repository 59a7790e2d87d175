// Package codec implements the consensus-stable binary encoding and the
// dynamic decoder registry: canonical, length-delimited, big-endian
// encoding for every consensus-visible type, plus a
// ModuleInstanceId-keyed registry that turns module-owned opaque bytes
// back into typed values.
package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// writer accumulates a canonical encoding. Integers are fixed-width
// big-endian; byte strings are uint32-length-prefixed so variable-length
// fields round-trip unambiguously.
type writer struct {
	buf bytes.Buffer
}

func newWriter() *writer { return &writer{} }

func (w *writer) WriteUint8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) WriteUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

func (w *writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteBytes writes a uint32 length prefix followed by b.
func (w *writer) WriteBytes(b []byte) {
	w.WriteUint32(uint32(len(b)))
	w.buf.Write(b)
}

func (w *writer) Bytes() []byte { return w.buf.Bytes() }

// reader consumes a canonical encoding produced by writer.
type reader struct {
	r *bytes.Reader
}

func newReader(b []byte) *reader { return &reader{r: bytes.NewReader(b)} }

func (r *reader) ReadUint8() (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read uint8: %w", err)
	}
	return b[0], nil
}

func (r *reader) ReadUint16() (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read uint16: %w", err)
	}
	return binary.BigEndian.Uint16(b[:]), nil
}

func (r *reader) ReadUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func (r *reader) ReadUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.r, b[:]); err != nil {
		return 0, fmt.Errorf("codec: read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

func (r *reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadBytes reads a uint32 length prefix followed by that many bytes.
func (r *reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("codec: read %d-byte field: %w", n, err)
	}
	return b, nil
}

func (r *reader) Remaining() int { return r.r.Len() }

// ReadFixed reads exactly n raw bytes with no length prefix, used for
// fixed-size fields like a 32-byte hash.
func (r *reader) ReadFixed(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r.r, b); err != nil {
		return nil, fmt.Errorf("codec: read %d fixed bytes: %w", n, err)
	}
	return b, nil
}
