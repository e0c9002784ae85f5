package binary

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"slices"
	"unicode/utf8"

	werrors "github.com/wippyai/wasm-decoder/errors"
)

// readChunk bounds a single allocation in ReadBytes so that a hostile length
// prefix cannot force a huge buffer before the input proves it has the bytes.
const readChunk = 64 << 10

type source interface {
	io.Reader
	io.ByteReader
}

// Reader wraps an input stream with position tracking, nested frame limits
// and WASM-specific read methods. It never seeks backward.
type Reader struct {
	src     source
	limits  []int64
	pos     int64
	lenient bool
}

// NewReader creates a new Reader. Inputs that are not already byte readers
// are buffered.
func NewReader(r io.Reader) *Reader {
	src, ok := r.(source)
	if !ok {
		src = bufio.NewReader(r)
	}
	return &Reader{src: src}
}

// NewBytesReader creates a Reader over an in-memory buffer.
func NewBytesReader(data []byte) *Reader {
	return &Reader{src: bytes.NewReader(data)}
}

// SetLenient controls whether zero-padded (non-canonical) LEB128 encodings are
// accepted. Encodings longer than the target width allows are always rejected.
func (r *Reader) SetLenient(lenient bool) {
	r.lenient = lenient
}

// Position returns the number of bytes consumed so far.
func (r *Reader) Position() int64 {
	return r.pos
}

// PushLimit bounds subsequent reads to the next n bytes. Limits nest; an inner
// limit may not extend past an outer one.
func (r *Reader) PushLimit(n uint32) error {
	end := r.pos + int64(n)
	if outer, ok := r.limit(); ok && end > outer {
		return r.boundaryError()
	}
	r.limits = append(r.limits, end)
	return nil
}

// PopLimit removes the innermost limit and returns how many bytes of it were
// left unread.
func (r *Reader) PopLimit() int64 {
	end := r.limits[len(r.limits)-1]
	r.limits = r.limits[:len(r.limits)-1]
	return end - r.pos
}

// Remaining returns the unread bytes under the innermost limit, or -1 when
// reads are unbounded.
func (r *Reader) Remaining() int64 {
	if end, ok := r.limit(); ok {
		return end - r.pos
	}
	return -1
}

func (r *Reader) limit() (int64, bool) {
	if len(r.limits) == 0 {
		return 0, false
	}
	return r.limits[len(r.limits)-1], true
}

func (r *Reader) boundaryError() error {
	return werrors.New(werrors.PhaseSection, werrors.KindSectionSizeMismatch).
		At(r.pos).
		Detail("read past the end of the declared frame").
		Build()
}

func (r *Reader) eofError(err error, what string) error {
	e := werrors.UnexpectedEOF(werrors.PhasePrimitive, r.pos, what)
	if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		e.Cause = err
	}
	return e
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if end, ok := r.limit(); ok && r.pos >= end {
		return 0, r.boundaryError()
	}
	b, err := r.src.ReadByte()
	if err != nil {
		return 0, r.eofError(err, "byte")
	}
	r.pos++
	return b, nil
}

// TryReadByte reads a single byte, reporting ok=false instead of an error when
// the input ends cleanly. Reaching the end of a frame is not a clean end: the
// declared length was too short, so it reports a size mismatch.
func (r *Reader) TryReadByte() (b byte, ok bool, err error) {
	if end, limited := r.limit(); limited && r.pos >= end {
		return 0, false, r.boundaryError()
	}
	b, err = r.src.ReadByte()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, false, nil
		}
		return 0, false, r.eofError(err, "byte")
	}
	r.pos++
	return b, true, nil
}

// ReadBytes reads exactly n bytes.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if end, ok := r.limit(); ok && r.pos+int64(n) > end {
		return nil, r.boundaryError()
	}
	buf := make([]byte, 0, min(n, readChunk))
	for len(buf) < n {
		start := len(buf)
		k := min(n-start, readChunk)
		buf = slices.Grow(buf, k)[:start+k]
		m, err := io.ReadFull(r.src, buf[start:])
		r.pos += int64(m)
		if err != nil {
			return nil, r.eofError(err, "bytes")
		}
	}
	return buf, nil
}

// ReadU32 reads an unsigned LEB128 encoded uint32.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.readUnsigned(32)
	return uint32(v), err
}

// ReadU64 reads an unsigned LEB128 encoded uint64.
func (r *Reader) ReadU64() (uint64, error) {
	return r.readUnsigned(64)
}

// ReadS32 reads a signed LEB128 encoded int32.
func (r *Reader) ReadS32() (int32, error) {
	v, err := r.readSigned(32)
	return int32(v), err
}

// ReadS33 reads a signed LEB128 encoded 33-bit integer, the encoding used by
// block types.
func (r *Reader) ReadS33() (int64, error) {
	return r.readSigned(33)
}

// ReadS64 reads a signed LEB128 encoded int64.
func (r *Reader) ReadS64() (int64, error) {
	return r.readSigned(64)
}

func (r *Reader) readUnsigned(bits uint) (uint64, error) {
	start := r.pos
	maxBytes := (bits + 6) / 7
	var result uint64
	for i := uint(0); ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		shift := 7 * i
		if i == maxBytes-1 {
			used := bits - shift
			if b&0x80 != 0 || b&0x7f>>used != 0 {
				return 0, werrors.Overflow(start, int(bits))
			}
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if i > 0 && b == 0 && !r.lenient {
				return 0, werrors.Malformed(werrors.PhasePrimitive, start, "non-canonical LEB128 encoding")
			}
			return result, nil
		}
	}
}

func (r *Reader) readSigned(bits uint) (int64, error) {
	start := r.pos
	maxBytes := (bits + 6) / 7
	var result int64
	var prev byte
	for i := uint(0); ; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		shift := 7 * i
		if i == maxBytes-1 {
			used := bits - shift
			// The sign bit and every unused bit above it must agree.
			mask := byte(0x7f) &^ (1<<(used-1) - 1)
			if b&0x80 != 0 || (b&mask != 0 && b&mask != mask) {
				return 0, werrors.Overflow(start, int(bits))
			}
		}
		result |= int64(b&0x7f) << shift
		if b&0x80 == 0 {
			shift += 7
			if shift < 64 && b&0x40 != 0 {
				result |= ^int64(0) << shift
			}
			if i > 0 && !r.lenient && ((b == 0x00 && prev&0x40 == 0) || (b == 0x7f && prev&0x40 != 0)) {
				return 0, werrors.Malformed(werrors.PhasePrimitive, start, "non-canonical LEB128 encoding")
			}
			return result, nil
		}
		prev = b
	}
}

// ReadName reads a UTF-8 encoded name (length-prefixed byte sequence).
func (r *Reader) ReadName() (string, error) {
	length, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	start := r.pos
	data, err := r.ReadBytes(int(length))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", werrors.InvalidUTF8(start, data)
	}
	return string(data), nil
}

// ReadU32LE reads a little-endian uint32 (fixed 4 bytes).
func (r *Reader) ReadU32LE() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadU64LE reads a little-endian uint64 (fixed 8 bytes).
func (r *Reader) ReadU64LE() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadRemaining reads every byte left under the innermost limit.
func (r *Reader) ReadRemaining() ([]byte, error) {
	n := r.Remaining()
	if n < 0 {
		return nil, errors.New("ReadRemaining requires a bounded frame")
	}
	return r.ReadBytes(int(n))
}

// ReadVec reads a u32 count followed by that many elements decoded by elem.
func ReadVec[T any](r *Reader, elem func(*Reader) (T, error)) ([]T, error) {
	count, err := r.ReadU32()
	if err != nil {
		return nil, err
	}
	// Every element occupies at least one byte.
	capacity := int64(count)
	if rem := r.Remaining(); rem >= 0 && rem < capacity {
		capacity = rem
	}
	out := make([]T, 0, min(capacity, readChunk))
	for i := uint32(0); i < count; i++ {
		v, err := elem(r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
