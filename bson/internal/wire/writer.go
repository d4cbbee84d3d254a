package wire

import (
	"encoding/binary"
	"math"

	"github.com/trenin17/userver/errors"
)

// MaxDocumentSize is the largest encodable document, bounded by the int32
// length prefix of the BSON format.
const MaxDocumentSize = math.MaxInt32

// Writer accumulates one in-progress BSON document. The buffer is append-only;
// the only in-place mutation is patching a frame's length prefix on close.
type Writer struct {
	buf    []byte
	frames []int // offsets of open length prefixes, innermost last
}

// NewWriter creates a Writer with a small initial capacity.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 64)}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Depth returns the number of currently open document frames.
func (w *Writer) Depth() int {
	return len(w.frames)
}

// Byte writes a single byte.
func (w *Writer) Byte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes writes a byte slice.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

// WriteString writes the raw bytes of s without any framing.
func (w *Writer) WriteString(s string) {
	w.buf = append(w.buf, s...)
}

// WriteCString writes s followed by a NUL terminator. The caller must have
// rejected embedded NUL bytes already.
func (w *Writer) WriteCString(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// WriteU32LE writes a little-endian uint32 (fixed 4 bytes).
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteU64LE writes a little-endian uint64 (fixed 8 bytes).
func (w *Writer) WriteU64LE(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// WriteI32LE writes a little-endian int32.
func (w *Writer) WriteI32LE(v int32) {
	w.WriteU32LE(uint32(v))
}

// WriteI64LE writes a little-endian int64.
func (w *Writer) WriteI64LE(v int64) {
	w.WriteU64LE(uint64(v))
}

// WriteF64LE writes an IEEE-754 64-bit float, little-endian.
func (w *Writer) WriteF64LE(v float64) {
	w.WriteU64LE(math.Float64bits(v))
}

// Frame marks an open document or array region whose length prefix is
// patched when the frame ends.
type Frame struct {
	lenOff int
}

// BeginDocument reserves the 4-byte length prefix of a nested document or
// array region and opens a frame for it. Frames form a strict stack.
func (w *Writer) BeginDocument() Frame {
	off := len(w.buf)
	w.buf = append(w.buf, 0, 0, 0, 0)
	w.frames = append(w.frames, off)
	return Frame{lenOff: off}
}

// EndDocument writes the region terminator and patches the length prefix of
// the innermost open frame. Closing any frame other than the innermost one
// means a child region was left open, which would corrupt the parent's
// length prefix.
func (w *Writer) EndDocument(f Frame) error {
	if len(w.frames) == 0 {
		return errors.InvalidData(errors.PhaseBuild, nil, "no open document frame")
	}
	if top := w.frames[len(w.frames)-1]; top != f.lenOff {
		return errors.InvalidData(errors.PhaseBuild, nil, "document frames closed out of order")
	}
	w.frames = w.frames[:len(w.frames)-1]

	w.buf = append(w.buf, 0)
	size := len(w.buf) - f.lenOff
	if size > MaxDocumentSize {
		return errors.OutOfRange(errors.PhaseBuild, nil, size, "int32 document length")
	}
	binary.LittleEndian.PutUint32(w.buf[f.lenOff:], uint32(size))
	return nil
}

// Finish returns the accumulated bytes. It fails if any frame is still open:
// the buffer is not a syntactically complete document until every region has
// been closed.
func (w *Writer) Finish() ([]byte, error) {
	if len(w.frames) != 0 {
		return nil, errors.InvalidData(errors.PhaseBuild, nil, "unclosed document frame")
	}
	return w.buf, nil
}
