package bson

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/trenin17/userver/bson/internal/wire"
	"github.com/trenin17/userver/errors"
)

// Builder assembles one top-level BSON document. A Builder exclusively owns
// its output buffer for the duration of one build; it is not safe for
// concurrent use. After any append fails the builder is poisoned: every
// subsequent operation returns the first error and no binary result can be
// extracted.
type Builder struct {
	w    *wire.Writer
	root wire.Frame
	err  error
	done bool
}

// NewBuilder starts an empty document to be filled via Append calls.
func NewBuilder() *Builder {
	w := wire.NewWriter()
	return &Builder{w: w, root: w.BeginDocument()}
}

// BuilderFrom re-encodes an existing tree. The root must be a document or an
// array: the top level of a BSON document is always key/value pairs, so a
// bare scalar root fails with a structural error, and a Missing root fails
// with a missing-value error.
func BuilderFrom(root Value) (*Builder, error) {
	b := NewBuilder()
	switch root.kind {
	case KindDocument:
		for _, f := range root.fields {
			if err := b.appendNode(f.Key, f.Value); err != nil {
				return nil, err
			}
		}
	case KindArray:
		var idx arrayIndexer
		for _, elem := range root.items {
			if elem.IsMissing() {
				continue
			}
			if err := b.appendNode(idx.Key(), elem); err != nil {
				return nil, err
			}
			idx.Advance()
		}
	case KindMissing:
		return nil, errors.MissingValue(errors.PhaseBuild, nil)
	default:
		return nil, errors.Structural(errors.PhaseBuild,
			"attempt to build a document from a primitive type")
	}
	return b, nil
}

// Encode re-serializes an existing tree in one call: BuilderFrom followed by
// Extract.
func Encode(root Value) (RawDocument, error) {
	b, err := BuilderFrom(root)
	if err != nil {
		return nil, err
	}
	return b.Extract()
}

// Append converts value via ValueOf and appends it under key. Appending a
// Missing value is a no-op: the key is not written at all.
func (b *Builder) Append(key string, value any) error {
	if err := b.ready(); err != nil {
		return err
	}
	v, err := ValueOf(value)
	if err != nil {
		return b.fail(err)
	}
	if err := b.appendNode(key, v); err != nil {
		return b.fail(err)
	}
	return nil
}

// AppendDocument opens a sub-document under key, invokes fn to fill it, and
// closes the region on every exit path, error returns included.
func (b *Builder) AppendDocument(key string, fn func(*Builder) error) error {
	if err := b.ready(); err != nil {
		return err
	}
	err := b.appendContainer(tagDocument, key, func() error { return fn(b) })
	if err != nil {
		return b.fail(err)
	}
	return nil
}

// AppendArray opens a sub-array under key. The ArrayBuilder passed to fn owns
// the index counter for that nesting level.
func (b *Builder) AppendArray(key string, fn func(*ArrayBuilder) error) error {
	if err := b.ready(); err != nil {
		return err
	}
	err := b.appendContainer(tagArray, key, func() error {
		return fn(&ArrayBuilder{b: b})
	})
	if err != nil {
		return b.fail(err)
	}
	return nil
}

// Extract finalizes the document and returns the finished bytes, consuming
// the builder. At most one extraction succeeds per build.
func (b *Builder) Extract() (RawDocument, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.done {
		return nil, errors.Consumed(errors.PhaseBuild, "document")
	}
	if err := b.w.EndDocument(b.root); err != nil {
		return nil, b.fail(err)
	}
	buf, err := b.w.Finish()
	if err != nil {
		return nil, b.fail(err)
	}
	b.done = true
	return RawDocument(buf), nil
}

func (b *Builder) ready() error {
	if b.err != nil {
		return b.err
	}
	if b.done {
		return errors.Consumed(errors.PhaseBuild, "document")
	}
	return nil
}

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

// appendNode dispatches one tree node under the given key. Missing nodes are
// elided entirely. The tree is never mutated.
func (b *Builder) appendNode(key string, v Value) error {
	switch v.kind {
	case KindMissing:
		return nil
	case KindDocument:
		return b.appendContainer(tagDocument, key, func() error {
			for _, f := range v.fields {
				if err := b.appendNode(f.Key, f.Value); err != nil {
					return err
				}
			}
			return nil
		})
	case KindArray:
		return b.appendContainer(tagArray, key, func() error {
			var idx arrayIndexer
			for _, elem := range v.items {
				if elem.IsMissing() {
					continue
				}
				if err := b.appendNode(idx.Key(), elem); err != nil {
					return err
				}
				idx.Advance()
			}
			return nil
		})
	default:
		return b.appendScalar(key, v)
	}
}

// appendContainer brackets a nested region: header, reserved length prefix,
// body, then terminator and length patch. The region is closed even when the
// body fails, so the writer's frame stack stays balanced for whatever
// discards the buffer next.
func (b *Builder) appendContainer(tag byte, key string, fn func() error) error {
	if err := b.writeHeader(tag, key); err != nil {
		return err
	}
	f := b.w.BeginDocument()
	err := fn()
	if cerr := b.w.EndDocument(f); err == nil {
		err = cerr
	}
	return err
}

// appendScalar writes the element header and the kind-specific payload. The
// switch is exhaustive over scalar kinds; adding a Kind must extend it.
func (b *Builder) appendScalar(key string, v Value) error {
	switch v.kind {
	case KindNull:
		return b.writeHeader(tagNull, key)

	case KindBool:
		if err := b.writeHeader(tagBool, key); err != nil {
			return err
		}
		if v.boolVal {
			b.w.Byte(1)
		} else {
			b.w.Byte(0)
		}
		return nil

	case KindInt32:
		if err := b.writeHeader(tagInt32, key); err != nil {
			return err
		}
		b.w.WriteI32LE(int32(v.intVal))
		return nil

	case KindInt64:
		if err := b.writeHeader(tagInt64, key); err != nil {
			return err
		}
		b.w.WriteI64LE(v.intVal)
		return nil

	case KindUint64:
		// BSON has no unsigned 64-bit type; re-encode as int64 when it fits.
		if v.uintVal > math.MaxInt64 {
			return errors.OutOfRange(errors.PhaseBuild, []string{key}, v.uintVal, "int64")
		}
		if err := b.writeHeader(tagInt64, key); err != nil {
			return err
		}
		b.w.WriteI64LE(int64(v.uintVal))
		return nil

	case KindDouble:
		if err := b.writeHeader(tagDouble, key); err != nil {
			return err
		}
		b.w.WriteF64LE(v.dblVal)
		return nil

	case KindString:
		if !utf8.ValidString(v.strVal) {
			return errors.InvalidUTF8(errors.PhaseBuild, []string{key}, []byte(v.strVal))
		}
		if len(v.strVal) > wire.MaxDocumentSize-1 {
			return errors.OutOfRange(errors.PhaseBuild, []string{key}, len(v.strVal), "int32 string length")
		}
		if err := b.writeHeader(tagString, key); err != nil {
			return err
		}
		b.w.WriteI32LE(int32(len(v.strVal) + 1))
		b.w.WriteCString(v.strVal)
		return nil

	case KindDateTime:
		if err := b.writeHeader(tagDateTime, key); err != nil {
			return err
		}
		b.w.WriteI64LE(v.intVal)
		return nil

	case KindBinary:
		if len(v.binVal.Data) > wire.MaxDocumentSize {
			return errors.OutOfRange(errors.PhaseBuild, []string{key}, len(v.binVal.Data), "int32 binary length")
		}
		if err := b.writeHeader(tagBinary, key); err != nil {
			return err
		}
		b.w.WriteI32LE(int32(len(v.binVal.Data)))
		b.w.Byte(v.binVal.Subtype)
		b.w.WriteBytes(v.binVal.Data)
		return nil

	case KindOid:
		if err := b.writeHeader(tagOid, key); err != nil {
			return err
		}
		b.w.WriteBytes(v.oidVal[:])
		return nil

	case KindDecimal128:
		if err := b.writeHeader(tagDecimal128, key); err != nil {
			return err
		}
		b.w.WriteU64LE(v.decVal.Low)
		b.w.WriteU64LE(v.decVal.High)
		return nil

	case KindTimestamp:
		if err := b.writeHeader(tagTimestamp, key); err != nil {
			return err
		}
		b.w.WriteU32LE(v.tsVal.Increment)
		b.w.WriteU32LE(v.tsVal.Seconds)
		return nil

	case KindMinKey:
		return b.writeHeader(tagMinKey, key)

	case KindMaxKey:
		return b.writeHeader(tagMaxKey, key)

	default:
		return errors.InvalidData(errors.PhaseBuild, []string{key},
			"unsupported value kind "+v.kind.String())
	}
}

// writeHeader writes the element tag and key. Keys are cstrings on the wire,
// so an embedded NUL is unencodable, and the format requires UTF-8 keys.
func (b *Builder) writeHeader(tag byte, key string) error {
	if strings.IndexByte(key, 0) >= 0 {
		return errors.InvalidData(errors.PhaseBuild, []string{key}, "key contains NUL byte")
	}
	if !utf8.ValidString(key) {
		return errors.InvalidUTF8(errors.PhaseBuild, nil, []byte(key))
	}
	b.w.Byte(tag)
	b.w.WriteCString(key)
	return nil
}

// ArrayBuilder appends the elements of one open sub-array. It owns the index
// counter for its nesting level; the counter advances only when an element is
// actually written, so Missing values produce no index gap.
type ArrayBuilder struct {
	b   *Builder
	idx arrayIndexer
}

// Append converts value via ValueOf and appends it at the next index.
// Missing values are skipped without consuming an index.
func (a *ArrayBuilder) Append(value any) error {
	if err := a.b.ready(); err != nil {
		return err
	}
	v, err := ValueOf(value)
	if err != nil {
		return a.b.fail(err)
	}
	if v.IsMissing() {
		return nil
	}
	if err := a.b.appendNode(a.idx.Key(), v); err != nil {
		return a.b.fail(err)
	}
	a.idx.Advance()
	return nil
}

// AppendDocument opens a sub-document at the next index.
func (a *ArrayBuilder) AppendDocument(fn func(*Builder) error) error {
	if err := a.b.ready(); err != nil {
		return err
	}
	err := a.b.appendContainer(tagDocument, a.idx.Key(), func() error { return fn(a.b) })
	if err != nil {
		return a.b.fail(err)
	}
	a.idx.Advance()
	return nil
}

// AppendArray opens a nested sub-array at the next index.
func (a *ArrayBuilder) AppendArray(fn func(*ArrayBuilder) error) error {
	if err := a.b.ready(); err != nil {
		return err
	}
	err := a.b.appendContainer(tagArray, a.idx.Key(), func() error {
		return fn(&ArrayBuilder{b: a.b})
	})
	if err != nil {
		return a.b.fail(err)
	}
	a.idx.Advance()
	return nil
}
