package bson

import (
	"fmt"
	"unicode/utf8"

	"github.com/trenin17/userver/bson/internal/wire"
	"github.com/trenin17/userver/errors"
)

// RawDocument is a finished, immutable BSON document: a 4-byte little-endian
// total length, the element list, and a single terminator byte.
type RawDocument []byte

// Validate walks the full structure and reports the first inconsistency:
// length fields that disagree with the data, missing terminators, unknown
// tags, non-UTF-8 strings, or non-contiguous array indices.
func (d RawDocument) Validate() error {
	_, err := d.Decode()
	return err
}

// Decode parses the document into a value tree. Sub-arrays come back as
// KindArray; their element keys must be the contiguous stringified indices
// "0".."n-1".
func (d RawDocument) Decode() (Value, error) {
	r := wire.NewReader(d)
	v, err := decodeDocument(r, false)
	if err != nil {
		return Value{}, err
	}
	if r.Remaining() != 0 {
		return Value{}, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("%d trailing byte(s) after document", r.Remaining()))
	}
	return v, nil
}

func decodeDocument(r *wire.Reader, asArray bool) (Value, error) {
	start := r.Position()
	length, err := r.ReadI32LE()
	if err != nil {
		return Value{}, err
	}
	if length < 5 {
		return Value{}, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("document length %d below minimum 5", length))
	}
	if int(length)-4 > r.Remaining() {
		return Value{}, errors.Truncated(errors.PhaseDecode, r.Position(), int(length)-4-r.Remaining())
	}
	end := start + int(length)

	var fields []Field
	var items []Value
	var idx arrayIndexer
	for {
		tag, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		if tag == 0 {
			break
		}
		key, err := r.ReadCString()
		if err != nil {
			return Value{}, err
		}
		elem, err := decodeElement(r, tag, key)
		if err != nil {
			return Value{}, err
		}
		if asArray {
			if key != idx.Key() {
				return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
					fmt.Sprintf("array key %q, want contiguous index %q", key, idx.Key()))
			}
			idx.Advance()
			items = append(items, elem)
		} else {
			fields = append(fields, Field{Key: key, Value: elem})
		}
	}
	if r.Position() != end {
		return Value{}, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("document length %d does not match content end %d", length, r.Position()-start))
	}

	if asArray {
		return Value{kind: KindArray, items: items}, nil
	}
	return Value{kind: KindDocument, fields: fields}, nil
}

// decodeElement reads the payload for one element. The switch mirrors
// appendScalar: every tag the builder can write must decode back.
func decodeElement(r *wire.Reader, tag byte, key string) (Value, error) {
	switch tag {
	case tagDouble:
		f, err := r.ReadF64LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindDouble, dblVal: f}, nil

	case tagString:
		n, err := r.ReadI32LE()
		if err != nil {
			return Value{}, err
		}
		if n < 1 {
			return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
				fmt.Sprintf("string length %d below minimum 1", n))
		}
		data, err := r.ReadBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		if data[n-1] != 0 {
			return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
				"string payload not NUL-terminated")
		}
		s := string(data[:n-1])
		if !utf8.ValidString(s) {
			return Value{}, errors.InvalidUTF8(errors.PhaseDecode, []string{key}, []byte(s))
		}
		return Value{kind: KindString, strVal: s}, nil

	case tagDocument:
		return decodeDocument(r, false)

	case tagArray:
		return decodeDocument(r, true)

	case tagBinary:
		n, err := r.ReadI32LE()
		if err != nil {
			return Value{}, err
		}
		if n < 0 {
			return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
				fmt.Sprintf("negative binary length %d", n))
		}
		subtype, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		raw, err := r.ReadBytes(int(n))
		if err != nil {
			return Value{}, err
		}
		data := make([]byte, len(raw))
		copy(data, raw)
		return Value{kind: KindBinary, binVal: Binary{Subtype: subtype, Data: data}}, nil

	case tagOid:
		raw, err := r.ReadBytes(12)
		if err != nil {
			return Value{}, err
		}
		var oid Oid
		copy(oid[:], raw)
		return Value{kind: KindOid, oidVal: oid}, nil

	case tagBool:
		b, err := r.ReadByte()
		if err != nil {
			return Value{}, err
		}
		if b > 1 {
			return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
				fmt.Sprintf("boolean byte 0x%02x, want 0x00 or 0x01", b))
		}
		return Value{kind: KindBool, boolVal: b == 1}, nil

	case tagDateTime:
		ms, err := r.ReadI64LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindDateTime, intVal: ms}, nil

	case tagNull:
		return Null(), nil

	case tagInt32:
		n, err := r.ReadI32LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindInt32, intVal: int64(n)}, nil

	case tagTimestamp:
		inc, err := r.ReadU32LE()
		if err != nil {
			return Value{}, err
		}
		sec, err := r.ReadU32LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindTimestamp, tsVal: Timestamp{Seconds: sec, Increment: inc}}, nil

	case tagInt64:
		n, err := r.ReadI64LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindInt64, intVal: n}, nil

	case tagDecimal128:
		low, err := r.ReadU64LE()
		if err != nil {
			return Value{}, err
		}
		high, err := r.ReadU64LE()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindDecimal128, decVal: Decimal128{Low: low, High: high}}, nil

	case tagMinKey:
		return MinKey(), nil

	case tagMaxKey:
		return MaxKey(), nil

	default:
		return Value{}, errors.InvalidData(errors.PhaseDecode, []string{key},
			fmt.Sprintf("unknown element tag 0x%02x", tag))
	}
}
