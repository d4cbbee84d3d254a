package bson

import (
	"fmt"
	"math"
	"time"

	"github.com/trenin17/userver/errors"
)

// Field is one key/value pair of a document. Documents preserve insertion
// order and BSON requires keys to be unique within a document.
type Field struct {
	Key   string
	Value Value
}

// Value is one node of a parsed BSON tree: a document, an array, a scalar, or
// the Missing marker. The zero Value is Missing. Values are immutable once
// constructed and may be shared freely, including across concurrent encodes.
type Value struct {
	kind    Kind
	boolVal bool
	intVal  int64 // KindInt32 (widened), KindInt64, KindDateTime (ms since epoch)
	uintVal uint64
	dblVal  float64
	strVal  string
	binVal  Binary
	oidVal  Oid
	decVal  Decimal128
	tsVal   Timestamp
	fields  []Field
	items   []Value
}

// Missing returns the marker for "no value present here". Missing children
// are elided from encoder output entirely.
func Missing() Value { return Value{} }

// Null returns the BSON null value.
func Null() Value { return Value{kind: KindNull} }

// MinKey returns the min-key sentinel.
func MinKey() Value { return Value{kind: KindMinKey} }

// MaxKey returns the max-key sentinel.
func MaxKey() Value { return Value{kind: KindMaxKey} }

// ValueOf converts a Go value to a tree node. Supported inputs: nil, bool,
// all signed/unsigned integer widths, float32/float64, string, []byte
// (generic-subtype binary), time.Time, Oid, Binary, Decimal128, Timestamp,
// Field slices are not accepted; use MakeDocument/MakeArray for containers.
// A Value passes through unchanged.
func ValueOf(value any) (Value, error) {
	switch v := value.(type) {
	case Value:
		return v, nil
	case nil:
		return Null(), nil
	case bool:
		return Value{kind: KindBool, boolVal: v}, nil
	case int32:
		return Value{kind: KindInt32, intVal: int64(v)}, nil
	case int64:
		return Value{kind: KindInt64, intVal: v}, nil
	case int:
		return Value{kind: KindInt64, intVal: int64(v)}, nil
	case int16:
		return Value{kind: KindInt32, intVal: int64(v)}, nil
	case int8:
		return Value{kind: KindInt32, intVal: int64(v)}, nil
	case uint32:
		return Value{kind: KindInt64, intVal: int64(v)}, nil
	case uint16:
		return Value{kind: KindInt32, intVal: int64(v)}, nil
	case uint8:
		return Value{kind: KindInt32, intVal: int64(v)}, nil
	case uint64:
		return Value{kind: KindUint64, uintVal: v}, nil
	case uint:
		return Value{kind: KindUint64, uintVal: uint64(v)}, nil
	case float64:
		return Value{kind: KindDouble, dblVal: v}, nil
	case float32:
		return Value{kind: KindDouble, dblVal: float64(v)}, nil
	case string:
		return Value{kind: KindString, strVal: v}, nil
	case []byte:
		data := make([]byte, len(v))
		copy(data, v)
		return Value{kind: KindBinary, binVal: Binary{Subtype: BinarySubtypeGeneric, Data: data}}, nil
	case Binary:
		return Value{kind: KindBinary, binVal: v}, nil
	case time.Time:
		return Value{kind: KindDateTime, intVal: v.UnixMilli()}, nil
	case Oid:
		return Value{kind: KindOid, oidVal: v}, nil
	case Decimal128:
		return Value{kind: KindDecimal128, decVal: v}, nil
	case Timestamp:
		return Value{kind: KindTimestamp, tsVal: v}, nil
	default:
		return Value{}, errors.TypeMismatch(errors.PhaseBuild, nil,
			fmt.Sprintf("%T", value), "BSON-encodable value")
	}
}

// MakeDocument builds a document node from alternating key, value arguments:
//
//	doc, err := bson.MakeDocument("name", "alpha", "count", int32(3))
//
// Values are converted via ValueOf. Missing values are kept in the tree and
// elided at encode time.
func MakeDocument(kv ...any) (Value, error) {
	if len(kv)%2 != 0 {
		return Value{}, errors.InvalidData(errors.PhaseBuild, nil,
			"MakeDocument requires an even number of arguments")
	}
	fields := make([]Field, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			return Value{}, errors.TypeMismatch(errors.PhaseBuild, nil,
				fmt.Sprintf("%T", kv[i]), "string key")
		}
		v, err := ValueOf(kv[i+1])
		if err != nil {
			return Value{}, err
		}
		fields = append(fields, Field{Key: key, Value: v})
	}
	return Value{kind: KindDocument, fields: fields}, nil
}

// MakeArray builds an array node, converting each item via ValueOf.
func MakeArray(items ...any) (Value, error) {
	elems := make([]Value, 0, len(items))
	for _, item := range items {
		v, err := ValueOf(item)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, v)
	}
	return Value{kind: KindArray, items: elems}, nil
}

// MustDocument is MakeDocument that panics on error, for literals in tests
// and fixtures.
func MustDocument(kv ...any) Value {
	v, err := MakeDocument(kv...)
	if err != nil {
		panic(err)
	}
	return v
}

// MustArray is MakeArray that panics on error.
func MustArray(items ...any) Value {
	v, err := MakeArray(items...)
	if err != nil {
		panic(err)
	}
	return v
}

// Kind returns the variant held by the value.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether the value is the Missing marker.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsNull reports whether the value is BSON null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsDocument returns the document's fields in insertion order.
func (v Value) AsDocument() ([]Field, error) {
	if v.kind != KindDocument {
		return nil, v.mismatch("document")
	}
	return v.fields, nil
}

// AsArray returns the array's elements in stored order.
func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, v.mismatch("array")
	}
	return v.items, nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch("bool")
	}
	return v.boolVal, nil
}

// AsInt32 returns an int32, converting from the wider integer kinds when the
// value fits.
func (v Value) AsInt32() (int32, error) {
	switch v.kind {
	case KindInt32:
		return int32(v.intVal), nil
	case KindInt64:
		if v.intVal < math.MinInt32 || v.intVal > math.MaxInt32 {
			return 0, errors.OutOfRange(errors.PhaseAccess, nil, v.intVal, "int32")
		}
		return int32(v.intVal), nil
	case KindUint64:
		if v.uintVal > math.MaxInt32 {
			return 0, errors.OutOfRange(errors.PhaseAccess, nil, v.uintVal, "int32")
		}
		return int32(v.uintVal), nil
	default:
		return 0, v.mismatch("int32")
	}
}

// AsInt64 returns an int64 from any of the signed integer kinds; uint64
// payloads convert when within the signed range.
func (v Value) AsInt64() (int64, error) {
	switch v.kind {
	case KindInt32, KindInt64:
		return v.intVal, nil
	case KindUint64:
		if v.uintVal > math.MaxInt64 {
			return 0, errors.OutOfRange(errors.PhaseAccess, nil, v.uintVal, "int64")
		}
		return int64(v.uintVal), nil
	default:
		return 0, v.mismatch("int64")
	}
}

// AsUint64 returns a uint64 from the integer kinds; negative values fail.
func (v Value) AsUint64() (uint64, error) {
	switch v.kind {
	case KindInt32, KindInt64:
		if v.intVal < 0 {
			return 0, errors.OutOfRange(errors.PhaseAccess, nil, v.intVal, "uint64")
		}
		return uint64(v.intVal), nil
	case KindUint64:
		return v.uintVal, nil
	default:
		return 0, v.mismatch("uint64")
	}
}

// AsDouble returns a float64; integer kinds convert.
func (v Value) AsDouble() (float64, error) {
	switch v.kind {
	case KindDouble:
		return v.dblVal, nil
	case KindInt32, KindInt64:
		return float64(v.intVal), nil
	case KindUint64:
		return float64(v.uintVal), nil
	default:
		return 0, v.mismatch("double")
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch("string")
	}
	return v.strVal, nil
}

// AsBinary returns the binary payload.
func (v Value) AsBinary() (Binary, error) {
	if v.kind != KindBinary {
		return Binary{}, v.mismatch("binary")
	}
	return v.binVal, nil
}

// AsTime returns the datetime payload at millisecond precision.
func (v Value) AsTime() (time.Time, error) {
	if v.kind != KindDateTime {
		return time.Time{}, v.mismatch("datetime")
	}
	return time.UnixMilli(v.intVal).UTC(), nil
}

// AsOid returns the ObjectId payload.
func (v Value) AsOid() (Oid, error) {
	if v.kind != KindOid {
		return Oid{}, v.mismatch("oid")
	}
	return v.oidVal, nil
}

// AsDecimal128 returns the decimal128 payload.
func (v Value) AsDecimal128() (Decimal128, error) {
	if v.kind != KindDecimal128 {
		return Decimal128{}, v.mismatch("decimal128")
	}
	return v.decVal, nil
}

// AsTimestamp returns the BSON-internal timestamp payload.
func (v Value) AsTimestamp() (Timestamp, error) {
	if v.kind != KindTimestamp {
		return Timestamp{}, v.mismatch("timestamp")
	}
	return v.tsVal, nil
}

func (v Value) mismatch(want string) *errors.Error {
	return errors.TypeMismatch(errors.PhaseAccess, nil, v.kind.String(), want)
}

// Equal reports deep equality of two trees. Missing compares equal only to
// Missing. go-cmp picks this method up for test comparisons.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindMissing, KindNull, KindMinKey, KindMaxKey:
		return true
	case KindBool:
		return v.boolVal == o.boolVal
	case KindInt32, KindInt64, KindDateTime:
		return v.intVal == o.intVal
	case KindUint64:
		return v.uintVal == o.uintVal
	case KindDouble:
		return v.dblVal == o.dblVal
	case KindString:
		return v.strVal == o.strVal
	case KindBinary:
		if v.binVal.Subtype != o.binVal.Subtype || len(v.binVal.Data) != len(o.binVal.Data) {
			return false
		}
		for i := range v.binVal.Data {
			if v.binVal.Data[i] != o.binVal.Data[i] {
				return false
			}
		}
		return true
	case KindOid:
		return v.oidVal == o.oidVal
	case KindDecimal128:
		return v.decVal == o.decVal
	case KindTimestamp:
		return v.tsVal == o.tsVal
	case KindDocument:
		if len(v.fields) != len(o.fields) {
			return false
		}
		for i := range v.fields {
			if v.fields[i].Key != o.fields[i].Key || !v.fields[i].Value.Equal(o.fields[i].Value) {
				return false
			}
		}
		return true
	case KindArray:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
