package bson

// Kind identifies the variant held by a Value.
type Kind uint8

const (
	KindMissing Kind = iota
	KindNull
	KindBool
	KindInt32
	KindInt64
	KindUint64
	KindDouble
	KindString
	KindBinary
	KindDateTime
	KindOid
	KindDecimal128
	KindTimestamp
	KindMinKey
	KindMaxKey
	KindDocument
	KindArray
)

var kindNames = [...]string{
	KindMissing:    "missing",
	KindNull:       "null",
	KindBool:       "bool",
	KindInt32:      "int32",
	KindInt64:      "int64",
	KindUint64:     "uint64",
	KindDouble:     "double",
	KindString:     "string",
	KindBinary:     "binary",
	KindDateTime:   "datetime",
	KindOid:        "oid",
	KindDecimal128: "decimal128",
	KindTimestamp:  "timestamp",
	KindMinKey:     "minkey",
	KindMaxKey:     "maxkey",
	KindDocument:   "document",
	KindArray:      "array",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// IsContainer reports whether the kind is a document or an array.
func (k Kind) IsContainer() bool {
	return k == KindDocument || k == KindArray
}

// IsScalar reports whether the kind carries a scalar payload (including null
// and the min/max sentinels). Missing is neither scalar nor container.
func (k Kind) IsScalar() bool {
	return k > KindMissing && k < KindDocument
}

// BSON element tag bytes, per the BSON specification.
const (
	tagDouble     byte = 0x01
	tagString     byte = 0x02
	tagDocument   byte = 0x03
	tagArray      byte = 0x04
	tagBinary     byte = 0x05
	tagOid        byte = 0x07
	tagBool       byte = 0x08
	tagDateTime   byte = 0x09
	tagNull       byte = 0x0A
	tagInt32      byte = 0x10
	tagTimestamp  byte = 0x11
	tagInt64      byte = 0x12
	tagDecimal128 byte = 0x13
	tagMaxKey     byte = 0x7F
	tagMinKey     byte = 0xFF
)
