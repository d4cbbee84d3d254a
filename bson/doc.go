// Package bson encodes in-memory value trees into the BSON binary document
// format and parses finished documents back into trees.
//
// # Wire Format
//
// Every document, including nested sub-documents and sub-arrays, is a 4-byte
// little-endian total length, a list of elements, and a single 0x00
// terminator. Each element is a tag byte, a NUL-terminated key, and a
// type-specific payload:
//
//	Kind          Tag     Payload
//	───────────────────────────────────────────────
//	double        0x01    8 bytes IEEE-754 LE
//	string        0x02    int32 len+1, bytes, NUL
//	document      0x03    nested document
//	array         0x04    nested document, keys "0".."n-1"
//	binary        0x05    int32 len, subtype, bytes
//	oid           0x07    12 bytes
//	bool          0x08    1 byte
//	datetime      0x09    int64 ms since epoch LE
//	null          0x0A    none
//	int32         0x10    4 bytes LE
//	timestamp     0x11    u32 increment, u32 seconds
//	int64         0x12    8 bytes LE
//	decimal128    0x13    u64 low, u64 high
//	maxkey        0x7F    none
//	minkey        0xFF    none
//
// # Key Types
//
//	Value        - immutable tree node (document/array/scalar/Missing)
//	Builder      - assembles one top-level document
//	ArrayBuilder - scoped appender for one open sub-array
//	RawDocument  - finished immutable bytes, with Validate and Decode
//
// # Building
//
// Either re-encode an existing tree:
//
//	doc, err := bson.Encode(root)
//
// or build incrementally:
//
//	b := bson.NewBuilder()
//	b.Append("name", "alpha")
//	b.AppendArray("tags", func(a *bson.ArrayBuilder) error {
//		return a.Append("fast")
//	})
//	doc, err := b.Extract()
//
// Extract consumes the builder; it succeeds at most once per build.
//
// # Missing Values
//
// bson.Missing() marks "no value present here". Missing children are elided
// from output entirely (no key, no null placeholder) and array elements
// that are Missing do not consume an index, so decoded arrays always have
// contiguous indices. A Missing encoding root is an error.
//
// # Validation
//
// Format-level constraints are enforced at encode time, not deferred to the
// consumer of the bytes: strings and keys must be valid UTF-8, keys must not
// contain NUL, uint64 values must fit the signed 64-bit range, and no
// document may exceed the int32 length prefix.
//
// # Thread Safety
//
// Value trees are immutable and safe to share, including encoding the same
// tree from several goroutines at once. A Builder owns its buffer and is NOT
// thread-safe; use one per build.
//
// # Error Handling
//
// Errors use the structured types from the errors package:
//
//	[build] invalid_utf8 at name: BSON strings must be valid UTF-8 (got 80)
//	[build] range at total: value 9223372036854775808 does not fit int64
package bson
