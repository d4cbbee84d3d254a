package bson

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/trenin17/userver/errors"
)

// Oid is a BSON ObjectId: 4 bytes of big-endian seconds since the Unix epoch,
// 5 bytes of per-process random, and a 3-byte big-endian counter.
type Oid [12]byte

var (
	oidProcess [5]byte
	oidCounter atomic.Uint32
)

func init() {
	var seed [9]byte
	// crypto/rand.Read never fails
	_, _ = rand.Read(seed[:])
	copy(oidProcess[:], seed[:5])
	oidCounter.Store(binary.BigEndian.Uint32(seed[5:]))
}

// NewOid generates a fresh ObjectId.
func NewOid() Oid {
	var oid Oid
	binary.BigEndian.PutUint32(oid[0:4], uint32(time.Now().Unix()))
	copy(oid[4:9], oidProcess[:])
	c := oidCounter.Add(1)
	oid[9] = byte(c >> 16)
	oid[10] = byte(c >> 8)
	oid[11] = byte(c)
	return oid
}

// OidFromHex parses the 24-character hex form of an ObjectId.
func OidFromHex(s string) (Oid, error) {
	var oid Oid
	if len(s) != 24 {
		return oid, errors.InvalidData(errors.PhaseDecode, nil,
			fmt.Sprintf("ObjectId hex must be 24 characters, got %d", len(s)))
	}
	if _, err := hex.Decode(oid[:], []byte(s)); err != nil {
		return oid, errors.Wrap(errors.PhaseDecode, errors.KindInvalidData, err, "invalid ObjectId hex")
	}
	return oid, nil
}

// Hex returns the 24-character lowercase hex form.
func (o Oid) Hex() string {
	return hex.EncodeToString(o[:])
}

func (o Oid) String() string {
	return o.Hex()
}

// Time returns the creation time stored in the leading 4 bytes.
func (o Oid) Time() time.Time {
	return time.Unix(int64(binary.BigEndian.Uint32(o[0:4])), 0)
}

// BinarySubtypeGeneric is the subtype the encoder uses for plain []byte values.
const BinarySubtypeGeneric byte = 0x00

// Binary is a BSON binary blob.
type Binary struct {
	Subtype byte
	Data    []byte
}

// Decimal128 is an IEEE 754-2008 decimal128 value carried opaquely as its two
// 64-bit halves, exactly as they appear on the wire. No arithmetic or decimal
// string conversion is provided.
type Decimal128 struct {
	Low  uint64
	High uint64
}

func (d Decimal128) String() string {
	return fmt.Sprintf("decimal128(%016x%016x)", d.High, d.Low)
}

// Timestamp is the BSON-internal timestamp pair. It is not a wall-clock time;
// use time.Time for those.
type Timestamp struct {
	Seconds   uint32
	Increment uint32
}
