package bson

import (
	"bytes"
	"encoding/binary"
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	uerrors "github.com/trenin17/userver/errors"
)

func wantErrKind(t *testing.T, err error, phase uerrors.Phase, kind uerrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s/%s error, got nil", phase, kind)
	}
	if !stderrors.Is(err, &uerrors.Error{Phase: phase, Kind: kind}) {
		t.Fatalf("err = %v, want phase=%s kind=%s", err, phase, kind)
	}
}

func TestBuilderKnownVectors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder) error
		want  []byte
	}{
		{
			name:  "empty document",
			build: func(b *Builder) error { return nil },
			want:  []byte{0x05, 0x00, 0x00, 0x00, 0x00},
		},
		{
			name:  "hello world string",
			build: func(b *Builder) error { return b.Append("hello", "world") },
			want: []byte{
				0x16, 0x00, 0x00, 0x00,
				0x02, 'h', 'e', 'l', 'l', 'o', 0x00,
				0x06, 0x00, 0x00, 0x00, 'w', 'o', 'r', 'l', 'd', 0x00,
				0x00,
			},
		},
		{
			name:  "bool true",
			build: func(b *Builder) error { return b.Append("b", true) },
			want: []byte{
				0x09, 0x00, 0x00, 0x00,
				0x08, 'b', 0x00, 0x01,
				0x00,
			},
		},
		{
			name:  "int32 minus one",
			build: func(b *Builder) error { return b.Append("i", int32(-1)) },
			want: []byte{
				0x0c, 0x00, 0x00, 0x00,
				0x10, 'i', 0x00, 0xff, 0xff, 0xff, 0xff,
				0x00,
			},
		},
		{
			name: "array of two int32",
			build: func(b *Builder) error {
				return b.AppendArray("a", func(a *ArrayBuilder) error {
					if err := a.Append(int32(10)); err != nil {
						return err
					}
					return a.Append(int32(20))
				})
			},
			want: []byte{
				0x1b, 0x00, 0x00, 0x00,
				0x04, 'a', 0x00,
				0x13, 0x00, 0x00, 0x00,
				0x10, '0', 0x00, 0x0a, 0x00, 0x00, 0x00,
				0x10, '1', 0x00, 0x14, 0x00, 0x00, 0x00,
				0x00,
				0x00,
			},
		},
		{
			name: "empty sub-document",
			build: func(b *Builder) error {
				return b.AppendDocument("d", func(*Builder) error { return nil })
			},
			want: []byte{
				0x0d, 0x00, 0x00, 0x00,
				0x03, 'd', 0x00,
				0x05, 0x00, 0x00, 0x00, 0x00,
				0x00,
			},
		},
		{
			name:  "null",
			build: func(b *Builder) error { return b.Append("n", nil) },
			want: []byte{
				0x08, 0x00, 0x00, 0x00,
				0x0a, 'n', 0x00,
				0x00,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			if err := tt.build(b); err != nil {
				t.Fatalf("build: %v", err)
			}
			doc, err := b.Extract()
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !bytes.Equal(doc, tt.want) {
				t.Errorf("doc = % x, want % x", []byte(doc), tt.want)
			}
		})
	}
}

func TestLengthPrefixMatchesSize(t *testing.T) {
	trees := []Value{
		MustDocument(),
		MustDocument("a", int32(1), "b", "two", "c", 3.5),
		MustDocument("nested", MustDocument("deep", MustArray(int64(1), "x", true))),
		MustDocument("bin", []byte{1, 2, 3}, "oid", NewOid(), "ts", Timestamp{Seconds: 9, Increment: 1}),
	}
	for _, tree := range trees {
		doc, err := Encode(tree)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got := binary.LittleEndian.Uint32(doc[:4])
		if int(got) != len(doc) {
			t.Errorf("length prefix = %d, want %d", got, len(doc))
		}
		if doc[len(doc)-1] != 0 {
			t.Errorf("terminator = 0x%02x, want 0x00", doc[len(doc)-1])
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	oid := NewOid()
	when := time.Date(2024, 3, 15, 12, 30, 45, 500e6, time.UTC)
	tests := []struct {
		name string
		in   Value
		want Value // zero means: expect in back unchanged
	}{
		{name: "empty", in: MustDocument()},
		{
			name: "all scalar kinds",
			in: MustDocument(
				"null", nil,
				"bool", true,
				"i32", int32(-7),
				"i64", int64(1<<40),
				"dbl", 2.718281828,
				"str", "héllo wörld",
				"bin", Binary{Subtype: BinarySubtypeGeneric, Data: []byte{0xde, 0xad}},
				"when", when,
				"oid", oid,
				"dec", Decimal128{Low: 0x1234, High: 0x5678},
				"ts", Timestamp{Seconds: 1700000000, Increment: 3},
				"min", MinKey(),
				"max", MaxKey(),
			),
		},
		{
			name: "nested containers",
			in: MustDocument(
				"outer", MustDocument(
					"inner", MustArray(int32(1), MustDocument("k", "v"), MustArray()),
				),
			),
		},
		{
			name: "uint64 widens to int64",
			in:   MustDocument("n", uint64(math.MaxInt64)),
			want: MustDocument("n", int64(math.MaxInt64)),
		},
		{
			name: "datetime truncates to milliseconds",
			in:   MustDocument("t", when.Add(999*time.Microsecond)),
			want: MustDocument("t", when),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			back, err := doc.Decode()
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			want := tt.want
			if want.IsMissing() {
				want = tt.in
			}
			if diff := cmp.Diff(want, back); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuilderUint64OutOfRange(t *testing.T) {
	b := NewBuilder()
	err := b.Append("n", uint64(1)<<63)
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindRange)

	// The boundary value itself must encode.
	doc, err := Encode(MustDocument("n", uint64(1)<<63-1))
	if err != nil {
		t.Fatalf("Encode boundary: %v", err)
	}
	back, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	fields, _ := back.AsDocument()
	n, err := fields[0].Value.AsInt64()
	if err != nil || n != math.MaxInt64 {
		t.Errorf("decoded = %d, %v, want %d", n, err, int64(math.MaxInt64))
	}
}

func TestBuilderInvalidUTF8(t *testing.T) {
	t.Run("string value", func(t *testing.T) {
		b := NewBuilder()
		err := b.Append("s", string([]byte{0x80}))
		wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindInvalidUTF8)
	})
	t.Run("key", func(t *testing.T) {
		b := NewBuilder()
		err := b.Append(string([]byte{0xff, 0xfe}), int32(1))
		wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindInvalidUTF8)
	})
	t.Run("valid multibyte round trips", func(t *testing.T) {
		doc, err := Encode(MustDocument("s", "héllo"))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := doc.Validate(); err != nil {
			t.Errorf("Validate: %v", err)
		}
	})
}

func TestBuilderKeyWithNUL(t *testing.T) {
	b := NewBuilder()
	err := b.Append("bad\x00key", int32(1))
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindInvalidData)
}

func TestBuilderFromNonContainerRoot(t *testing.T) {
	scalar, err := ValueOf(int32(5))
	if err != nil {
		t.Fatalf("ValueOf: %v", err)
	}
	_, err = Encode(scalar)
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindStructural)

	_, err = Encode(Missing())
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindMissingValue)
}

func TestEncodeArrayRoot(t *testing.T) {
	doc, err := Encode(MustArray("a", "b"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	// The top level of a BSON document is always keyed, so an array root
	// comes back as a document with stringified index keys.
	want := MustDocument("0", "a", "1", "b")
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("array root mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingElision(t *testing.T) {
	t.Run("document field", func(t *testing.T) {
		doc, err := Encode(MustDocument("a", Missing(), "b", int32(5)))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		back, err := doc.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if diff := cmp.Diff(MustDocument("b", int32(5)), back); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("array element leaves no index gap", func(t *testing.T) {
		tree := MustDocument("outer", MustDocument(
			"inner", MustArray(int32(1), int32(2), Missing(), int32(3)),
		))
		doc, err := Encode(tree)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := doc.Validate(); err != nil {
			t.Fatalf("Validate: %v", err)
		}
		back, err := doc.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		want := MustDocument("outer", MustDocument(
			"inner", MustArray(int32(1), int32(2), int32(3)),
		))
		if diff := cmp.Diff(want, back); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})
	t.Run("append missing is a no-op", func(t *testing.T) {
		b := NewBuilder()
		if err := b.Append("gone", Missing()); err != nil {
			t.Fatalf("Append: %v", err)
		}
		doc, err := b.Extract()
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		if !bytes.Equal(doc, []byte{0x05, 0x00, 0x00, 0x00, 0x00}) {
			t.Errorf("doc = % x, want empty document", []byte(doc))
		}
	})
}

func TestArrayBuilderSkipsMissing(t *testing.T) {
	b := NewBuilder()
	err := b.AppendArray("a", func(a *ArrayBuilder) error {
		if err := a.Append(int32(1)); err != nil {
			return err
		}
		if err := a.Append(Missing()); err != nil {
			return err
		}
		return a.Append(int32(2))
	})
	if err != nil {
		t.Fatalf("AppendArray: %v", err)
	}
	doc, err := b.Extract()
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	back, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := MustDocument("a", MustArray(int32(1), int32(2)))
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractConsumesBuilder(t *testing.T) {
	b := NewBuilder()
	if _, err := b.Extract(); err != nil {
		t.Fatalf("first Extract: %v", err)
	}
	_, err := b.Extract()
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindConsumed)

	err = b.Append("late", int32(1))
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindConsumed)
}

func TestBuilderPoisonedByFirstError(t *testing.T) {
	b := NewBuilder()
	first := b.Append("n", uint64(1)<<63)
	wantErrKind(t, first, uerrors.PhaseBuild, uerrors.KindRange)

	if err := b.Append("ok", int32(1)); err != first {
		t.Errorf("second Append err = %v, want first error", err)
	}
	if _, err := b.Extract(); err != first {
		t.Errorf("Extract err = %v, want first error", err)
	}
}

func TestAppendDocumentPropagatesCallbackError(t *testing.T) {
	sentinel := stderrors.New("filler failed")
	b := NewBuilder()
	err := b.AppendDocument("d", func(*Builder) error { return sentinel })
	if !stderrors.Is(err, sentinel) {
		t.Fatalf("err = %v, want sentinel", err)
	}
	if _, err := b.Extract(); !stderrors.Is(err, sentinel) {
		t.Errorf("Extract err = %v, want sentinel", err)
	}
}

func TestBuilderIncrementalNesting(t *testing.T) {
	b := NewBuilder()
	err := b.AppendDocument("meta", func(b *Builder) error {
		if err := b.Append("version", int32(2)); err != nil {
			return err
		}
		return b.AppendArray("tags", func(a *ArrayBuilder) error {
			if err := a.Append("fast"); err != nil {
				return err
			}
			return a.AppendDocument(func(b *Builder) error {
				return b.Append("nested", true)
			})
		})
	})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	doc, err := b.Extract()
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	back, err := doc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := MustDocument("meta", MustDocument(
		"version", int32(2),
		"tags", MustArray("fast", MustDocument("nested", true)),
	))
	if diff := cmp.Diff(want, back); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAppendUnsupportedType(t *testing.T) {
	b := NewBuilder()
	err := b.Append("x", struct{}{})
	wantErrKind(t, err, uerrors.PhaseBuild, uerrors.KindTypeMismatch)
}
