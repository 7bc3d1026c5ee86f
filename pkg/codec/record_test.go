package codec

import (
	"bytes"
	"errors"
	"testing"
)

func mustNew(t testing.TB, label uint32, url string, fv []byte) *Record {
	t.Helper()
	var id [16]byte
	id[0] = byte(label)
	r, err := New(id, 1, 0, 0, 10, 10, label, url, fv)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func TestRecordCodec_EncodeDecodeRoundTrip(t *testing.T) {
	codec := NewRecordCodec()

	testCases := []struct {
		name string
		url  string
		fv   []byte
	}{
		{
			name: "url and float vector",
			url:  "http://x/a.jpg",
			fv:   Float32Bytes([]float32{1, 2, 3}),
		},
		{
			name: "empty url",
			url:  "",
			fv:   []byte{1, 2, 3, 4},
		},
		{
			name: "empty feature vector",
			url:  "file:///data/img.png",
			fv:   nil,
		},
		{
			name: "both empty",
			url:  "",
			fv:   []byte{},
		},
		{
			name: "binary feature vector",
			url:  "s3://bucket/key",
			fv:   []byte{0x00, 0xFF, 0x00, 0xFE, 0x7F},
		},
		{
			name: "large feature vector",
			url:  "http://example.com/large.jpg",
			fv:   bytes.Repeat([]byte{0xAB}, 64*1024),
		},
		{
			name: "unicode url",
			url:  "http://example.com/émoji/🎯.jpg",
			fv:   []byte{1},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			id := ImageIDFromContent([]byte(tc.name))
			original, err := New(id, -3, 1, 2, 3, 4, 5, tc.url, tc.fv)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}

			encoded := codec.Encode(original)
			if int64(len(encoded)) != RecordSize(original.Header()) {
				t.Fatalf("encoded %d bytes, RecordSize says %d", len(encoded), RecordSize(original.Header()))
			}

			decoded, n, err := codec.Decode(encoded, 0)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if n != int64(len(encoded)) {
				t.Errorf("consumed %d bytes, want %d", n, len(encoded))
			}

			if decoded.Header() != original.Header() {
				t.Errorf("header mismatch: got %+v, want %+v", decoded.Header(), original.Header())
			}
			if decoded.URL() != tc.url {
				t.Errorf("URL mismatch: got %q, want %q", decoded.URL(), tc.url)
			}
			if !bytes.Equal(decoded.FeatureVector(), tc.fv) {
				t.Errorf("feature vector mismatch: got %d bytes, want %d", len(decoded.FeatureVector()), len(tc.fv))
			}
			if !bytes.Equal(decoded.Payload(), original.Payload()) {
				t.Errorf("payload mismatch")
			}
		})
	}
}

func TestNew_Sizes(t *testing.T) {
	var id [16]byte
	fv := Float32Bytes([]float32{1.0, 2.0, 3.0})
	r, err := New(id, 1, 0, 0, 10, 10, 7, "http://x/a.jpg", fv)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	h := r.Header()
	if h.URLSize != uint32(len("http://x/a.jpg")+1) {
		t.Errorf("URLSize = %d, want %d", h.URLSize, len("http://x/a.jpg")+1)
	}
	if h.FVSize != 12 {
		t.Errorf("FVSize = %d, want 12", h.FVSize)
	}
	if r.Size() != HeaderSize+int64(h.URLSize)+12 {
		t.Errorf("Size = %d", r.Size())
	}
	if got := r.URLBytes(); got[len(got)-1] != 0 {
		t.Errorf("URL segment is not NUL-terminated: %v", got)
	}
}

func TestNew_EmptyURLIsTerminatorOnly(t *testing.T) {
	r := mustNew(t, 0, "", nil)
	if r.Header().URLSize != 1 {
		t.Errorf("URLSize = %d, want 1", r.Header().URLSize)
	}
	if r.Size() != HeaderSize+1 {
		t.Errorf("Size = %d, want %d", r.Size(), HeaderSize+1)
	}
	if len(r.FeatureVector()) != 0 {
		t.Errorf("expected empty feature vector")
	}
}

func TestNew_RejectsEmbeddedNUL(t *testing.T) {
	var id [16]byte
	_, err := New(id, 0, 0, 0, 0, 0, 0, "a\x00b", nil)
	if !errors.Is(err, ErrURLContainsNUL) {
		t.Fatalf("expected ErrURLContainsNUL, got %v", err)
	}
}

func TestNew_CopiesInputs(t *testing.T) {
	fv := []byte{1, 2, 3}
	r := mustNew(t, 1, "u", fv)
	fv[0] = 99
	if r.FeatureVector()[0] != 1 {
		t.Errorf("record shares caller's feature vector buffer")
	}
}

func TestRecordSize_IsHeaderOnly(t *testing.T) {
	h := Header{URLSize: 16, FVSize: 12}
	if got := RecordSize(h); got != HeaderSize+28 {
		t.Errorf("RecordSize = %d, want %d", got, HeaderSize+28)
	}

	big := Header{URLSize: ^uint32(0), FVSize: ^uint32(0)}
	want := int64(HeaderSize) + 2*int64(^uint32(0))
	if got := RecordSize(big); got != want {
		t.Errorf("RecordSize overflowed: got %d, want %d", got, want)
	}
}

func TestRecordCodec_DecodeTruncation(t *testing.T) {
	codec := NewRecordCodec()
	encoded := codec.Encode(mustNew(t, 3, "http://x/a.jpg", []byte{1, 2, 3, 4}))

	t.Run("short header", func(t *testing.T) {
		_, _, err := codec.Decode(encoded[:HeaderSize-1], 0)
		if !errors.Is(err, ErrTruncatedHeader) {
			t.Fatalf("expected ErrTruncatedHeader, got %v", err)
		}
	})

	t.Run("short payload by one byte", func(t *testing.T) {
		_, _, err := codec.Decode(encoded[:len(encoded)-1], 0)
		if !errors.Is(err, ErrTruncatedPayload) {
			t.Fatalf("expected ErrTruncatedPayload, got %v", err)
		}
	})

	t.Run("offset reported", func(t *testing.T) {
		buf := append(append([]byte{}, encoded...), encoded[:10]...)
		_, _, err := codec.Decode(buf, int64(len(encoded)))
		off, ok := ErrorOffset(err)
		if !ok {
			t.Fatalf("expected OffsetError, got %v", err)
		}
		if off != int64(len(encoded)) {
			t.Errorf("offset = %d, want %d", off, len(encoded))
		}
		if !IsCorruption(err) {
			t.Errorf("expected corruption error")
		}
	})

	t.Run("offset past end", func(t *testing.T) {
		_, _, err := codec.Decode(encoded, int64(len(encoded)+1))
		if !errors.Is(err, ErrTruncatedHeader) {
			t.Fatalf("expected ErrTruncatedHeader, got %v", err)
		}
	})
}

func TestRecordCodec_DecodeIsZeroCopy(t *testing.T) {
	codec := NewRecordCodec()
	encoded := codec.Encode(mustNew(t, 1, "u", []byte{5, 6}))

	decoded, _, err := codec.Decode(encoded, 0)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	encoded[len(encoded)-1] = 42
	if decoded.FeatureVector()[1] != 42 {
		t.Errorf("decoded record does not alias the input buffer")
	}

	clone := decoded.Clone()
	encoded[len(encoded)-1] = 7
	if clone.FeatureVector()[1] != 42 {
		t.Errorf("clone aliases the input buffer")
	}
}

func TestRecord_Release(t *testing.T) {
	r := mustNew(t, 1, "u", []byte{1})
	r.Release()
	if r.Payload() != nil {
		t.Errorf("payload retained after Release")
	}
}

func TestFromHeader(t *testing.T) {
	r := mustNew(t, 2, "abc", []byte{9, 9})
	rebuilt, err := FromHeader(r.Header(), r.Payload())
	if err != nil {
		t.Fatalf("FromHeader failed: %v", err)
	}
	if rebuilt.URL() != "abc" {
		t.Errorf("URL = %q", rebuilt.URL())
	}

	if _, err := FromHeader(r.Header(), r.Payload()[:1]); !errors.Is(err, ErrTruncatedPayload) {
		t.Errorf("expected ErrTruncatedPayload, got %v", err)
	}
}

func TestFeatureHelpers(t *testing.T) {
	v := []float32{1.0, -2.5, 3.25}
	b := Float32Bytes(v)
	if len(b) != 12 {
		t.Fatalf("encoded %d bytes, want 12", len(b))
	}
	got, err := BytesFloat32(b)
	if err != nil {
		t.Fatalf("BytesFloat32 failed: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("element %d: got %v, want %v", i, got[i], v[i])
		}
	}

	if _, err := BytesFloat32([]byte{1, 2, 3}); !errors.Is(err, ErrInvalidFeatureVector) {
		t.Errorf("expected ErrInvalidFeatureVector, got %v", err)
	}
}

func TestImageIDHelpers(t *testing.T) {
	id := ImageIDFromContent([]byte("image bytes"))
	h := Header{ImageID: id}

	parsed, err := ParseImageID(h.ImageIDHex())
	if err != nil {
		t.Fatalf("ParseImageID failed: %v", err)
	}
	if parsed != id {
		t.Errorf("parsed %x, want %x", parsed, id)
	}

	if _, err := ParseImageID("abcd"); err == nil {
		t.Errorf("expected error for short id")
	}
	if _, err := ParseImageID("zz"); err == nil {
		t.Errorf("expected error for non-hex id")
	}
}
