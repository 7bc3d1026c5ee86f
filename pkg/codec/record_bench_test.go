//go:build bench
// +build bench

package codec

import (
	"bytes"
	"testing"
)

func BenchmarkRecordCodec_Encode(b *testing.B) {
	codec := NewRecordCodec()

	benchmarks := []struct {
		name string
		fv   []byte
	}{
		{name: "small", fv: bytes.Repeat([]byte("v"), 16)},
		{name: "medium", fv: bytes.Repeat([]byte("v"), 2048)},
		{name: "large", fv: bytes.Repeat([]byte("v"), 64*1024)},
	}

	for _, bm := range benchmarks {
		r := mustNew(b, 1, "http://example.com/image.jpg", bm.fv)
		b.Run(bm.name, func(b *testing.B) {
			b.SetBytes(r.Size())
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = codec.Encode(r)
			}
		})
	}
}

func BenchmarkRecordCodec_Decode(b *testing.B) {
	codec := NewRecordCodec()
	encoded := codec.Encode(mustNew(b, 1, "http://example.com/image.jpg", bytes.Repeat([]byte("v"), 2048)))

	b.SetBytes(int64(len(encoded)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := codec.Decode(encoded, 0); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIterate(b *testing.B) {
	codec := NewRecordCodec()
	var buf []byte
	for i := 0; i < 1000; i++ {
		buf = codec.AppendEncoded(buf, mustNew(b, uint32(i), "http://example.com/image.jpg", bytes.Repeat([]byte("v"), 512)))
	}

	b.SetBytes(int64(len(buf)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := Iterate(buf, 0, int64(len(buf)), func(*Record) error { return nil }); err != nil {
			b.Fatal(err)
		}
	}
}
