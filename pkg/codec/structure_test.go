package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// TestHeaderLayout pins the canonical wire layout of the header.
func TestHeaderLayout(t *testing.T) {
	h := Header{
		AlgorithmID: -2,
		X:           0x01020304,
		Y:           5,
		Width:       6,
		Height:      7,
		Label:       8,
		URLSize:     9,
		FVSize:      10,
	}
	for i := range h.ImageID {
		h.ImageID[i] = byte(i + 1)
	}

	buf, err := h.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary failed: %v", err)
	}
	if len(buf) != HeaderSize {
		t.Fatalf("header is %d bytes, want %d", len(buf), HeaderSize)
	}

	if !bytes.Equal(buf[:16], h.ImageID[:]) {
		t.Errorf("image id not at offset 0")
	}
	if got := int32(binary.LittleEndian.Uint32(buf[16:])); got != -2 {
		t.Errorf("algorithm id = %d", got)
	}
	// little-endian on the wire regardless of host order
	if !bytes.Equal(buf[20:24], []byte{0x04, 0x03, 0x02, 0x01}) {
		t.Errorf("x is not little-endian: %v", buf[20:24])
	}
	wantTail := []uint32{5, 6, 7, 8, 9, 10}
	for i, want := range wantTail {
		if got := binary.LittleEndian.Uint32(buf[24+4*i:]); got != want {
			t.Errorf("field at offset %d = %d, want %d", 24+4*i, got, want)
		}
	}

	var back Header
	if err := back.UnmarshalBinary(buf); err != nil {
		t.Fatalf("UnmarshalBinary failed: %v", err)
	}
	if back != h {
		t.Errorf("round trip mismatch: %+v != %+v", back, h)
	}
}

func TestStructureSetup(t *testing.T) {
	codec := NewRecordCodec()
	if codec == nil {
		t.Error("NewRecordCodec returned nil")
	}

	var id [16]byte
	record, err := New(id, 1, 0, 0, 10, 10, 7, "http://x/a.jpg", Float32Bytes([]float32{1, 2, 3}))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	h := record.Header()
	if h.Label != 7 || h.AlgorithmID != 1 || h.Width != 10 || h.Height != 10 {
		t.Errorf("unexpected header %+v", h)
	}

	encoded := codec.Encode(record)
	doubled := append(append([]byte{}, encoded...), encoded...)

	var seen []Header
	if err := Iterate(doubled, 0, int64(len(doubled)), func(r *Record) error {
		seen = append(seen, r.Header())
		return nil
	}); err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if len(seen) != 2 || seen[0] != h || seen[1] != h {
		t.Errorf("expected two identical headers, got %+v", seen)
	}
}
