package codec

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"

	"github.com/cockroachdb/errors"
)

// HeaderSize is the encoded size of a Header in bytes.
// Layout: [ImageID(16)][AlgorithmID(4)][X(4)][Y(4)][Width(4)][Height(4)][Label(4)][URLSize(4)][FVSize(4)]
const HeaderSize = 48

const (
	offImageID     = 0
	offAlgorithmID = 16
	offX           = 20
	offY           = 24
	offWidth       = 28
	offHeight      = 32
	offLabel       = 36
	offURLSize     = 40
	offFVSize      = 44
)

// Header holds the fixed-width fields at the front of every record
type Header struct {
	ImageID     [16]byte // MD5 of the undecoded source image
	AlgorithmID int32    // How to interpret the feature vector
	X           uint32   // Region of interest horizontal offset (pixels)
	Y           uint32   // Region of interest vertical offset (pixels)
	Width       uint32   // Region of interest horizontal size (pixels)
	Height      uint32   // Region of interest vertical size (pixels)
	Label       uint32   // Training class or annotated ground truth
	URLSize     uint32   // Length of the NUL-terminated URL, terminator included
	FVSize      uint32   // Length of the feature vector after the URL
}

// RecordSize returns the total encoded size of the record described by h.
// It never looks at payload bytes.
func RecordSize(h Header) int64 {
	return HeaderSize + int64(h.URLSize) + int64(h.FVSize)
}

// PayloadSize returns URLSize + FVSize without overflowing.
func (h Header) PayloadSize() int64 {
	return int64(h.URLSize) + int64(h.FVSize)
}

// PutHeader writes h into dst in canonical order. dst must hold HeaderSize bytes.
func PutHeader(dst []byte, h Header) {
	_ = dst[HeaderSize-1]
	copy(dst[offImageID:offAlgorithmID], h.ImageID[:])
	binary.LittleEndian.PutUint32(dst[offAlgorithmID:], uint32(h.AlgorithmID))
	binary.LittleEndian.PutUint32(dst[offX:], h.X)
	binary.LittleEndian.PutUint32(dst[offY:], h.Y)
	binary.LittleEndian.PutUint32(dst[offWidth:], h.Width)
	binary.LittleEndian.PutUint32(dst[offHeight:], h.Height)
	binary.LittleEndian.PutUint32(dst[offLabel:], h.Label)
	binary.LittleEndian.PutUint32(dst[offURLSize:], h.URLSize)
	binary.LittleEndian.PutUint32(dst[offFVSize:], h.FVSize)
}

// DecodeHeader parses a header from the first HeaderSize bytes of b.
func DecodeHeader(b []byte) (Header, error) {
	var h Header
	if len(b) < HeaderSize {
		return h, errors.Wrapf(ErrTruncatedHeader, "have %d of %d header bytes", len(b), HeaderSize)
	}
	copy(h.ImageID[:], b[offImageID:offAlgorithmID])
	h.AlgorithmID = int32(binary.LittleEndian.Uint32(b[offAlgorithmID:]))
	h.X = binary.LittleEndian.Uint32(b[offX:])
	h.Y = binary.LittleEndian.Uint32(b[offY:])
	h.Width = binary.LittleEndian.Uint32(b[offWidth:])
	h.Height = binary.LittleEndian.Uint32(b[offHeight:])
	h.Label = binary.LittleEndian.Uint32(b[offLabel:])
	h.URLSize = binary.LittleEndian.Uint32(b[offURLSize:])
	h.FVSize = binary.LittleEndian.Uint32(b[offFVSize:])
	return h, nil
}

// MarshalBinary implements encoding.BinaryMarshaler for the header alone.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	PutHeader(buf, h)
	return buf, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for the header alone.
func (h *Header) UnmarshalBinary(b []byte) error {
	decoded, err := DecodeHeader(b)
	if err != nil {
		return err
	}
	*h = decoded
	return nil
}

// Record is a universal template: a fixed header plus URLSize+FVSize payload bytes.
// A record is never mutated after construction.
type Record struct {
	header Header
	data   []byte // URL segment followed by feature-vector segment
}

// New builds an exclusively owned record. The URL is stored NUL-terminated,
// so an empty url yields URLSize 1.
func New(imageID [16]byte, algorithmID int32, x, y, width, height, label uint32, url string, fv []byte) (*Record, error) {
	if strings.IndexByte(url, 0) >= 0 {
		return nil, ErrURLContainsNUL
	}
	urlSize := uint64(len(url)) + 1
	fvSize := uint64(len(fv))
	if urlSize > math.MaxUint32 || fvSize > math.MaxUint32 {
		return nil, errors.Wrapf(ErrRecordTooLarge, "url %d bytes, feature vector %d bytes", len(url), len(fv))
	}

	data := make([]byte, urlSize+fvSize)
	copy(data, url)
	// data[len(url)] is already the NUL terminator
	copy(data[urlSize:], fv)

	return &Record{
		header: Header{
			ImageID:     imageID,
			AlgorithmID: algorithmID,
			X:           x,
			Y:           y,
			Width:       width,
			Height:      height,
			Label:       label,
			URLSize:     uint32(urlSize),
			FVSize:      uint32(fvSize),
		},
		data: data,
	}, nil
}

// FromHeader pairs a header with its payload, validating the payload length.
// The payload is not copied.
func FromHeader(h Header, payload []byte) (*Record, error) {
	if int64(len(payload)) != h.PayloadSize() {
		return nil, errors.Wrapf(ErrTruncatedPayload, "payload is %d bytes, header declares %d", len(payload), h.PayloadSize())
	}
	return &Record{header: h, data: payload}, nil
}

// Release drops the record's payload. The record must not be used afterwards.
func (r *Record) Release() {
	r.data = nil
	r.header = Header{}
}

// Clone returns a record that owns a private copy of its payload. Use it to
// keep a record handed to a Visitor beyond the callback.
func (r *Record) Clone() *Record {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &Record{header: r.header, data: data}
}

// Header returns the record header by value.
func (r *Record) Header() Header {
	return r.header
}

// Size returns the total size of the record when encoded
func (r *Record) Size() int64 {
	return RecordSize(r.header)
}

// Payload returns the URL and feature-vector bytes. The slice must not be modified.
func (r *Record) Payload() []byte {
	return r.data
}

// URLBytes returns the raw URL segment including its terminator.
func (r *Record) URLBytes() []byte {
	return r.data[:r.header.URLSize]
}

// URL returns the URL up to its NUL terminator.
func (r *Record) URL() string {
	seg := r.URLBytes()
	if i := bytes.IndexByte(seg, 0); i >= 0 {
		seg = seg[:i]
	}
	return string(seg)
}

// FeatureVector returns the feature-vector segment. The slice must not be modified.
func (r *Record) FeatureVector() []byte {
	return r.data[r.header.URLSize:]
}

// RecordCodec handles serialization and deserialization of records
type RecordCodec struct{}

// NewRecordCodec creates a new record codec instance
func NewRecordCodec() *RecordCodec {
	return &RecordCodec{}
}

// Encode returns the exact on-wire bytes of r: header then payload, no framing.
func (c *RecordCodec) Encode(r *Record) []byte {
	return c.AppendEncoded(make([]byte, 0, r.Size()), r)
}

// AppendEncoded appends the encoded form of r to dst.
func (c *RecordCodec) AppendEncoded(dst []byte, r *Record) []byte {
	var hdr [HeaderSize]byte
	PutHeader(hdr[:], r.header)
	dst = append(dst, hdr[:]...)
	return append(dst, r.data...)
}

// Decode reads the record starting at offset. The returned record aliases buf.
// The second result is the number of bytes consumed, which is RecordSize of
// the decoded header.
func (c *RecordCodec) Decode(buf []byte, offset int64) (*Record, int64, error) {
	if offset < 0 || offset > int64(len(buf)) {
		return nil, 0, &OffsetError{Offset: offset, Err: errors.Wrapf(ErrTruncatedHeader, "offset outside %d-byte buffer", len(buf))}
	}
	remaining := int64(len(buf)) - offset
	if remaining < HeaderSize {
		return nil, 0, &OffsetError{
			Offset: offset,
			Err:    errors.Wrapf(ErrTruncatedHeader, "need %d bytes, have %d", HeaderSize, remaining),
		}
	}

	h, err := DecodeHeader(buf[offset : offset+HeaderSize])
	if err != nil {
		return nil, 0, &OffsetError{Offset: offset, Err: err}
	}

	size := RecordSize(h)
	if remaining < size {
		return nil, 0, &OffsetError{
			Offset: offset,
			Err:    errors.Wrapf(ErrTruncatedPayload, "need %d payload bytes, have %d", h.PayloadSize(), remaining-HeaderSize),
		}
	}

	start := offset + HeaderSize
	end := offset + size
	return &Record{header: h, data: buf[start:end:end]}, size, nil
}
