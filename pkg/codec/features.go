package codec

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"math"

	"github.com/cockroachdb/errors"
)

// Float32Bytes encodes a float32 vector as little-endian bytes, the usual
// feature-vector layout for AlgorithmID values that describe dense vectors.
func Float32Bytes(v []float32) []byte {
	out := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[4*i:], math.Float32bits(f))
	}
	return out
}

// BytesFloat32 decodes a little-endian float32 feature vector.
func BytesFloat32(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidFeatureVector, "%d bytes", len(b))
	}
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return out, nil
}

// ImageIDFromContent returns the MD5 of an undecoded source image.
func ImageIDFromContent(content []byte) [16]byte {
	return md5.Sum(content)
}

// ParseImageID parses a 32-character hex image ID.
func ParseImageID(s string) ([16]byte, error) {
	var id [16]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, errors.Wrapf(err, "parse image id %q", s)
	}
	if len(b) != len(id) {
		return id, errors.Newf("image id %q is %d bytes, want 16", s, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// ImageIDHex returns the image ID as lowercase hex.
func (h Header) ImageIDHex() string {
	return hex.EncodeToString(h.ImageID[:])
}
