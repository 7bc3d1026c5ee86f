// Package codec provides the universal template record format for utgallery.
//
// A universal template is a flat, self-describing record used to exchange
// feature vectors, together with their provenance, between components that
// otherwise share nothing. Galleries are plain concatenations of records;
// this package is the foundation the file scanner and gallery store build on.
//
// # Record Format
//
// Records are serialized as a fixed 48-byte header followed by a variable
// payload:
//
//	[ImageID(16)][AlgorithmID(4)][X(4)][Y(4)][Width(4)][Height(4)][Label(4)][URLSize(4)][FVSize(4)][URL][FV]
//
// Fields:
//   - ImageID: MD5 of the undecoded source image, opaque to the codec
//   - AlgorithmID: signed 32-bit tag saying how to read the feature vector
//   - X, Y, Width, Height: region of interest in pixels
//   - Label: training class or annotated ground truth
//   - URLSize: length of the NUL-terminated URL, terminator included
//   - FVSize: length of the feature vector
//
// All integers are little-endian and there is no padding, so the layout is
// identical on every platform. The total record size is
//
//	48 + URLSize + FVSize
//
// and can be computed from the header alone. There is no magic number,
// length prefix, delimiter or checksum: record boundaries are recovered only
// by decoding one header after another.
//
// # Usage
//
//	rec, err := codec.New(imageID, 1, 0, 0, 10, 10, 7, "http://x/a.jpg",
//	    codec.Float32Bytes([]float32{1, 2, 3}))
//	if err != nil {
//	    return err
//	}
//
//	c := codec.NewRecordCodec()
//	encoded := c.Encode(rec)
//
//	decoded, n, err := c.Decode(encoded, 0)
//
// Walking a buffer of concatenated records:
//
//	err := codec.Iterate(buf, 0, int64(len(buf)), func(r *codec.Record) error {
//	    fmt.Println(r.Header().Label, r.URL())
//	    return nil
//	})
//
// # Error Handling
//
// Structural problems are reported as ErrTruncatedHeader, ErrTruncatedPayload
// or ErrMisalignedRegion wrapped in an *OffsetError that carries the offset of
// the record boundary where the problem was found. Corruption is never
// skipped and traversal never tries to resynchronize.
//
// # Thread Safety
//
// RecordCodec holds no state and is safe for concurrent use. Records are
// immutable after construction. Records produced by Decode and handed to a
// Visitor alias the caller's buffer.
package codec
