package codec

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	// ErrTruncatedHeader means fewer than HeaderSize bytes remain at a record boundary.
	ErrTruncatedHeader = errors.New("truncated record header")
	// ErrTruncatedPayload means the header declares more payload than remains.
	ErrTruncatedPayload = errors.New("truncated record payload")
	// ErrMisalignedRegion means a record extends past the end of an iteration region.
	ErrMisalignedRegion = errors.New("record crosses region boundary")
	// ErrURLContainsNUL rejects URLs that could not be read back through their terminator.
	ErrURLContainsNUL = errors.New("url contains NUL byte")
	// ErrRecordTooLarge means a payload segment does not fit in 32 bits.
	ErrRecordTooLarge = errors.New("record segment exceeds 32-bit size")
	// ErrInvalidFeatureVector is returned when a feature vector cannot be read as float32s.
	ErrInvalidFeatureVector = errors.New("feature vector length is not a multiple of 4")

	// ErrStop may be returned by a Visitor to end traversal early without error.
	ErrStop = errors.New("stop iteration")
)

// OffsetError attributes a structural error to the byte offset of the record
// boundary where it was detected.
type OffsetError struct {
	Offset int64
	Err    error
}

func (e *OffsetError) Error() string {
	return fmt.Sprintf("offset %d: %v", e.Offset, e.Err)
}

func (e *OffsetError) Unwrap() error {
	return e.Err
}

// IsCorruption reports whether err is one of the structural format errors.
func IsCorruption(err error) bool {
	return errors.Is(err, ErrTruncatedHeader) ||
		errors.Is(err, ErrTruncatedPayload) ||
		errors.Is(err, ErrMisalignedRegion)
}

// ErrorOffset extracts the offset from an OffsetError anywhere in err's chain.
func ErrorOffset(err error) (int64, bool) {
	var oe *OffsetError
	if errors.As(err, &oe) {
		return oe.Offset, true
	}
	return 0, false
}
