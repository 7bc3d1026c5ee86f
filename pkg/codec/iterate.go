package codec

import (
	"github.com/cockroachdb/errors"
)

// Visitor is called once per record during traversal. The record aliases the
// traversal buffer and is only valid for the duration of the call; use Clone
// to keep it. Return ErrStop to end traversal early.
type Visitor func(r *Record) error

// Span locates one record inside a buffer or file.
type Span struct {
	Offset int64
	Size   int64
}

// End returns the offset just past the record.
func (s Span) End() int64 {
	return s.Offset + s.Size
}

// Iterate walks the records in buf[begin:end) in order, calling visit for
// each one. A record that would extend past end fails with
// ErrMisalignedRegion before it is visited.
func Iterate(buf []byte, begin, end int64, visit Visitor) error {
	return walk(buf, begin, end, func(r *Record, _ Span) error {
		return visit(r)
	})
}

// Locate performs the boundary-location pass over buf[begin:end) and returns
// the span of every record. No record is visited; the first structural error
// aborts the pass.
func Locate(buf []byte, begin, end int64) ([]Span, error) {
	var spans []Span
	err := walk(buf, begin, end, func(_ *Record, s Span) error {
		spans = append(spans, s)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return spans, nil
}

func walk(buf []byte, begin, end int64, fn func(*Record, Span) error) error {
	if begin < 0 || end < begin || end > int64(len(buf)) {
		return &OffsetError{
			Offset: begin,
			Err:    errors.Wrapf(ErrMisalignedRegion, "region [%d,%d) outside %d-byte buffer", begin, end, len(buf)),
		}
	}

	codec := NewRecordCodec()
	cursor := begin
	for cursor < end {
		if end-cursor < HeaderSize && int64(len(buf))-cursor >= HeaderSize {
			return &OffsetError{
				Offset: cursor,
				Err:    errors.Wrapf(ErrMisalignedRegion, "header needs %d bytes, region has %d", HeaderSize, end-cursor),
			}
		}

		record, n, err := codec.Decode(buf, cursor)
		if err != nil {
			return err
		}
		if cursor+n > end {
			return &OffsetError{
				Offset: cursor,
				Err:    errors.Wrapf(ErrMisalignedRegion, "record of %d bytes ends %d bytes past region end", n, cursor+n-end),
			}
		}

		if err := fn(record, Span{Offset: cursor, Size: n}); err != nil {
			if errors.Is(err, ErrStop) {
				return nil
			}
			return err
		}
		cursor += n
	}
	return nil
}
