package store

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/utgallery/pkg/codec"
)

// RecordReader provides sequential access to records in a gallery stream.
// It reads one header at a time and then exactly the payload that header
// declares, so it never needs the whole file in memory.
type RecordReader struct {
	file   *os.File // nil when reading from a caller-supplied stream
	reader *bufio.Reader
	offset int64
	limit  int64 // file size when known, -1 for streams
	config ReaderConfig
}

// NewRecordReader opens the gallery file named in config
func NewRecordReader(config ReaderConfig) (*RecordReader, error) {
	file, err := os.Open(config.FilePath)
	if err != nil {
		return nil, ioError("open", config.FilePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, ioError("stat", config.FilePath, err)
	}

	if config.StartOffset > 0 {
		if _, err := file.Seek(config.StartOffset, io.SeekStart); err != nil {
			file.Close()
			return nil, ioError("seek", config.FilePath, err)
		}
	}

	return &RecordReader{
		file:   file,
		reader: newBufReader(file, config.BufferSize),
		offset: config.StartOffset,
		limit:  stat.Size(),
		config: config,
	}, nil
}

// NewStreamReader reads records from r. Offsets start at zero.
func NewStreamReader(r io.Reader, bufferSize int) *RecordReader {
	return &RecordReader{reader: newBufReader(r, bufferSize), limit: -1}
}

func newBufReader(r io.Reader, size int) *bufio.Reader {
	if size > 0 {
		return bufio.NewReaderSize(r, size)
	}
	return bufio.NewReader(r)
}

// ReadNext reads the record at the current offset. It returns io.EOF only
// when the stream ends exactly on a record boundary. The returned record owns
// its payload.
func (r *RecordReader) ReadNext() (*codec.Record, error) {
	start := r.offset

	var hdr [codec.HeaderSize]byte
	n, err := io.ReadFull(r.reader, hdr[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return nil, &codec.OffsetError{
				Offset: start,
				Err:    errors.Wrapf(codec.ErrTruncatedHeader, "need %d bytes, have %d", codec.HeaderSize, n),
			}
		}
		return nil, ioError("read", r.name(), err)
	}

	header, err := codec.DecodeHeader(hdr[:])
	if err != nil {
		return nil, &codec.OffsetError{Offset: start, Err: err}
	}

	// Refuse to allocate for a payload the file cannot contain.
	if r.limit >= 0 && start+codec.RecordSize(header) > r.limit {
		return nil, &codec.OffsetError{
			Offset: start,
			Err:    errors.Wrapf(codec.ErrTruncatedPayload, "need %d payload bytes, have %d", header.PayloadSize(), r.limit-start-codec.HeaderSize),
		}
	}

	payload, err := r.readPayload(header.PayloadSize())
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &codec.OffsetError{
				Offset: start,
				Err:    errors.Wrapf(codec.ErrTruncatedPayload, "need %d payload bytes, have %d", header.PayloadSize(), len(payload)),
			}
		}
		return nil, ioError("read", r.name(), err)
	}
	r.offset += codec.RecordSize(header)

	return codec.FromHeader(header, payload)
}

// streamChunk bounds how far a stream payload buffer runs ahead of the bytes
// actually read.
const streamChunk = 1 << 20

// readPayload reads exactly size bytes. File sizes were checked against the
// header already, so files get one exact allocation. Streams grow the buffer
// as data arrives, so a corrupt header cannot force a huge allocation. On a
// short read the bytes received so far are returned with the error.
func (r *RecordReader) readPayload(size int64) ([]byte, error) {
	if r.limit >= 0 || size <= streamChunk {
		payload := make([]byte, size)
		n, err := io.ReadFull(r.reader, payload)
		return payload[:n], err
	}

	var buf bytes.Buffer
	buf.Grow(streamChunk)
	n, err := io.CopyN(&buf, r.reader, size)
	if err == io.EOF && n < size {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return buf.Bytes(), err
	}
	return buf.Bytes()[:size:size], nil
}

// ReadAt reads a single record at a specific offset without disturbing the
// sequential position.
func (r *RecordReader) ReadAt(offset int64) (*codec.Record, error) {
	if r.file == nil {
		return nil, errors.New("ReadAt requires a file-backed reader")
	}
	return readRecordAt(r.file, offset)
}

// readRecordAt reads one record from ra at offset using two positioned reads.
func readRecordAt(ra io.ReaderAt, offset int64) (*codec.Record, error) {
	var hdr [codec.HeaderSize]byte
	n, err := ra.ReadAt(hdr[:], offset)
	if n < codec.HeaderSize {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, &codec.OffsetError{
			Offset: offset,
			Err:    errors.Wrapf(codec.ErrTruncatedHeader, "need %d bytes, have %d", codec.HeaderSize, n),
		}
	}

	header, err := codec.DecodeHeader(hdr[:])
	if err != nil {
		return nil, &codec.OffsetError{Offset: offset, Err: err}
	}

	payload := make([]byte, header.PayloadSize())
	m, err := ra.ReadAt(payload, offset+codec.HeaderSize)
	if m < len(payload) {
		if err != nil && err != io.EOF {
			return nil, err
		}
		return nil, &codec.OffsetError{
			Offset: offset,
			Err:    errors.Wrapf(codec.ErrTruncatedPayload, "need %d payload bytes, have %d", len(payload), m),
		}
	}

	return codec.FromHeader(header, payload)
}

// Seek sets the read offset
func (r *RecordReader) Seek(offset int64) error {
	if r.file == nil {
		return errors.New("Seek requires a file-backed reader")
	}
	if _, err := r.file.Seek(offset, io.SeekStart); err != nil {
		return ioError("seek", r.name(), err)
	}

	// The file may have grown since it was opened.
	if stat, err := r.file.Stat(); err == nil {
		r.limit = stat.Size()
	}

	r.reader.Reset(r.file)
	r.offset = offset
	return nil
}

// Offset returns the offset of the next record boundary
func (r *RecordReader) Offset() int64 {
	return r.offset
}

// Iterator returns a streaming iterator for records
func (r *RecordReader) Iterator() RecordIterator {
	return &recordIterator{reader: r}
}

// Close closes the underlying file, if the reader opened one
func (r *RecordReader) Close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

func (r *RecordReader) name() string {
	if r.config.FilePath != "" {
		return r.config.FilePath
	}
	return "stream"
}

// recordIterator implements RecordIterator for streaming access
type recordIterator struct {
	reader *RecordReader
	record *codec.Record
	offset int64
	err    error
}

func (it *recordIterator) Next() bool {
	if it.err != nil {
		return false
	}
	it.offset = it.reader.Offset()
	it.record, it.err = it.reader.ReadNext()
	return it.err == nil
}

func (it *recordIterator) Record() *codec.Record {
	return it.record
}

// Offset returns the start offset of the current record
func (it *recordIterator) Offset() int64 {
	return it.offset
}

// Err returns the error that stopped iteration, or nil at a clean end of stream.
func (it *recordIterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

func (it *recordIterator) Close() error {
	// Don't close the underlying reader as it's owned by the caller
	return nil
}
