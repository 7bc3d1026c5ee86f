package store

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/logging"
)

// IndexEntry represents the location of a template in a gallery file
type IndexEntry struct {
	Offset      int64  `json:"offset"` // Byte offset of the record header
	Size        int64  `json:"size"`   // Total encoded size of the record
	Label       uint32 `json:"label"`  // Copied from the header for index-only queries
	AlgorithmID int32  `json:"algorithm_id"`
}

// Span converts the entry to a codec span.
func (e IndexEntry) Span() codec.Span {
	return codec.Span{Offset: e.Offset, Size: e.Size}
}

// WriterConfig holds configuration for the record writer
type WriterConfig struct {
	FilePath      string        // Path to the gallery file
	FsyncInterval time.Duration // How often to fsync (0 = every write, negative = only on Close)
	BufferSize    int           // Write buffer size
}

// ReaderConfig holds configuration for the record reader
type ReaderConfig struct {
	FilePath    string // Path to the gallery file
	StartOffset int64  // Offset to start reading from
	BufferSize  int    // Read buffer size, 0 for the bufio default
}

// ScannerConfig holds configuration for file scans
type ScannerConfig struct {
	Workers    int          // Parallel-mode worker bound, defaults to GOMAXPROCS
	Streaming  bool         // Sequential scans read incrementally instead of loading the file
	BufferSize int          // Read buffer for streaming scans
	Sink       logging.Sink // Receives progress messages, may be nil
}

// GalleryConfig holds configuration for a gallery
type GalleryConfig struct {
	FilePath      string        // Gallery file, created on first append
	FsyncInterval time.Duration // Fsync interval for durability
	BufferSize    int           // Write buffer size
	Scanner       ScannerConfig
}

// RecordIterator provides streaming access to records
type RecordIterator interface {
	Next() bool
	Record() *codec.Record
	Offset() int64
	Err() error
	Close() error
}

// Errors
var (
	ErrFileNotFound  = errors.New("gallery file not found")
	ErrIO            = errors.New("gallery i/o error")
	ErrGalleryClosed = errors.New("gallery is not open")
	ErrGalleryOpen   = errors.New("gallery is open")
	ErrNotFound      = errors.New("template not found")
	ErrNotIndexed    = errors.New("field is not indexed")
	ErrInvalidName   = errors.New("invalid gallery name")
	ErrNoGallery     = errors.New("gallery does not exist")
)
