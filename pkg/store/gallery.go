package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/index"
	"github.com/ssargent/utgallery/pkg/logging"
)

const indexOrder = 32

// Gallery is a single gallery file plus in-memory indexes over it. The file
// itself stays a plain concatenation of records, so anything that can read
// the format can read a gallery written here.
type Gallery struct {
	config   GalleryConfig
	writer   *RecordWriter
	file     *os.File // positioned reads
	hashes   *HashIndex
	fields   *index.Manager
	scanner  *Scanner
	sink     logging.Sink
	mutex    sync.RWMutex
	isOpen   bool
	openedAt time.Time
}

// OpenResult summarizes the index build performed by Open
type OpenResult struct {
	Records   int64
	FileSize  int64
	BuildTime time.Duration
}

// GalleryStats holds statistics about a gallery
type GalleryStats struct {
	Path       string    `json:"path"`
	Templates  int       `json:"templates"`
	Images     int       `json:"images"`
	Labels     int       `json:"labels"`
	Algorithms int       `json:"algorithms"`
	DataSize   int64     `json:"data_size"`
	OpenedAt   time.Time `json:"opened_at"`
}

// NewGallery creates a gallery handle. Nothing is read until Open.
func NewGallery(config GalleryConfig) (*Gallery, error) {
	if config.FilePath == "" {
		return nil, errors.New("gallery file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, ioError("mkdir", filepath.Dir(config.FilePath), err)
	}

	fields, err := index.NewManager(indexOrder)
	if err != nil {
		return nil, err
	}

	sink := config.Scanner.Sink
	if sink == nil {
		sink = logging.Discard
	}

	return &Gallery{
		config:  config,
		hashes:  NewHashIndex(),
		fields:  fields,
		scanner: NewScanner(config.Scanner),
		sink:    sink,
	}, nil
}

// Open builds the indexes with one sequential pass over the file, creating
// it if needed. A structurally invalid file fails Open; nothing is truncated
// implicitly.
func (g *Gallery) Open() (*OpenResult, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isOpen {
		return &OpenResult{Records: int64(g.hashes.Templates()), FileSize: g.writer.Size()}, nil
	}

	startTime := time.Now()
	path := g.config.FilePath

	records, size, err := g.buildIndexes()
	if err != nil {
		return nil, err
	}

	writer, err := NewRecordWriter(WriterConfig{
		FilePath:      path,
		FsyncInterval: g.config.FsyncInterval,
		BufferSize:    g.config.BufferSize,
	})
	if err != nil {
		return nil, err
	}
	if writer.Size() != size {
		_ = writer.Close()
		return nil, errors.Newf("gallery %s changed while opening (%d bytes, expected %d)", path, writer.Size(), size)
	}

	file, err := os.Open(path)
	if err != nil {
		_ = writer.Close()
		return nil, ioError("open", path, err)
	}

	g.writer = writer
	g.file = file
	g.isOpen = true
	g.openedAt = time.Now()

	result := &OpenResult{Records: records, FileSize: size, BuildTime: time.Since(startTime)}
	g.sink.Logf("opened gallery %s: %d templates, %d bytes in %s", path, records, size, result.BuildTime)
	return result, nil
}

// buildIndexes clears and repopulates both indexes from the file.
func (g *Gallery) buildIndexes() (int64, int64, error) {
	g.hashes.Clear()
	g.fields.Reset()

	reader, err := NewRecordReader(ReaderConfig{FilePath: g.config.FilePath, BufferSize: g.config.Scanner.BufferSize})
	if errors.Is(err, ErrFileNotFound) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	defer reader.Close()

	var records int64
	it := reader.Iterator()
	defer it.Close()
	for it.Next() {
		record := it.Record()
		g.index(record.Header(), it.Offset())
		record.Release()
		records++
	}
	if err := it.Err(); err != nil {
		g.hashes.Clear()
		g.fields.Reset()
		if codec.IsCorruption(err) {
			g.sink.Logf("gallery %s is corrupt: %v", g.config.FilePath, err)
			return 0, 0, errCorrupt(g.config.FilePath, err)
		}
		return 0, 0, err
	}
	return records, reader.Offset(), nil
}

func (g *Gallery) index(h codec.Header, offset int64) IndexEntry {
	entry := IndexEntry{
		Offset:      offset,
		Size:        codec.RecordSize(h),
		Label:       h.Label,
		AlgorithmID: h.AlgorithmID,
	}
	g.hashes.Add(h.ImageID, entry)
	g.fields.Insert(h, offset)
	return entry
}

// Append writes record at the end of the gallery and indexes it.
func (g *Gallery) Append(record *codec.Record) (IndexEntry, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.isOpen {
		return IndexEntry{}, ErrGalleryClosed
	}
	return g.appendLocked(record)
}

// AppendAll appends records in order. On failure the entries written so far
// are returned with the error.
func (g *Gallery) AppendAll(records []*codec.Record) ([]IndexEntry, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.isOpen {
		return nil, ErrGalleryClosed
	}
	entries := make([]IndexEntry, 0, len(records))
	for _, record := range records {
		entry, err := g.appendLocked(record)
		if err != nil {
			return entries, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (g *Gallery) appendLocked(record *codec.Record) (IndexEntry, error) {
	offset, err := g.writer.Append(record)
	if err != nil {
		return IndexEntry{}, err
	}
	return g.index(record.Header(), offset), nil
}

// Get returns every template recorded for imageID, in file order.
func (g *Gallery) Get(imageID [16]byte) ([]*codec.Record, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if !g.isOpen {
		return nil, ErrGalleryClosed
	}
	entries, ok := g.hashes.Get(imageID)
	if !ok {
		return nil, ErrNotFound
	}
	if err := g.writer.Flush(); err != nil {
		return nil, err
	}

	records := make([]*codec.Record, 0, len(entries))
	for _, entry := range entries {
		record, err := g.readAt(entry.Offset)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

// ReadAt reads the record whose header starts at offset.
func (g *Gallery) ReadAt(offset int64) (*codec.Record, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if !g.isOpen {
		return nil, ErrGalleryClosed
	}
	if err := g.writer.Flush(); err != nil {
		return nil, err
	}
	return g.readAt(offset)
}

func (g *Gallery) readAt(offset int64) (*codec.Record, error) {
	record, err := readRecordAt(g.file, offset)
	if err != nil {
		if codec.IsCorruption(err) {
			return nil, errors.Wrapf(err, "read %s", g.config.FilePath)
		}
		return nil, ioError("read", g.config.FilePath, err)
	}
	return record, nil
}

// Lookup returns the offsets of records whose indexed field lies in
// [from, to], in file order.
func (g *Gallery) Lookup(field index.Field, from, to int64) ([]int64, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if !g.isOpen {
		return nil, ErrGalleryClosed
	}
	offsets, ok := g.fields.Range(field, from, to)
	if !ok {
		return nil, errors.Wrapf(ErrNotIndexed, "field %s", field)
	}
	return offsets, nil
}

// Indexed reports whether field has a secondary index. A closed gallery
// has none.
func (g *Gallery) Indexed(field index.Field) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.isOpen && g.fields.Has(field)
}

// Scan visits every record in the gallery. Appends block until the scan
// finishes, so visit must not append to the same gallery.
func (g *Gallery) Scan(ctx context.Context, visit codec.Visitor, parallel bool) error {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if !g.isOpen {
		return ErrGalleryClosed
	}
	if err := g.writer.Flush(); err != nil {
		return err
	}
	return g.scanner.ScanFile(ctx, g.config.FilePath, visit, parallel)
}

// Verify re-reads the gallery file and reports its structural state.
func (g *Gallery) Verify(ctx context.Context) (*VerifyResult, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	if g.isOpen {
		if err := g.writer.Flush(); err != nil {
			return nil, err
		}
	}
	return VerifyFile(ctx, g.config.FilePath)
}

// Repair truncates a corrupt gallery file to its last valid boundary. The
// gallery must be closed; reopen it afterwards.
func (g *Gallery) Repair(ctx context.Context) (*RepairResult, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isOpen {
		return nil, ErrGalleryOpen
	}
	result, err := RepairFile(ctx, g.config.FilePath)
	if err != nil {
		return nil, err
	}
	if result.BytesTruncated > 0 {
		g.sink.Logf("repaired gallery %s: kept %d templates, truncated %d bytes",
			g.config.FilePath, result.RecordsKept, result.BytesTruncated)
	}
	return result, nil
}

// Stats returns gallery statistics
func (g *Gallery) Stats() *GalleryStats {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	stats := &GalleryStats{Path: g.config.FilePath}
	if !g.isOpen {
		return stats
	}

	distinct := g.fields.Distinct()
	stats.Templates = g.hashes.Templates()
	stats.Images = g.hashes.Size()
	stats.Labels = distinct[index.FieldLabel]
	stats.Algorithms = distinct[index.FieldAlgorithmID]
	stats.DataSize = g.writer.Size()
	stats.OpenedAt = g.openedAt
	return stats
}

// ImageIDs returns the hex image IDs starting with prefix.
func (g *Gallery) ImageIDs(prefix string) []string {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	if !g.isOpen {
		return nil
	}
	return g.hashes.KeysWithPrefix(prefix)
}

// Path returns the gallery file path
func (g *Gallery) Path() string {
	return g.config.FilePath
}

// IsOpen reports whether the gallery is open
func (g *Gallery) IsOpen() bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return g.isOpen
}

// Close flushes pending appends and releases the file handles
func (g *Gallery) Close() error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if !g.isOpen {
		return nil
	}
	g.isOpen = false

	// Close writer first (ensures all data is flushed)
	if err := g.writer.Close(); err != nil {
		_ = g.file.Close()
		return err
	}
	if err := g.file.Close(); err != nil {
		return ioError("close", g.config.FilePath, err)
	}
	return nil
}
