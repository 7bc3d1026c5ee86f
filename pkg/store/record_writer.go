package store

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ssargent/utgallery/pkg/codec"
)

const defaultWriteBuffer = 64 * 1024

// RecordWriter handles append-only writes to a gallery file
type RecordWriter struct {
	file       *os.File
	writer     *bufio.Writer
	codec      *codec.RecordCodec
	scratch    []byte
	fsyncTimer *time.Timer
	config     WriterConfig
	mutex      sync.Mutex
	offset     int64 // Current write offset
}

// NewRecordWriter creates a new record writer with the given configuration
func NewRecordWriter(config WriterConfig) (*RecordWriter, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, ioError("mkdir", filepath.Dir(config.FilePath), err)
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, ioError("open", config.FilePath, err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, ioError("stat", config.FilePath, err)
	}

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultWriteBuffer
	}

	writer := &RecordWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, bufferSize),
		codec:  codec.NewRecordCodec(),
		config: config,
		offset: stat.Size(),
	}

	if config.FsyncInterval > 0 {
		writer.fsyncTimer = time.AfterFunc(config.FsyncInterval, func() {
			writer.mutex.Lock()
			defer writer.mutex.Unlock()
			_ = writer.sync()
		})
	}

	return writer, nil
}

// Append writes the encoded record and returns the offset where it starts
func (w *RecordWriter) Append(record *codec.Record) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.scratch = w.codec.AppendEncoded(w.scratch[:0], record)
	n, err := w.writer.Write(w.scratch)
	if err != nil {
		return 0, ioError("write", w.config.FilePath, err)
	}

	recordOffset := w.offset
	w.offset += int64(n)

	if w.config.FsyncInterval == 0 {
		if err := w.sync(); err != nil {
			return 0, err
		}
	} else if w.fsyncTimer != nil {
		w.fsyncTimer.Reset(w.config.FsyncInterval)
	}

	return recordOffset, nil
}

// Flush pushes buffered records to the OS without an fsync
func (w *RecordWriter) Flush() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if err := w.writer.Flush(); err != nil {
		return ioError("flush", w.config.FilePath, err)
	}
	return nil
}

// Sync forces a fsync to disk
func (w *RecordWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.sync()
}

func (w *RecordWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		return ioError("flush", w.config.FilePath, err)
	}
	if err := w.file.Sync(); err != nil {
		return ioError("fsync", w.config.FilePath, err)
	}
	return nil
}

// Close closes the writer and ensures all data is synced
func (w *RecordWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.fsyncTimer != nil {
		w.fsyncTimer.Stop()
	}

	if err := w.sync(); err != nil {
		_ = w.file.Close()
		return err
	}

	return w.file.Close()
}

// Size returns the current size of the gallery file, buffered bytes included
func (w *RecordWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.offset
}

// Path returns the file path
func (w *RecordWriter) Path() string {
	return w.config.FilePath
}

// AppendRecord appends the encoded record to the file at path, creating it
// if needed. Concurrent appenders to the same file must coordinate
// externally.
func AppendRecord(path string, record *codec.Record) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return ioError("open", path, err)
	}

	if _, err := file.Write(codec.NewRecordCodec().Encode(record)); err != nil {
		_ = file.Close()
		return ioError("write", path, err)
	}
	if err := file.Close(); err != nil {
		return ioError("close", path, err)
	}
	return nil
}
