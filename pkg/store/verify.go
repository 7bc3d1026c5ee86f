package store

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/utgallery/pkg/codec"
)

// VerifyResult describes the structural state of a gallery file
type VerifyResult struct {
	Path             string        `json:"path"`
	Records          int64         `json:"records"`
	FileSize         int64         `json:"file_size"`
	ValidBytes       int64         `json:"valid_bytes"` // Offset of the last good record boundary
	Corrupt          bool          `json:"corrupt"`
	CorruptionOffset int64         `json:"corruption_offset,omitempty"`
	Error            string        `json:"error,omitempty"`
	Duration         time.Duration `json:"duration"`
}

// RepairResult describes a truncation performed by RepairFile
type RepairResult struct {
	RecordsKept    int64 `json:"records_kept"`
	FileSizeBefore int64 `json:"file_size_before"`
	FileSizeAfter  int64 `json:"file_size_after"`
	BytesTruncated int64 `json:"bytes_truncated"`
}

// VerifyFile walks the gallery at path and reports where, if anywhere, it
// stops being a clean sequence of records. Structural corruption is part of
// the result; only I/O failures are returned as errors.
func VerifyFile(ctx context.Context, path string) (*VerifyResult, error) {
	startTime := time.Now()

	reader, err := NewRecordReader(ReaderConfig{FilePath: path})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	result := &VerifyResult{Path: path, FileSize: reader.limit}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			if !codec.IsCorruption(err) {
				return nil, err
			}
			result.Corrupt = true
			result.CorruptionOffset, _ = codec.ErrorOffset(err)
			result.Error = err.Error()
			break
		}
		record.Release()
		result.Records++
	}

	result.ValidBytes = reader.Offset()
	result.Duration = time.Since(startTime)
	return result, nil
}

// RepairFile truncates the gallery at path to its last valid record boundary.
// A clean file is left untouched. Nothing is ever resynchronized: every byte
// after the first corrupt record is discarded.
func RepairFile(ctx context.Context, path string) (*RepairResult, error) {
	verified, err := VerifyFile(ctx, path)
	if err != nil {
		return nil, err
	}

	result := &RepairResult{
		RecordsKept:    verified.Records,
		FileSizeBefore: verified.FileSize,
		FileSizeAfter:  verified.FileSize,
	}
	if !verified.Corrupt {
		return result, nil
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	if err := file.Truncate(verified.ValidBytes); err != nil {
		_ = file.Close()
		return nil, ioError("truncate", path, err)
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return nil, ioError("fsync", path, err)
	}
	if err := file.Close(); err != nil {
		return nil, ioError("close", path, err)
	}

	result.FileSizeAfter = verified.ValidBytes
	result.BytesTruncated = verified.FileSize - verified.ValidBytes
	return result, nil
}

// errCorrupt annotates a structural error found while opening a gallery.
func errCorrupt(path string, err error) error {
	return errors.WithHintf(errors.Wrapf(err, "open gallery %s", path),
		"run repair to truncate %s to its last valid record", path)
}
