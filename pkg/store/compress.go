package store

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/ssargent/utgallery/pkg/codec"
)

// CompressResult describes a compression run
type CompressResult struct {
	Records  int64 `json:"records"`
	BytesIn  int64 `json:"bytes_in"`
	BytesOut int64 `json:"bytes_out"`
}

// CompressFile writes a zstd-compressed copy of the gallery at src to dst.
// The source is validated record by record while it streams, so a corrupt
// gallery never produces a compressed copy.
func CompressFile(ctx context.Context, src, dst string, level int) (*CompressResult, error) {
	reader, err := NewRecordReader(ReaderConfig{FilePath: src})
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, ioError("create", dst, err)
	}

	encoderLevel := zstd.SpeedDefault
	if level > 0 {
		encoderLevel = zstd.EncoderLevelFromZstd(level)
	}
	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(encoderLevel))
	if err != nil {
		_ = out.Close()
		return nil, errors.Wrap(err, "create zstd encoder")
	}

	result := &CompressResult{}
	c := codec.NewRecordCodec()
	var scratch []byte
	failed := func(err error) (*CompressResult, error) {
		_ = enc.Close()
		_ = out.Close()
		_ = os.Remove(dst)
		return nil, err
	}

	for {
		if err := ctx.Err(); err != nil {
			return failed(err)
		}
		record, err := reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return failed(errors.Wrapf(err, "compress %s", src))
		}
		scratch = c.AppendEncoded(scratch[:0], record)
		if _, err := enc.Write(scratch); err != nil {
			return failed(ioError("write", dst, err))
		}
		result.Records++
		result.BytesIn += int64(len(scratch))
	}

	if err := enc.Close(); err != nil {
		_ = out.Close()
		return nil, ioError("write", dst, err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return nil, ioError("fsync", dst, err)
	}
	stat, err := out.Stat()
	if err != nil {
		_ = out.Close()
		return nil, ioError("stat", dst, err)
	}
	result.BytesOut = stat.Size()

	if err := out.Close(); err != nil {
		return nil, ioError("close", dst, err)
	}
	return result, nil
}

// compressedReader closes both the decoder and the file.
type compressedReader struct {
	dec  *zstd.Decoder
	file *os.File
}

func (r *compressedReader) Read(p []byte) (int, error) {
	return r.dec.Read(p)
}

func (r *compressedReader) Close() error {
	r.dec.Close()
	return r.file.Close()
}

// OpenCompressed opens a zstd-compressed gallery for streaming reads.
func OpenCompressed(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, ioError("open", path, err)
	}
	dec, err := zstd.NewReader(bufio.NewReader(file))
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "open zstd stream %s", path)
	}
	return &compressedReader{dec: dec, file: file}, nil
}

// ScanCompressedFile visits every record of a zstd-compressed gallery in order.
func (s *Scanner) ScanCompressedFile(ctx context.Context, path string, visit codec.Visitor) error {
	rc, err := OpenCompressed(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	if err := s.ScanReader(ctx, rc, visit); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// DecompressFile restores a plain gallery from a zstd-compressed one. The
// output is built in a temporary file next to dst and renamed over dst only
// once the whole source has decoded, so a corrupt source leaves dst as it was.
func DecompressFile(ctx context.Context, src, dst string) (*CompressResult, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return nil, ioError("create", dst, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, ioError("close", tmpPath, err)
	}
	failed := func(err error) (*CompressResult, error) {
		_ = os.Remove(tmpPath)
		return nil, err
	}

	writer, err := NewRecordWriter(WriterConfig{FilePath: tmpPath, FsyncInterval: -1})
	if err != nil {
		return failed(err)
	}

	result := &CompressResult{}
	scanner := NewScanner(ScannerConfig{})
	err = scanner.ScanCompressedFile(ctx, src, func(r *codec.Record) error {
		if _, err := writer.Append(r); err != nil {
			return err
		}
		result.Records++
		result.BytesOut += r.Size()
		return nil
	})
	if closeErr := writer.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return failed(err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return failed(ioError("rename", dst, err))
	}
	if stat, err := os.Stat(src); err == nil {
		result.BytesIn = stat.Size()
	}
	return result, nil
}
