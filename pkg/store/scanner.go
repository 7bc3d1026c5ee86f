package store

import (
	"context"
	"io"
	"os"
	"runtime"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/logging"
	"golang.org/x/sync/errgroup"
)

// Scanner walks gallery files: back-to-back records with no global header,
// no record count and no index. Boundaries are found only by decoding each
// header in turn.
type Scanner struct {
	config ScannerConfig
	codec  *codec.RecordCodec
	sink   logging.Sink
}

// NewScanner creates a scanner. Workers defaults to GOMAXPROCS.
func NewScanner(config ScannerConfig) *Scanner {
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	sink := config.Sink
	if sink == nil {
		sink = logging.Discard
	}
	return &Scanner{
		config: config,
		codec:  codec.NewRecordCodec(),
		sink:   sink,
	}
}

// Workers returns the parallel-mode worker bound.
func (s *Scanner) Workers() int {
	return s.config.Workers
}

// ScanFile visits every record in the file at path.
//
// Sequential scans visit records strictly in file order; records before a
// corrupt one are still visited. Parallel scans first locate every record
// boundary, and only when the whole file is structurally valid dispatch
// visitor calls across the worker pool, in no particular order. The visitor
// must then be safe for concurrent use.
//
// Returning codec.ErrStop from visit ends the scan without error. In parallel
// mode calls already dispatched still complete.
func (s *Scanner) ScanFile(ctx context.Context, path string, visit codec.Visitor, parallel bool) error {
	if parallel {
		return s.scanParallel(ctx, path, visit)
	}
	if s.config.Streaming {
		return s.scanStreaming(ctx, path, visit)
	}
	return s.scanBuffered(ctx, path, visit)
}

func (s *Scanner) scanBuffered(ctx context.Context, path string, visit codec.Visitor) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ioError("read", path, err)
	}

	var visited int
	err = codec.Iterate(data, 0, int64(len(data)), func(r *codec.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		visited++
		return visit(r)
	})
	if err != nil {
		s.sink.Logf("scan %s stopped after %d templates: %v", path, visited, err)
		return errors.Wrapf(err, "scan %s", path)
	}

	s.sink.Logf("scanned %d templates (%d bytes) from %s", visited, len(data), path)
	return nil
}

func (s *Scanner) scanStreaming(ctx context.Context, path string, visit codec.Visitor) error {
	reader, err := NewRecordReader(ReaderConfig{FilePath: path, BufferSize: s.config.BufferSize})
	if err != nil {
		return err
	}
	defer reader.Close()

	if err := s.scan(ctx, reader, path, visit); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}

// ScanReader visits every record read from r, in order.
func (s *Scanner) ScanReader(ctx context.Context, r io.Reader, visit codec.Visitor) error {
	return s.scan(ctx, NewStreamReader(r, s.config.BufferSize), "stream", visit)
}

func (s *Scanner) scan(ctx context.Context, reader *RecordReader, name string, visit codec.Visitor) error {
	var visited int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := reader.ReadNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			s.sink.Logf("scan %s stopped after %d templates: %v", name, visited, err)
			return err
		}

		visited++
		if err := visit(record); err != nil {
			if errors.Is(err, codec.ErrStop) {
				break
			}
			return err
		}
	}

	s.sink.Logf("scanned %d templates (%d bytes) from %s", visited, reader.Offset(), name)
	return nil
}

func (s *Scanner) scanParallel(ctx context.Context, path string, visit codec.Visitor) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ioError("read", path, err)
	}

	// Every boundary is validated before any worker starts.
	spans, err := codec.Locate(data, 0, int64(len(data)))
	if err != nil {
		s.sink.Logf("scan %s rejected: %v", path, err)
		return errors.Wrapf(err, "scan %s", path)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)

	var stopped atomic.Bool
	var visited atomic.Int64
	dispatched := 0
	for _, span := range spans {
		if stopped.Load() || gctx.Err() != nil {
			break
		}
		dispatched++
		g.Go(func() error {
			// g.Go may have waited for a slot freed by the stopping visitor.
			if stopped.Load() {
				return nil
			}
			record, _, err := s.codec.Decode(data, span.Offset)
			if err != nil {
				return err
			}
			if err := visit(record); err != nil {
				if errors.Is(err, codec.ErrStop) {
					stopped.Store(true)
					return nil
				}
				return err
			}
			visited.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	if dispatched < len(spans) && !stopped.Load() {
		return ctx.Err()
	}

	s.sink.Logf("scanned %d of %d templates from %s with %d workers", visited.Load(), len(spans), path, s.config.Workers)
	return nil
}

// Locate runs the boundary-location pass over the file at path.
func (s *Scanner) Locate(path string) ([]codec.Span, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ioError("read", path, err)
	}
	spans, err := codec.Locate(data, 0, int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "locate %s", path)
	}
	return spans, nil
}
