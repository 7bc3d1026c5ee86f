package store

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/codec"
	"github.com/ssargent/utgallery/pkg/index"
)

func openGallery(t *testing.T, path string) *Gallery {
	t.Helper()
	g, err := NewGallery(GalleryConfig{FilePath: path, FsyncInterval: -1})
	require.NoError(t, err)
	_, err = g.Open()
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestNewGallery_RequiresPath(t *testing.T) {
	_, err := NewGallery(GalleryConfig{})
	assert.Error(t, err)
}

func TestGallery_BasicOperations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.utg")
	g := openGallery(t, path)
	assert.True(t, g.IsOpen())

	var want []codec.Header
	for i := 0; i < 10; i++ {
		r := testRecord(t, i)
		entry, err := g.Append(r)
		require.NoError(t, err)
		assert.Equal(t, r.Size(), entry.Size)
		assert.Equal(t, r.Header().Label, entry.Label)
		want = append(want, r.Header())
	}

	// Reads see appends that are still buffered.
	// Records 2 and 9 come from the same image.
	id := testRecord(t, 2).Header().ImageID
	records, err := g.Get(id)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(2), records[0].Header().X)
	assert.Equal(t, uint32(9), records[1].Header().X)

	_, err = g.Get(codec.ImageIDFromContent([]byte("unknown")))
	assert.ErrorIs(t, err, ErrNotFound)

	var got []codec.Header
	err = g.Scan(context.Background(), func(r *codec.Record) error {
		got = append(got, r.Header())
		return nil
	}, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	stats := g.Stats()
	assert.Equal(t, 10, stats.Templates)
	assert.Equal(t, 7, stats.Images)
	assert.Equal(t, 5, stats.Labels)
	assert.Equal(t, 3, stats.Algorithms)
	assert.False(t, stats.OpenedAt.IsZero())
}

func TestGallery_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.utg")

	g, err := NewGallery(GalleryConfig{FilePath: path, FsyncInterval: -1})
	require.NoError(t, err)
	_, err = g.Open()
	require.NoError(t, err)
	entries, err := g.AppendAll([]*codec.Record{testRecord(t, 0), testRecord(t, 1), testRecord(t, 2)})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.NoError(t, g.Close())

	g2, err := NewGallery(GalleryConfig{FilePath: path})
	require.NoError(t, err)
	result, err := g2.Open()
	require.NoError(t, err)
	defer g2.Close()

	assert.Equal(t, int64(3), result.Records)
	assert.Equal(t, entries[2].Span().End(), result.FileSize)

	record, err := g2.ReadAt(entries[1].Offset)
	require.NoError(t, err)
	assert.Equal(t, "http://x/1.jpg", record.URL())

	// Open on an open gallery is a no-op.
	again, err := g2.Open()
	require.NoError(t, err)
	assert.Equal(t, int64(3), again.Records)
}

func TestGallery_OpenExistingPlainFile(t *testing.T) {
	path, buf := writeGallery(t, 12)
	g := openGallery(t, path)

	assert.Equal(t, int64(len(buf)), g.Stats().DataSize)
	assert.Equal(t, 12, g.Stats().Templates)

	entry, err := g.Append(testRecord(t, 12))
	require.NoError(t, err)
	assert.Equal(t, int64(len(buf)), entry.Offset)
}

func TestGallery_OpenRejectsCorruption(t *testing.T) {
	_, buf := writeGallery(t, 3)
	path := filepath.Join(t.TempDir(), "g.utg")
	corrupt := append(append([]byte{}, buf...), 1, 2, 3)
	require.NoError(t, os.WriteFile(path, corrupt, 0600))

	g, err := NewGallery(GalleryConfig{FilePath: path})
	require.NoError(t, err)

	_, err = g.Open()
	require.ErrorIs(t, err, codec.ErrTruncatedHeader)
	off, ok := codec.ErrorOffset(err)
	require.True(t, ok)
	assert.Equal(t, int64(len(buf)), off)
	assert.False(t, g.IsOpen())

	// The file is left exactly as it was.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, corrupt, data)

	// Repair is explicit and then Open succeeds.
	result, err := g.Repair(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.BytesTruncated)

	_, err = g.Open()
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, 3, g.Stats().Templates)
}

func TestGallery_RepairRequiresClosed(t *testing.T) {
	g := openGallery(t, filepath.Join(t.TempDir(), "g.utg"))
	_, err := g.Repair(context.Background())
	assert.ErrorIs(t, err, ErrGalleryOpen)
}

func TestGallery_ClosedOperations(t *testing.T) {
	g, err := NewGallery(GalleryConfig{FilePath: filepath.Join(t.TempDir(), "g.utg")})
	require.NoError(t, err)

	_, err = g.Append(testRecord(t, 1))
	assert.ErrorIs(t, err, ErrGalleryClosed)
	_, err = g.AppendAll([]*codec.Record{testRecord(t, 1)})
	assert.ErrorIs(t, err, ErrGalleryClosed)
	_, err = g.Get([16]byte{})
	assert.ErrorIs(t, err, ErrGalleryClosed)
	_, err = g.ReadAt(0)
	assert.ErrorIs(t, err, ErrGalleryClosed)
	_, err = g.Lookup(index.FieldLabel, 0, 1)
	assert.ErrorIs(t, err, ErrGalleryClosed)
	err = g.Scan(context.Background(), func(*codec.Record) error { return nil }, false)
	assert.ErrorIs(t, err, ErrGalleryClosed)

	assert.Equal(t, 0, g.Stats().Templates)
	assert.NoError(t, g.Close())
}

func TestGallery_AccessorsAfterClose(t *testing.T) {
	g := openGallery(t, filepath.Join(t.TempDir(), "g.utg"))
	_, err := g.Append(testRecord(t, 1))
	require.NoError(t, err)

	assert.True(t, g.Indexed(index.FieldLabel))
	assert.Len(t, g.ImageIDs(""), 1)

	require.NoError(t, g.Close())
	assert.False(t, g.Indexed(index.FieldLabel))
	assert.Empty(t, g.ImageIDs(""))
}

func TestGallery_Lookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.utg")
	g := openGallery(t, path)

	var offsets []int64
	for i := 0; i < 20; i++ {
		entry, err := g.Append(testRecord(t, i))
		require.NoError(t, err)
		offsets = append(offsets, entry.Offset)
	}

	got, err := g.Lookup(index.FieldLabel, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{offsets[2], offsets[7], offsets[12], offsets[17]}, got)

	got, err = g.Lookup(index.FieldAlgorithmID, 0, 1)
	require.NoError(t, err)
	assert.Len(t, got, 14)
	assert.IsIncreasing(t, got)

	_, err = g.Lookup("width", 0, 100)
	assert.ErrorIs(t, err, ErrNotIndexed)
	assert.True(t, g.Indexed(index.FieldLabel))
	assert.False(t, g.Indexed("width"))
}

func TestGallery_ParallelScan(t *testing.T) {
	path, _ := writeGallery(t, 100)
	g, err := NewGallery(GalleryConfig{FilePath: path, Scanner: ScannerConfig{Workers: 8}})
	require.NoError(t, err)
	_, err = g.Open()
	require.NoError(t, err)
	defer g.Close()

	var mu sync.Mutex
	seen := map[uint32]bool{}
	err = g.Scan(context.Background(), func(r *codec.Record) error {
		mu.Lock()
		defer mu.Unlock()
		seen[r.Header().X] = true
		return nil
	}, true)
	require.NoError(t, err)
	assert.Len(t, seen, 100)
}

func TestGallery_Verify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.utg")
	g := openGallery(t, path)

	for i := 0; i < 4; i++ {
		_, err := g.Append(testRecord(t, i))
		require.NoError(t, err)
	}

	result, err := g.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Corrupt)
	assert.Equal(t, int64(4), result.Records)
}

func TestGallery_ConcurrentAppendAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "g.utg")
	g := openGallery(t, path)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				r := testRecord(t, w*25+i)
				entry, err := g.Append(r)
				if !assert.NoError(t, err) {
					return
				}
				got, err := g.ReadAt(entry.Offset)
				if assert.NoError(t, err) {
					assert.Equal(t, r.Header(), got.Header())
				}
			}
		}(w)
	}
	wg.Wait()

	result, err := g.Verify(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Corrupt)
	assert.Equal(t, int64(100), result.Records)
}
