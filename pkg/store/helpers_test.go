package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/utgallery/pkg/codec"
)

// testRecord builds a small template whose image ID and label derive from i.
func testRecord(t testing.TB, i int) *codec.Record {
	t.Helper()
	id := codec.ImageIDFromContent([]byte(fmt.Sprintf("image-%d", i%7)))
	r, err := codec.New(id, int32(i%3), uint32(i), uint32(i*2), 64, 64, uint32(i%5),
		fmt.Sprintf("http://x/%d.jpg", i), codec.Float32Bytes([]float32{float32(i), 1, 2}))
	require.NoError(t, err)
	return r
}

// writeGallery writes n test records to a fresh gallery file and returns its
// path and contents.
func writeGallery(t testing.TB, n int) (string, []byte) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gallery.utg")
	return path, writeRecords(t, path, n)
}

func writeRecords(t testing.TB, path string, n int) []byte {
	t.Helper()
	c := codec.NewRecordCodec()
	var buf []byte
	for i := 0; i < n; i++ {
		buf = c.AppendEncoded(buf, testRecord(t, i))
	}
	require.NoError(t, os.WriteFile(path, buf, 0600))
	return buf
}

// recordOffsets returns the start offset of every record in buf.
func recordOffsets(t testing.TB, buf []byte) []int64 {
	t.Helper()
	spans, err := codec.Locate(buf, 0, int64(len(buf)))
	require.NoError(t, err)
	offsets := make([]int64, len(spans))
	for i, s := range spans {
		offsets[i] = s.Offset
	}
	return offsets
}
